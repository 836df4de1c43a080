package report

import (
	"fmt"
	"math"

	"gradtrends/domain/tidy"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Fit is the least-squares line y = Intercept + Slope*x and Pearson's r over
// the paired observations.
type Fit struct {
	X         string  `json:"x"`
	Y         string  `json:"y"`
	N         int     `json:"n"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R         float64 `json:"r"`
	RSquared  float64 `json:"r_squared"`
	PValue    float64 `json:"p_value"`
}

// ErrTooFewPairs is returned when fewer than three complete pairs exist.
var ErrTooFewPairs = fmt.Errorf("need at least 3 complete (x, y) pairs")

// FitLine fits y on x using rows where both are present.
func FitLine(table *tidy.Table, x, y string) (Fit, error) {
	if err := table.RequireColumns(x, y); err != nil {
		return Fit{}, err
	}
	var xs, ys []float64
	for i := 0; i < table.Len(); i++ {
		xv, okX := table.Value(i, x).Float()
		yv, okY := table.Value(i, y).Float()
		if okX && okY {
			xs = append(xs, xv)
			ys = append(ys, yv)
		}
	}
	f, err := FitPairs(xs, ys)
	f.X, f.Y = x, y
	return f, err
}

// FitMeans fits y on x over per-institution means, the "average" flavour of
// the scatter plots.
func FitMeans(means []InstitutionMeans, x, y string) (Fit, error) {
	var xs, ys []float64
	for _, m := range means {
		xv, okX := m.Means[x].Float()
		yv, okY := m.Means[y].Float()
		if okX && okY {
			xs = append(xs, xv)
			ys = append(ys, yv)
		}
	}
	f, err := FitPairs(xs, ys)
	f.X, f.Y = x, y
	return f, err
}

// FitPairs fits ys on xs. The p-value is the two-sided test of r = 0.
func FitPairs(xs, ys []float64) (Fit, error) {
	f := Fit{N: len(xs)}
	if len(xs) != len(ys) {
		return f, fmt.Errorf("length mismatch: %d x values, %d y values", len(xs), len(ys))
	}
	if len(xs) < 3 {
		return f, ErrTooFewPairs
	}
	if stat.Variance(xs, nil) == 0 {
		return f, fmt.Errorf("x is constant across %d pairs", len(xs))
	}

	f.Intercept, f.Slope = stat.LinearRegression(xs, ys, nil, false)
	f.R = stat.Correlation(xs, ys, nil)
	if math.IsNaN(f.R) {
		// constant y
		f.R = 0
	}
	f.RSquared = f.R * f.R
	f.PValue = correlationPValue(f.R, len(xs))
	return f, nil
}

func correlationPValue(r float64, n int) float64 {
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}
