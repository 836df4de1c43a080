// Package report summarises filtered views of the tidy table: per-institution
// means, best-fit lines and correlation, rendered as Markdown or HTML.
package report

import (
	"fmt"

	"gradtrends/domain/tidy"

	"github.com/montanaflynn/stats"
)

// Summary holds descriptive statistics for one column.
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Present returns the non-sentinel values of column in row order.
func Present(table *tidy.Table, column string) ([]float64, error) {
	if err := table.RequireColumns(column); err != nil {
		return nil, err
	}
	var out []float64
	for i := 0; i < table.Len(); i++ {
		if v, ok := table.Value(i, column).Float(); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// Describe computes a Summary. Empty input is an error.
func Describe(data []float64) (Summary, error) {
	s := Summary{N: len(data)}
	if len(data) == 0 {
		return s, stats.ErrEmptyInput
	}

	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}
	if len(data) > 1 {
		if s.StdDev, err = stats.StandardDeviationSample(data); err != nil {
			return s, err
		}
	}
	if s.Min, err = stats.Min(data); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	return s, nil
}

// DescribeColumn is Describe over a table column's present values.
func DescribeColumn(table *tidy.Table, column string) (Summary, error) {
	data, err := Present(table, column)
	if err != nil {
		return Summary{}, err
	}
	s, err := Describe(data)
	if err != nil {
		return s, fmt.Errorf("describe %s: %w", column, err)
	}
	return s, nil
}

// InstitutionMeans is one institution's mean of each requested column over the
// years it reported.
type InstitutionMeans struct {
	Institution string                `json:"institution"`
	Means       map[string]tidy.Value `json:"means"`
	Years       int                   `json:"years"`
}

// Means averages columns per institution, in first-appearance order. A column
// with no present values for an institution has the sentinel as its mean.
func Means(table *tidy.Table, columns ...string) ([]InstitutionMeans, error) {
	if err := table.RequireColumns(columns...); err != nil {
		return nil, err
	}

	rows := make(map[string][]int)
	for i := 0; i < table.Len(); i++ {
		name := table.Key(i).Institution
		rows[name] = append(rows[name], i)
	}

	out := make([]InstitutionMeans, 0, len(rows))
	for _, name := range table.Institutions() {
		m := InstitutionMeans{Institution: name, Means: make(map[string]tidy.Value, len(columns)), Years: len(rows[name])}
		for _, c := range columns {
			var data stats.Float64Data
			for _, i := range rows[name] {
				if v, ok := table.Value(i, c).Float(); ok {
					data = append(data, v)
				}
			}
			mean, err := data.Mean()
			if err != nil {
				m.Means[c] = tidy.Missing()
				continue
			}
			m.Means[c] = tidy.Of(mean)
		}
		out = append(out, m)
	}
	return out, nil
}
