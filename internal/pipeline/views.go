package pipeline

import (
	"fmt"

	"gradtrends/domain/tidy"
	"gradtrends/internal/derive"
	"gradtrends/internal/quality"
)

// View is a named analysis slice of the tidy table: the institutions with
// enough observations of one metric, projected to the columns a report plots.
type View struct {
	Name            string   `json:"name"`
	RequiredColumn  string   `json:"required_column"`
	MinObservations int      `json:"min_observations"`
	Projection      []string `json:"projection"`
}

// AcceptanceView is graduation rate against acceptance rate.
func AcceptanceView(minObservations int) View {
	return View{
		Name:            "acceptance",
		RequiredColumn:  derive.PercentAccepted,
		MinObservations: minObservations,
		Projection:      []string{derive.GradRate, derive.PercentAccepted},
	}
}

// FinancialAidView is graduation rate against the share of students on aid.
func FinancialAidView(minObservations int) View {
	return View{
		Name:            "financial_aid",
		RequiredColumn:  derive.FinAidRatioCol,
		MinObservations: minObservations,
		Projection:      []string{derive.Population, derive.GradRate, derive.FinAidRatioCol},
	}
}

// Criteria builds filter criteria for the view, optionally restricted to one of
// the run's categories.
func (r *Result) Criteria(v View, category string) (quality.Criteria, error) {
	c := quality.Criteria{
		Overrides:       r.Overrides,
		RequiredColumn:  v.RequiredColumn,
		MinObservations: v.MinObservations,
		Projection:      v.Projection,
	}
	if category == "" {
		return c, nil
	}
	set, ok := r.Categories.Get(category)
	if !ok {
		return c, fmt.Errorf("unknown category %q (have %v)", category, r.Categories.Names())
	}
	c.Category = category
	c.Set = set
	return c, nil
}

// View filters the run's table through v.
func (r *Result) View(v View, category string) (*tidy.Table, error) {
	c, err := r.Criteria(v, category)
	if err != nil {
		return nil, err
	}
	table, err := quality.Filter(r.Table, c)
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", v.Name, err)
	}
	return table, nil
}
