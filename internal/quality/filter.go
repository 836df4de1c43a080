// Package quality drops institutions and rows that are unfit for reporting:
// institutions outside a category, institutions with too few observations of a
// required column, and rows missing mandatory values.
package quality

import (
	"fmt"
	"sort"

	"gradtrends/domain/tidy"
)

// Override pins an institution's category regardless of raw set membership.
type Override struct {
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Excluded bool   `json:"excluded,omitempty" yaml:"excluded,omitempty"`
}

// Overrides maps institution name to its override.
type Overrides map[string]Override

// Excluded reports whether institution is always dropped.
func (o Overrides) Excluded(institution string) bool {
	return o[institution].Excluded
}

// Belongs reports whether institution counts as a member of set. Exclusions win,
// then an explicit override category, then raw membership.
func (o Overrides) Belongs(institution string, set tidy.CategorySet) bool {
	ov, ok := o[institution]
	if ok && ov.Excluded {
		return false
	}
	if ok && ov.Category != "" {
		return ov.Category == set.Name()
	}
	return set.Contains(institution)
}

// RestrictToCategory keeps rows whose institution belongs to set.
func RestrictToCategory(table *tidy.Table, set tidy.CategorySet, overrides Overrides) *tidy.Table {
	return table.Select(func(_ int, k tidy.Key) bool {
		return overrides.Belongs(k.Institution, set)
	})
}

// DropExcluded removes institutions flagged as excluded without restricting to a
// category.
func DropExcluded(table *tidy.Table, overrides Overrides) *tidy.Table {
	if len(overrides) == 0 {
		return table
	}
	return table.Select(func(_ int, k tidy.Key) bool {
		return !overrides.Excluded(k.Institution)
	})
}

// Observations counts non-sentinel values of column per institution.
func Observations(table *tidy.Table, column string) (map[string]int, error) {
	if err := table.RequireColumns(column); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for i := 0; i < table.Len(); i++ {
		name := table.Key(i).Institution
		if _, ok := counts[name]; !ok {
			counts[name] = 0
		}
		if !table.Value(i, column).IsMissing() {
			counts[name]++
		}
	}
	return counts, nil
}

// FilterSufficient drops every row of institutions with fewer than
// minObservations present values in column. Institutions are kept or removed
// as a whole.
func FilterSufficient(table *tidy.Table, column string, minObservations int) (*tidy.Table, error) {
	counts, err := Observations(table, column)
	if err != nil {
		return nil, err
	}
	return table.Select(func(_ int, k tidy.Key) bool {
		return counts[k.Institution] >= minObservations
	}), nil
}

// DropMissing drops rows with the sentinel in any mandatory column.
func DropMissing(table *tidy.Table, mandatory ...string) (*tidy.Table, error) {
	if err := table.RequireColumns(mandatory...); err != nil {
		return nil, err
	}
	return table.Select(func(i int, _ tidy.Key) bool {
		for _, c := range mandatory {
			if table.Value(i, c).IsMissing() {
				return false
			}
		}
		return true
	}), nil
}

// Criteria configures Filter.
type Criteria struct {
	// Category, when set, names the set in Set to restrict to.
	Category  string
	Set       tidy.CategorySet
	Overrides Overrides

	RequiredColumn  string
	MinObservations int

	// Projection, when non-empty, is the column list of the result.
	Projection []string
	// Mandatory columns must be present on every kept row. Defaults to
	// Projection.
	Mandatory []string
}

// Validate checks the criteria against table's columns.
func (c Criteria) Validate(table *tidy.Table) error {
	if c.MinObservations < 0 {
		return fmt.Errorf("min observations must be >= 0, got %d", c.MinObservations)
	}
	if c.Category != "" && c.Set.Name() != c.Category {
		return fmt.Errorf("category %q given with set %q", c.Category, c.Set.Name())
	}
	if c.RequiredColumn != "" {
		if err := table.RequireColumns(c.RequiredColumn); err != nil {
			return err
		}
	}
	if err := table.RequireColumns(c.Projection...); err != nil {
		return err
	}
	return table.RequireColumns(c.mandatory()...)
}

func (c Criteria) mandatory() []string {
	if c.Mandatory != nil {
		return c.Mandatory
	}
	return c.Projection
}

// Filter applies, in order: category restriction (or exclusions alone when no
// category is named), sufficiency on RequiredColumn, the mandatory-value drop
// and projection. The result only ever loses rows and columns.
func Filter(table *tidy.Table, c Criteria) (*tidy.Table, error) {
	if err := c.Validate(table); err != nil {
		return nil, err
	}

	out := table
	if c.Category != "" {
		out = RestrictToCategory(out, c.Set, c.Overrides)
	} else {
		out = DropExcluded(out, c.Overrides)
	}

	if c.RequiredColumn != "" {
		var err error
		out, err = FilterSufficient(out, c.RequiredColumn, c.MinObservations)
		if err != nil {
			return nil, err
		}
	}

	out, err := DropMissing(out, c.mandatory()...)
	if err != nil {
		return nil, err
	}
	if len(c.Projection) == 0 {
		return out, nil
	}
	return out.Project(c.Projection...)
}

// Ambiguous returns institutions that are raw members of both sets and have no
// override deciding between them, sorted.
func Ambiguous(a, b tidy.CategorySet, overrides Overrides) []string {
	var out []string
	for _, name := range a.Overlap(b) {
		ov, ok := overrides[name]
		if ok && (ov.Excluded || ov.Category != "") {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
