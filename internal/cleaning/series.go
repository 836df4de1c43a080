package cleaning

import (
	"gradtrends/domain/core"
	"gradtrends/domain/source"
	"gradtrends/domain/tidy"
)

// Extractor converts one source's wide table into per-institution series.
type Extractor struct {
	spec source.Spec
	rule HeaderRule
}

// NewExtractor creates an extractor for the declared source.
func NewExtractor(spec source.Spec) *Extractor {
	return &Extractor{spec: spec, rule: RuleFor(spec)}
}

// Extract zips the year column with every institution column. Row order is
// preserved, not re-sorted. Rows with a blank year are skipped.
func (e *Extractor) Extract(table *source.RawTable) (*tidy.SeriesSet, error) {
	if table == nil || len(table.Headers) == 0 {
		return nil, core.ErrEmptySource
	}

	years, rows, err := e.yearColumn(table)
	if err != nil {
		return nil, err
	}

	set := tidy.NewSeriesSet()
	origin := make(map[string]string) // institution -> header it came from
	for col := 1; col < len(table.Headers); col++ {
		header := table.Headers[col]
		name, err := e.rule.Parse(header)
		if err != nil {
			return nil, err
		}

		points := make([]tidy.SeriesPoint, len(rows))
		for i, row := range rows {
			points[i] = tidy.SeriesPoint{Year: years[i], Value: ParseCell(table.Cell(row, col))}
		}

		if first, seen := origin[name]; seen {
			switch e.spec.Policy() {
			case source.CollisionAppend:
				set.Append(name, points)
			case source.CollisionLastWins:
				set.Put(name, points)
			default:
				return nil, core.NewNameCollisionError(name, first, header)
			}
			continue
		}
		origin[name] = header
		set.Put(name, points)
	}
	return set, nil
}

// yearColumn returns the parsed years and the indexes of the rows they belong to.
func (e *Extractor) yearColumn(table *source.RawTable) ([]int, []int, error) {
	years := make([]int, 0, len(table.Rows))
	rows := make([]int, 0, len(table.Rows))
	for i := range table.Rows {
		cell := table.Cell(i, 0)
		year, ok, blank := parseYear(cell)
		if blank {
			continue
		}
		if !ok {
			return nil, nil, core.NewMalformedYearError(i, cell)
		}
		years = append(years, year)
		rows = append(rows, i)
	}
	return years, rows, nil
}

// ExtractSeries is a convenience wrapper for a single table.
func ExtractSeries(spec source.Spec, table *source.RawTable) (*tidy.SeriesSet, error) {
	return NewExtractor(spec).Extract(table)
}
