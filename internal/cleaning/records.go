package cleaning

import (
	"gradtrends/domain/source"
	"gradtrends/domain/tidy"
)

// BuildRecords flattens set into one record per point, grouped by institution in
// set order and then by year in series order. Missing values stay missing.
func BuildRecords(set *tidy.SeriesSet, statistic string) []tidy.Record {
	var records []tidy.Record
	for _, name := range set.Names() {
		points, _ := set.Series(name)
		for _, p := range points {
			records = append(records, tidy.Record{
				Institution: name,
				Year:        p.Year,
				Statistic:   statistic,
				Value:       p.Value,
			})
		}
	}
	return records
}

// Source runs the full extraction for one declared source: parse headers,
// extract series, flatten to records.
func Source(spec source.Spec, table *source.RawTable) ([]tidy.Record, *tidy.SeriesSet, error) {
	set, err := ExtractSeries(spec, table)
	if err != nil {
		return nil, nil, err
	}
	return BuildRecords(set, spec.Statistic), set, nil
}
