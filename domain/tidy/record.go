package tidy

// Key is the composite key of a tidy table.
type Key struct {
	Institution string `json:"institution"`
	Year        int    `json:"year"`
}

// SeriesPoint is one (year, value) observation of one institution for one statistic.
type SeriesPoint struct {
	Year  int
	Value Value
}

// Record is one flattened observation exchanged between extraction and merge.
type Record struct {
	Institution string
	Year        int
	Statistic   string
	Value       Value
}

// Key returns the record's composite key.
func (r Record) Key() Key {
	return Key{Institution: r.Institution, Year: r.Year}
}

// SeriesSet maps institution names to their series and remembers the order in
// which names were first seen.
type SeriesSet struct {
	order  []string
	series map[string][]SeriesPoint
}

// NewSeriesSet creates an empty set.
func NewSeriesSet() *SeriesSet {
	return &SeriesSet{series: make(map[string][]SeriesPoint)}
}

// Len returns the number of institutions.
func (s *SeriesSet) Len() int {
	return len(s.order)
}

// Names returns institution names in first-seen order.
func (s *SeriesSet) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Series returns the points for name.
func (s *SeriesSet) Series(name string) ([]SeriesPoint, bool) {
	pts, ok := s.series[name]
	return pts, ok
}

// Has reports whether name is present.
func (s *SeriesSet) Has(name string) bool {
	_, ok := s.series[name]
	return ok
}

// Put sets the series for name, keeping the original position if name exists.
func (s *SeriesSet) Put(name string, points []SeriesPoint) {
	if _, ok := s.series[name]; !ok {
		s.order = append(s.order, name)
	}
	s.series[name] = points
}

// Append adds points after any existing points for name.
func (s *SeriesSet) Append(name string, points []SeriesPoint) {
	existing, ok := s.series[name]
	if !ok {
		s.order = append(s.order, name)
	}
	merged := make([]SeriesPoint, 0, len(existing)+len(points))
	merged = append(merged, existing...)
	merged = append(merged, points...)
	s.series[name] = merged
}
