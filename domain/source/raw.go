package source

// RawRow is one row of a wide table, cells aligned with RawTable.Headers.
type RawRow []string

// RawTable is a wide statistical table as published: the first column holds the
// year and every other column holds one institution's values for one statistic.
type RawTable struct {
	Headers []string // Column headers, year column first
	Rows    []RawRow // Data rows in source order
}

// NewRawTable builds a table from a header row and data rows.
func NewRawTable(headers []string, rows ...[]string) *RawTable {
	t := &RawTable{Headers: headers, Rows: make([]RawRow, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, RawRow(r))
	}
	return t
}

// YearHeader returns the header of the year column.
func (t *RawTable) YearHeader() string {
	if len(t.Headers) == 0 {
		return ""
	}
	return t.Headers[0]
}

// ValueHeaders returns every header after the year column.
func (t *RawTable) ValueHeaders() []string {
	if len(t.Headers) < 2 {
		return nil
	}
	return t.Headers[1:]
}

// Cell returns the cell at (row, col); short rows read as empty cells.
func (t *RawTable) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// CellByHeader looks a cell up by header name. The first column carrying that
// header wins.
func (t *RawTable) CellByHeader(row int, header string) (string, bool) {
	for i, h := range t.Headers {
		if h == header {
			return t.Cell(row, i), true
		}
	}
	return "", false
}
