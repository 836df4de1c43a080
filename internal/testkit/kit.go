// Package testkit builds synthetic wide tables for tests and demos.
package testkit

import (
	"strconv"
	"strings"

	"gradtrends/domain/core"
	"gradtrends/domain/source"
)

// Column is one institution column of a wide table.
type Column struct {
	Header string
	Cells  []string
}

// Wide builds a RawTable with a "Time" year column followed by cols.
func Wide(years []int, cols ...Column) *source.RawTable {
	headers := make([]string, 0, len(cols)+1)
	headers = append(headers, "Time")
	for _, c := range cols {
		headers = append(headers, c.Header)
	}

	rows := make([][]string, len(years))
	for i, y := range years {
		row := make([]string, 0, len(cols)+1)
		row = append(row, strconv.Itoa(y))
		for _, c := range cols {
			cell := ""
			if i < len(c.Cells) {
				cell = c.Cells[i]
			}
			row = append(row, cell)
		}
		rows[i] = row
	}
	return source.NewRawTable(headers, rows...)
}

// Cells formats numbers as raw cells.
func Cells(values ...float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}

// Header wraps name in prefix and suffix boilerplate.
func Header(prefix, name, suffix string) string {
	return strings.TrimSpace(strings.Join([]string{prefix, name, suffix}, " "))
}

// SchoolTable is the three-school fixture with one-token boilerplate on each
// side: School 1 = [5,7,6], School 2 = [4,5,2], School 3 = [3,4,1] over years 1..3.
func SchoolTable() *source.RawTable {
	return Wide([]int{1, 2, 3},
		Column{Header: Header("Total", "School 1", "count"), Cells: Cells(5, 7, 6)},
		Column{Header: Header("Total", "School 2", "count"), Cells: Cells(4, 5, 2)},
		Column{Header: Header("Total", "School 3", "count"), Cells: Cells(3, 4, 1)},
	)
}

// SchoolTableWideBoilerplate is SchoolTable with two prefix and three suffix tokens.
func SchoolTableWideBoilerplate() *source.RawTable {
	return Wide([]int{1, 2, 3},
		Column{Header: Header("## Total", "School 1", "first time count"), Cells: Cells(5, 7, 6)},
		Column{Header: Header("## Total", "School 2", "first time count"), Cells: Cells(4, 5, 2)},
		Column{Header: Header("## Total", "School 3", "first time count"), Cells: Cells(3, 4, 1)},
	)
}

// StatTable builds a one-token boilerplate table for statistic values per school.
func StatTable(years []int, values map[string][]float64, order ...string) *source.RawTable {
	cols := make([]Column, 0, len(order))
	for _, name := range order {
		cols = append(cols, Column{Header: Header("Total", name, "count"), Cells: Cells(values[name]...)})
	}
	return Wide(years, cols...)
}

// OneTokenSpec declares a source with one boilerplate token on each side.
func OneTokenSpec(id, statistic, role string) source.Spec {
	return source.Spec{
		ID:        core.SourceID(id),
		Version:   1,
		Statistic: statistic,
		Role:      role,
		PrefixLen: 1,
		SuffixLen: 1,
	}
}
