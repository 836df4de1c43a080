package tidy

import (
	"fmt"
	"strconv"
	"strings"

	"gradtrends/domain/core"
)

// Table is a long-format table keyed by (institution, year). Every column has
// one Value per key; absent data is the sentinel. Tables are never modified
// after construction: transformations return new tables.
type Table struct {
	keys    []Key
	index   map[Key]int
	columns []string
	roles   map[string]string
	cells   map[string][]Value
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		index: make(map[Key]int),
		roles: make(map[string]string),
		cells: make(map[string][]Value),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.keys)
}

// Key returns the key of row i.
func (t *Table) Key(i int) Key {
	return t.keys[i]
}

// Keys returns all keys in row order.
func (t *Table) Keys() []Key {
	out := make([]Key, len(t.keys))
	copy(out, t.keys)
	return out
}

// RowOf returns the row index of k.
func (t *Table) RowOf(k Key) (int, bool) {
	i, ok := t.index[k]
	return i, ok
}

// Columns returns column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether name is a column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cells[name]
	return ok
}

// RequireColumns fails with ErrMissingRequiredColumn on the first absent name.
func (t *Table) RequireColumns(names ...string) error {
	for _, n := range names {
		if !t.HasColumn(n) {
			return core.NewMissingColumnError(n)
		}
	}
	return nil
}

// Role returns the declared role of the source that introduced column.
func (t *Table) Role(column string) string {
	return t.roles[column]
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]Value, bool) {
	col, ok := t.cells[name]
	if !ok {
		return nil, false
	}
	out := make([]Value, len(col))
	copy(out, col)
	return out, true
}

// Value returns the cell at row i of column; unknown columns read as missing.
func (t *Table) Value(i int, column string) Value {
	col, ok := t.cells[column]
	if !ok || i < 0 || i >= len(col) {
		return Missing()
	}
	return col[i]
}

// Lookup returns the cell for key k.
func (t *Table) Lookup(k Key, column string) (Value, bool) {
	i, ok := t.index[k]
	if !ok || !t.HasColumn(column) {
		return Missing(), false
	}
	return t.cells[column][i], true
}

// Institutions returns distinct institutions in first-appearance order.
func (t *Table) Institutions() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, k := range t.keys {
		if _, ok := seen[k.Institution]; ok {
			continue
		}
		seen[k.Institution] = struct{}{}
		out = append(out, k.Institution)
	}
	return out
}

// Row is a materialised table row.
type Row struct {
	Key
	Values map[string]Value `json:"values"`
}

// Rows materialises every row.
func (t *Table) Rows() []Row {
	rows := make([]Row, len(t.keys))
	for i, k := range t.keys {
		vals := make(map[string]Value, len(t.columns))
		for _, c := range t.columns {
			vals[c] = t.cells[c][i]
		}
		rows[i] = Row{Key: k, Values: vals}
	}
	return rows
}

// WithColumn returns a table with an extra column. Keys and existing columns are
// unchanged.
func (t *Table) WithColumn(name, role string, values []Value) (*Table, error) {
	if t.HasColumn(name) {
		return nil, core.NewColumnCollisionError(name, "column already exists")
	}
	if len(values) != len(t.keys) {
		return nil, fmt.Errorf("%w: %s has %d values for %d rows", core.ErrColumnLength, name, len(values), len(t.keys))
	}
	out := t.shallowCopy()
	col := make([]Value, len(values))
	copy(col, values)
	out.columns = append(out.columns, name)
	out.cells[name] = col
	out.roles[name] = role
	return out, nil
}

// Select returns the rows for which keep returns true, in the original order.
func (t *Table) Select(keep func(i int, k Key) bool) *Table {
	out := NewTable()
	out.columns = append(out.columns, t.columns...)
	for c, r := range t.roles {
		out.roles[c] = r
	}
	var idx []int
	for i, k := range t.keys {
		if keep(i, k) {
			idx = append(idx, i)
		}
	}
	out.keys = make([]Key, len(idx))
	for j, i := range idx {
		out.keys[j] = t.keys[i]
		out.index[t.keys[i]] = j
	}
	for _, c := range t.columns {
		src := t.cells[c]
		col := make([]Value, len(idx))
		for j, i := range idx {
			col[j] = src[i]
		}
		out.cells[c] = col
	}
	return out
}

// Project keeps only the named columns, in the order given.
func (t *Table) Project(columns ...string) (*Table, error) {
	if err := t.RequireColumns(columns...); err != nil {
		return nil, err
	}
	out := NewTable()
	out.keys = t.Keys()
	for k, i := range t.index {
		out.index[k] = i
	}
	for _, c := range columns {
		if out.HasColumn(c) {
			continue
		}
		out.columns = append(out.columns, c)
		out.cells[c] = t.cells[c]
		out.roles[c] = t.roles[c]
	}
	return out, nil
}

// Fingerprint hashes keys, column names and every cell in row order.
func (t *Table) Fingerprint() core.TableFingerprint {
	var b strings.Builder
	b.WriteString(strings.Join(t.columns, ","))
	b.WriteByte('\n')
	for i, k := range t.keys {
		b.WriteString(k.Institution)
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(k.Year))
		for _, c := range t.columns {
			b.WriteByte('|')
			b.WriteString(t.cells[c][i].String())
		}
		b.WriteByte('\n')
	}
	return core.NewTableFingerprint([]byte(b.String()))
}

// shallowCopy shares column slices; callers must not write through them.
func (t *Table) shallowCopy() *Table {
	out := NewTable()
	out.keys = t.keys
	out.index = t.index
	out.columns = append(out.columns, t.columns...)
	for c, col := range t.cells {
		out.cells[c] = col
		out.roles[c] = t.roles[c]
	}
	return out
}

func (t *Table) deepCopy() *Table {
	out := NewTable()
	out.keys = t.Keys()
	for k, i := range t.index {
		out.index[k] = i
	}
	out.columns = t.Columns()
	for c, col := range t.cells {
		cp := make([]Value, len(col))
		copy(cp, col)
		out.cells[c] = cp
		out.roles[c] = t.roles[c]
	}
	return out
}
