package tidy

import (
	"gradtrends/domain/core"
)

// Builder assembles a Table. It owns a private copy of its starting table, so
// the table it was seeded from is never modified.
type Builder struct {
	t *Table
}

// NewBuilder starts from an empty table.
func NewBuilder() *Builder {
	return &Builder{t: NewTable()}
}

// BuilderFrom starts from a copy of t.
func BuilderFrom(t *Table) *Builder {
	if t == nil {
		return NewBuilder()
	}
	return &Builder{t: t.deepCopy()}
}

// HasColumn reports whether the table under construction has name.
func (b *Builder) HasColumn(name string) bool {
	return b.t.HasColumn(name)
}

// Columns returns the current column names in order.
func (b *Builder) Columns() []string {
	return b.t.Columns()
}

// Role returns the role recorded for column.
func (b *Builder) Role(column string) string {
	return b.t.roles[column]
}

// Len returns the current row count.
func (b *Builder) Len() int {
	return len(b.t.keys)
}

// EnsureKey returns the row of k, appending a row of sentinels if k is new.
func (b *Builder) EnsureKey(k Key) (row int, added bool) {
	if i, ok := b.t.index[k]; ok {
		return i, false
	}
	i := len(b.t.keys)
	b.t.keys = append(b.t.keys, k)
	b.t.index[k] = i
	for _, c := range b.t.columns {
		b.t.cells[c] = append(b.t.cells[c], Missing())
	}
	return i, true
}

// AddColumn appends a column filled with sentinels.
func (b *Builder) AddColumn(name, role string) error {
	if b.t.HasColumn(name) {
		return core.NewColumnCollisionError(name, "column already exists")
	}
	b.t.columns = append(b.t.columns, name)
	b.t.cells[name] = make([]Value, len(b.t.keys))
	b.t.roles[name] = role
	return nil
}

// RenameColumn renames a column in place, keeping its position.
func (b *Builder) RenameColumn(from, to string) error {
	if !b.t.HasColumn(from) {
		return core.NewMissingColumnError(from)
	}
	if b.t.HasColumn(to) {
		return core.NewColumnCollisionError(to, "rename target already exists")
	}
	for i, c := range b.t.columns {
		if c == from {
			b.t.columns[i] = to
		}
	}
	b.t.cells[to] = b.t.cells[from]
	b.t.roles[to] = b.t.roles[from]
	delete(b.t.cells, from)
	delete(b.t.roles, from)
	return nil
}

// Set writes one cell.
func (b *Builder) Set(row int, column string, v Value) error {
	col, ok := b.t.cells[column]
	if !ok {
		return core.NewMissingColumnError(column)
	}
	col[row] = v
	return nil
}

// Table returns the finished table. The builder must not be used afterwards.
func (b *Builder) Table() *Table {
	t := b.t
	b.t = NewTable()
	return t
}
