// Package dataset merges per-statistic record sets into one tidy table.
//
// Merging is a left-to-right chain of full outer joins on (institution, year).
// Every key seen in any record set survives; cells a set does not cover hold the
// missing sentinel. Record sets are joined in the order given, so the caller
// controls both row order and which side of a name collision gets which suffix.
package dataset

import (
	"fmt"
	"time"

	"gradtrends/domain/core"
	"gradtrends/domain/tidy"
)

// MergeConfig holds configuration for merge operations. Joins are always full
// outer joins and a repeated key inside one record set always fails the merge.
type MergeConfig struct {
	ProgressCallback func(progress float64, message string) // Progress reporting
}

// DefaultMergeConfig returns a config without progress reporting.
func DefaultMergeConfig() *MergeConfig {
	return &MergeConfig{}
}

// RecordSet is one statistic's records plus the role used to disambiguate its
// column when another set already uses the same statistic name.
type RecordSet struct {
	Source    core.SourceID
	Statistic string
	Role      string
	Records   []tidy.Record
}

// NewRecordSet wraps records produced for one source.
func NewRecordSet(src core.SourceID, statistic, role string, records []tidy.Record) RecordSet {
	return RecordSet{Source: src, Statistic: statistic, Role: role, Records: records}
}

// StepStats describes one join step.
type StepStats struct {
	Source    core.SourceID     `json:"source"`
	Column    string            `json:"column"`
	Records   int               `json:"records"`
	KeysAdded int               `json:"keys_added"`
	Renamed   map[string]string `json:"renamed,omitempty"`
}

// MergeResult contains the result of a merge operation
type MergeResult struct {
	Table         *tidy.Table   `json:"-"`
	RowCount      int           `json:"row_count"`
	ColumnCount   int           `json:"column_count"`
	Steps         []StepStats   `json:"steps"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// TableMerger handles record set merging
type TableMerger struct {
	config *MergeConfig
}

// NewTableMerger creates a new merger
func NewTableMerger(config *MergeConfig) *TableMerger {
	if config == nil {
		config = DefaultMergeConfig()
	}
	return &TableMerger{config: config}
}

// Merge joins sets left to right and returns the merged table.
func (m *TableMerger) Merge(sets []RecordSet) (*tidy.Table, error) {
	result, err := m.MergeWithStats(sets)
	if err != nil {
		return nil, err
	}
	return result.Table, nil
}

// MergeWithStats is Merge plus per-step statistics.
func (m *TableMerger) MergeWithStats(sets []RecordSet) (*MergeResult, error) {
	startTime := time.Now()

	if len(sets) == 0 {
		return nil, fmt.Errorf("no record sets provided")
	}

	reportProgress(m.config, 0, "Starting outer join chain")

	acc := tidy.NewTable()
	steps := make([]StepStats, 0, len(sets))
	for i, set := range sets {
		next, step, err := m.Join(acc, set)
		if err != nil {
			return nil, fmt.Errorf("join step %d (%s): %w", i+1, set.Statistic, err)
		}
		acc = next
		steps = append(steps, step)

		progress := float64(i+1) / float64(len(sets)) * 100
		reportProgress(m.config, progress, fmt.Sprintf("Joined %s as %s (%d new keys)", set.Statistic, step.Column, step.KeysAdded))
	}

	return &MergeResult{
		Table:         acc,
		RowCount:      acc.Len(),
		ColumnCount:   len(acc.Columns()),
		Steps:         steps,
		ExecutionTime: time.Since(startTime),
	}, nil
}

// Join outer-joins one record set onto acc. acc is not modified.
func (m *TableMerger) Join(acc *tidy.Table, set RecordSet) (*tidy.Table, StepStats, error) {
	step := StepStats{Source: set.Source, Records: len(set.Records)}

	if err := checkDuplicates(set); err != nil {
		return nil, step, err
	}

	b := tidy.BuilderFrom(acc)

	column, renamed, err := resolveColumn(b, set)
	if err != nil {
		return nil, step, err
	}
	if err := b.AddColumn(column, set.Role); err != nil {
		return nil, step, err
	}
	step.Column = column
	step.Renamed = renamed

	for _, rec := range set.Records {
		row, added := b.EnsureKey(rec.Key())
		if added {
			step.KeysAdded++
		}
		if err := b.Set(row, column, rec.Value); err != nil {
			return nil, step, err
		}
	}

	return b.Table(), step, nil
}

// resolveColumn picks the column name for set. When the bare statistic name is
// already taken, the existing column is renamed with its role suffix and the new
// one gets its own; unambiguous columns are never touched.
func resolveColumn(b *tidy.Builder, set RecordSet) (string, map[string]string, error) {
	name := set.Statistic
	if !b.HasColumn(name) {
		if !suffixed(b, name) {
			return name, nil, nil
		}
		// An earlier pair already split name by role.
		if set.Role == "" {
			return "", nil, core.NewColumnCollisionError(name, "columns are split by role and this source declares none")
		}
		column := name + "_" + set.Role
		if b.HasColumn(column) {
			return "", nil, core.NewColumnCollisionError(name, fmt.Sprintf("%s already taken", column))
		}
		return column, nil, nil
	}

	existingRole := b.Role(name)
	switch {
	case existingRole == "" || set.Role == "":
		return "", nil, core.NewColumnCollisionError(name, "both sources need a declared role to disambiguate")
	case existingRole == set.Role:
		return "", nil, core.NewColumnCollisionError(name, fmt.Sprintf("both sources declare role %q", set.Role))
	}

	left := name + "_" + existingRole
	right := name + "_" + set.Role
	if b.HasColumn(left) || b.HasColumn(right) {
		return "", nil, core.NewColumnCollisionError(name, fmt.Sprintf("suffixed names %s/%s already taken", left, right))
	}
	if err := b.RenameColumn(name, left); err != nil {
		return "", nil, err
	}
	return right, map[string]string{name: left}, nil
}

// suffixed reports whether some column is name plus its own role suffix.
func suffixed(b *tidy.Builder, name string) bool {
	for _, c := range b.Columns() {
		if role := b.Role(c); role != "" && c == name+"_"+role {
			return true
		}
	}
	return false
}

// checkDuplicates enforces one record per (institution, year) within a set.
func checkDuplicates(set RecordSet) error {
	seen := make(map[tidy.Key]struct{}, len(set.Records))
	for _, rec := range set.Records {
		k := rec.Key()
		if _, dup := seen[k]; dup {
			return core.NewDuplicateKeyError(set.Statistic, k.Institution, k.Year)
		}
		seen[k] = struct{}{}
	}
	return nil
}

func reportProgress(config *MergeConfig, progress float64, message string) {
	if config.ProgressCallback != nil {
		config.ProgressCallback(progress, message)
	}
}
