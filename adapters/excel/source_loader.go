package excel

import (
	"context"
	"fmt"
	"path/filepath"

	"gradtrends/domain/core"
	"gradtrends/domain/source"
	"gradtrends/internal/pipeline"
)

// SourceLoader reads the files a source catalogue points at
type SourceLoader struct {
	config ExcelConfig
}

// NewSourceLoader creates a loader rooted at config.DataDir
func NewSourceLoader(config ExcelConfig) *SourceLoader {
	return &SourceLoader{config: config}
}

// Path returns where spec's file is read from.
func (l *SourceLoader) Path(spec source.Spec) string {
	if spec.File == "" || filepath.IsAbs(spec.File) || l.config.DataDir == "" {
		return spec.File
	}
	return filepath.Join(l.config.DataDir, spec.File)
}

// Load reads one source.
func (l *SourceLoader) Load(spec source.Spec) (*source.RawTable, error) {
	if spec.File == "" {
		return nil, fmt.Errorf("source %s declares no file", spec.ID)
	}
	headerRow := spec.HeaderRow
	if headerRow == 0 {
		headerRow = l.config.DefaultHeaderRow
	}
	table, err := NewDataReader(l.Path(spec)).ReadTable(spec.Sheet, headerRow)
	if err != nil {
		return nil, core.NewSourceError(spec.ID.String(), err)
	}
	return table, nil
}

// LoadAll reads every spec, in order, into pipeline inputs.
func (l *SourceLoader) LoadAll(ctx context.Context, specs []source.Spec) ([]pipeline.Input, error) {
	inputs := make([]pipeline.Input, 0, len(specs))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := l.Load(spec)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, pipeline.Input{Spec: spec, Table: table})
	}
	return inputs, nil
}

// WriteSources writes one workbook per spec with the given tables, using each
// spec's header row offset. It is the inverse of LoadAll and backs the demo
// data command.
func (l *SourceLoader) WriteSources(specs []source.Spec, tables map[core.SourceID]*source.RawTable) error {
	for _, spec := range specs {
		table, ok := tables[spec.ID]
		if !ok {
			return fmt.Errorf("no table for source %s", spec.ID)
		}
		if err := WriteRawTable(table, l.Path(spec), spec.Sheet, spec.HeaderRow); err != nil {
			return core.NewSourceError(spec.ID.String(), err)
		}
	}
	return nil
}
