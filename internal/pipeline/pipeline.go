// Package pipeline runs the full cleaning chain: per-source extraction, the
// outer-join merge, derived metrics and category discovery.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"gradtrends/domain/core"
	"gradtrends/domain/source"
	"gradtrends/domain/tidy"
	"gradtrends/internal"
	"gradtrends/internal/cleaning"
	"gradtrends/internal/dataset"
	"gradtrends/internal/derive"
	"gradtrends/internal/quality"

	"golang.org/x/sync/errgroup"
)

// Input is one declared source and its raw table.
type Input struct {
	Spec  source.Spec
	Table *source.RawTable
}

// SourceStats summarises one extracted source.
type SourceStats struct {
	ID           core.SourceID `json:"id"`
	Statistic    string        `json:"statistic"`
	Role         string        `json:"role,omitempty"`
	Institutions int           `json:"institutions"`
	Records      int           `json:"records"`
}

// Stats is the run summary logged and exposed to consumers.
type Stats struct {
	Sources    []SourceStats       `json:"sources"`
	MergeSteps []dataset.StepStats `json:"merge_steps"`
	Rows       int                 `json:"rows"`
	Columns    []string            `json:"columns"`
	Ambiguous  []string            `json:"ambiguous,omitempty"`
	RuntimeMs  int64               `json:"runtime_ms"`
}

// Result is everything a run hands to the reporting side.
type Result struct {
	RunID       core.RunID            `json:"run_id"`
	Table       *tidy.Table           `json:"-"`
	Categories  tidy.Categories       `json:"-"`
	Overrides   quality.Overrides     `json:"overrides,omitempty"`
	Fingerprint core.TableFingerprint `json:"fingerprint"`
	Stats       Stats                 `json:"stats"`
}

// Options configures a Pipeline.
type Options struct {
	Merge *dataset.MergeConfig
	// Formulas are applied in order after the merge.
	Formulas  []derive.Formula
	Overrides quality.Overrides
	// Concurrency bounds parallel extraction; 0 means one goroutine per source.
	Concurrency int
}

// DefaultOptions derives the standard metrics in strict fin_aid mode.
func DefaultOptions() Options {
	return Options{
		Merge:    dataset.DefaultMergeConfig(),
		Formulas: derive.Standard(derive.FinAidStrict, derive.DefaultRatioRule()),
	}
}

// Pipeline turns raw inputs into a tidy table. A Pipeline holds no per-run
// state and may be reused.
type Pipeline struct {
	opts   Options
	logger *internal.Logger
}

// New creates a pipeline. A nil logger uses internal.DefaultLogger.
func New(opts Options, logger *internal.Logger) *Pipeline {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Pipeline{opts: opts, logger: logger.With("Pipeline")}
}

type extracted struct {
	spec    source.Spec
	set     *tidy.SeriesSet
	records []tidy.Record
}

// Run executes every stage. It either returns a complete result or the first
// error, tagged with the source or column it concerns.
func (p *Pipeline) Run(ctx context.Context, inputs []Input) (*Result, error) {
	start := time.Now()
	runID := core.NewRunID()

	if len(inputs) == 0 {
		return nil, fmt.Errorf("no sources to process")
	}
	for _, in := range inputs {
		if err := in.Spec.Validate(); err != nil {
			return nil, err
		}
		if in.Table == nil {
			return nil, core.NewSourceError(in.Spec.ID.String(), core.ErrEmptySource)
		}
	}

	p.logger.Info("run %s: extracting %d sources", runID, len(inputs))
	slots, err := p.extract(ctx, inputs)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sets := make([]dataset.RecordSet, len(slots))
	stats := Stats{Sources: make([]SourceStats, len(slots))}
	for i, s := range slots {
		sets[i] = dataset.NewRecordSet(s.spec.ID, s.spec.Statistic, s.spec.Role, s.records)
		stats.Sources[i] = SourceStats{
			ID:           s.spec.ID,
			Statistic:    s.spec.Statistic,
			Role:         s.spec.Role,
			Institutions: s.set.Len(),
			Records:      len(s.records),
		}
		p.logger.Debug("%s: %d institutions, %d records", s.spec, s.set.Len(), len(s.records))
	}

	merged, err := dataset.NewTableMerger(p.opts.Merge).MergeWithStats(sets)
	if err != nil {
		return nil, err
	}
	stats.MergeSteps = merged.Steps
	p.logger.Info("merged %d rows x %d columns in %dms", merged.RowCount, merged.ColumnCount, merged.ExecutionTime.Milliseconds())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := derive.ComputeAll(merged.Table, p.opts.Formulas...)
	if err != nil {
		return nil, err
	}

	categories, ambiguous := p.categories(slots)
	for _, name := range ambiguous {
		p.logger.Warn("%q is listed as both public and private; override it to pick one", name)
	}

	stats.Rows = table.Len()
	stats.Columns = table.Columns()
	stats.Ambiguous = ambiguous
	stats.RuntimeMs = time.Since(start).Milliseconds()

	result := &Result{
		RunID:       runID,
		Table:       table,
		Categories:  categories,
		Overrides:   p.opts.Overrides,
		Fingerprint: table.Fingerprint(),
		Stats:       stats,
	}
	p.logger.Info("run %s done: %d rows, fingerprint %s, %dms", runID, stats.Rows, result.Fingerprint.Short(), stats.RuntimeMs)
	return result, nil
}

// extract processes sources in parallel. Results land in the slot matching the
// input's position so the merge order never depends on scheduling.
func (p *Pipeline) extract(ctx context.Context, inputs []Input) ([]extracted, error) {
	slots := make([]extracted, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	if p.opts.Concurrency > 0 {
		g.SetLimit(p.opts.Concurrency)
	}
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records, set, err := cleaning.Source(in.Spec, in.Table)
			if err != nil {
				return core.NewSourceError(in.Spec.ID.String(), err)
			}
			slots[i] = extracted{spec: in.Spec, set: set, records: records}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slots, nil
}

// categories collects one set per declared role from the parsed headers of the
// sources that carry it.
func (p *Pipeline) categories(slots []extracted) (tidy.Categories, []string) {
	cats := tidy.NewCategories()
	for _, s := range slots {
		if s.spec.Role == "" {
			continue
		}
		cats = cats.With(tidy.NewCategorySet(s.spec.Role, s.set.Names()...))
	}

	public, okPub := cats.Get(source.RolePublic)
	private, okPriv := cats.Get(source.RolePrivate)
	if !okPub || !okPriv {
		return cats, nil
	}
	return cats, quality.Ambiguous(public, private, p.opts.Overrides)
}
