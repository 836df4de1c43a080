package app

import (
	"context"
	"fmt"

	"gradtrends/adapters/excel"
	"gradtrends/domain/source"
	"gradtrends/internal"
	"gradtrends/internal/config"
	"gradtrends/internal/errors"
	"gradtrends/internal/pipeline"
	"gradtrends/internal/report"
	"gradtrends/ports"
)

// SourceLoader reads the raw tables a catalogue declares
type SourceLoader interface {
	LoadAll(ctx context.Context, specs []source.Spec) ([]pipeline.Input, error)
}

// BuildService runs the pipeline over configured files and hands the result to
// the export, storage and report sides
type BuildService struct {
	config    *config.Config
	catalogue *config.Catalogue
	loader    SourceLoader
	repo      ports.ObservationRepository
	logger    *internal.Logger
}

// NewBuildService creates a build service. repo may be nil when no database is
// configured.
func NewBuildService(cfg *config.Config, catalogue *config.Catalogue, loader SourceLoader, repo ports.ObservationRepository, logger *internal.Logger) *BuildService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &BuildService{
		config:    cfg,
		catalogue: catalogue,
		loader:    loader,
		repo:      repo,
		logger:    logger.With("BuildService"),
	}
}

// LoadCatalogue reads SOURCES_FILE, or returns the built-in catalogue when none
// is configured
func LoadCatalogue(cfg *config.Config) (*config.Catalogue, error) {
	if cfg.Data.SourcesFile == "" {
		return config.DefaultSources(), nil
	}
	return config.LoadSources(cfg.Resolve(cfg.Data.SourcesFile))
}

// NewExcelLoader reads source files relative to the configured data directory
func NewExcelLoader(cfg *config.Config) *excel.SourceLoader {
	ec := excel.DefaultExcelConfig()
	ec.DataDir = cfg.Data.Dir
	return excel.NewSourceLoader(ec)
}

// Catalogue returns the sources the service builds from
func (s *BuildService) Catalogue() *config.Catalogue {
	return s.catalogue
}

// Options derives pipeline options from configuration and the catalogue
func (s *BuildService) Options() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Formulas = s.config.Formulas()
	opts.Overrides = s.catalogue.Overrides
	return opts
}

// Build loads every source and runs the pipeline
func (s *BuildService) Build(ctx context.Context) (*pipeline.Result, error) {
	inputs, err := s.loader.LoadAll(ctx, s.catalogue.Sources)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load sources")
	}
	result, err := pipeline.New(s.Options(), s.logger).Run(ctx, inputs)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline failed")
	}
	return result, nil
}

// Export writes the tidy table to path, or to OUTPUT_FILE when path is empty
func (s *BuildService) Export(result *pipeline.Result, path string) (string, error) {
	if path == "" {
		path = s.config.Resolve(s.config.Data.OutputFile)
	}
	if err := excel.WriteTable(result.Table, path); err != nil {
		return "", errors.StorageError(fmt.Sprintf("failed to write %s", path), err)
	}
	s.logger.Info("wrote %d rows to %s", result.Table.Len(), path)
	return path, nil
}

// Save persists the run. It fails when no repository is configured.
func (s *BuildService) Save(ctx context.Context, result *pipeline.Result) (*ports.RunRecord, error) {
	if s.repo == nil {
		return nil, errors.ConfigInvalid("DATABASE_URL is not set; cannot store runs")
	}
	rec, err := s.repo.SaveTable(ctx, result.RunID, result.Table)
	if err != nil {
		return nil, err
	}
	s.logger.Info("stored run %s (%d rows)", rec.RunID, rec.Rows)
	return rec, nil
}

// ReportRequest is the default analyses at the configured thresholds
func (s *BuildService) ReportRequest() report.Request {
	return report.DefaultRequest(s.config.Filter.AcceptanceMinObs, s.config.Filter.FinAidMinObs)
}

// Report analyses a finished run
func (s *BuildService) Report(result *pipeline.Result) (*report.Report, error) {
	return report.Build(result, s.ReportRequest())
}
