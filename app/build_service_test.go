package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gradtrends/domain/core"
	"gradtrends/domain/tidy"
	"gradtrends/internal"
	"gradtrends/internal/config"
	"gradtrends/internal/derive"
	"gradtrends/internal/errors"
	"gradtrends/internal/testkit"
	"gradtrends/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type savingRepository struct {
	ports.ObservationRepository
	saved map[core.RunID]*tidy.Table
}

func (r *savingRepository) SaveTable(_ context.Context, id core.RunID, t *tidy.Table) (*ports.RunRecord, error) {
	r.saved[id] = t
	return &ports.RunRecord{RunID: id, Rows: t.Len(), Fingerprint: t.Fingerprint()}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Data: config.DataConfig{Dir: t.TempDir(), OutputFile: "tidy.csv"},
		Filter: config.FilterConfig{
			AcceptanceMinObs: 15,
			FinAidMinObs:     7,
			FinAidRatioMax:   100,
			FinAidMode:       derive.FinAidStrict,
		},
	}
}

// writeDemoSources lays the synthetic workbooks out under cfg.Data.Dir.
func writeDemoSources(t *testing.T, cfg *config.Config, cat *config.Catalogue) {
	t.Helper()
	tables, err := testkit.NewCampusDataGenerator(testkit.DefaultCampusConfig()).Generate(cat.Sources)
	require.NoError(t, err)
	require.NoError(t, NewExcelLoader(cfg).WriteSources(cat.Sources, tables))
}

func TestBuildExportSave(t *testing.T) {
	cfg := testConfig(t)
	cat := config.DefaultSources()
	writeDemoSources(t, cfg, cat)

	repo := &savingRepository{saved: make(map[core.RunID]*tidy.Table)}
	svc := NewBuildService(cfg, cat, NewExcelLoader(cfg), repo, internal.NewLogger(internal.LogLevelError))

	result, err := svc.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Washington State University"}, result.Stats.Ambiguous)
	assert.Equal(t, cat.Overrides, result.Overrides)

	path, err := svc.Export(result, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Data.Dir, "tidy.csv"), path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	rec, err := svc.Save(context.Background(), result)
	require.NoError(t, err)
	assert.Equal(t, result.Table.Len(), rec.Rows)
	assert.Contains(t, repo.saved, result.RunID)

	rep, err := svc.Report(result)
	require.NoError(t, err)
	assert.Len(t, rep.Views, 6)
}

func TestBuildFailsOnMissingFile(t *testing.T) {
	cfg := testConfig(t)
	svc := NewBuildService(cfg, config.DefaultSources(), NewExcelLoader(cfg), nil, internal.NewLogger(internal.LogLevelError))

	_, err := svc.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "applicants")
}

func TestSaveWithoutRepository(t *testing.T) {
	cfg := testConfig(t)
	svc := NewBuildService(cfg, config.DefaultSources(), NewExcelLoader(cfg), nil, nil)
	_, err := svc.Save(context.Background(), nil)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestOptionsFollowConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Filter.FinAidMode = derive.FinAidCoalesce
	svc := NewBuildService(cfg, config.DefaultSources(), nil, nil, nil)

	opts := svc.Options()
	require.Len(t, opts.Formulas, 3)
	assert.Equal(t, derive.FinAidColumn, opts.Formulas[1].Name)
	assert.NotEmpty(t, opts.Overrides)
	assert.Equal(t, 15, svc.ReportRequest().Views[0].MinObservations)
}

func TestLoadCatalogue(t *testing.T) {
	cfg := testConfig(t)
	cat, err := LoadCatalogue(cfg)
	require.NoError(t, err)
	assert.Len(t, cat.Sources, 6)

	data, err := config.DefaultSources().Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Data.Dir, "sources.yaml"), data, 0o644))
	cfg.Data.SourcesFile = "sources.yaml"
	cat, err = LoadCatalogue(cfg)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSources().Sources, cat.Sources)

	cfg.Data.SourcesFile = "missing.yaml"
	_, err = LoadCatalogue(cfg)
	assert.Error(t, err)
}
