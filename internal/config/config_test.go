package config

import (
	"os"
	"path/filepath"
	"testing"

	"gradtrends/domain/source"
	"gradtrends/internal/derive"
	"gradtrends/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATA_DIR", "ACCEPTANCE_MIN_OBS", "FIN_AID_MIN_OBS", "FIN_AID_RATIO_MAX", "FIN_AID_MODE", "DATABASE_URL", "PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Filter.AcceptanceMinObs)
	assert.Equal(t, 7, cfg.Filter.FinAidMinObs)
	assert.Equal(t, 100.0, cfg.Filter.FinAidRatioMax)
	assert.Equal(t, derive.FinAidStrict, cfg.Filter.FinAidMode)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, filepath.Join("datasets", "a.xlsx"), cfg.Resolve("a.xlsx"))
	assert.Len(t, cfg.Formulas(), 3)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FIN_AID_MODE", "coalesce")
	t.Setenv("FIN_AID_RATIO_MAX", "80")
	t.Setenv("ACCEPTANCE_MIN_OBS", "10")
	t.Setenv("DATABASE_URL", "postgres://localhost/gradtrends")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, derive.FinAidCoalesce, cfg.Filter.FinAidMode)
	assert.Equal(t, derive.RatioRule{Max: 80}, cfg.RatioRule())
	assert.Equal(t, 10, cfg.Filter.AcceptanceMinObs)
	assert.True(t, cfg.Database.Enabled())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("FIN_AID_MODE", "sometimes")
	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	t.Setenv("FIN_AID_MODE", "")
	t.Setenv("FIN_AID_RATIO_MAX", "-5")
	_, err = Load()
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestDefaultSources(t *testing.T) {
	cat := DefaultSources()
	require.NoError(t, cat.Validate())
	require.Len(t, cat.Sources, 6)

	var order []string
	for _, s := range cat.Sources {
		order = append(order, string(s.ID))
		assert.Equal(t, 2, s.HeaderRow)
	}
	assert.Equal(t, []string{"applicants", "grad_rate", "population", "admitted", "fin_aid_private", "fin_aid_public"}, order)

	assert.Equal(t, source.RolePrivate, cat.Sources[4].Role)
	assert.Equal(t, 21, cat.Sources[4].SuffixLen)
	assert.Equal(t, 33, cat.Sources[5].SuffixLen)
	assert.True(t, cat.Overrides.Excluded("University of Washington-Tacoma Campus"))
}

func TestSourcesRoundTripThroughFile(t *testing.T) {
	data, err := DefaultSources().Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cat, err := LoadSources(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSources(), cat)
}

func TestParseSources(t *testing.T) {
	doc := `
version: 2
sources:
  - id: applicants
    version: 3
    statistic: applicants
    prefix_len: 3
    suffix_len: 2
    collision: last_wins
overrides:
  Evergreen State College:
    category: public
`
	cat, err := ParseSources([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Version)
	assert.Equal(t, source.CollisionLastWins, cat.Sources[0].Policy())
	assert.Equal(t, "public", cat.Overrides["Evergreen State College"].Category)

	tests := map[string]string{
		"empty":          `version: 1`,
		"bad policy":     "sources:\n  - {id: a, statistic: a, collision: merge}",
		"duplicate id":   "sources:\n  - {id: a, statistic: a}\n  - {id: a, statistic: b}",
		"no statistic":   "sources:\n  - {id: a}",
		"empty override": "sources:\n  - {id: a, statistic: a}\noverrides:\n  X: {}",
		"not yaml":       "sources: [",
	}
	for name, doc := range tests {
		_, err := ParseSources([]byte(doc))
		assert.Errorf(t, err, name)
		assert.Equalf(t, errors.CodeConfigInvalid, errors.GetCode(err), name)
	}
}

func TestCatalogueSource(t *testing.T) {
	cat := DefaultSources()
	spec, ok := cat.Source("grad_rate")
	require.True(t, ok)
	assert.Equal(t, 2, spec.PrefixLen)
	assert.Equal(t, 6, spec.SuffixLen)

	_, ok = cat.Source("tuition")
	assert.False(t, ok)
}
