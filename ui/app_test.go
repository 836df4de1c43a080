package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gradtrends/domain/core"
	"gradtrends/domain/tidy"
	"gradtrends/internal"
	"gradtrends/internal/config"
	"gradtrends/internal/derive"
	"gradtrends/internal/errors"
	"gradtrends/internal/pipeline"
	"gradtrends/internal/report"
	"gradtrends/internal/testkit"
	"gradtrends/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	tables map[core.RunID]*tidy.Table
}

func (m *memoryRepository) SaveTable(_ context.Context, id core.RunID, t *tidy.Table) (*ports.RunRecord, error) {
	m.tables[id] = t
	return m.record(id, t), nil
}

func (m *memoryRepository) LoadTable(_ context.Context, id core.RunID) (*tidy.Table, error) {
	t, ok := m.tables[id]
	if !ok {
		return nil, errors.NotFound("run " + id.String())
	}
	return t, nil
}

func (m *memoryRepository) GetRun(ctx context.Context, id core.RunID) (*ports.RunRecord, error) {
	t, err := m.LoadTable(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.record(id, t), nil
}

func (m *memoryRepository) ListRuns(_ context.Context, _ int) ([]ports.RunRecord, error) {
	var out []ports.RunRecord
	for id, t := range m.tables {
		out = append(out, *m.record(id, t))
	}
	return out, nil
}

func (m *memoryRepository) DeleteRun(_ context.Context, id core.RunID) error {
	delete(m.tables, id)
	return nil
}

func (m *memoryRepository) record(id core.RunID, t *tidy.Table) *ports.RunRecord {
	return &ports.RunRecord{RunID: id, Fingerprint: t.Fingerprint(), Rows: t.Len(), Columns: t.Columns(), CreatedAt: time.Now()}
}

func newTestApp(t *testing.T, repo ports.ObservationRepository) (*App, *pipeline.Result) {
	t.Helper()
	cat := config.DefaultSources()
	tables, err := testkit.NewCampusDataGenerator(testkit.DefaultCampusConfig()).Generate(cat.Sources)
	require.NoError(t, err)
	inputs := make([]pipeline.Input, len(cat.Sources))
	for i, spec := range cat.Sources {
		inputs[i] = pipeline.Input{Spec: spec, Table: tables[spec.ID]}
	}
	opts := pipeline.DefaultOptions()
	opts.Overrides = cat.Overrides
	result, err := pipeline.New(opts, internal.NewLogger(internal.LogLevelError)).Run(context.Background(), inputs)
	require.NoError(t, err)

	app, err := NewApp(Config{Report: report.DefaultRequest(15, 7)}, result, repo)
	require.NoError(t, err)
	return app, result
}

func get(t *testing.T, app *App, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestNewAppRequiresResult(t *testing.T) {
	_, err := NewApp(Config{}, nil, nil)
	assert.Error(t, err)
}

func TestObservations(t *testing.T) {
	app, result := newTestApp(t, nil)

	rec := get(t, app, "/api/observations")
	require.Equal(t, http.StatusOK, rec.Code)
	var all TableResponse
	decode(t, rec, &all)
	assert.Equal(t, result.Table.Columns(), all.Columns)
	assert.Less(t, all.Count, result.Table.Len(), "excluded campuses are dropped")
	assert.Equal(t, all.Count, len(all.Rows))

	rec = get(t, app, "/api/observations?columns=grad_rate,percent_accepted&category=public&require=percent_accepted&min=3")
	require.Equal(t, http.StatusOK, rec.Code)
	var public TableResponse
	decode(t, rec, &public)
	assert.Equal(t, []string{derive.GradRate, derive.PercentAccepted}, public.Columns)
	for _, row := range public.Rows {
		assert.False(t, row.Values[derive.GradRate].IsMissing())
		assert.False(t, row.Values[derive.PercentAccepted].IsMissing())
	}
}

func TestObservationsErrors(t *testing.T) {
	app, _ := newTestApp(t, nil)

	cases := []struct {
		path   string
		status int
	}{
		{"/api/observations?columns=nope", http.StatusBadRequest},
		{"/api/observations?category=charter", http.StatusNotFound},
		{"/api/observations?min=-1&require=grad_rate", http.StatusBadRequest},
		{"/api/observations?min=3", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := get(t, app, tc.path)
		assert.Equal(t, tc.status, rec.Code, tc.path)
		var body map[string]string
		decode(t, rec, &body)
		assert.NotEmpty(t, body["code"], tc.path)
	}
}

func TestCategories(t *testing.T) {
	app, _ := newTestApp(t, nil)

	rec := get(t, app, "/api/categories")
	require.Equal(t, http.StatusOK, rec.Code)
	var counts map[string]int
	decode(t, rec, &counts)
	assert.Contains(t, counts, "public")
	assert.Contains(t, counts, "private")

	rec = get(t, app, "/api/categories/public")
	require.Equal(t, http.StatusOK, rec.Code)
	var public CategoryResponse
	decode(t, rec, &public)
	assert.Contains(t, public.Raw, "University of Washington-Bothell Campus")
	assert.NotContains(t, public.Members, "University of Washington-Bothell Campus")
	assert.Equal(t, []string{"Washington State University"}, public.Ambiguous)

	assert.Equal(t, http.StatusNotFound, get(t, app, "/api/categories/charter").Code)
}

func TestViews(t *testing.T) {
	app, _ := newTestApp(t, nil)

	rec := get(t, app, "/api/views/acceptance?min=0")
	require.Equal(t, http.StatusOK, rec.Code)
	var loose TableResponse
	decode(t, rec, &loose)

	rec = get(t, app, "/api/views/acceptance")
	require.Equal(t, http.StatusOK, rec.Code)
	var strict TableResponse
	decode(t, rec, &strict)
	assert.LessOrEqual(t, strict.Count, loose.Count)

	rec = get(t, app, "/api/views/financial_aid?category=private")
	require.Equal(t, http.StatusOK, rec.Code)
	var aid TableResponse
	decode(t, rec, &aid)
	assert.Equal(t, []string{derive.Population, derive.GradRate, derive.FinAidRatioCol}, aid.Columns)

	assert.Equal(t, http.StatusNotFound, get(t, app, "/api/views/enrolment").Code)
	assert.Equal(t, http.StatusNotFound, get(t, app, "/api/views/acceptance?category=charter").Code)
}

func TestReportEndpoints(t *testing.T) {
	app, result := newTestApp(t, nil)

	rec := get(t, app, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/report", rec.Header().Get("Location"))

	rec = get(t, app, "/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), "Graduation rate trends")

	rec = get(t, app, "/report.md")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "## acceptance")

	rec = get(t, app, "/api/report")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep report.Report
	decode(t, rec, &rep)
	assert.Equal(t, result.Fingerprint.String(), rep.Fingerprint)

	rec = get(t, app, "/api/run")
	require.Equal(t, http.StatusOK, rec.Code)
	var run map[string]interface{}
	decode(t, rec, &run)
	assert.Equal(t, result.RunID.String(), run["run_id"])
}

func TestStoredRuns(t *testing.T) {
	bare, _ := newTestApp(t, nil)
	assert.Equal(t, http.StatusNotFound, get(t, bare, "/api/runs").Code)

	repo := &memoryRepository{tables: make(map[core.RunID]*tidy.Table)}
	app, result := newTestApp(t, repo)
	_, err := repo.SaveTable(context.Background(), result.RunID, result.Table)
	require.NoError(t, err)

	rec := get(t, app, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []ports.RunRecord
	decode(t, rec, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].RunID)

	rec = get(t, app, "/api/runs/"+result.RunID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, app, "/api/runs/"+result.RunID.String()+"/observations")
	require.Equal(t, http.StatusOK, rec.Code)
	var table TableResponse
	decode(t, rec, &table)
	assert.Equal(t, result.Table.Len(), table.Count)

	assert.Equal(t, http.StatusNotFound, get(t, app, "/api/runs/unknown").Code)
}
