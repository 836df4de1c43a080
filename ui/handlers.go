package ui

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"gradtrends/domain/core"
	"gradtrends/domain/tidy"
	"gradtrends/internal/errors"
	"gradtrends/internal/pipeline"
	"gradtrends/internal/quality"
)

// TableResponse is the JSON shape of a tidy table
type TableResponse struct {
	RunID   string     `json:"run_id"`
	Columns []string   `json:"columns"`
	Count   int        `json:"count"`
	Rows    []tidy.Row `json:"rows"`
}

// CategoryResponse lists a category's raw and effective members
type CategoryResponse struct {
	Name string `json:"name"`
	// Raw is every institution the source headers put in the set.
	Raw []string `json:"raw"`
	// Members is the membership used for filtering, after overrides.
	Members   []string `json:"members"`
	Ambiguous []string `json:"ambiguous,omitempty"`
}

func newTableResponse(runID string, table *tidy.Table) TableResponse {
	return TableResponse{
		RunID:   runID,
		Columns: table.Columns(),
		Count:   table.Len(),
		Rows:    table.Rows(),
	}
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/report", http.StatusFound)
}

func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.result)
}

func (a *App) handleReportJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.report)
}

func (a *App) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(a.report.HTML())
}

func (a *App) handleReportMarkdown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(a.report.Markdown()))
}

// handleObservations filters the run's table.
// Query: columns=a,b  category=public  require=col  min=15  mandatory=a,b
func (a *App) handleObservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := quality.Criteria{
		Overrides:      a.result.Overrides,
		RequiredColumn: q.Get("require"),
		Projection:     splitList(q.Get("columns")),
	}
	if m, ok := q["mandatory"]; ok {
		// An empty list turns the mandatory drop off.
		criteria.Mandatory = append([]string{}, splitList(strings.Join(m, ","))...)
	}
	min, err := intParam(q.Get("min"), 0)
	if err != nil {
		writeError(w, err)
		return
	}
	criteria.MinObservations = min
	if criteria.RequiredColumn == "" && min > 0 {
		writeError(w, errors.InvalidInput("min requires a require column"))
		return
	}

	if name := q.Get("category"); name != "" {
		set, ok := a.result.Categories.Get(name)
		if !ok {
			writeError(w, errors.NotFound(fmt.Sprintf("category %q", name)))
			return
		}
		criteria.Category = name
		criteria.Set = set
	}

	table, err := quality.Filter(a.result.Table, criteria)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTableResponse(a.result.RunID.String(), table))
}

func (a *App) handleListCategories(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]int)
	for _, name := range a.result.Categories.Names() {
		set, _ := a.result.Categories.Get(name)
		out[name] = set.Len()
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) handleCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	set, ok := a.result.Categories.Get(name)
	if !ok {
		writeError(w, errors.NotFound(fmt.Sprintf("category %q", name)))
		return
	}

	resp := CategoryResponse{Name: name, Raw: set.Members(), Members: []string{}}
	for _, inst := range a.result.Table.Institutions() {
		if a.result.Overrides.Belongs(inst, set) {
			resp.Members = append(resp.Members, inst)
		}
	}
	for _, inst := range a.result.Stats.Ambiguous {
		if set.Contains(inst) {
			resp.Ambiguous = append(resp.Ambiguous, inst)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleView serves a named analysis view. Query: category, min.
func (a *App) handleView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	view, ok := a.view(name)
	if !ok {
		writeError(w, errors.NotFound(fmt.Sprintf("view %q", name)))
		return
	}
	min, err := intParam(r.URL.Query().Get("min"), view.MinObservations)
	if err != nil {
		writeError(w, err)
		return
	}
	view.MinObservations = min

	category := r.URL.Query().Get("category")
	if _, ok := a.result.Categories.Get(category); category != "" && !ok {
		writeError(w, errors.NotFound(fmt.Sprintf("category %q", category)))
		return
	}
	table, err := a.result.View(view, category)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTableResponse(a.result.RunID.String(), table))
}

// view looks name up among the configured report views, falling back to the
// built-in views with their default thresholds.
func (a *App) view(name string) (pipeline.View, bool) {
	for _, v := range a.config.Report.Views {
		if v.Name == name {
			return v, true
		}
	}
	for _, v := range []pipeline.View{pipeline.AcceptanceView(15), pipeline.FinancialAidView(7)} {
		if v.Name == name {
			return v, true
		}
	}
	return pipeline.View{}, false
}

func (a *App) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if a.repo == nil {
		writeError(w, errors.NotFound("run storage"))
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"), 50)
	if err != nil {
		writeError(w, err)
		return
	}
	runs, err := a.repo.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *App) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if a.repo == nil {
		writeError(w, errors.NotFound("run storage"))
		return
	}
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	run, err := a.repo.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *App) handleRunObservations(w http.ResponseWriter, r *http.Request) {
	if a.repo == nil {
		writeError(w, errors.NotFound("run storage"))
		return
	}
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	table, err := a.repo.LoadTable(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTableResponse(id.String(), table))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[UI] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		log.Printf("[UI] %s: %v", code, err)
	}
	writeJSON(w, status, map[string]string{"code": code, "error": err.Error()})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.InvalidInput(fmt.Sprintf("expected a non-negative integer, got %q", raw))
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
