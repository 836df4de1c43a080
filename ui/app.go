package ui

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gradtrends/internal/pipeline"
	"gradtrends/internal/report"
	"gradtrends/ports"
)

// App serves a finished pipeline run over HTTP. It never modifies the run.
type App struct {
	router *chi.Mux
	config Config
	result *pipeline.Result
	report *report.Report
	repo   ports.ObservationRepository
}

// Config holds UI application configuration
type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Report is the request behind /report and the default view thresholds.
	Report report.Request
}

// NewApp builds the report once and wires the routes. repo may be nil, in
// which case the stored-run endpoints answer 404.
func NewApp(config Config, result *pipeline.Result, repo ports.ObservationRepository) (*App, error) {
	if result == nil {
		return nil, fmt.Errorf("a pipeline result is required")
	}
	rep, err := report.Build(result, config.Report)
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}

	app := &App{
		router: chi.NewRouter(),
		config: config,
		result: result,
		report: rep,
		repo:   repo,
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/report", a.handleReportHTML)
	a.router.Get("/report.md", a.handleReportMarkdown)

	a.router.Route("/api", func(r chi.Router) {
		r.Get("/run", a.handleRun)
		r.Get("/report", a.handleReportJSON)
		r.Get("/observations", a.handleObservations)
		r.Get("/categories", a.handleListCategories)
		r.Get("/categories/{name}", a.handleCategory)
		r.Get("/views/{name}", a.handleView)

		// Persisted runs
		r.Get("/runs", a.handleListRuns)
		r.Get("/runs/{id}", a.handleGetRun)
		r.Get("/runs/{id}/observations", a.handleRunObservations)
	})
}

// Handler exposes the router, mainly for tests
func (a *App) Handler() http.Handler {
	return a.router
}

// Server returns an http.Server bound to the configured port
func (a *App) Server() *http.Server {
	port := a.config.Port
	if port == "" {
		port = "8080"
	}
	return &http.Server{
		Addr:         ":" + port,
		Handler:      a.router,
		ReadTimeout:  a.config.ReadTimeout,
		WriteTimeout: a.config.WriteTimeout,
	}
}

// Start starts the HTTP server
func (a *App) Start() error {
	srv := a.Server()
	log.Printf("Starting gradtrends server on %s (run %s)", srv.Addr, a.result.RunID)
	return srv.ListenAndServe()
}
