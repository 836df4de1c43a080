package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gradtrends/adapters/postgres"
	"gradtrends/app"
	"gradtrends/internal"
	"gradtrends/internal/config"
	"gradtrends/ports"
	"gradtrends/ui"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	catalogue, err := app.LoadCatalogue(appConfig)
	if err != nil {
		log.Fatalf("Failed to load source catalogue: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence is optional
	var repo ports.ObservationRepository
	if appConfig.Database.Enabled() {
		db, err := app.OpenDatabase(ctx, appConfig.Database)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		repo = postgres.NewObservationRepository(db)
	}

	svc := app.NewBuildService(appConfig, catalogue, app.NewExcelLoader(appConfig), repo, internal.DefaultLogger)
	result, err := svc.Build(ctx)
	if err != nil {
		log.Fatalf("Failed to build table: %v", err)
	}
	if repo != nil {
		if _, err := svc.Save(ctx, result); err != nil {
			log.Printf("Failed to store run %s: %v", result.RunID, err)
		}
	}

	uiApp, err := ui.NewApp(ui.Config{
		Port:         appConfig.Server.Port,
		ReadTimeout:  appConfig.Server.ReadTimeout,
		WriteTimeout: appConfig.Server.WriteTimeout,
		Report:       svc.ReportRequest(),
	}, result, repo)
	if err != nil {
		log.Fatalf("Failed to create UI app: %v", err)
	}

	srv := uiApp.Server()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Serving run %s (%d rows) on %s", result.RunID, result.Stats.Rows, srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
