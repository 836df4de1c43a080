package main

import (
	"context"
	"log"
	"os"
	"time"

	"gradtrends/internal/config"
	"gradtrends/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	databaseURL := cfg.Database.URL
	if len(os.Args) > 2 {
		databaseURL = os.Args[2]
	}
	if databaseURL == "" {
		log.Fatal("Usage: migrate [up|status|reset] [database_url]  (or set DATABASE_URL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	switch command {
	case "up":
		if err := runner.Run(ctx, db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Printf("Schema is at version %s", runner.Version())
	case "status":
		statuses, err := runner.Status(ctx, db)
		if err != nil {
			log.Fatalf("Failed to read migration status: %v", err)
		}
		applied := 0
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
				applied++
			}
			log.Printf("  %s_%s: %s", s.Version, s.Name, state)
		}
		log.Printf("%d/%d migrations applied", applied, len(statuses))
	case "reset":
		if err := runner.Reset(ctx, db); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		if err := runner.Run(ctx, db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Printf("Schema recreated at version %s", runner.Version())
	default:
		log.Fatalf("Unknown command %q (want up, status or reset)", command)
	}
}
