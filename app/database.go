package app

import (
	"context"

	"gradtrends/internal/config"
	"gradtrends/internal/errors"
	"gradtrends/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// OpenDatabase connects to DATABASE_URL and applies pending migrations
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if !cfg.Enabled() {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	db, err := sqlx.ConnectContext(connectCtx, "postgres", cfg.URL)
	if err != nil {
		return nil, errors.StorageError("failed to connect to database", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	return db, nil
}
