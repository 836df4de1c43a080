package migration

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"sort"
	"time"

	"gradtrends/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// Migration is one forward schema change
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// Checksum identifies the migration body; an applied migration whose body
// changed is refused.
func (m Migration) Checksum() string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(m.SQL)))
}

// Status reports whether a migration has been applied
type Status struct {
	Version   string     `db:"version" json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `db:"applied_at" json:"applied_at,omitempty"`
}

var schema = []Migration{
	{
		Version: "001",
		Name:    "runs",
		SQL: `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			columns TEXT[] NOT NULL DEFAULT '{}',
			roles TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
	},
	{
		Version: "002",
		Name:    "observations",
		SQL: `
		CREATE TABLE IF NOT EXISTS observations (
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			row_index INTEGER NOT NULL,
			institution TEXT NOT NULL,
			year INTEGER NOT NULL,
			column_name TEXT NOT NULL,
			value DOUBLE PRECISION,
			PRIMARY KEY (run_id, institution, year, column_name)
		)`,
	},
	{
		Version: "003",
		Name:    "indexes",
		SQL: `
		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_observations_run_row ON observations(run_id, row_index);
		CREATE INDEX IF NOT EXISTS idx_observations_run_column ON observations(run_id, column_name)`,
	},
}

// Migrations returns the schema in apply order.
func Migrations() []Migration {
	out := make([]Migration, len(schema))
	copy(out, schema)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// Tables lists the tables the schema owns, dependents first.
func Tables() []string {
	return []string{"observations", "runs", "schema_migrations"}
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version    string
	migrations []Migration
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	ms := Migrations()
	return &MigrationRunner{
		version:    ms[len(ms)-1].Version,
		migrations: ms,
	}
}

// Version returns the latest schema version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run applies every pending migration, each in its own transaction
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.ensureTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create schema_migrations table")
	}

	applied, err := r.applied(ctx, db)
	if err != nil {
		return errors.Wrap(err, "failed to read applied migrations")
	}

	for _, m := range r.migrations {
		if sum, ok := applied[m.Version]; ok {
			if sum != m.Checksum() {
				return errors.ConfigInvalid(fmt.Sprintf("migration %s_%s changed after it was applied", m.Version, m.Name))
			}
			continue
		}
		if err := r.apply(ctx, db, m); err != nil {
			return errors.StorageError(fmt.Sprintf("failed to apply migration %s_%s", m.Version, m.Name), err)
		}
		log.Printf("[Migration] applied %s_%s", m.Version, m.Name)
	}
	return nil
}

// Status lists every known migration with its applied state
func (r *MigrationRunner) Status(ctx context.Context, db *sqlx.DB) ([]Status, error) {
	if err := r.ensureTable(ctx, db); err != nil {
		return nil, errors.Wrap(err, "failed to create schema_migrations table")
	}
	var rows []Status
	if err := db.SelectContext(ctx, &rows, `SELECT version, applied_at FROM schema_migrations`); err != nil {
		return nil, errors.StorageError("failed to read applied migrations", err)
	}
	byVersion := make(map[string]Status, len(rows))
	for _, s := range rows {
		byVersion[s.Version] = s
	}

	out := make([]Status, len(r.migrations))
	for i, m := range r.migrations {
		s, ok := byVersion[m.Version]
		out[i] = Status{Version: m.Version, Name: m.Name, Applied: ok, AppliedAt: s.AppliedAt}
	}
	return out, nil
}

// Reset drops every table the schema owns
func (r *MigrationRunner) Reset(ctx context.Context, db *sqlx.DB) error {
	for _, table := range Tables() {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
			return errors.StorageError(fmt.Sprintf("failed to drop table %s", table), err)
		}
	}
	log.Printf("[Migration] dropped %d tables", len(Tables()))
	return nil
}

func (r *MigrationRunner) ensureTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`)
	return err
}

func (r *MigrationRunner) applied(ctx context.Context, db *sqlx.DB) (map[string]string, error) {
	var rows []struct {
		Version  string `db:"version"`
		Checksum string `db:"checksum"`
	}
	if err := db.SelectContext(ctx, &rows, `SELECT version, checksum FROM schema_migrations`); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Version] = row.Checksum
	}
	return out, nil
}

func (r *MigrationRunner) apply(ctx context.Context, db *sqlx.DB, m Migration) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)`, m.Version, m.Checksum()); err != nil {
		return err
	}
	return tx.Commit()
}
