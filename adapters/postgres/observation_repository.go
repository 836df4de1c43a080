package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log"
	"time"

	"gradtrends/domain/core"
	"gradtrends/domain/tidy"
	"gradtrends/internal/errors"
	"gradtrends/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// insertBatch keeps each multi-row INSERT well under the 65535 parameter limit.
const insertBatch = 5000

const uniqueViolation = "23505"

type runRow struct {
	RunID       string         `db:"run_id"`
	Fingerprint string         `db:"fingerprint"`
	RowCount    int            `db:"row_count"`
	Columns     pq.StringArray `db:"columns"`
	Roles       pq.StringArray `db:"roles"`
	CreatedAt   time.Time      `db:"created_at"`
}

type observationRow struct {
	RunID       string          `db:"run_id"`
	RowIndex    int             `db:"row_index"`
	Institution string          `db:"institution"`
	Year        int             `db:"year"`
	ColumnName  string          `db:"column_name"`
	Value       sql.NullFloat64 `db:"value"`
}

// observationRepository implements ports.ObservationRepository
type observationRepository struct {
	db *sqlx.DB
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *sqlx.DB) ports.ObservationRepository {
	return &observationRepository{db: db}
}

// SaveTable writes the run header and every cell of table in one transaction.
// Tables without columns store no observations and reload with no rows.
func (r *observationRepository) SaveTable(ctx context.Context, runID core.RunID, table *tidy.Table) (*ports.RunRecord, error) {
	if runID == "" {
		return nil, errors.InvalidInput("run ID is required")
	}
	startTime := time.Now()
	run := newRunRow(runID, table)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.StorageError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `INSERT INTO runs (run_id, fingerprint, row_count, columns, roles, created_at)
		VALUES (:run_id, :fingerprint, :row_count, :columns, :roles, :created_at)`, run)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, errors.InvalidInput(fmt.Sprintf("run %s already stored", runID))
		}
		return nil, errors.StorageError("failed to create run", err)
	}

	obs := flatten(runID, table)
	for start := 0; start < len(obs); start += insertBatch {
		end := start + insertBatch
		if end > len(obs) {
			end = len(obs)
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO observations (run_id, row_index, institution, year, column_name, value)
			VALUES (:run_id, :row_index, :institution, :year, :column_name, :value)`, obs[start:end])
		if err != nil {
			return nil, errors.StorageError("failed to insert observations", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.StorageError("failed to commit run", err)
	}

	log.Printf("[ObservationRepository] stored run %s: %d rows, %d observations in %.2fms",
		runID, run.RowCount, len(obs), float64(time.Since(startTime).Nanoseconds())/1e6)
	rec := run.record()
	return &rec, nil
}

// LoadTable rebuilds the table of a run with its original row and column order.
func (r *observationRepository) LoadTable(ctx context.Context, runID core.RunID) (*tidy.Table, error) {
	run, err := r.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	var obs []observationRow
	err = r.db.SelectContext(ctx, &obs, `SELECT run_id, row_index, institution, year, column_name, value
		FROM observations WHERE run_id = $1
		ORDER BY row_index`, run.RunID)
	if err != nil {
		return nil, errors.StorageError("failed to query observations", err)
	}

	table, err := rebuild(run, obs)
	if err != nil {
		return nil, errors.StorageError(fmt.Sprintf("run %s is inconsistent", runID), err)
	}
	if table.Len() != run.RowCount {
		return nil, errors.StorageError(fmt.Sprintf("run %s has %d rows, expected %d", runID, table.Len(), run.RowCount), nil)
	}
	return table, nil
}

// GetRun retrieves the run header
func (r *observationRepository) GetRun(ctx context.Context, runID core.RunID) (*ports.RunRecord, error) {
	run, err := r.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	rec := run.record()
	return &rec, nil
}

// ListRuns returns the most recent runs first. limit <= 0 means 50.
func (r *observationRepository) ListRuns(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `SELECT run_id, fingerprint, row_count, columns, roles, created_at
		FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.StorageError("failed to list runs", err)
	}
	out := make([]ports.RunRecord, len(rows))
	for i, row := range rows {
		out[i] = row.record()
	}
	return out, nil
}

// DeleteRun removes a run; observations go with it through the foreign key.
func (r *observationRepository) DeleteRun(ctx context.Context, runID core.RunID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = $1`, runID.String())
	if err != nil {
		return errors.StorageError("failed to delete run", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.StorageError("failed to delete run", err)
	}
	if n == 0 {
		return errors.NotFound(fmt.Sprintf("run %s", runID))
	}
	return nil
}

func (r *observationRepository) getRun(ctx context.Context, runID core.RunID) (*runRow, error) {
	var run runRow
	err := r.db.GetContext(ctx, &run, `SELECT run_id, fingerprint, row_count, columns, roles, created_at
		FROM runs WHERE run_id = $1`, runID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("run %s", runID))
		}
		return nil, errors.StorageError("failed to get run", err)
	}
	return &run, nil
}

func newRunRow(runID core.RunID, table *tidy.Table) runRow {
	cols := table.Columns()
	roles := make([]string, len(cols))
	for i, c := range cols {
		roles[i] = table.Role(c)
	}
	return runRow{
		RunID:       runID.String(),
		Fingerprint: table.Fingerprint().String(),
		RowCount:    table.Len(),
		Columns:     cols,
		Roles:       roles,
		CreatedAt:   time.Now().UTC(),
	}
}

func (row runRow) record() ports.RunRecord {
	return ports.RunRecord{
		RunID:       core.RunID(row.RunID),
		Fingerprint: core.TableFingerprint(row.Fingerprint),
		Rows:        row.RowCount,
		Columns:     []string(row.Columns),
		Roles:       []string(row.Roles),
		CreatedAt:   row.CreatedAt,
	}
}

// flatten turns table into one observation per cell, sentinel as NULL.
func flatten(runID core.RunID, table *tidy.Table) []observationRow {
	cols := table.Columns()
	out := make([]observationRow, 0, table.Len()*len(cols))
	for i := 0; i < table.Len(); i++ {
		k := table.Key(i)
		for _, c := range cols {
			v, ok := table.Value(i, c).Float()
			out = append(out, observationRow{
				RunID:       runID.String(),
				RowIndex:    i,
				Institution: k.Institution,
				Year:        k.Year,
				ColumnName:  c,
				Value:       sql.NullFloat64{Float64: v, Valid: ok},
			})
		}
	}
	return out
}

// rebuild is the inverse of flatten. obs must be ordered by row index.
func rebuild(run *runRow, obs []observationRow) (*tidy.Table, error) {
	if len(run.Roles) != len(run.Columns) {
		return nil, fmt.Errorf("%d roles for %d columns", len(run.Roles), len(run.Columns))
	}
	b := tidy.NewBuilder()
	for i, c := range run.Columns {
		if err := b.AddColumn(c, run.Roles[i]); err != nil {
			return nil, err
		}
	}
	for _, o := range obs {
		row, _ := b.EnsureKey(tidy.Key{Institution: o.Institution, Year: o.Year})
		if !o.Value.Valid {
			continue
		}
		if err := b.Set(row, o.ColumnName, tidy.Of(o.Value.Float64)); err != nil {
			return nil, err
		}
	}
	return b.Table(), nil
}
