package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"gradtrends/domain/core"
	"gradtrends/domain/tidy"
	"gradtrends/internal/errors"
	"gradtrends/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *tidy.Table {
	t.Helper()
	b := tidy.NewBuilder()
	require.NoError(t, b.AddColumn("applicants", ""))
	require.NoError(t, b.AddColumn("fin_aid_private", "private"))
	row, _ := b.EnsureKey(tidy.Key{Institution: "Whitman College", Year: 2002})
	require.NoError(t, b.Set(row, "applicants", tidy.Of(3100)))
	row, _ = b.EnsureKey(tidy.Key{Institution: "Gonzaga University", Year: 2001})
	require.NoError(t, b.Set(row, "fin_aid_private", tidy.Of(0)))
	return b.Table()
}

func TestFlattenStoresSentinelAsNull(t *testing.T) {
	table := sampleTable(t)
	obs := flatten("run-1", table)
	require.Len(t, obs, 4)

	assert.Equal(t, "Whitman College", obs[0].Institution)
	assert.Equal(t, "applicants", obs[0].ColumnName)
	assert.True(t, obs[0].Value.Valid)
	assert.Equal(t, 3100.0, obs[0].Value.Float64)

	assert.False(t, obs[1].Value.Valid)
	assert.True(t, obs[3].Value.Valid, "zero is data")
	assert.Equal(t, 1, obs[3].RowIndex)
}

func TestRebuildInvertsFlatten(t *testing.T) {
	table := sampleTable(t)
	run := newRunRow("run-1", table)

	got, err := rebuild(&run, flatten("run-1", table))
	require.NoError(t, err)
	assert.Equal(t, table.Keys(), got.Keys())
	assert.Equal(t, table.Columns(), got.Columns())
	assert.Equal(t, "private", got.Role("fin_aid_private"))
	assert.Equal(t, table.Fingerprint(), got.Fingerprint())
	assert.Equal(t, run.Fingerprint, got.Fingerprint().String())
}

func TestRebuildRejectsUnknownColumn(t *testing.T) {
	run := runRow{Columns: []string{"applicants"}, Roles: []string{""}}
	_, err := rebuild(&run, []observationRow{{Institution: "A", Year: 2001, ColumnName: "admitted", Value: sql.NullFloat64{Float64: 1, Valid: true}}})
	assert.Error(t, err)

	run.Roles = nil
	_, err = rebuild(&run, nil)
	assert.Error(t, err)
}

// TestRepositoryLive needs a scratch database in TEST_DATABASE_URL.
func TestRepositoryLive(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping live test: TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	defer db.Close()

	runner := migration.NewRunner()
	require.NoError(t, runner.Reset(ctx, db))
	require.NoError(t, runner.Run(ctx, db))
	require.NoError(t, runner.Run(ctx, db), "second run is a no-op")

	repo := NewObservationRepository(db)
	table := sampleTable(t)
	runID := core.NewRunID()

	rec, err := repo.SaveTable(ctx, runID, table)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Rows)

	_, err = repo.SaveTable(ctx, runID, table)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	got, err := repo.LoadTable(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, table.Fingerprint(), got.Fingerprint())

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)

	require.NoError(t, repo.DeleteRun(ctx, runID))
	_, err = repo.GetRun(ctx, runID)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(repo.DeleteRun(ctx, runID)))
}
