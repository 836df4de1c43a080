package ports

import (
	"context"
	"time"

	"gradtrends/domain/core"
	"gradtrends/domain/tidy"
)

// RunRecord describes one persisted pipeline run
type RunRecord struct {
	RunID       core.RunID            `json:"run_id"`
	Fingerprint core.TableFingerprint `json:"fingerprint"`
	Rows        int                   `json:"rows"`
	Columns     []string              `json:"columns"`
	Roles       []string              `json:"roles"`
	CreatedAt   time.Time             `json:"created_at"`
}

// ObservationRepository stores tidy tables in long form, one observation per
// (run, institution, year, column). The sentinel is stored as NULL.
type ObservationRepository interface {
	SaveTable(ctx context.Context, runID core.RunID, table *tidy.Table) (*RunRecord, error)
	LoadTable(ctx context.Context, runID core.RunID) (*tidy.Table, error)
	GetRun(ctx context.Context, runID core.RunID) (*RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	DeleteRun(ctx context.Context, runID core.RunID) error
}
