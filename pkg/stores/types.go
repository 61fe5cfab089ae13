package stores

import (
	"context"
	"time"
)

// Run is one persisted orchestration run.
type Run struct {
	ID          string    `json:"id"`
	Environment string    `json:"environment"`
	Action      string    `json:"action"`
	Pipeline    bool      `json:"pipeline"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
}

// CellRecord is one persisted cell outcome belonging to a run.
type CellRecord struct {
	ID         int64  `json:"id"`
	RunID      string `json:"run_id"`
	Cloud      string `json:"cloud"`
	Module     string `json:"module"`
	Status     string `json:"status"`
	Stage      string `json:"stage,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`
	Error      string `json:"error,omitempty"`
	Output     string `json:"output,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Store is the run-history persistence interface.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	SaveRun(ctx context.Context, run *Run, cells []CellRecord) error
	GetRun(ctx context.Context, id string) (*Run, []CellRecord, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error
	PruneRuns(ctx context.Context, keep int) (int64, error)

	HealthCheck(ctx context.Context) error
}
