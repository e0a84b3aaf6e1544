// Package state records generation history in SQLite.
// It tracks runs and the per-target outcome of each run, including the hash
// of the generated SQL so that later runs can tell which targets changed.
package state

import (
	"context"
	"time"
)

// RunStatus is the lifecycle state of a generation run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// TargetStatus is the outcome of generating one target.
type TargetStatus string

// Target statuses.
const (
	TargetStatusGenerated TargetStatus = "generated"
	TargetStatusUnchanged TargetStatus = "unchanged"
	TargetStatusFailed    TargetStatus = "failed"
)

// Run is a single generation run.
type Run struct {
	ID          string
	Environment string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// TargetResult is the outcome of one target within a run.
type TargetResult struct {
	RunID    string
	Target   string // schema.table
	Status   TargetStatus
	Hash     string // sha256 of the generated SQL, empty on failure
	Outputs  []string
	Error    string
	Duration time.Duration
}

// Store persists generation history.
type Store interface {
	CreateRun(ctx context.Context, env string) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, errMsg string) error
	LatestRun(ctx context.Context, env string) (*Run, error)
	ListRuns(ctx context.Context, env string, limit int) ([]*Run, error)

	RecordTarget(ctx context.Context, result *TargetResult) error
	TargetResults(ctx context.Context, runID string) ([]*TargetResult, error)
	// LastHash returns the hash of the most recent successful generation of
	// target in env, or "" when there is none.
	LastHash(ctx context.Context, env, target string) (string, error)

	Close() error
}
