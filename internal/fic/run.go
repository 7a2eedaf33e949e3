package fic

import (
	"database/sql"
	"time"
)

// Run modes.
const (
	ModeInit  = "init"
	ModeCheck = "check"
)

// Run statuses.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// Run records one invocation of init or check.
type Run struct {
	ID         string
	Mode       string
	Root       string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
	Files      int
	Skipped    int
	Modified   int
	Deleted    int
	Added      int
}

// NewRun creates a running Run for mode and root.
func NewRun(id, mode, root string, startedAt time.Time) *Run {
	return &Run{
		ID:        id,
		Mode:      mode,
		Root:      root,
		StartedAt: startedAt,
		Status:    RunStatusRunning,
	}
}

// Finish marks the run as finished at t with the outcome of err.
func (r *Run) Finish(t time.Time, err error) {
	r.FinishedAt = sql.NullTime{Time: t, Valid: true}
	if err != nil {
		r.Status = RunStatusError
		return
	}
	r.Status = RunStatusSuccess
}
