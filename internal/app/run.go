package app

import (
	"time"

	"katalog/internal/katalog"
)

// Run tracks one CLI invocation. Its ID tags every log line written during
// the invocation; Status starts as "success" and flips on the first failure.
type Run struct {
	ID        string
	Command   string
	Args      string
	Status    string // "success" or "error"
	StartedAt time.Time
}

// NewRun starts a run for command. The run id is the first eight characters
// of a generated id, enough to tell interleaved invocations apart in the log.
func NewRun(command, args string, ids katalog.IDGenerator, clock katalog.Clock) *Run {
	id := ids.New()
	if len(id) > 8 {
		id = id[:8]
	}
	return &Run{
		ID:        id,
		Command:   command,
		Args:      args,
		Status:    "success",
		StartedAt: clock.Now(),
	}
}

// Fail marks the run as failed. A nil err leaves the status alone.
func (r *Run) Fail(err error) {
	if err != nil {
		r.Status = "error"
	}
}

// Failed reports whether any step of the run failed.
func (r *Run) Failed() bool {
	return r.Status == "error"
}

// Elapsed returns the time since the run started.
func (r *Run) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.StartedAt)
}
