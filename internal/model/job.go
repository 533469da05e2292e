// Package model holds the wire/storage shapes shared across the
// queue: jobs, worker records, and the small set of states a job can
// be in.
package model

import "time"

// Job states. "failed" never persists as a durable state: a
// retryable failure is written straight back to StatePending with a
// future NextRunAt, and the reason lives in LastError instead.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateDLQ       = "dlq"
)

// Job is a single unit of work.
type Job struct {
	ID            int64
	Command       string
	State         string
	Attempts      int
	MaxRetries    int
	NextRunAt     time.Time
	ClaimedBy     string
	ClaimedAt     *time.Time
	LeaseDeadline *time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WorkerRecord tracks a live worker for the "status" command and for
// stale-worker bookkeeping. It is advisory only: job recovery never
// depends on it, only on lease expiry (see storage.ClaimOne).
type WorkerRecord struct {
	WorkerID      string
	PID           int
	StartedAt     time.Time
	LastHeartbeat time.Time
}
