package storage

import "errors"

// Domain error kinds from the error-handling design. ClaimConflict is
// not a Go error at all — a missed claim is a nil, nil return, since
// it's the ordinary "someone else got there first" outcome of a poll
// tick, not a failure.
var (
	// ErrLeaseStolen is returned by SettleSuccess/SettleFailure/
	// Heartbeat when the calling worker no longer owns the job's
	// lease — another worker reclaimed it after expiry. The caller
	// should log and abandon; the reclaiming worker now owns the
	// outcome.
	ErrLeaseStolen = errors.New("storage: lease stolen by another worker")

	// ErrNotFound is returned by DLQRetry when the job id doesn't
	// exist.
	ErrNotFound = errors.New("storage: job not found")

	// ErrNotDLQ is returned by DLQRetry when the job exists but is
	// not currently in the dlq state.
	ErrNotDLQ = errors.New("storage: job is not in the dlq")
)
