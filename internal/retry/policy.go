// Package retry computes the pure backoff/DLQ decision the worker
// consults after a non-zero exit or a timeout. It never touches the
// store or the clock beyond what's passed in, which is what makes the
// backoff law in the spec's testable properties checkable without a
// database.
package retry

import (
	"math"
	"time"
)

// Decision is the outcome of consulting the retry policy after a
// failed execution.
type Decision struct {
	Delay time.Duration
	ToDLQ bool
}

// Policy holds the tunables the spec exposes through the config
// table.
type Policy struct {
	BaseBackoffSeconds float64
	MaxBackoffSeconds  int
	MaxRetries         int
}

// hardMaxBackoff is the ceiling from the spec regardless of what a
// misconfigured max_backoff_seconds says.
const hardMaxBackoff = 3600 * time.Second

// Decide computes delay = min(base^attempts, max_backoff) and the
// DLQ decision, where attemptsAfterThisFailure is the job's attempts
// counter *after* this failed execution has been recorded (matching
// storage.SettleFailure, which increments attempts before this policy
// result is written back).
//
// The DLQ cutoff is attempts > max_retries, not attempts >=
// max_retries: the invariant "attempts <= max_retries + 1" only holds,
// and the spec's own worked example (max_retries=M failing M+1 times
// lands in dlq with attempts=M+1) only checks out, if the job is
// allowed exactly max_retries retries after its first attempt.
func (p Policy) Decide(attemptsAfterThisFailure int) Decision {
	delaySeconds := math.Pow(p.BaseBackoffSeconds, float64(attemptsAfterThisFailure))
	max := time.Duration(p.MaxBackoffSeconds) * time.Second
	if max <= 0 || max > hardMaxBackoff {
		max = hardMaxBackoff
	}
	// Clamp in float seconds before converting: a large base^attempts
	// would overflow time.Duration's int64 nanoseconds.
	delay := max
	if delaySeconds < max.Seconds() {
		delay = time.Duration(delaySeconds * float64(time.Second))
	}
	return Decision{
		Delay: delay,
		ToDLQ: attemptsAfterThisFailure > p.MaxRetries,
	}
}
