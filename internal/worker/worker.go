// Package worker implements the long-running actor that polls the
// store, claims a job, executes it, and settles the result — the
// register -> poll -> claim -> execute -> settle loop from the spec.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msfxinfinity/QueueCTL/internal/executor"
	"github.com/msfxinfinity/QueueCTL/internal/metrics"
	"github.com/msfxinfinity/QueueCTL/internal/model"
	"github.com/msfxinfinity/QueueCTL/internal/retry"
	"github.com/msfxinfinity/QueueCTL/internal/storage"
)

// safetyMargin keeps the executor's timeout comfortably inside the
// lease so a job that finishes right at the wire still has time for
// its settle call before another worker could reclaim it.
const safetyMargin = 5 * time.Second

// Worker is a single long-running actor identified by a worker ID
// made of hostname, pid and a random suffix, so a pid the OS recycles
// does not reproduce an earlier worker's ID. A restarted worker gets
// a new ID.
type Worker struct {
	ID      string
	Store   *storage.Store
	Metrics *metrics.Recorder

	log   *log.Logger
	state State
	mu    sync.Mutex
}

// New builds a worker with a fresh hostname-pid-random identity.
func New(store *storage.Store, m *metrics.Recorder) *Worker {
	host, _ := os.Hostname()
	id := fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
	return &Worker{
		ID:      id,
		Store:   store,
		Metrics: m,
		log:     log.New(os.Stderr, fmt.Sprintf("[worker %s] ", id), log.LstdFlags),
	}
}

// State reports the worker's current position in its state machine.
// Safe to call concurrently with Run.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Run is the worker's main loop. It registers on entry, unregisters
// on exit, and blocks until ctx is canceled or the workers.stop flag
// is observed between jobs — whichever comes first. A worker never
// abandons a job mid-execution to honor ctx cancellation; it finishes
// (or lets the lease expire) before exiting.
func (w *Worker) Run(ctx context.Context, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}

	pid := os.Getpid()
	if err := w.Store.RegisterWorker(ctx, w.ID, pid); err != nil {
		w.log.Printf("failed to register: %v", err)
		return
	}
	w.log.Printf("started")
	defer func() {
		if err := w.Store.UnregisterWorker(context.Background(), w.ID); err != nil {
			w.log.Printf("failed to unregister: %v", err)
		}
		w.log.Printf("stopped")
	}()

	for {
		w.setState(Idle)

		select {
		case <-ctx.Done():
			w.setState(Exiting)
			return
		default:
		}

		cfg, err := loadRuntimeConfig(ctx, w.Store)
		if err != nil {
			w.log.Printf("storage error reading config, exiting: %v", err)
			return
		}
		if cfg.stop {
			w.log.Printf("stop flag observed, exiting")
			w.setState(Exiting)
			return
		}

		claimed, err := w.tick(ctx, cfg)
		if err != nil {
			w.log.Printf("storage error, exiting: %v", err)
			return
		}
		if err := w.Store.TouchWorker(ctx, w.ID); err != nil {
			w.log.Printf("failed to touch worker heartbeat: %v", err)
		}
		if !claimed {
			select {
			case <-ctx.Done():
				w.setState(Exiting)
				return
			case <-time.After(cfg.pollInterval):
			}
		}
	}
}

// tick attempts to claim and process a single job. It reports whether
// a job was claimed (regardless of outcome) so the caller knows
// whether to sleep before the next poll.
func (w *Worker) tick(ctx context.Context, cfg runtimeConfig) (bool, error) {
	w.setState(Claiming)
	now := time.Now().UTC()
	job, err := w.Store.ClaimOne(ctx, w.ID, now, cfg.leaseDuration)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	w.log.Printf("claimed job %d attempt=%d/%d command=%q", job.ID, job.Attempts+1, job.MaxRetries+1, job.Command)

	// A claimed job runs to completion and gets settled even if the
	// worker's shutdown context is canceled while it's in flight — only
	// the between-job poll in Run honors cancellation, per the "finish
	// the current job before exiting" rule.
	jobCtx := context.Background()

	w.setState(Executing)
	start := time.Now()
	result := w.execute(job, cfg)
	elapsed := time.Since(start)
	w.Metrics.ObserveLatency(elapsed)

	w.setState(Settling)
	if result.ExitCode == 0 && !result.TimedOut {
		if err := w.Store.SettleSuccess(jobCtx, job.ID, w.ID); err != nil {
			if errors.Is(err, storage.ErrLeaseStolen) {
				w.log.Printf("job %d: lease stolen before settle, abandoning", job.ID)
				return true, nil
			}
			return true, err
		}
		w.log.Printf("job %d completed", job.ID)
		w.Metrics.IncCompleted()
		return true, nil
	}

	// Non-zero exit or timeout: consult the retry policy.
	attemptsAfter := job.Attempts + 1
	policy := retry.Policy{
		BaseBackoffSeconds: cfg.baseBackoff,
		MaxBackoffSeconds:  cfg.maxBackoff,
		MaxRetries:         job.MaxRetries,
	}
	decision := policy.Decide(attemptsAfter)
	nextRunAt := time.Now().UTC().Add(decision.Delay)

	lastErr := formatLastError(result)
	if err := w.Store.SettleFailure(jobCtx, job.ID, w.ID, lastErr, nextRunAt, decision.ToDLQ); err != nil {
		if errors.Is(err, storage.ErrLeaseStolen) {
			w.log.Printf("job %d: lease stolen before settle, abandoning", job.ID)
			return true, nil
		}
		return true, err
	}

	if decision.ToDLQ {
		w.log.Printf("job %d moved to dlq after %d attempts: %s", job.ID, attemptsAfter, lastErr)
		w.Metrics.IncDead()
	} else {
		w.log.Printf("job %d failed, retrying in %s (attempt %d): %s", job.ID, decision.Delay, attemptsAfter, lastErr)
		w.Metrics.IncFailed()
	}
	return true, nil
}

// execute runs the job's command under a bounded timeout and keeps
// its lease alive in the background while the command runs. It is
// deliberately detached from the worker's shutdown context: once a
// job is claimed, only its own timeout (bounded below the lease
// duration) can end it early, never a SIGINT/SIGTERM observed between
// jobs.
func (w *Worker) execute(job *model.Job, cfg runtimeConfig) executor.Result {
	timeout := cfg.execTimeout
	if maxAllowed := cfg.leaseDuration - safetyMargin; maxAllowed > 0 && timeout > maxAllowed {
		timeout = maxAllowed
	}

	heartbeatCtx, cancelHeartbeat := context.WithCancel(context.Background())
	defer cancelHeartbeat()
	go w.heartbeatLoop(heartbeatCtx, job.ID, cfg.leaseDuration)

	return executor.Run(context.Background(), job.Command, timeout)
}

// heartbeatLoop extends the job's lease at roughly a third of the
// lease duration while the executor runs, so a long-but-healthy job
// never loses its claim to a lease-expiry reclaim.
func (w *Worker) heartbeatLoop(ctx context.Context, jobID int64, leaseDuration time.Duration) {
	interval := leaseDuration / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().UTC().Add(leaseDuration)
			if err := w.Store.Heartbeat(context.Background(), jobID, w.ID, deadline); err != nil {
				if errors.Is(err, storage.ErrLeaseStolen) {
					w.log.Printf("job %d: heartbeat found lease already stolen", jobID)
					return
				}
				w.log.Printf("job %d: heartbeat error: %v", jobID, err)
			}
		}
	}
}

func formatLastError(r executor.Result) string {
	out := r.Output
	if len(out) > 400 {
		out = out[:400]
	}
	if r.TimedOut {
		return fmt.Sprintf("timeout out=%s", out)
	}
	return fmt.Sprintf("rc=%d out=%s", r.ExitCode, out)
}
