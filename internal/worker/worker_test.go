package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/msfxinfinity/QueueCTL/internal/executor"
	"github.com/msfxinfinity/QueueCTL/internal/model"
	"github.com/msfxinfinity/QueueCTL/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadRuntimeConfig_UsesSeededDefaults(t *testing.T) {
	s := newTestStore(t)
	cfg, err := loadRuntimeConfig(context.Background(), s)
	if err != nil {
		t.Fatalf("loadRuntimeConfig() error = %v", err)
	}
	if cfg.pollInterval != 500*time.Millisecond {
		t.Errorf("pollInterval = %v, want 500ms", cfg.pollInterval)
	}
	if cfg.leaseDuration != 60*time.Second {
		t.Errorf("leaseDuration = %v, want 60s", cfg.leaseDuration)
	}
	if cfg.stop {
		t.Error("stop = true, want false by default")
	}
}

func TestLoadRuntimeConfig_ReflectsOverridesImmediately(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.ConfigSet(ctx, "poll_interval_ms", "50"); err != nil {
		t.Fatalf("ConfigSet() error = %v", err)
	}
	if err := s.ConfigSet(ctx, "workers.stop", "1"); err != nil {
		t.Fatalf("ConfigSet() error = %v", err)
	}

	cfg, err := loadRuntimeConfig(ctx, s)
	if err != nil {
		t.Fatalf("loadRuntimeConfig() error = %v", err)
	}
	if cfg.pollInterval != 50*time.Millisecond {
		t.Errorf("pollInterval = %v, want 50ms", cfg.pollInterval)
	}
	if !cfg.stop {
		t.Error("stop = false, want true after workers.stop=1")
	}
}

func TestFormatLastError(t *testing.T) {
	timedOut := formatLastError(executor.Result{TimedOut: true, Output: "still running"})
	if timedOut != "timeout out=still running" {
		t.Errorf("formatLastError(timeout) = %q", timedOut)
	}

	failed := formatLastError(executor.Result{ExitCode: 2, Output: "boom"})
	if failed != "rc=2 out=boom" {
		t.Errorf("formatLastError(failure) = %q", failed)
	}
}

func TestWorker_Run_ClaimsExecutesAndSettlesSuccessfulJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ConfigSet(ctx, "poll_interval_ms", "20"); err != nil {
		t.Fatalf("ConfigSet() error = %v", err)
	}
	id, err := s.EnqueueJob(ctx, "true", 3, 3)
	if err != nil {
		t.Fatalf("EnqueueJob() error = %v", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	w := New(s, nil)
	var wg sync.WaitGroup
	wg.Add(1)
	go w.Run(runCtx, &wg)

	deadline := time.Now().Add(1500 * time.Millisecond)
	var settled bool
	for time.Now().Before(deadline) {
		jobs, err := s.ListJobs(ctx, model.StateCompleted)
		if err != nil {
			t.Fatalf("ListJobs() error = %v", err)
		}
		if len(jobs) == 1 && jobs[0].ID == id {
			settled = true
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !settled {
		t.Fatal("job did not reach completed within the deadline")
	}

	cancel()
	wg.Wait()
}

func TestWorker_Run_FinishesInFlightJobAfterShutdownSignaled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ConfigSet(ctx, "poll_interval_ms", "20"); err != nil {
		t.Fatalf("ConfigSet() error = %v", err)
	}
	// Long enough that the worker is certainly mid-execution when we
	// cancel its context, short enough the test doesn't drag.
	id, err := s.EnqueueJob(ctx, "sleep 0.3", 3, 3)
	if err != nil {
		t.Fatalf("EnqueueJob() error = %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w := New(s, nil)
	var wg sync.WaitGroup
	wg.Add(1)
	go w.Run(runCtx, &wg)

	// Give the worker time to claim the job and start executing it,
	// then signal shutdown while the command is still running.
	time.Sleep(100 * time.Millisecond)
	if w.State() != Executing {
		t.Fatalf("worker state = %v, want Executing before shutdown is signaled", w.State())
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	var settled bool
	for time.Now().Before(deadline) {
		jobs, err := s.ListJobs(ctx, model.StateCompleted)
		if err != nil {
			t.Fatalf("ListJobs() error = %v", err)
		}
		if len(jobs) == 1 && jobs[0].ID == id {
			settled = true
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !settled {
		t.Fatal("in-flight job was aborted instead of completing after shutdown was signaled")
	}

	wg.Wait()

	workers, err := s.ListWorkers(ctx)
	if err != nil {
		t.Fatalf("ListWorkers() error = %v", err)
	}
	if len(workers) != 0 {
		t.Errorf("ListWorkers() = %+v, want the worker to have unregistered after settling", workers)
	}
}

func TestWorker_Run_MovesFailingJobToDLQAfterMaxRetries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.ConfigSet(ctx, "poll_interval_ms", "20"); err != nil {
		t.Fatalf("ConfigSet() error = %v", err)
	}
	if err := s.ConfigSet(ctx, "base_backoff_seconds", "0.01"); err != nil {
		t.Fatalf("ConfigSet() error = %v", err)
	}
	id, err := s.EnqueueJob(ctx, "false", 1, 3)
	if err != nil {
		t.Fatalf("EnqueueJob() error = %v", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	w := New(s, nil)
	var wg sync.WaitGroup
	wg.Add(1)
	go w.Run(runCtx, &wg)

	deadline := time.Now().Add(2500 * time.Millisecond)
	var settled bool
	for time.Now().Before(deadline) {
		jobs, err := s.ListJobs(ctx, model.StateDLQ)
		if err != nil {
			t.Fatalf("ListJobs() error = %v", err)
		}
		if len(jobs) == 1 && jobs[0].ID == id {
			settled = true
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !settled {
		t.Fatal("job did not reach dlq within the deadline")
	}

	cancel()
	wg.Wait()
}
