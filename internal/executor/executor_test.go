package executor

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRun_SuccessfulCommand(t *testing.T) {
	r := Run(context.Background(), "echo hello", time.Second)
	if r.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", r.ExitCode)
	}
	if r.TimedOut {
		t.Error("TimedOut = true, want false")
	}
	if !strings.Contains(r.Output, "hello") {
		t.Errorf("Output = %q, want it to contain %q", r.Output, "hello")
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	r := Run(context.Background(), "exit 7", time.Second)
	if r.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", r.ExitCode)
	}
	if r.TimedOut {
		t.Error("TimedOut = true, want false")
	}
}

func TestRun_TimeoutKillsTheProcessGroup(t *testing.T) {
	start := time.Now()
	r := Run(context.Background(), "sleep 5", 50*time.Millisecond)
	elapsed := time.Since(start)

	if !r.TimedOut {
		t.Error("TimedOut = false, want true")
	}
	if elapsed > 2*time.Second {
		t.Errorf("Run took %v, want it to return promptly after the timeout", elapsed)
	}
}

func TestRun_OutputIsBoundedTo4KiB(t *testing.T) {
	r := Run(context.Background(), "yes x | head -c 100000", 2*time.Second)
	if len(r.Output) > maxOutput {
		t.Errorf("len(Output) = %d, want <= %d", len(r.Output), maxOutput)
	}
}
