// Package executor runs a claimed job's command. It never touches
// the store — the worker feeds it a command and a timeout and gets
// back an exit status and captured output.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// maxOutput bounds captured stdout/stderr so a chatty command can't
// blow up last_error or memory. 4 KiB, per the spec.
const maxOutput = 4096

// Result is what a worker needs to decide the next state transition.
type Result struct {
	ExitCode int
	Output   string
	TimedOut bool
}

// Run executes command through a shell with the given timeout,
// running it in its own process group so a timeout can kill the
// whole tree, not just the shell.
func Run(ctx context.Context, command string, timeout time.Duration) Result {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var buf boundedBuffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	// exec.CommandContext only kills the direct child on timeout; a
	// process group lets us reach anything the shell spawned.
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{ExitCode: -1, Output: buf.String(), TimedOut: true}
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return Result{ExitCode: exitErr.ExitCode(), Output: buf.String()}
		}
		// Failed to even start the shell (e.g. missing binary):
		// report as a synthetic failure carrying the spawn error.
		return Result{ExitCode: -1, Output: fmt.Sprintf("spawn error: %v\n%s", err, buf.String())}
	}
	return Result{ExitCode: 0, Output: buf.String()}
}

// boundedBuffer keeps only the first maxOutput bytes written to it,
// which is enough for a diagnostic without letting a runaway command
// exhaust memory.
type boundedBuffer struct {
	buf bytes.Buffer
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if b.buf.Len() < maxOutput {
		remaining := maxOutput - b.buf.Len()
		if remaining > len(p) {
			remaining = len(p)
		}
		b.buf.Write(p[:remaining])
	}
	// Report the full length written so callers (os/exec) don't treat
	// this as a short write error; the excess is simply discarded.
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	return b.buf.String()
}
