package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// staleWorkerFactor matches the 5*lease_duration_seconds reap window
// from SPEC_FULL.md: a live worker touches its row after every poll
// tick, and a tick that runs a job is bounded by an exec timeout below
// lease_duration_seconds (see internal/worker), so a row five leases
// old belongs to a process that died without unregistering.
const staleWorkerFactor = 5

func StatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts by state and active worker count",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if _, err := app.Store.ReapStaleWorkers(ctx, staleWorkerThreshold(ctx, app)); err != nil {
				return fmt.Errorf("failed to reap stale workers: %w", err)
			}

			counts, err := app.Store.CountsByState(ctx)
			if err != nil {
				return fmt.Errorf("failed to get job counts: %w", err)
			}
			workers, err := app.Store.ListWorkers(ctx)
			if err != nil {
				return fmt.Errorf("failed to list workers: %w", err)
			}
			app.Metrics.RefreshGauges(counts, len(workers))

			fmt.Println("--- Jobs ---")
			if len(counts) == 0 {
				fmt.Println("No jobs in the queue.")
			}
			for _, state := range []string{"pending", "running", "completed", "dlq"} {
				fmt.Printf("%-10s %d\n", state, counts[state])
			}

			fmt.Println("\n--- Workers ---")
			fmt.Printf("active: %d\n", len(workers))
			for _, w := range workers {
				fmt.Printf("  %s (pid=%d, started=%s, last_heartbeat=%s)\n",
					w.WorkerID, w.PID,
					w.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
					w.LastHeartbeat.Format("2006-01-02T15:04:05Z07:00"))
			}
			return nil
		},
	}
}

// staleWorkerThreshold reads lease_duration_seconds from the runtime
// config table so the reap window tracks the same value workers
// actually heartbeat against, falling back to the bootstrap default
// if the key is somehow missing.
func staleWorkerThreshold(ctx context.Context, app *App) time.Duration {
	leaseSeconds := app.Cfg.LeaseDurationSeconds
	if v, ok, err := app.Store.ConfigGet(ctx, "lease_duration_seconds"); err == nil && ok {
		if n, err := strconv.Atoi(v); err == nil {
			leaseSeconds = n
		}
	}
	return staleWorkerFactor * time.Duration(leaseSeconds) * time.Second
}
