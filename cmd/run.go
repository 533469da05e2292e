package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/msfxinfinity/QueueCTL/internal/worker"
)

// RunCmd is the supplemental single-process demo driver: it enqueues
// synthetic jobs on a timer and drives N worker.Worker goroutines
// in-process, printing periodic status. Unlike `worker start`, nothing
// here survives the process exiting — it exists for trying the queue
// out on one terminal without a separate `worker start` step.
func RunCmd(app *App) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run an in-process demo: auto-enqueue jobs and work them with N goroutine workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, _ := cmd.Flags().GetInt("workers")
			enqueueEvery, _ := cmd.Flags().GetDuration("enqueue-interval")
			enqueueCommand, _ := cmd.Flags().GetString("enqueue-command")
			statusEvery, _ := cmd.Flags().GetDuration("status-interval")

			if workers < 1 {
				return fmt.Errorf("--workers must be at least 1")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Println("\nshutting down, waiting for in-flight jobs to settle...")
				cancel()
			}()

			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				w := worker.New(app.Store, app.Metrics)
				wg.Add(1)
				go w.Run(ctx, &wg)
			}

			var enqueueWg sync.WaitGroup
			if enqueueEvery > 0 {
				enqueueWg.Add(1)
				go func() {
					defer enqueueWg.Done()
					runEnqueueLoop(ctx, app, enqueueCommand, enqueueEvery)
				}()
			}

			var statusWg sync.WaitGroup
			if statusEvery > 0 {
				statusWg.Add(1)
				go func() {
					defer statusWg.Done()
					runStatusLoop(ctx, app, statusEvery)
				}()
			}

			wg.Wait()
			enqueueWg.Wait()
			statusWg.Wait()
			fmt.Println("all workers stopped")
			return nil
		},
	}

	runCmd.Flags().Int("workers", 2, "Number of in-process worker goroutines")
	runCmd.Flags().Duration("enqueue-interval", 0, "If set, enqueue a synthetic job on this interval")
	runCmd.Flags().String("enqueue-command", "true", "Command used by the auto-enqueue loop")
	runCmd.Flags().Duration("status-interval", 5*time.Second, "How often to print queue status (0 disables)")
	return runCmd
}

func runEnqueueLoop(ctx context.Context, app *App, command string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			defaultMaxRetries := app.Cfg.DefaultMaxRetries
			if v, ok, err := app.Store.ConfigGet(ctx, "default_max_retries"); err == nil && ok {
				if n, err := strconv.Atoi(v); err == nil {
					defaultMaxRetries = n
				}
			}
			id, err := app.Store.EnqueueJob(ctx, command, 0, defaultMaxRetries)
			if err != nil {
				fmt.Fprintf(os.Stderr, "auto-enqueue failed: %v\n", err)
				continue
			}
			app.Metrics.IncEnqueued()
			fmt.Printf("enqueued job %d (%s)\n", id, command)
		}
	}
}

func runStatusLoop(ctx context.Context, app *App, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counts, err := app.Store.CountsByState(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "status: %v\n", err)
				continue
			}
			workers, err := app.Store.ListWorkers(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "status: %v\n", err)
				continue
			}
			app.Metrics.RefreshGauges(counts, len(workers))
			fmt.Printf("pending=%d running=%d completed=%d dlq=%d workers=%d\n",
				counts["pending"], counts["running"], counts["completed"], counts["dlq"], len(workers))
		}
	}
}
