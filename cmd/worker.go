package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/msfxinfinity/QueueCTL/internal/supervisor"
	"github.com/msfxinfinity/QueueCTL/internal/worker"
)

// WorkerCmd manages worker processes: `start` spawns them and returns
// immediately, `stop` sets the graceful stop flag (optionally forcing
// a kill after a grace period), and the hidden `run-one` is the
// per-process entrypoint `start` re-execs into.
func WorkerCmd(app *App) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage worker processes",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start one or more worker processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			pids, err := supervisor.Start(app.Cfg.DataDir, count)
			if err != nil {
				return err
			}
			fmt.Printf("Started %d worker(s), pids=%v\n", len(pids), pids)
			return nil
		},
	}
	startCmd.Flags().Int("count", 1, "Number of workers to start")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Signal workers to shut down gracefully",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			graceSeconds, _ := cmd.Flags().GetInt("grace")

			if err := supervisor.Stop(cmd.Context(), app.Store, app.Cfg.DataDir, force, time.Duration(graceSeconds)*time.Second); err != nil {
				return err
			}
			if force {
				fmt.Println("Workers signaled to stop; force-killed any still running after the grace period.")
			} else {
				fmt.Println("Stop flag set; workers will exit after their current job.")
			}
			return nil
		},
	}
	stopCmd.Flags().Bool("force", false, "Wait for the grace period, then SIGTERM any worker still registered")
	stopCmd.Flags().Int("grace", 120, "Grace period in seconds before force-killing (with --force)")

	runOneCmd := &cobra.Command{
		Use:    "run-one",
		Short:  "Run a single worker in the foreground (internal; used by `worker start`)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				cancel()
			}()

			w := worker.New(app.Store, app.Metrics)
			w.Run(ctx, nil)
			return nil
		},
	}

	workerCmd.AddCommand(startCmd)
	workerCmd.AddCommand(stopCmd)
	workerCmd.AddCommand(runOneCmd)
	return workerCmd
}
