// Package cmd wires the admin surface — the cobra command tree —
// onto internal/storage, internal/dlq, internal/supervisor and
// internal/metrics. This is the boundary layer the spec calls
// out-of-core: argument parsing, table formatting, and process
// spawning for workers, not the queue's hard engineering.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/msfxinfinity/QueueCTL/internal/config"
	"github.com/msfxinfinity/QueueCTL/internal/metrics"
	"github.com/msfxinfinity/QueueCTL/internal/storage"
)

// App bundles the dependencies every subcommand needs. Building it in
// one place (rather than each command opening its own store) keeps
// `queuectl` a single coherent process.
type App struct {
	Cfg     *config.Config
	Store   *storage.Store
	Metrics *metrics.Recorder
}

var rootCmd = &cobra.Command{
	Use:           "queuectl",
	Short:         "A durable local job queue with retrying workers and a dead-letter queue",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute builds the command tree against app and runs it. InputError
// and StorageError both surface through cobra's RunE; cobra's own
// error and usage output is silenced, so a failure prints one line,
// "error: <message>", to stderr and exits 1.
func Execute(app *App) {
	rootCmd.AddCommand(InitCmd(app))
	rootCmd.AddCommand(QueueCmd(app))
	rootCmd.AddCommand(StatusCmd(app))
	rootCmd.AddCommand(DlqCmd(app))
	rootCmd.AddCommand(ConfigCmd(app))
	rootCmd.AddCommand(WorkerCmd(app))
	rootCmd.AddCommand(RunCmd(app))
	rootCmd.AddCommand(MetricsCmd(app))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
