package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// QueueCmd groups `queue add` and `queue list`.
func QueueCmd(app *App) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Enqueue and inspect jobs",
	}

	addCmd := &cobra.Command{
		Use:   "add <command>",
		Short: "Add a job to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxRetries, _ := cmd.Flags().GetInt("max-retries")
			command := args[0]
			if command == "" {
				return fmt.Errorf("command must not be empty")
			}

			defaultMaxRetries := app.Cfg.DefaultMaxRetries
			if v, ok, err := app.Store.ConfigGet(cmd.Context(), "default_max_retries"); err != nil {
				return fmt.Errorf("failed to read default_max_retries: %w", err)
			} else if ok {
				if n, err := strconv.Atoi(v); err == nil {
					defaultMaxRetries = n
				}
			}

			id, err := app.Store.EnqueueJob(cmd.Context(), command, maxRetries, defaultMaxRetries)
			if err != nil {
				return fmt.Errorf("failed to enqueue job: %w", err)
			}
			app.Metrics.IncEnqueued()
			fmt.Printf("Job %d enqueued\n", id)
			return nil
		},
	}
	addCmd.Flags().Int("max-retries", 0, "Override default_max_retries for this job (0 = use default)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, _ := cmd.Flags().GetString("state")

			jobs, err := app.Store.ListJobs(cmd.Context(), state)
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}
			if len(jobs) == 0 {
				fmt.Println("No jobs found.")
				return nil
			}

			fmt.Printf("%-6s %-10s %-9s %-25s %s\n", "id", "state", "attempts", "next_run", "command")
			for _, j := range jobs {
				fmt.Printf("%-6d %-10s %-9d %-25s %s\n",
					j.ID, j.State, j.Attempts, j.NextRunAt.Format("2006-01-02T15:04:05Z07:00"), j.Command)
			}
			return nil
		},
	}
	listCmd.Flags().String("state", "", "Filter by state (pending, running, completed, dlq)")

	queueCmd.AddCommand(addCmd)
	queueCmd.AddCommand(listCmd)
	return queueCmd
}
