package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/msfxinfinity/QueueCTL/internal/dlq"
)

func DlqCmd(app *App) *cobra.Command {
	manager := dlq.New(app.Store)

	dlqCmd := &cobra.Command{
		Use:   "dlq",
		Short: "Manage the dead-letter queue",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs quarantined in the dlq",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := manager.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list dlq jobs: %w", err)
			}
			if len(jobs) == 0 {
				fmt.Println("Dead letter queue is empty.")
				return nil
			}

			fmt.Printf("%-6s %-40s %s\n", "id", "error", "command")
			for _, j := range jobs {
				fmt.Printf("%-6d %-40s %s\n", j.ID, j.LastError, j.Command)
			}
			return nil
		},
	}

	retryCmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Move a job from the dlq back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q: %w", args[0], err)
			}
			if err := manager.Retry(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to retry job %d: %w", id, err)
			}
			fmt.Printf("Job %d moved from dlq to pending\n", id)
			return nil
		},
	}

	dlqCmd.AddCommand(listCmd)
	dlqCmd.AddCommand(retryCmd)
	return dlqCmd
}
