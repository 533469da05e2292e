package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitCmd exists for operator clarity even though main.go already
// opens (and thereby creates/migrates) the store before any command
// runs — CREATE TABLE IF NOT EXISTS and the config seed are
// idempotent, so `init` is safe to run any number of times.
func InitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the schema and seed default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := app.Store.ConfigAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			fmt.Printf("Queue store ready at %s (%d config keys seeded)\n", app.Cfg.DataDir, len(all))
			return nil
		},
	}
}
