package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigCmd manages the database's config table — the layer workers
// re-read every poll tick — not the process bootstrap file in
// internal/config, which governs where the database itself lives and
// holds a few fallback values.
func ConfigCmd(app *App) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Get or set runtime configuration",
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, ok, err := app.Store.ConfigGet(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			if !ok {
				return fmt.Errorf("unknown config key: %s", args[0])
			}
			fmt.Println(value)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Store.ConfigSet(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("failed to set config: %w", err)
			}
			fmt.Printf("%s = %s\n", args[0], args[1])
			return nil
		},
	}

	configCmd.AddCommand(getCmd)
	configCmd.AddCommand(setCmd)
	return configCmd
}
