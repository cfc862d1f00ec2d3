package cmd

import (
	"fmt"
	"github.com/ValgulNecron/kasuki-sub000/kasuki"
	"github.com/spf13/cobra"
	"log/slog"
)

// migrateCmd creates or updates the database schema. Unlike `run`, it only
// needs the database settings, so it can be used before a discord token
// is configured.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if cfg.Database == "" {
			return fmt.Errorf(
				"database not set (must be a valid connection string or sqlite file path)",
			)
		}

		store, err := kasuki.OpenStore(
			ctx,
			cfg.DatabaseType,
			cfg.Database,
			kasuki.StoreOptions{
				Logger:   slog.Default(),
				MaxConns: cfg.DatabaseMaxConns,
			},
		)
		if err != nil {
			return fmt.Errorf("error opening database: %w", err)
		}
		defer func() {
			_ = store.Close()
		}()

		if err = store.Migrate(ctx); err != nil {
			return fmt.Errorf("error migrating database: %w", err)
		}
		fmt.Fprintf(out, "Migrated %s database.\n", store.Backend())
		fmt.Fprintln(
			out,
			"You can now start the bot with the 'run' subcommand.",
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
