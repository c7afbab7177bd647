package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fintally/tally/internal/config"
	"github.com/fintally/tally/internal/storage"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.
Every other command migrates automatically; this exists for checking
status and for provisioning a fresh database explicitly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			dbPath := config.DatabasePath()

			store, err := storage.NewSQLiteStorage(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			if status {
				version, err := store.SchemaVersion(ctx)
				if err != nil {
					return fmt.Errorf("failed to read schema version: %w", err)
				}
				fmt.Printf("Database: %s\n", dbPath)
				fmt.Printf("Current schema version: %d\n", version)
				fmt.Printf("Latest schema version:  %d\n", storage.ExpectedSchemaVersion)
				return nil
			}

			slog.Info("Running database migrations", "database", dbPath)
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			slog.Info("Database migrations completed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "Show current migration status without applying changes")

	return cmd
}
