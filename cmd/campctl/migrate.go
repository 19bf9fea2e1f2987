package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.withDB(cmd.Context(), func(db *sql.DB) error {
					if err := e.migrator.RunMigrations(cmd.Context(), db); err != nil {
						return fmt.Errorf("migrate up: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the state of every migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.withDB(cmd.Context(), func(db *sql.DB) error {
					return e.migrator.MigrationStatus(cmd.Context(), db)
				})
			},
		},
	)
	return cmd
}
