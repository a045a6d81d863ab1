package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/sudo-init-do/servicehub/internal/config"
	"github.com/sudo-init-do/servicehub/internal/db"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.Migrate(config.Load().PostgresURL(), true); err != nil {
			return err
		}
		log.Println("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.Migrate(config.Load().PostgresURL(), false); err != nil {
			return err
		}
		log.Println("migrations rolled back")
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}
