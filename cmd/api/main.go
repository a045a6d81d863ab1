package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sudo-init-do/servicehub/internal/config"
	"github.com/sudo-init-do/servicehub/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "servicehub",
	Short: "ServiceHub marketplace API",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the ServiceHub API server",
	Long: `Starts the ServiceHub API server together with the chat relay, the
notification worker and the stats audit scheduler. Usage:

	servicehub serve
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		srv, err := server.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return srv.Run()
	},
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
