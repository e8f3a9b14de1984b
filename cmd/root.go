package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"billing/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "billing",
	Short: "Billing CLI - invoice reconciliation, recurring invoices and reports",
	Long: `Billing CLI drives the billing engine: it records payments against
invoices, runs the recurring-invoice scheduler, and produces revenue,
expense, client, project, forecast and aging reports.

Configuration is read from environment variables (see .env):
  BILLING_DB_PATH          - SQLite database path (default: billing.db)
  SCHEDULER_POLL_INTERVAL  - scheduler check interval (default: 1h)
  PAYMENT_TERMS_DAYS       - due-date offset for generated invoices (default: 30)`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Billing CLI executed")

		fmt.Println("Welcome to Billing CLI!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
