package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"billing/internal/currency"
	"billing/internal/ledger"
	"billing/internal/logger"
	"billing/internal/scheduler"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run and inspect the recurring-invoice scheduler",
	Long: `The scheduler materializes invoices from recurring schedules.

"scheduler run" starts the background polling loop in the foreground until
interrupted. "scheduler process" performs a single due-check, "scheduler
generate" forces generation for one schedule, and "scheduler upcoming"
previews what would be generated without creating anything.`,
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler loop until interrupted",
	Example: `  # Run with the configured poll interval
  billing scheduler run`,
	RunE: runSchedulerRun,
}

var schedulerProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "Perform a single due-check and generate due invoices",
	RunE:  runSchedulerProcess,
}

var schedulerGenerateCmd = &cobra.Command{
	Use:   "generate <schedule-id>",
	Short: "Generate an invoice from one schedule now",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulerGenerate,
}

var schedulerUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "Preview invoices due within the horizon",
	RunE:  runSchedulerUpcoming,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerProcessCmd)
	schedulerCmd.AddCommand(schedulerGenerateCmd)
	schedulerCmd.AddCommand(schedulerUpcomingCmd)

	schedulerUpcomingCmd.Flags().Int("days", 30, "Horizon in days")
}

func runSchedulerRun(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("scheduler-cmd")

	cfg, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sched := scheduler.New(st, ledger.New(st), scheduler.Options{
		PaymentTermsDays: cfg.PaymentTermsDays,
		StopTimeout:      cfg.StopTimeout,
	})
	sched.Start(cfg.PollInterval)

	log.Info().
		Dur("poll_interval", cfg.PollInterval).
		Str("db_path", cfg.DBPath).
		Msg("Scheduler running, press Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	sched.Stop()
	return nil
}

func runSchedulerProcess(cmd *cobra.Command, args []string) error {
	cfg, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sched := scheduler.New(st, ledger.New(st), scheduler.Options{
		PaymentTermsDays: cfg.PaymentTermsDays,
		StopTimeout:      cfg.StopTimeout,
	})
	result, err := sched.ProcessDue(cmd.Context(), nowUTC())
	if err != nil {
		return err
	}

	fmt.Printf("Generated %d invoice(s), %d error(s)\n", len(result.Generated), len(result.Errors))
	for _, g := range result.Generated {
		fmt.Printf("  schedule %s -> invoice %s\n", g.ScheduleID, g.InvoiceID)
	}
	for _, e := range result.Errors {
		fmt.Printf("  schedule %s failed: %v\n", e.ScheduleID, e.Err)
	}
	return nil
}

func runSchedulerGenerate(cmd *cobra.Command, args []string) error {
	cfg, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sched := scheduler.New(st, ledger.New(st), scheduler.Options{
		PaymentTermsDays: cfg.PaymentTermsDays,
		StopTimeout:      cfg.StopTimeout,
	})
	inv, err := sched.ManualGenerate(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to generate invoice: %w", err)
	}

	fmt.Printf("Generated invoice %s for %s\n", inv.ID, currency.Format(inv.Total, inv.Currency))
	return nil
}

func runSchedulerUpcoming(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		return fmt.Errorf("days must be positive")
	}

	cfg, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sched := scheduler.New(st, ledger.New(st), scheduler.Options{
		PaymentTermsDays: cfg.PaymentTermsDays,
		StopTimeout:      cfg.StopTimeout,
	})
	upcoming, err := sched.Upcoming(cmd.Context(), days)
	if err != nil {
		return err
	}

	if len(upcoming) == 0 {
		fmt.Printf("No invoices due within %d days\n", days)
		return nil
	}
	fmt.Printf("%d invoice(s) due within %d days:\n", len(upcoming), days)
	for _, u := range upcoming {
		fmt.Printf("  %s  %-20s %-10s %s (in %d days)\n",
			u.NextGeneration.Format("2006-01-02"), u.ClientName, u.Frequency,
			currency.Format(u.Amount, u.Currency), u.DaysUntil)
	}
	return nil
}
