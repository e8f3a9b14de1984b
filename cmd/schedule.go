package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"billing/internal/schedule"
	"billing/internal/store"
	"billing/pkg/models"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring invoice schedules",
	Long: `Schedule subcommands create and maintain the recurring templates the
scheduler materializes invoices from. A schedule carries line items, a cadence
(weekly, monthly, quarterly or yearly) and a start date; generation stops past
an optional end date or when the schedule is deactivated.`,
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <client-id>",
	Short: "Add a recurring schedule",
	Example: `  billing schedule add c1f0... --item "Retainer:2000" --frequency monthly \
    --start 2026-09-01`,
	Args: cobra.ExactArgs(1),
	RunE: runScheduleAdd,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules with their next generation date",
	RunE:  runScheduleList,
}

var scheduleEnableCmd = &cobra.Command{
	Use:   "enable <schedule-id>",
	Short: "Activate a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  makeScheduleToggle(true),
}

var scheduleDisableCmd = &cobra.Command{
	Use:   "disable <schedule-id>",
	Short: "Deactivate a schedule without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE:  makeScheduleToggle(false),
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleEnableCmd)
	scheduleCmd.AddCommand(scheduleDisableCmd)

	scheduleAddCmd.Flags().StringArray("item", nil, `Line item as "description:price" (repeatable)`)
	scheduleAddCmd.Flags().String("frequency", "monthly", "weekly, monthly, quarterly or yearly")
	scheduleAddCmd.Flags().String("start", "", "Start date (YYYY-MM-DD, default: today)")
	scheduleAddCmd.Flags().String("end", "", "End date (YYYY-MM-DD, default: open-ended)")
	scheduleAddCmd.Flags().String("currency", "", "Currency (default: configured currency)")
	scheduleAddCmd.Flags().String("project", "", "Project ID to bill against")
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	items, _ := cmd.Flags().GetStringArray("item")
	lineItems, err := parseLineItems(items)
	if err != nil {
		return err
	}

	freqFlag, _ := cmd.Flags().GetString("frequency")
	frequency := models.Frequency(freqFlag)
	if !frequency.Valid() {
		return fmt.Errorf("invalid frequency %q: use weekly, monthly, quarterly or yearly", freqFlag)
	}

	start := nowUTC()
	if v, _ := cmd.Flags().GetString("start"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return fmt.Errorf("invalid start date format. Use YYYY-MM-DD: %w", err)
		}
		start = parsed
	}
	var end *time.Time
	if v, _ := cmd.Flags().GetString("end"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return fmt.Errorf("invalid end date format. Use YYYY-MM-DD: %w", err)
		}
		end = &parsed
	}

	cfg, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	code := cfg.DefaultCurrency
	if v, _ := cmd.Flags().GetString("currency"); v != "" {
		code = v
	}
	projectID, _ := cmd.Flags().GetString("project")

	sched := models.RecurringSchedule{
		ID:        uuid.NewString(),
		ClientID:  args[0],
		ProjectID: projectID,
		LineItems: lineItems,
		Total:     models.LineItemsTotal(lineItems),
		Currency:  code,
		Frequency: frequency,
		StartDate: start,
		EndDate:   end,
		IsActive:  true,
		CreatedAt: nowUTC(),
	}
	err = st.Update(cmd.Context(), func(tx store.Tx) error {
		if _, err := tx.GetClient(sched.ClientID); err != nil {
			return err
		}
		return tx.PutSchedule(sched)
	})
	if err != nil {
		return err
	}

	fmt.Printf("Added %s schedule %s starting %s\n",
		sched.Frequency, sched.ID, sched.StartDate.Format("2006-01-02"))
	return nil
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var schedules []models.RecurringSchedule
	err = st.View(cmd.Context(), func(tx store.Tx) error {
		var err error
		schedules, err = tx.ListSchedules()
		return err
	})
	if err != nil {
		return err
	}

	if len(schedules) == 0 {
		fmt.Println("No schedules")
		return nil
	}
	for _, s := range schedules {
		state := "inactive"
		if s.IsActive {
			state = "active"
		}
		next, err := schedule.NextGeneration(s)
		nextStr := "n/a"
		if err == nil {
			nextStr = next.Format("2006-01-02")
		}
		fmt.Printf("  %s  %-9s %-8s total %s %s  next %s\n",
			s.ID, s.Frequency, state, s.Total.StringFixed(2), s.Currency, nextStr)
	}
	return nil
}

func makeScheduleToggle(active bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		_, st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		err = st.Update(cmd.Context(), func(tx store.Tx) error {
			s, err := tx.GetSchedule(args[0])
			if err != nil {
				return err
			}
			s.IsActive = active
			return tx.PutSchedule(s)
		})
		if err != nil {
			return err
		}

		state := "disabled"
		if active {
			state = "enabled"
		}
		fmt.Printf("Schedule %s %s\n", args[0], state)
		return nil
	}
}
