package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"billing/internal/analytics"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Produce analytics reports over the billing ledger",
	Long: `Report subcommands run read-only aggregations: revenue trend,
expense breakdown, client performance, project profitability, revenue
forecast, invoice aging and a business summary. Nothing here mutates data.`,
}

var reportRevenueCmd = &cobra.Command{
	Use:   "revenue",
	Short: "Revenue trend over the trailing months",
	RunE:  runReportRevenue,
}

var reportExpensesCmd = &cobra.Command{
	Use:   "expenses",
	Short: "Expense breakdown by category",
	RunE:  runReportExpenses,
}

var reportClientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Client performance metrics",
	RunE:  runReportClients,
}

var reportProjectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Project profitability",
	RunE:  runReportProjects,
}

var reportForecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Predictive revenue forecast",
	RunE:  runReportForecast,
}

var reportAgingCmd = &cobra.Command{
	Use:   "aging",
	Short: "Invoice aging buckets",
	RunE:  runReportAging,
}

var reportSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Business metrics for a date window",
	RunE:  runReportSummary,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportRevenueCmd)
	reportCmd.AddCommand(reportExpensesCmd)
	reportCmd.AddCommand(reportClientsCmd)
	reportCmd.AddCommand(reportProjectsCmd)
	reportCmd.AddCommand(reportForecastCmd)
	reportCmd.AddCommand(reportAgingCmd)
	reportCmd.AddCommand(reportSummaryCmd)

	reportRevenueCmd.Flags().Int("months", 12, "Trailing window in months")
	reportExpensesCmd.Flags().String("start", "", "Window start (YYYY-MM-DD, default: one year ago)")
	reportExpensesCmd.Flags().String("end", "", "Window end (YYYY-MM-DD, default: today)")
	reportClientsCmd.Flags().Int("top", 10, "Number of top clients to list")
	reportSummaryCmd.Flags().String("start", "", "Window start (YYYY-MM-DD, default: one year ago)")
	reportSummaryCmd.Flags().String("end", "", "Window end (YYYY-MM-DD, default: today)")
}

// parseWindow resolves optional --start/--end flags, defaulting to the
// trailing year.
func parseWindow(cmd *cobra.Command) (time.Time, time.Time, error) {
	now := nowUTC()
	start := now.AddDate(-1, 0, 0)
	end := now

	if s, _ := cmd.Flags().GetString("start"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date format. Use YYYY-MM-DD: %w", err)
		}
		start = parsed
	}
	if s, _ := cmd.Flags().GetString("end"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date format. Use YYYY-MM-DD: %w", err)
		}
		// Include the whole end day.
		end = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return start, end, nil
}

func runReportRevenue(cmd *cobra.Command, args []string) error {
	months, _ := cmd.Flags().GetInt("months")
	if months <= 0 {
		return fmt.Errorf("months must be positive")
	}

	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	trend, err := analytics.New(st).RevenueTrendAnalysis(cmd.Context(), months)
	if err != nil {
		return err
	}

	fmt.Printf("Revenue trend, trailing %d months (%d with data):\n", trend.PeriodMonths, trend.MonthsAnalyzed)
	for _, key := range sortedKeys(trend.Monthly) {
		stats := trend.Monthly[key]
		fmt.Printf("  %s  revenue %s  invoices %d (paid %d, unpaid %d)\n",
			key, stats.Revenue.StringFixed(2), stats.InvoiceCount, stats.PaidCount, stats.UnpaidCount)
	}
	fmt.Printf("Total: %s  Average/month: %s  Growth: %.1f%%\n",
		trend.TotalRevenue.StringFixed(2), trend.AvgMonthlyRevenue.StringFixed(2), trend.GrowthRate)
	return nil
}

func runReportExpenses(cmd *cobra.Command, args []string) error {
	start, end, err := parseWindow(cmd)
	if err != nil {
		return err
	}

	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	breakdown, err := analytics.New(st).ExpenseBreakdownAnalysis(cmd.Context(), start, end)
	if err != nil {
		return err
	}

	fmt.Printf("Expenses %s to %s (%d records):\n",
		start.Format("2006-01-02"), end.Format("2006-01-02"), breakdown.ExpenseCount)
	for _, category := range sortedKeys(breakdown.Categories) {
		stats := breakdown.Categories[category]
		fmt.Printf("  %-20s total %s  count %d  avg %s  %.1f%%\n",
			category, stats.Total.StringFixed(2), stats.Count, stats.Average.StringFixed(2), stats.Percentage)
	}
	fmt.Printf("Total expenses: %s\n", breakdown.TotalExpenses.StringFixed(2))
	return nil
}

func runReportClients(cmd *cobra.Command, args []string) error {
	top, _ := cmd.Flags().GetInt("top")

	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	perf, err := analytics.New(st).ClientPerformanceMetrics(cmd.Context(), top)
	if err != nil {
		return err
	}

	fmt.Printf("Clients: %d total, %d active, %d inactive\n",
		perf.TotalClients, perf.ActiveClients, perf.InactiveClients)
	for _, c := range perf.TopClients {
		flag := " "
		if c.IsActive {
			flag = "*"
		}
		fmt.Printf("  %s %-20s revenue %s  paid %s  outstanding %s  invoices %d\n",
			flag, c.Name, c.TotalRevenue.StringFixed(2), c.TotalPaid.StringFixed(2),
			c.Outstanding.StringFixed(2), c.InvoiceCount)
	}
	return nil
}

func runReportProjects(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	prof, err := analytics.New(st).ProjectProfitabilityAnalysis(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Projects: %d  revenue %s  expenses %s  profit %s (%.1f%%)\n",
		prof.TotalProjects, prof.TotalRevenue.StringFixed(2), prof.TotalExpenses.StringFixed(2),
		prof.TotalProfit.StringFixed(2), prof.OverallProfitMargin)
	for _, p := range prof.Projects {
		fmt.Printf("  %-20s revenue %s  expenses %s  profit %s (%.1f%%)  budget used %.1f%%\n",
			p.Name, p.Revenue.StringFixed(2), p.Expenses.StringFixed(2),
			p.Profit.StringFixed(2), p.ProfitMargin, p.BudgetUtilization)
	}
	return nil
}

func runReportForecast(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	forecast, err := analytics.New(st).PredictiveForecast(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Forecast over %d month(s) of history:\n", forecast.MonthsAnalyzed)
	fmt.Printf("  Next month:   %s\n", forecast.PredictedNextMonth.StringFixed(2))
	fmt.Printf("  Next quarter: %s\n", forecast.PredictedNextQuarter.StringFixed(2))
	fmt.Printf("  Historical average: %s\n", forecast.HistoricalAverage.StringFixed(2))
	fmt.Printf("  Confidence: %.0f/100\n", forecast.ConfidenceScore)
	return nil
}

func runReportAging(cmd *cobra.Command, args []string) error {
	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := analytics.New(st).InvoiceAgingReport(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Outstanding invoices: %d  total %s\n",
		report.TotalInvoices, report.TotalOutstanding.StringFixed(2))
	for _, name := range []analytics.AgingBucketName{
		analytics.BucketCurrent, analytics.Bucket1To30, analytics.Bucket31To60,
		analytics.Bucket61To90, analytics.BucketOver90,
	} {
		bucket := report.Buckets[name]
		fmt.Printf("  %-14s count %d  amount %s\n", name, bucket.Count, bucket.Amount.StringFixed(2))
	}
	return nil
}

func runReportSummary(cmd *cobra.Command, args []string) error {
	start, end, err := parseWindow(cmd)
	if err != nil {
		return err
	}

	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	metrics, err := analytics.New(st).BusinessMetricsSummary(cmd.Context(), start, end)
	if err != nil {
		return err
	}

	fmt.Printf("Business summary %s to %s:\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Printf("  Revenue:      %s (%d paid invoices)\n", metrics.Revenue.StringFixed(2), metrics.InvoiceCount)
	fmt.Printf("  Expenses:     %s\n", metrics.Expenses.StringFixed(2))
	fmt.Printf("  Profit:       %s (%.1f%%)\n", metrics.Profit.StringFixed(2), metrics.ProfitMargin)
	fmt.Printf("  Outstanding:  %s\n", metrics.Outstanding.StringFixed(2))
	return nil
}
