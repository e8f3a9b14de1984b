// Package analytics provides read-only aggregations over the billing ledger:
// revenue trends, expense breakdowns, client and project performance, revenue
// forecasting and invoice aging. Nothing in this package mutates state, and
// every ratio with a zero denominator is defined to be 0.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billing/internal/logger"
	"billing/internal/store"
	"billing/pkg/models"
)

const monthKeyLayout = "2006-01"

// Engine runs analytics queries over a store.
type Engine struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// New creates an analytics engine over the given store.
func New(st store.Store) *Engine {
	return &Engine{
		store: st,
		log:   logger.WithComponent("analytics"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// NewWithClock creates an engine with a fixed clock, for deterministic
// window and aging computations in tests.
func NewWithClock(st store.Store, now func() time.Time) *Engine {
	e := New(st)
	e.now = now
	return e
}

// MonthStats aggregates the invoices created in one calendar month.
type MonthStats struct {
	Revenue      decimal.Decimal
	InvoiceCount int
	PaidCount    int
	UnpaidCount  int
}

// RevenueTrend is the result of a trailing revenue analysis.
type RevenueTrend struct {
	PeriodMonths      int
	Monthly           map[string]MonthStats // keyed YYYY-MM
	TotalRevenue      decimal.Decimal
	AvgMonthlyRevenue decimal.Decimal
	GrowthRate        float64 // Month-over-month, percent
	MonthsAnalyzed    int
}

// RevenueTrendAnalysis groups invoices by creation month over the trailing
// window and computes totals, the average monthly revenue, and the
// month-over-month growth rate between the two most recent months (0 when
// there is insufficient history or the previous month had no revenue).
func (e *Engine) RevenueTrendAnalysis(ctx context.Context, months int) (RevenueTrend, error) {
	now := e.now()
	windowStart := now.AddDate(0, -months, 0)

	result := RevenueTrend{
		PeriodMonths: months,
		Monthly:      map[string]MonthStats{},
		TotalRevenue: decimal.Zero,
	}

	err := e.store.View(ctx, func(tx store.Tx) error {
		invoices, err := tx.ListInvoices()
		if err != nil {
			return err
		}
		for _, inv := range invoices {
			if inv.CreatedAt.Before(windowStart) {
				continue
			}
			key := inv.CreatedAt.Format(monthKeyLayout)
			stats := result.Monthly[key]
			stats.Revenue = stats.Revenue.Add(inv.Total)
			stats.InvoiceCount++
			if inv.Status == models.StatusPaid {
				stats.PaidCount++
			} else {
				stats.UnpaidCount++
			}
			result.Monthly[key] = stats
		}
		return nil
	})
	if err != nil {
		return RevenueTrend{}, err
	}

	keys := sortedMonthKeys(result.Monthly)
	result.MonthsAnalyzed = len(keys)
	for _, key := range keys {
		result.TotalRevenue = result.TotalRevenue.Add(result.Monthly[key].Revenue)
	}
	if len(keys) > 0 {
		result.AvgMonthlyRevenue = result.TotalRevenue.
			Div(decimal.NewFromInt(int64(len(keys)))).Round(2)
	}
	if len(keys) >= 2 {
		latest := result.Monthly[keys[len(keys)-1]].Revenue
		previous := result.Monthly[keys[len(keys)-2]].Revenue
		if previous.IsPositive() {
			result.GrowthRate = latest.Sub(previous).
				Div(previous).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
	}
	return result, nil
}

// CategoryStats aggregates the expenses of one category.
type CategoryStats struct {
	Total      decimal.Decimal
	Count      int
	Average    decimal.Decimal
	Percentage float64 // Share of the window total, percent
}

// ExpenseBreakdown is the result of a per-category expense analysis.
type ExpenseBreakdown struct {
	Start         time.Time
	End           time.Time
	Categories    map[string]CategoryStats
	TotalExpenses decimal.Decimal
	ExpenseCount  int
}

// ExpenseBreakdownAnalysis groups expenses between start and end (inclusive)
// by category. Uncategorized expenses group under "Uncategorized".
func (e *Engine) ExpenseBreakdownAnalysis(ctx context.Context, start, end time.Time) (ExpenseBreakdown, error) {
	result := ExpenseBreakdown{
		Start:         start,
		End:           end,
		Categories:    map[string]CategoryStats{},
		TotalExpenses: decimal.Zero,
	}

	err := e.store.View(ctx, func(tx store.Tx) error {
		expenses, err := tx.ListExpenses()
		if err != nil {
			return err
		}
		for _, exp := range expenses {
			if exp.Date.Before(start) || exp.Date.After(end) {
				continue
			}
			category := exp.Category
			if category == "" {
				category = "Uncategorized"
			}
			stats := result.Categories[category]
			stats.Total = stats.Total.Add(exp.Amount)
			stats.Count++
			result.Categories[category] = stats
			result.TotalExpenses = result.TotalExpenses.Add(exp.Amount)
			result.ExpenseCount++
		}
		return nil
	})
	if err != nil {
		return ExpenseBreakdown{}, err
	}

	for category, stats := range result.Categories {
		stats.Average = stats.Total.Div(decimal.NewFromInt(int64(stats.Count))).Round(2)
		if result.TotalExpenses.IsPositive() {
			stats.Percentage = stats.Total.Div(result.TotalExpenses).
				Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		result.Categories[category] = stats
	}
	return result, nil
}

// BusinessMetrics is a summary of the business over a date window.
type BusinessMetrics struct {
	Revenue      decimal.Decimal // Paid invoices created in the window
	Expenses     decimal.Decimal
	Profit       decimal.Decimal
	ProfitMargin float64 // Percent
	Outstanding  decimal.Decimal // Unpaid invoice totals, all time
	InvoiceCount int             // Paid invoices in the window
}

// BusinessMetricsSummary computes paid revenue, expenses and profit for the
// window, alongside the all-time outstanding unpaid total.
func (e *Engine) BusinessMetricsSummary(ctx context.Context, start, end time.Time) (BusinessMetrics, error) {
	result := BusinessMetrics{
		Revenue:     decimal.Zero,
		Expenses:    decimal.Zero,
		Outstanding: decimal.Zero,
	}

	err := e.store.View(ctx, func(tx store.Tx) error {
		invoices, err := tx.ListInvoices()
		if err != nil {
			return err
		}
		for _, inv := range invoices {
			if inv.Status == models.StatusUnpaid {
				result.Outstanding = result.Outstanding.Add(inv.Total)
			}
			if inv.CreatedAt.Before(start) || inv.CreatedAt.After(end) {
				continue
			}
			if inv.Status == models.StatusPaid {
				result.Revenue = result.Revenue.Add(inv.Total)
				result.InvoiceCount++
			}
		}
		expenses, err := tx.ListExpenses()
		if err != nil {
			return err
		}
		for _, exp := range expenses {
			if exp.Date.Before(start) || exp.Date.After(end) {
				continue
			}
			result.Expenses = result.Expenses.Add(exp.Amount)
		}
		return nil
	})
	if err != nil {
		return BusinessMetrics{}, err
	}

	result.Profit = result.Revenue.Sub(result.Expenses)
	if result.Revenue.IsPositive() {
		result.ProfitMargin = result.Profit.Div(result.Revenue).
			Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return result, nil
}

func sortedMonthKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
