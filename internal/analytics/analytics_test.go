package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing/internal/store"
	"billing/pkg/models"
)

// fixedNow anchors every window computation in the tests.
var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) (*Engine, store.Store) {
	t.Helper()
	st := store.NewInMemory()
	return NewWithClock(st, func() time.Time { return fixedNow }), st
}

func seed(t *testing.T, st store.Store, fn func(tx store.Tx) error) {
	t.Helper()
	require.NoError(t, st.Update(context.Background(), fn))
}

func invoice(id, clientID string, total string, status models.InvoiceStatus, created time.Time) models.Invoice {
	amount := decimal.RequireFromString(total)
	return models.Invoice{
		ID:        id,
		ClientID:  clientID,
		LineItems: []models.LineItem{{Description: "Work", Price: amount}},
		Subtotal:  amount,
		Total:     amount,
		Currency:  "USD",
		Status:    status,
		CreatedAt: created,
	}
}

func TestRevenueTrendAnalysis(t *testing.T) {
	eng, st := newEngine(t)
	ctx := context.Background()

	seed(t, st, func(tx store.Tx) error {
		if err := tx.PutClient(models.Client{ID: "c1", Name: "Acme", CreatedAt: fixedNow.AddDate(-1, 0, 0)}); err != nil {
			return err
		}
		rows := []models.Invoice{
			invoice("i1", "c1", "1000", models.StatusPaid, time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC)),
			invoice("i2", "c1", "500", models.StatusUnpaid, time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC)),
			invoice("i3", "c1", "3000", models.StatusPaid, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)),
			// Outside the 12-month window; must be ignored.
			invoice("old", "c1", "9999", models.StatusPaid, time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)),
		}
		for _, inv := range rows {
			if err := tx.PutInvoice(inv); err != nil {
				return err
			}
		}
		return nil
	})

	trend, err := eng.RevenueTrendAnalysis(ctx, 12)
	require.NoError(t, err)

	assert.Equal(t, 12, trend.PeriodMonths)
	assert.Equal(t, 2, trend.MonthsAnalyzed)

	april := trend.Monthly["2024-04"]
	assert.Equal(t, 2, april.InvoiceCount)
	assert.Equal(t, 1, april.PaidCount)
	assert.Equal(t, 1, april.UnpaidCount)
	assert.Equal(t, "1500.00", april.Revenue.StringFixed(2))

	may := trend.Monthly["2024-05"]
	assert.Equal(t, "3000.00", may.Revenue.StringFixed(2))

	assert.Equal(t, "4500.00", trend.TotalRevenue.StringFixed(2))
	assert.Equal(t, "2250.00", trend.AvgMonthlyRevenue.StringFixed(2))
	// May over April: (3000 - 1500) / 1500 = +100%.
	assert.InDelta(t, 100.0, trend.GrowthRate, 0.01)
}

func TestRevenueTrendEmptyStore(t *testing.T) {
	eng, _ := newEngine(t)

	trend, err := eng.RevenueTrendAnalysis(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, 0, trend.MonthsAnalyzed)
	assert.True(t, trend.TotalRevenue.IsZero())
	assert.True(t, trend.AvgMonthlyRevenue.IsZero())
	assert.Zero(t, trend.GrowthRate)
}

func TestRevenueTrendGrowthRateZeroDenominator(t *testing.T) {
	eng, st := newEngine(t)

	seed(t, st, func(tx store.Tx) error {
		free := invoice("i1", "c1", "0", models.StatusPaid, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))
		if err := tx.PutInvoice(free); err != nil {
			return err
		}
		return tx.PutInvoice(invoice("i2", "c1", "100", models.StatusPaid, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)))
	})

	trend, err := eng.RevenueTrendAnalysis(context.Background(), 12)
	require.NoError(t, err)
	assert.Zero(t, trend.GrowthRate, "growth against a zero month is defined as 0")
}

func TestExpenseBreakdownAnalysis(t *testing.T) {
	eng, st := newEngine(t)
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)

	seed(t, st, func(tx store.Tx) error {
		rows := []models.Expense{
			{ID: "e1", Date: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), Category: "Software", Amount: decimal.NewFromInt(300), CreatedAt: fixedNow},
			{ID: "e2", Date: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), Category: "Software", Amount: decimal.NewFromInt(100), CreatedAt: fixedNow},
			{ID: "e3", Date: time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), Category: "Travel", Amount: decimal.NewFromInt(600), CreatedAt: fixedNow},
			{ID: "e4", Date: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(50), CreatedAt: fixedNow},
			// Outside the window.
			{ID: "e5", Date: time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), Category: "Travel", Amount: decimal.NewFromInt(9999), CreatedAt: fixedNow},
		}
		for _, e := range rows {
			if err := tx.PutExpense(e); err != nil {
				return err
			}
		}
		return nil
	})

	breakdown, err := eng.ExpenseBreakdownAnalysis(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, 4, breakdown.ExpenseCount)
	assert.Equal(t, "1050.00", breakdown.TotalExpenses.StringFixed(2))
	require.Len(t, breakdown.Categories, 3)

	software := breakdown.Categories["Software"]
	assert.Equal(t, 2, software.Count)
	assert.Equal(t, "400.00", software.Total.StringFixed(2))
	assert.Equal(t, "200.00", software.Average.StringFixed(2))
	assert.InDelta(t, 38.1, software.Percentage, 0.1)

	travel := breakdown.Categories["Travel"]
	assert.Equal(t, "600.00", travel.Total.StringFixed(2))

	uncategorized := breakdown.Categories["Uncategorized"]
	assert.Equal(t, 1, uncategorized.Count)
	assert.Equal(t, "50.00", uncategorized.Total.StringFixed(2))
}

func TestBusinessMetricsSummary(t *testing.T) {
	eng, st := newEngine(t)
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)

	seed(t, st, func(tx store.Tx) error {
		rows := []models.Invoice{
			invoice("i1", "c1", "1000", models.StatusPaid, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)),
			invoice("i2", "c1", "500", models.StatusPaid, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)),
			invoice("i3", "c1", "700", models.StatusUnpaid, time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC)),
			// Unpaid outside the window still counts toward outstanding.
			invoice("i4", "c1", "300", models.StatusUnpaid, time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)),
		}
		for _, inv := range rows {
			if err := tx.PutInvoice(inv); err != nil {
				return err
			}
		}
		return tx.PutExpense(models.Expense{
			ID: "e1", Date: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			Category: "Software", Amount: decimal.NewFromInt(400), CreatedAt: fixedNow,
		})
	})

	metrics, err := eng.BusinessMetricsSummary(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, "1500.00", metrics.Revenue.StringFixed(2))
	assert.Equal(t, 2, metrics.InvoiceCount)
	assert.Equal(t, "400.00", metrics.Expenses.StringFixed(2))
	assert.Equal(t, "1100.00", metrics.Profit.StringFixed(2))
	assert.InDelta(t, 73.33, metrics.ProfitMargin, 0.01)
	assert.Equal(t, "1000.00", metrics.Outstanding.StringFixed(2))
}
