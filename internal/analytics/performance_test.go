package analytics

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing/internal/store"
	"billing/pkg/models"
)

func TestClientPerformanceMetrics(t *testing.T) {
	eng, st := newEngine(t)
	ctx := context.Background()

	recent := fixedNow.AddDate(0, 0, -10)
	stale := fixedNow.AddDate(0, 0, -120)

	seed(t, st, func(tx store.Tx) error {
		clients := []models.Client{
			{ID: "big", Name: "Big Corp", Email: "big@example.com", CreatedAt: fixedNow.AddDate(-2, 0, 0)},
			{ID: "small", Name: "Small Shop", CreatedAt: fixedNow.AddDate(-2, 0, 0)},
			{ID: "idle", Name: "No Invoices Yet", CreatedAt: fixedNow.AddDate(-2, 0, 0)},
		}
		for _, c := range clients {
			if err := tx.PutClient(c); err != nil {
				return err
			}
		}
		rows := []models.Invoice{
			invoice("b1", "big", "5000", models.StatusPaid, recent),
			invoice("b2", "big", "3000", models.StatusPartiallyPaid, recent.AddDate(0, 0, 1)),
			invoice("s1", "small", "500", models.StatusUnpaid, stale),
		}
		for _, inv := range rows {
			if err := tx.PutInvoice(inv); err != nil {
				return err
			}
		}
		payments := []models.Payment{
			{ID: "p1", InvoiceID: "b1", Amount: decimal.NewFromInt(5000), Date: recent, CreatedAt: recent},
			{ID: "p2", InvoiceID: "b2", Amount: decimal.NewFromInt(1000), Date: recent, CreatedAt: recent},
		}
		for _, p := range payments {
			if err := tx.PutPayment(p); err != nil {
				return err
			}
		}
		return nil
	})

	perf, err := eng.ClientPerformanceMetrics(ctx, 1)
	require.NoError(t, err)

	// Clients without invoices are excluded from the counts entirely.
	assert.Equal(t, 2, perf.TotalClients)
	assert.Equal(t, 1, perf.ActiveClients)
	assert.Equal(t, 1, perf.InactiveClients)

	require.Len(t, perf.TopClients, 1)
	top := perf.TopClients[0]
	assert.Equal(t, "Big Corp", top.Name)
	assert.Equal(t, 2, top.InvoiceCount)
	assert.Equal(t, "8000.00", top.TotalRevenue.StringFixed(2))
	assert.Equal(t, "6000.00", top.TotalPaid.StringFixed(2))
	assert.Equal(t, "2000.00", top.Outstanding.StringFixed(2))
	assert.Equal(t, "4000.00", top.AvgInvoiceValue.StringFixed(2))
	assert.True(t, top.IsActive)

	require.Len(t, perf.AllClients, 2)
	small := perf.AllClients[1]
	assert.Equal(t, "Small Shop", small.Name)
	assert.False(t, small.IsActive, "no invoice within 90 days")
	assert.Equal(t, 120, small.DaysSinceLastInvoice)
}

func TestClientPerformanceEmptyStore(t *testing.T) {
	eng, _ := newEngine(t)

	perf, err := eng.ClientPerformanceMetrics(context.Background(), 5)
	require.NoError(t, err)
	assert.Zero(t, perf.TotalClients)
	assert.Empty(t, perf.TopClients)
}

func TestProjectProfitabilityAnalysis(t *testing.T) {
	eng, st := newEngine(t)
	ctx := context.Background()

	created := fixedNow.AddDate(0, -2, 0)

	seed(t, st, func(tx store.Tx) error {
		if err := tx.PutClient(models.Client{ID: "c1", Name: "Acme", CreatedAt: created}); err != nil {
			return err
		}
		projects := []models.Project{
			{ID: "web", ClientID: "c1", Name: "Website", Budget: decimal.NewFromInt(2000), Status: "active", CreatedAt: created},
			{ID: "app", ClientID: "c1", Name: "Mobile App", Budget: decimal.Zero, Status: "active", CreatedAt: created},
		}
		for _, p := range projects {
			if err := tx.PutProject(p); err != nil {
				return err
			}
		}

		webInv := invoice("i1", "c1", "5000", models.StatusPaid, created)
		webInv.ProjectID = "web"
		appInv := invoice("i2", "c1", "1000", models.StatusUnpaid, created)
		appInv.ProjectID = "app"
		for _, inv := range []models.Invoice{webInv, appInv} {
			if err := tx.PutInvoice(inv); err != nil {
				return err
			}
		}

		expenses := []models.Expense{
			{ID: "e1", ProjectID: "web", Date: created, Category: "Hosting", Amount: decimal.NewFromInt(1000), CreatedAt: created},
			{ID: "e2", ProjectID: "app", Date: created, Category: "Tools", Amount: decimal.NewFromInt(1500), CreatedAt: created},
			// Unlinked expense does not count against any project.
			{ID: "e3", Date: created, Category: "Office", Amount: decimal.NewFromInt(9999), CreatedAt: created},
		}
		for _, e := range expenses {
			if err := tx.PutExpense(e); err != nil {
				return err
			}
		}
		return nil
	})

	prof, err := eng.ProjectProfitabilityAnalysis(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, prof.TotalProjects)
	assert.Equal(t, "6000.00", prof.TotalRevenue.StringFixed(2))
	assert.Equal(t, "2500.00", prof.TotalExpenses.StringFixed(2))
	assert.Equal(t, "3500.00", prof.TotalProfit.StringFixed(2))
	assert.InDelta(t, 58.33, prof.OverallProfitMargin, 0.01)

	// Most profitable first.
	require.Len(t, prof.Projects, 2)
	web := prof.Projects[0]
	assert.Equal(t, "Website", web.Name)
	assert.Equal(t, "Acme", web.ClientName)
	assert.Equal(t, "4000.00", web.Profit.StringFixed(2))
	assert.InDelta(t, 80.0, web.ProfitMargin, 0.01)
	assert.InDelta(t, 50.0, web.BudgetUtilization, 0.01)
	assert.Equal(t, 1, web.InvoiceCount)

	app := prof.Projects[1]
	assert.Equal(t, "Mobile App", app.Name)
	assert.Equal(t, "-500.00", app.Profit.StringFixed(2))
	assert.Zero(t, app.BudgetUtilization, "no budget means utilization 0")
}

func TestProjectProfitabilityZeroRevenue(t *testing.T) {
	eng, st := newEngine(t)

	seed(t, st, func(tx store.Tx) error {
		return tx.PutProject(models.Project{
			ID: "empty", ClientID: "c1", Name: "Not Started",
			Budget: decimal.Zero, CreatedAt: fixedNow,
		})
	})

	prof, err := eng.ProjectProfitabilityAnalysis(context.Background())
	require.NoError(t, err)
	require.Len(t, prof.Projects, 1)
	assert.Zero(t, prof.Projects[0].ProfitMargin)
	assert.Zero(t, prof.OverallProfitMargin)
}
