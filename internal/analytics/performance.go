package analytics

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"billing/internal/store"
	"billing/pkg/models"
)

// activeWindowDays is the invoicing recency that qualifies a client as active.
const activeWindowDays = 90

// ClientMetrics is the performance summary for one client.
type ClientMetrics struct {
	ID                   string
	Name                 string
	Email                string
	InvoiceCount         int
	TotalRevenue         decimal.Decimal
	TotalPaid            decimal.Decimal
	Outstanding          decimal.Decimal
	AvgInvoiceValue      decimal.Decimal
	LastInvoiceDate      string // YYYY-MM-DD
	DaysSinceLastInvoice int
	IsActive             bool
}

// ClientPerformance is the result of a client performance analysis.
type ClientPerformance struct {
	TotalClients    int
	ActiveClients   int
	InactiveClients int
	TopClients      []ClientMetrics
	AllClients      []ClientMetrics
}

// ClientPerformanceMetrics computes, per client with at least one invoice:
// invoice count, total revenue, total paid via the payment ledger,
// outstanding balance, average invoice value, recency, and an active flag
// (invoiced within the last 90 days). TopClients holds the topN by revenue.
func (e *Engine) ClientPerformanceMetrics(ctx context.Context, topN int) (ClientPerformance, error) {
	now := e.now()

	var clients []models.Client
	var invoices []models.Invoice
	var payments []models.Payment
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		if clients, err = tx.ListClients(); err != nil {
			return err
		}
		if invoices, err = tx.ListInvoices(); err != nil {
			return err
		}
		payments, err = tx.ListPayments()
		return err
	})
	if err != nil {
		return ClientPerformance{}, err
	}

	invoiceClient := make(map[string]string, len(invoices))
	for _, inv := range invoices {
		invoiceClient[inv.ID] = inv.ClientID
	}
	paidByClient := map[string]decimal.Decimal{}
	for _, p := range payments {
		clientID, ok := invoiceClient[p.InvoiceID]
		if !ok {
			continue
		}
		paidByClient[clientID] = paidByClient[clientID].Add(p.Amount)
	}

	result := ClientPerformance{}
	for _, client := range clients {
		metrics := ClientMetrics{
			ID:           client.ID,
			Name:         client.Name,
			Email:        client.Email,
			TotalRevenue: decimal.Zero,
		}
		var lastInvoice models.Invoice
		for _, inv := range invoices {
			if inv.ClientID != client.ID {
				continue
			}
			metrics.InvoiceCount++
			metrics.TotalRevenue = metrics.TotalRevenue.Add(inv.Total)
			if inv.CreatedAt.After(lastInvoice.CreatedAt) {
				lastInvoice = inv
			}
		}
		if metrics.InvoiceCount == 0 {
			continue
		}

		metrics.TotalPaid = paidByClient[client.ID]
		metrics.Outstanding = metrics.TotalRevenue.Sub(metrics.TotalPaid)
		metrics.AvgInvoiceValue = metrics.TotalRevenue.
			Div(decimal.NewFromInt(int64(metrics.InvoiceCount))).Round(2)
		metrics.LastInvoiceDate = lastInvoice.CreatedAt.Format("2006-01-02")
		metrics.DaysSinceLastInvoice = int(now.Sub(lastInvoice.CreatedAt).Hours() / 24)
		metrics.IsActive = metrics.DaysSinceLastInvoice < activeWindowDays

		result.TotalClients++
		if metrics.IsActive {
			result.ActiveClients++
		}
		result.AllClients = append(result.AllClients, metrics)
	}
	result.InactiveClients = result.TotalClients - result.ActiveClients

	sort.Slice(result.AllClients, func(i, j int) bool {
		if !result.AllClients[i].TotalRevenue.Equal(result.AllClients[j].TotalRevenue) {
			return result.AllClients[i].TotalRevenue.GreaterThan(result.AllClients[j].TotalRevenue)
		}
		return result.AllClients[i].ID < result.AllClients[j].ID
	})
	if topN > len(result.AllClients) {
		topN = len(result.AllClients)
	}
	if topN > 0 {
		result.TopClients = result.AllClients[:topN]
	}
	return result, nil
}

// ProjectMetrics is the profitability summary for one project.
type ProjectMetrics struct {
	ID                string
	Name              string
	ClientName        string
	Status            string
	Budget            decimal.Decimal
	Revenue           decimal.Decimal
	Expenses          decimal.Decimal
	Profit            decimal.Decimal
	ProfitMargin      float64 // Percent
	BudgetUtilization float64 // Percent
	InvoiceCount      int
}

// ProjectProfitability is the result of a profitability analysis.
type ProjectProfitability struct {
	TotalProjects       int
	TotalRevenue        decimal.Decimal
	TotalExpenses       decimal.Decimal
	TotalProfit         decimal.Decimal
	OverallProfitMargin float64 // Percent
	Projects            []ProjectMetrics // Most profitable first
}

// ProjectProfitabilityAnalysis computes per-project revenue (sum of linked
// invoice totals regardless of payment status), expenses, profit, profit
// margin and budget utilization, plus aggregated totals.
func (e *Engine) ProjectProfitabilityAnalysis(ctx context.Context) (ProjectProfitability, error) {
	var projects []models.Project
	var clients []models.Client
	var invoices []models.Invoice
	var expenses []models.Expense
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		if projects, err = tx.ListProjects(); err != nil {
			return err
		}
		if clients, err = tx.ListClients(); err != nil {
			return err
		}
		if invoices, err = tx.ListInvoices(); err != nil {
			return err
		}
		expenses, err = tx.ListExpenses()
		return err
	})
	if err != nil {
		return ProjectProfitability{}, err
	}

	clientNames := make(map[string]string, len(clients))
	for _, c := range clients {
		clientNames[c.ID] = c.Name
	}

	result := ProjectProfitability{
		TotalRevenue:  decimal.Zero,
		TotalExpenses: decimal.Zero,
	}
	for _, project := range projects {
		metrics := ProjectMetrics{
			ID:         project.ID,
			Name:       project.Name,
			ClientName: clientNames[project.ClientID],
			Status:     project.Status,
			Budget:     project.Budget,
			Revenue:    decimal.Zero,
			Expenses:   decimal.Zero,
		}
		for _, inv := range invoices {
			if inv.ProjectID == project.ID {
				metrics.Revenue = metrics.Revenue.Add(inv.Total)
				metrics.InvoiceCount++
			}
		}
		for _, exp := range expenses {
			if exp.ProjectID == project.ID {
				metrics.Expenses = metrics.Expenses.Add(exp.Amount)
			}
		}

		metrics.Profit = metrics.Revenue.Sub(metrics.Expenses)
		if metrics.Revenue.IsPositive() {
			metrics.ProfitMargin = metrics.Profit.Div(metrics.Revenue).
				Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		if metrics.Budget.IsPositive() {
			metrics.BudgetUtilization = metrics.Expenses.Div(metrics.Budget).
				Mul(decimal.NewFromInt(100)).InexactFloat64()
		}

		result.TotalProjects++
		result.TotalRevenue = result.TotalRevenue.Add(metrics.Revenue)
		result.TotalExpenses = result.TotalExpenses.Add(metrics.Expenses)
		result.Projects = append(result.Projects, metrics)
	}

	result.TotalProfit = result.TotalRevenue.Sub(result.TotalExpenses)
	if result.TotalRevenue.IsPositive() {
		result.OverallProfitMargin = result.TotalProfit.Div(result.TotalRevenue).
			Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	sort.Slice(result.Projects, func(i, j int) bool {
		if !result.Projects[i].Profit.Equal(result.Projects[j].Profit) {
			return result.Projects[i].Profit.GreaterThan(result.Projects[j].Profit)
		}
		return result.Projects[i].ID < result.Projects[j].ID
	})
	return result, nil
}
