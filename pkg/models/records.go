package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client is a billable customer.
type Client struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// Project groups invoices and expenses under a client engagement.
type Project struct {
	ID          string
	ClientID    string
	Name        string
	Budget      decimal.Decimal // Zero when no budget is set
	Status      string
	Description string
	CreatedAt   time.Time
}

// Expense is a cost record, optionally attributed to a project. Expenses feed
// the breakdown and profitability reports; the engine never modifies them
// after the fact.
type Expense struct {
	ID          string
	Date        time.Time
	Category    string
	Description string
	Amount      decimal.Decimal
	ProjectID   string // Optional project link ("" if none)
	CreatedAt   time.Time
}
