package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the payment state of an invoice. It is derived from the
// recorded payments by the ledger; the only other write path is an explicit
// operator override.
type InvoiceStatus string

const (
	StatusUnpaid        InvoiceStatus = "unpaid"
	StatusPartiallyPaid InvoiceStatus = "partially_paid"
	StatusPaid          InvoiceStatus = "paid"
)

// Valid reports whether s is one of the known invoice statuses.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusUnpaid, StatusPartiallyPaid, StatusPaid:
		return true
	}
	return false
}

// LineItem is a single billable position on an invoice or recurring schedule.
type LineItem struct {
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"` // Unit price in the invoice currency
}

// LineItemsTotal sums the prices of a line item sequence.
func LineItemsTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	return total
}

// Invoice is a billable document issued to a client, either interactively or
// by the recurring-invoice scheduler.
type Invoice struct {
	ID        string // Unique invoice identifier
	ClientID  string // Owning client
	ProjectID string // Optional project link ("" if none)

	// Line items and derived amounts. Total == Subtotal + TaxAmount always.
	LineItems []LineItem
	Subtotal  decimal.Decimal // Sum of line item prices
	TaxRate   decimal.Decimal // Percentage, e.g. 15 for 15%
	TaxAmount decimal.Decimal // Subtotal * TaxRate / 100
	Total     decimal.Decimal // Subtotal + TaxAmount

	Currency string        // Currency code (USD, EUR, ...)
	Status   InvoiceStatus // Derived payment state
	Notes    string

	CreatedAt time.Time
	DueDate   *time.Time // Payment due date (nil if none set)
}

// Payment is an amount received against an invoice. Payments are immutable
// once recorded; they are removed only when their invoice is deleted.
type Payment struct {
	ID        string
	InvoiceID string
	Amount    decimal.Decimal // Always > 0
	Date      time.Time       // Date the payment was received
	Method    string          // Free-form tag: "bank_transfer", "cash", ...
	Notes     string
	CreatedAt time.Time
}
