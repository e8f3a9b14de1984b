// Package store provides persistence for the billing engine.
//
// Two implementations are included: a SQLite-backed store for real use and an
// in-memory store for tests. Both expose the same transactional interface;
// the ledger and the scheduler run their read-modify-write sequences through
// Update so that status derivation and generate-and-advance-watermark are
// applied atomically.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"

	"billing/internal/logger"
	"billing/pkg/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Tx is the set of operations available inside a transaction. Methods that
// return slices return copies; callers may retain them after the transaction
// ends.
type Tx interface {
	GetClient(id string) (models.Client, error)
	ListClients() ([]models.Client, error)
	PutClient(c models.Client) error

	GetProject(id string) (models.Project, error)
	ListProjects() ([]models.Project, error)
	PutProject(p models.Project) error

	GetInvoice(id string) (models.Invoice, error)
	ListInvoices() ([]models.Invoice, error)
	PutInvoice(inv models.Invoice) error
	// DeleteInvoice removes an invoice and all of its payments.
	DeleteInvoice(id string) error

	ListPayments() ([]models.Payment, error)
	ListPaymentsByInvoice(invoiceID string) ([]models.Payment, error)
	PutPayment(p models.Payment) error

	GetSchedule(id string) (models.RecurringSchedule, error)
	ListSchedules() ([]models.RecurringSchedule, error)
	PutSchedule(s models.RecurringSchedule) error

	ListExpenses() ([]models.Expense, error)
	PutExpense(e models.Expense) error
}

// Store is a transactional record store.
type Store interface {
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error
	// Update runs fn in a write transaction. If fn returns an error the
	// transaction is rolled back and nothing fn wrote is visible.
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// EncodeLineItems serializes a line item sequence for storage.
func EncodeLineItems(items []models.LineItem) ([]byte, error) {
	return json.Marshal(items)
}

// DecodeLineItems parses a stored line item sequence. A malformed sequence is
// recovered by substituting a single placeholder item carrying the invoice
// total, so downstream totals and documents can still be produced.
func DecodeLineItems(data []byte, total decimal.Decimal) []models.LineItem {
	var items []models.LineItem
	if err := json.Unmarshal(data, &items); err != nil || items == nil {
		log := logger.WithComponent("store")
		log.Warn().
			Err(err).
			Str("raw", string(data)).
			Msg("Malformed stored line items, substituting placeholder")
		return []models.LineItem{{Description: "Unrecoverable line item data", Price: total}}
	}
	return items
}
