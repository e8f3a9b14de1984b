// Package ledger owns invoice lifecycle and payment reconciliation.
//
// An invoice's status is a derived value: whenever a payment is recorded, the
// ledger re-derives status from the sum of all payments against the
// tax-inclusive total, inside a single store transaction. The only way to set
// status without that derivation is OverrideStatus, a deliberate operator
// escape hatch.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billing/internal/logger"
	"billing/internal/store"
	"billing/internal/tax"
	"billing/pkg/models"
)

// Ledger records payments and maintains invoice payment status.
type Ledger struct {
	store store.Store
	log   zerolog.Logger
}

// New creates a ledger over the given store.
func New(st store.Store) *Ledger {
	return &Ledger{
		store: st,
		log:   logger.WithComponent("ledger"),
	}
}

// InvoiceDraft is the input for creating an invoice.
type InvoiceDraft struct {
	ClientID  string
	ProjectID string
	LineItems []models.LineItem
	TaxRate   decimal.Decimal // Percent; zero means no tax
	TaxType   string          // Label only, defaults to "VAT"
	Currency  string
	Notes     string
	DueDate   *time.Time
}

// CreateInvoice validates the draft, computes subtotal, tax and total, and
// persists a new unpaid invoice.
func (l *Ledger) CreateInvoice(ctx context.Context, draft InvoiceDraft) (models.Invoice, error) {
	var inv models.Invoice
	err := l.store.Update(ctx, func(tx store.Tx) error {
		var err error
		inv, err = l.CreateInvoiceTx(tx, draft, time.Now().UTC())
		return err
	})
	return inv, err
}

// CreateInvoiceTx is CreateInvoice running inside an existing transaction.
// The scheduler uses it so that invoice creation and watermark advance commit
// together.
func (l *Ledger) CreateInvoiceTx(tx store.Tx, draft InvoiceDraft, now time.Time) (models.Invoice, error) {
	const op = "CreateInvoice"

	if len(draft.LineItems) == 0 {
		return models.Invoice{}, wrap(op, "", ErrNoLineItems)
	}
	if _, err := tx.GetClient(draft.ClientID); err != nil {
		return models.Invoice{}, wrap(op, draft.ClientID, err)
	}

	taxType := draft.TaxType
	if taxType == "" {
		taxType = "VAT"
	}
	subtotal := models.LineItemsTotal(draft.LineItems)
	breakdown, err := tax.Calculate(subtotal, draft.TaxRate, taxType)
	if err != nil {
		return models.Invoice{}, wrap(op, draft.ClientID, err)
	}

	inv := models.Invoice{
		ID:        uuid.NewString(),
		ClientID:  draft.ClientID,
		ProjectID: draft.ProjectID,
		LineItems: draft.LineItems,
		Subtotal:  breakdown.Subtotal,
		TaxRate:   breakdown.TaxRate,
		TaxAmount: breakdown.TaxAmount,
		Total:     breakdown.Total,
		Currency:  draft.Currency,
		Status:    models.StatusUnpaid,
		Notes:     draft.Notes,
		CreatedAt: now,
		DueDate:   draft.DueDate,
	}
	if err := tx.PutInvoice(inv); err != nil {
		return models.Invoice{}, wrap(op, inv.ID, err)
	}

	l.log.Info().
		Str("invoice_id", inv.ID).
		Str("client_id", inv.ClientID).
		Str("total", inv.Total.String()).
		Str("currency", inv.Currency).
		Msg("Invoice created")
	return inv, nil
}

// RecordPayment persists a payment against an invoice and re-derives the
// invoice status from the sum of all payments. Over-payment is allowed and
// saturates the status at paid. Both writes commit in one transaction.
func (l *Ledger) RecordPayment(ctx context.Context, invoiceID string, amount decimal.Decimal, date time.Time, method, notes string) (models.Payment, error) {
	const op = "RecordPayment"

	if !amount.IsPositive() {
		return models.Payment{}, wrap(op, invoiceID, ErrInvalidAmount)
	}

	payment := models.Payment{
		ID:        uuid.NewString(),
		InvoiceID: invoiceID,
		Amount:    amount,
		Date:      date,
		Method:    method,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
	}

	var newStatus models.InvoiceStatus
	err := l.store.Update(ctx, func(tx store.Tx) error {
		inv, err := tx.GetInvoice(invoiceID)
		if err != nil {
			return err
		}
		if err := tx.PutPayment(payment); err != nil {
			return err
		}
		paid, err := sumPayments(tx, invoiceID)
		if err != nil {
			return err
		}
		newStatus = deriveStatus(paid, inv.Total)
		if newStatus != inv.Status {
			inv.Status = newStatus
			if err := tx.PutInvoice(inv); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Payment{}, wrap(op, invoiceID, err)
	}

	l.log.Info().
		Str("invoice_id", invoiceID).
		Str("payment_id", payment.ID).
		Str("amount", amount.String()).
		Str("method", method).
		Str("status", string(newStatus)).
		Msg("Payment recorded")
	return payment, nil
}

// deriveStatus maps the paid sum against the tax-inclusive total.
func deriveStatus(paid, total decimal.Decimal) models.InvoiceStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return models.StatusPaid
	case paid.IsPositive():
		return models.StatusPartiallyPaid
	default:
		return models.StatusUnpaid
	}
}

func sumPayments(tx store.Tx, invoiceID string) (decimal.Decimal, error) {
	payments, err := tx.ListPaymentsByInvoice(invoiceID)
	if err != nil {
		return decimal.Zero, err
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	return paid, nil
}

// OverrideStatus sets an invoice's status directly, bypassing the
// payment-sum derivation. This exists for operator corrections ("mark paid",
// "mark unpaid"); the next RecordPayment on the invoice re-derives status
// from the payment sum and discards the override.
func (l *Ledger) OverrideStatus(ctx context.Context, invoiceID string, status models.InvoiceStatus) error {
	const op = "OverrideStatus"

	if !status.Valid() {
		return wrap(op, invoiceID, ErrInvalidStatus)
	}
	err := l.store.Update(ctx, func(tx store.Tx) error {
		inv, err := tx.GetInvoice(invoiceID)
		if err != nil {
			return err
		}
		inv.Status = status
		return tx.PutInvoice(inv)
	})
	if err != nil {
		return wrap(op, invoiceID, err)
	}

	l.log.Warn().
		Str("invoice_id", invoiceID).
		Str("status", string(status)).
		Msg("Invoice status manually overridden")
	return nil
}

// DeleteInvoice removes an invoice and all of its payments.
func (l *Ledger) DeleteInvoice(ctx context.Context, invoiceID string) error {
	const op = "DeleteInvoice"

	err := l.store.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteInvoice(invoiceID)
	})
	if err != nil {
		return wrap(op, invoiceID, err)
	}
	l.log.Info().Str("invoice_id", invoiceID).Msg("Invoice deleted")
	return nil
}

// GetInvoice fetches a single invoice.
func (l *Ledger) GetInvoice(ctx context.Context, invoiceID string) (models.Invoice, error) {
	var inv models.Invoice
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		inv, err = tx.GetInvoice(invoiceID)
		return err
	})
	if err != nil {
		return models.Invoice{}, wrap("GetInvoice", invoiceID, err)
	}
	return inv, nil
}

// Outstanding returns total minus the sum of recorded payments. It can be
// negative when the invoice is over-paid.
func (l *Ledger) Outstanding(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	const op = "Outstanding"

	var outstanding decimal.Decimal
	err := l.store.View(ctx, func(tx store.Tx) error {
		inv, err := tx.GetInvoice(invoiceID)
		if err != nil {
			return err
		}
		paid, err := sumPayments(tx, invoiceID)
		if err != nil {
			return err
		}
		outstanding = inv.Total.Sub(paid)
		return nil
	})
	if err != nil {
		return decimal.Zero, wrap(op, invoiceID, err)
	}
	return outstanding, nil
}
