package analytics

import (
	"context"

	"github.com/shopspring/decimal"

	"billing/internal/store"
	"billing/pkg/models"
)

// AgingBucketName identifies a days-overdue range.
type AgingBucketName string

const (
	BucketCurrent AgingBucketName = "current"      // Not yet due
	Bucket1To30   AgingBucketName = "1-30_days"    // Overdue up to 30 days
	Bucket31To60  AgingBucketName = "31-60_days"
	Bucket61To90  AgingBucketName = "61-90_days"
	BucketOver90  AgingBucketName = "over_90_days"
)

// AgingInvoice is one outstanding invoice within a bucket.
type AgingInvoice struct {
	ID          string
	ClientName  string
	Total       decimal.Decimal
	Outstanding decimal.Decimal
	DaysOverdue int
}

// AgingBucket aggregates the outstanding invoices of one overdue range.
type AgingBucket struct {
	Count    int
	Amount   decimal.Decimal
	Invoices []AgingInvoice
}

// AgingReport is the result of an invoice aging analysis.
type AgingReport struct {
	Buckets          map[AgingBucketName]AgingBucket
	TotalOutstanding decimal.Decimal
	TotalInvoices    int
}

// InvoiceAgingReport buckets every unpaid or partially paid invoice by days
// overdue. The reference date is the invoice due date, or the creation date
// when no due date is set. Outstanding is total minus recorded payments.
func (e *Engine) InvoiceAgingReport(ctx context.Context) (AgingReport, error) {
	now := e.now()

	result := AgingReport{
		Buckets:          map[AgingBucketName]AgingBucket{},
		TotalOutstanding: decimal.Zero,
	}
	for _, name := range []AgingBucketName{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, BucketOver90} {
		result.Buckets[name] = AgingBucket{Amount: decimal.Zero}
	}

	err := e.store.View(ctx, func(tx store.Tx) error {
		invoices, err := tx.ListInvoices()
		if err != nil {
			return err
		}
		clients, err := tx.ListClients()
		if err != nil {
			return err
		}
		clientNames := make(map[string]string, len(clients))
		for _, c := range clients {
			clientNames[c.ID] = c.Name
		}

		for _, inv := range invoices {
			if inv.Status != models.StatusUnpaid && inv.Status != models.StatusPartiallyPaid {
				continue
			}
			payments, err := tx.ListPaymentsByInvoice(inv.ID)
			if err != nil {
				return err
			}
			paid := decimal.Zero
			for _, p := range payments {
				paid = paid.Add(p.Amount)
			}
			outstanding := inv.Total.Sub(paid)

			reference := inv.CreatedAt
			if inv.DueDate != nil {
				reference = *inv.DueDate
			}
			daysOverdue := int(now.Sub(reference).Hours() / 24)

			name := bucketFor(daysOverdue)
			bucket := result.Buckets[name]
			bucket.Count++
			bucket.Amount = bucket.Amount.Add(outstanding)
			bucket.Invoices = append(bucket.Invoices, AgingInvoice{
				ID:          inv.ID,
				ClientName:  clientNames[inv.ClientID],
				Total:       inv.Total,
				Outstanding: outstanding,
				DaysOverdue: daysOverdue,
			})
			result.Buckets[name] = bucket

			result.TotalOutstanding = result.TotalOutstanding.Add(outstanding)
			result.TotalInvoices++
		}
		return nil
	})
	if err != nil {
		return AgingReport{}, err
	}
	return result, nil
}

func bucketFor(daysOverdue int) AgingBucketName {
	switch {
	case daysOverdue < 0:
		return BucketCurrent
	case daysOverdue <= 30:
		return Bucket1To30
	case daysOverdue <= 60:
		return Bucket31To60
	case daysOverdue <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}
