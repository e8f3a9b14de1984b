package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the recurrence cadence of a schedule.
type Frequency string

const (
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// RecurringSchedule is a template from which the scheduler materializes
// invoices on a cadence.
//
// LastGenerated is the watermark: the as-of time of the last successful
// generation. It is nil until the first invoice is generated and is
// monotonically non-decreasing afterwards. The next due boundary is the
// first date of the start-anchored series after the watermark, so a
// schedule never generates twice for the same period and a late run never
// shifts the billing day.
type RecurringSchedule struct {
	ID        string
	ClientID  string
	ProjectID string // Optional project link ("" if none)

	LineItems []LineItem      // Templated line items copied onto each generated invoice
	Total     decimal.Decimal // Sum of line item prices
	Currency  string

	Frequency Frequency
	StartDate time.Time
	EndDate   *time.Time // No generation after this date (nil = open-ended)

	LastGenerated *time.Time // Watermark, nil if never generated
	IsActive      bool

	CreatedAt time.Time
}
