package ledger

import (
	"errors"
	"fmt"
)

// Common ledger errors
var (
	// ErrInvalidAmount is returned when a payment amount is zero or negative.
	ErrInvalidAmount = errors.New("payment amount must be positive")

	// ErrInvalidStatus is returned when a status override names an unknown status.
	ErrInvalidStatus = errors.New("invalid invoice status")

	// ErrNoLineItems is returned when an invoice draft carries no line items.
	ErrNoLineItems = errors.New("invoice requires at least one line item")
)

// LedgerError wraps errors with the operation that failed and the entity
// involved.
type LedgerError struct {
	// Op is the operation that failed (e.g., "RecordPayment").
	Op string

	// EntityID is the invoice or payment involved, if known.
	EntityID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("ledger: %s failed (invoice: %s): %v", e.Op, e.EntityID, e.Err)
	}
	return fmt.Sprintf("ledger: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *LedgerError) Unwrap() error {
	return e.Err
}

func wrap(op, entityID string, err error) error {
	if err == nil {
		return nil
	}
	return &LedgerError{Op: op, EntityID: entityID, Err: err}
}
