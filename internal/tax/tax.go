// Package tax computes percentage-based tax breakdowns on monetary amounts.
package tax

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when the base amount is negative.
var ErrInvalidAmount = errors.New("amount must not be negative")

var oneHundred = decimal.NewFromInt(100)

// Breakdown is the result of a tax calculation. All monetary figures are
// rounded to 2 decimal places.
type Breakdown struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxType   string          `json:"tax_type"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Total     decimal.Decimal `json:"total"`
}

// Calculate applies ratePercent (e.g. 15 for 15%) to amount.
// taxType is a label carried through to the result (VAT, GST, Sales Tax, ...).
func Calculate(amount, ratePercent decimal.Decimal, taxType string) (Breakdown, error) {
	if amount.IsNegative() {
		return Breakdown{}, ErrInvalidAmount
	}
	taxAmount := amount.Mul(ratePercent).Div(oneHundred).Round(2)
	return Breakdown{
		Subtotal:  amount.Round(2),
		TaxType:   taxType,
		TaxRate:   ratePercent,
		TaxAmount: taxAmount,
		Total:     amount.Add(taxAmount).Round(2),
	}, nil
}
