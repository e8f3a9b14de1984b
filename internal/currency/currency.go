// Package currency converts and formats monetary amounts using a static rate
// table routed through a pivot currency.
package currency

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedCurrency is returned when a currency code is absent from the
// rate table.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// DefaultRates maps currency code to units per one pivot unit (USD = 1.0).
// A static table is sufficient here; a live feed is out of scope.
var DefaultRates = map[string]decimal.Decimal{
	"USD": decimal.NewFromFloat(1.0),
	"EUR": decimal.NewFromFloat(0.85),
	"GBP": decimal.NewFromFloat(0.73),
	"ZWL": decimal.NewFromFloat(322.0), // Zimbabwe Dollar
	"ZAR": decimal.NewFromFloat(18.5),  // South African Rand
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"ZWL": "ZWL$",
	"ZAR": "R",
}

// Converter converts amounts between currencies in its rate table.
type Converter struct {
	rates map[string]decimal.Decimal
}

// NewConverter returns a converter using DefaultRates.
func NewConverter() *Converter {
	return &Converter{rates: DefaultRates}
}

// NewConverterWithRates returns a converter using a custom rate table. The
// table's pivot currency must carry rate 1.0.
func NewConverterWithRates(rates map[string]decimal.Decimal) *Converter {
	return &Converter{rates: rates}
}

// Convert converts amount from one currency to another through the pivot,
// rounding the result to 2 decimal places.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	fromRate, ok := c.rates[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, from)
	}
	toRate, ok := c.rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, to)
	}
	pivot := amount.Div(fromRate)
	return pivot.Mul(toRate).Round(2), nil
}

// Supported reports whether code is present in the rate table.
func (c *Converter) Supported(code string) bool {
	_, ok := c.rates[code]
	return ok
}

// Codes returns the supported currency codes in ascending order.
func (c *Converter) Codes() []string {
	codes := make([]string, 0, len(c.rates))
	for code := range c.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Format renders an amount with the display symbol for code, falling back to
// the raw code for currencies without a known symbol.
func Format(amount decimal.Decimal, code string) string {
	symbol, ok := symbols[code]
	if !ok {
		symbol = code
	}
	return symbol + amount.StringFixed(2)
}
