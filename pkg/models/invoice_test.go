package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInvoiceStatusValid(t *testing.T) {
	assert.True(t, StatusUnpaid.Valid())
	assert.True(t, StatusPartiallyPaid.Valid())
	assert.True(t, StatusPaid.Valid())
	assert.False(t, InvoiceStatus("refunded").Valid())
	assert.False(t, InvoiceStatus("").Valid())
}

func TestFrequencyValid(t *testing.T) {
	assert.True(t, Weekly.Valid())
	assert.True(t, Monthly.Valid())
	assert.True(t, Quarterly.Valid())
	assert.True(t, Yearly.Valid())
	assert.False(t, Frequency("daily").Valid())
	assert.False(t, Frequency("").Valid())
}

func TestLineItemsTotal(t *testing.T) {
	assert.True(t, LineItemsTotal(nil).IsZero())

	items := []LineItem{
		{Description: "Consulting", Price: decimal.RequireFromString("1500.50")},
		{Description: "Hosting", Price: decimal.RequireFromString("49.99")},
		{Description: "Credit", Price: decimal.RequireFromString("-50")},
	}
	assert.Equal(t, "1500.49", LineItemsTotal(items).StringFixed(2))
}
