package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func nd(v int64) decimal.NullDecimal { return decimal.NewNullDecimal(d(v)) }

func line(price int64, qty int) LineItem {
	return LineItem{VariantID: 1, ProductName: "Linen shirt", BasePrice: d(price), UnitPrice: d(price), Quantity: qty}
}

func TestResolveUnitPrice(t *testing.T) {
	tests := []struct {
		name     string
		discount decimal.NullDecimal
		base     decimal.NullDecimal
		want     decimal.Decimal
	}{
		{"discount wins", nd(80000), nd(100000), d(80000)},
		{"zero discount ignored", nd(0), nd(100000), d(100000)},
		{"missing discount", decimal.NullDecimal{}, nd(100000), d(100000)},
		{"nothing present", decimal.NullDecimal{}, decimal.NullDecimal{}, decimal.Zero},
		{"discount without base", nd(50000), decimal.NullDecimal{}, d(50000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(ResolveUnitPrice(tt.discount, tt.base)))
		})
	}
}

func TestPolicy_Totals(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		items    []LineItem
		discount decimal.Decimal
		subtotal int64
		shipping int64
		total    int64
		count    int
	}{
		{
			name:     "above threshold ships free",
			items:    []LineItem{line(600000, 1)},
			subtotal: 600000, shipping: 0, total: 600000, count: 1,
		},
		{
			name:     "below threshold pays flat fee",
			items:    []LineItem{line(100000, 2)},
			subtotal: 200000, shipping: 30000, total: 230000, count: 2,
		},
		{
			name:     "coupon discount subtracted",
			items:    []LineItem{line(100000, 2)},
			discount: d(50000),
			subtotal: 200000, shipping: 30000, total: 180000, count: 2,
		},
		{
			name:     "exactly at threshold ships free",
			items:    []LineItem{line(250000, 2)},
			subtotal: 500000, shipping: 0, total: 500000, count: 2,
		},
		{
			name:     "empty basket has nothing to ship",
			items:    nil,
			subtotal: 0, shipping: 0, total: 0, count: 0,
		},
		{
			name:     "unpriced item still pays flat fee",
			items:    []LineItem{line(0, 1)},
			subtotal: 0, shipping: 30000, total: 30000, count: 1,
		},
		{
			name:     "zero-priced lines below threshold pay flat fee",
			items:    []LineItem{line(0, 3), line(100000, 1)},
			subtotal: 100000, shipping: 30000, total: 130000, count: 4,
		},
		{
			name:     "total is not clamped",
			items:    []LineItem{line(10000, 1)},
			discount: d(100000),
			subtotal: 10000, shipping: 30000, total: -60000, count: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Totals(tt.items, tt.discount)
			assert.True(t, d(tt.subtotal).Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.True(t, d(tt.shipping).Equal(got.Shipping), "shipping %s", got.Shipping)
			assert.True(t, d(tt.total).Equal(got.Total), "total %s", got.Total)
			assert.Equal(t, tt.count, got.ItemCount)
		})
	}
}

func TestPolicy_Shipping(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		subtotal int64
		want     int64
	}{
		{0, 30000},
		{1, 30000},
		{499999, 30000},
		{500000, 0},
		{500001, 0},
	}
	for _, tt := range tests {
		assert.True(t, d(tt.want).Equal(p.Shipping(d(tt.subtotal))), "subtotal %d", tt.subtotal)
	}
}

func TestPolicy_RemainingForFreeShipping(t *testing.T) {
	p := DefaultPolicy()
	assert.True(t, d(300000).Equal(p.RemainingForFreeShipping(d(200000))))
	assert.True(t, decimal.Zero.Equal(p.RemainingForFreeShipping(d(700000))))
}

func TestFormatVND(t *testing.T) {
	assert.Equal(t, "0₫", FormatVND(decimal.Zero))
	assert.Equal(t, "30.000₫", FormatVND(d(30000)))
	assert.Equal(t, "1.250.000₫", FormatVND(d(1250000)))
	assert.Equal(t, "-60.000₫", FormatVND(d(-60000)))
	assert.Equal(t, "100₫", FormatVND(decimal.RequireFromString("99.6")))
}
