// Package pricing turns normalized line items into checkout totals.
//
// Every basket the storefront shows, whether it comes from the persisted cart
// or from a buy-now snapshot, is reduced to []LineItem before any arithmetic
// happens, so both paths share one set of rules.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Default shipping rule: orders at or above the threshold ship free.
var (
	DefaultFreeShippingThreshold = decimal.NewFromInt(500000)
	DefaultFlatShippingFee       = decimal.NewFromInt(30000)
)

// LineItem is one row of a basket with its price already resolved.
type LineItem struct {
	VariantID   int64           `json:"variant_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	BasePrice   decimal.Decimal `json:"base_price"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// LineTotal is unit price times quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Discounted reports whether the unit price is below the list price.
func (l LineItem) Discounted() bool {
	return l.UnitPrice.LessThan(l.BasePrice)
}

// ResolveUnitPrice picks the price a shopper pays for one unit: the discount
// price when present and positive, otherwise the base price, otherwise zero.
func ResolveUnitPrice(discount, base decimal.NullDecimal) decimal.Decimal {
	if discount.Valid && discount.Decimal.IsPositive() {
		return discount.Decimal
	}
	if base.Valid {
		return base.Decimal
	}
	return decimal.Zero
}

// Totals is the full breakdown shown on cart, checkout and confirmation pages.
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// FreeShipping reports whether the shipping line is waived.
func (t Totals) FreeShipping() bool {
	return t.Shipping.IsZero()
}

// Policy holds the shipping rule.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// DefaultPolicy returns the standard shipping rule.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		FlatShippingFee:       DefaultFlatShippingFee,
	}
}

// Subtotal sums line totals.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Shipping returns the fee for a given subtotal: free at or above the
// threshold, the flat fee below it, including a subtotal of zero.
func (p Policy) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShippingFee
}

// RemainingForFreeShipping is how much more the shopper must add to ship free.
func (p Policy) RemainingForFreeShipping(subtotal decimal.Decimal) decimal.Decimal {
	rest := p.FreeShippingThreshold.Sub(subtotal)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// Totals computes subtotal, shipping, discount and grand total.
// The total is subtotal + shipping - discount and is not clamped at zero.
func (p Policy) Totals(items []LineItem, discount decimal.Decimal) Totals {
	subtotal := Subtotal(items)
	// An empty basket has nothing to ship.
	shipping := decimal.Zero
	if len(items) > 0 {
		shipping = p.Shipping(subtotal)
	}

	count := 0
	for _, it := range items {
		count += it.Quantity
	}

	return Totals{
		Subtotal:  subtotal,
		Shipping:  shipping,
		Discount:  discount,
		Total:     subtotal.Add(shipping).Sub(discount),
		ItemCount: count,
	}
}

// FormatVND renders an amount as Vietnamese dong, e.g. 1.250.000₫.
func FormatVND(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte('.')
		b.WriteString(s[i : i+3])
	}
	b.WriteString("₫")
	return b.String()
}
