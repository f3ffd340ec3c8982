package api

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/atelier/internal/domain"
)

const cartJSON = `{
  "id": 1,
  "user": 9,
  "items": [
    {"id": 10, "product_variant_id": 3, "quantity": 2,
     "product_variant": {"id": 3, "size": "M", "color": "Black", "stock_quantity": 8,
       "product": {"id": 1, "name": "Linen shirt", "price": "100000.00", "discount_price": null,
                   "images": [{"id": 1, "image": "/a.jpg"}, {"id": 2, "image": "/b.jpg", "is_main": true}]}}},
    {"id": 11, "product_variant_id": 4, "quantity": 1,
     "product_variant": {"id": 4, "size": "S", "color": "Red", "stock_quantity": 1,
       "product": {"id": 2, "name": "Silk dress", "price": "900000.00", "discount_price": "600000.00"}}}
  ]
}`

func TestCart_Lines(t *testing.T) {
	var cart Cart
	require.NoError(t, json.Unmarshal([]byte(cartJSON), &cart))

	lines := cart.Lines()
	require.Len(t, lines, 2)

	assert.EqualValues(t, 3, lines[0].VariantID)
	assert.Equal(t, "/b.jpg", lines[0].ImageURL)
	assert.True(t, decimal.NewFromInt(100000).Equal(lines[0].UnitPrice))
	assert.False(t, lines[0].Discounted())

	assert.True(t, decimal.NewFromInt(600000).Equal(lines[1].UnitPrice))
	assert.True(t, decimal.NewFromInt(900000).Equal(lines[1].BasePrice))
	assert.True(t, lines[1].Discounted())

	assert.Equal(t, 3, cart.Count())
	assert.Equal(t, 2, cart.Quantity(3))
	assert.Equal(t, 0, cart.Quantity(99))
}

func TestBuyNowLine(t *testing.T) {
	p := Product{
		ID:            5,
		Name:          "Wool coat",
		Price:         decimal.NewNullDecimal(decimal.NewFromInt(700000)),
		DiscountPrice: decimal.NewNullDecimal(decimal.Zero),
		Variants:      []Variant{{ID: 50, Size: "L", Color: "Camel", StockQuantity: 3}},
	}

	line, err := BuyNowLine(p, 50, 2)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(700000).Equal(line.UnitPrice), "zero discount falls back to base price")
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, "Camel", line.Color)

	_, err = BuyNowLine(p, 51, 1)
	assert.True(t, domain.IsCode(err, domain.EINVALID))

	_, err = BuyNowLine(p, 50, 4)
	assert.True(t, domain.IsCode(err, domain.ECONFLICT))

	_, err = BuyNowLine(p, 50, 0)
	assert.True(t, domain.IsCode(err, domain.EINVALID))
}

func TestStats_Scalars(t *testing.T) {
	var s Stats
	require.NoError(t, json.Unmarshal([]byte(`{"total_orders": 12, "revenue": "1000", "recent": [1,2], "nested": {"a": 1}}`), &s))
	scalars := s.Scalars()
	require.Len(t, scalars, 2)
	assert.Equal(t, "revenue", scalars[0].Key)
	assert.Equal(t, "total_orders", scalars[1].Key)
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Lan Nguyen", User{Username: "lan", FirstName: "Lan", LastName: "Nguyen"}.DisplayName())
	assert.Equal(t, "lan", User{Username: "lan"}.DisplayName())
}
