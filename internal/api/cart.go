package api

import (
	"context"
	"net/http"
)

// Cart fetches the signed-in shopper's cart.
func (c *Client) Cart(ctx context.Context) (Cart, error) {
	var cart Cart
	err := c.get(ctx, "cart.get", "cart/", nil, &cart)
	return cart, err
}

// AddToCart changes a variant's quantity by delta. The API adds the delta to
// the existing line, creating it when absent; a negative delta reduces it.
func (c *Client) AddToCart(ctx context.Context, variantID int64, delta int) error {
	return c.send(ctx, "cart.add", http.MethodPut, "cart/", map[string]interface{}{
		"product_variant_id": variantID,
		"quantity":           delta,
	}, nil)
}

// RemoveFromCart deletes a variant's line.
func (c *Client) RemoveFromCart(ctx context.Context, variantID int64) error {
	return c.send(ctx, "cart.remove", http.MethodDelete, "cart/", map[string]interface{}{
		"product_variant_id": variantID,
	}, nil)
}

// SetCartQuantity moves a line to an absolute quantity given its current one.
// A target of zero removes the line.
func (c *Client) SetCartQuantity(ctx context.Context, variantID int64, current, target int) error {
	if target <= 0 {
		return c.RemoveFromCart(ctx, variantID)
	}
	if delta := target - current; delta != 0 {
		return c.AddToCart(ctx, variantID, delta)
	}
	return nil
}
