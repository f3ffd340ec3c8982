package api

import (
	"context"
	"fmt"
	"net/http"
)

// Wishlist lists saved products.
func (c *Client) Wishlist(ctx context.Context) ([]WishlistItem, error) {
	var out List[WishlistItem]
	err := c.get(ctx, "wishlist.list", "wishlist/", nil, &out)
	return out.Results, err
}

// AddToWishlist saves a product.
func (c *Client) AddToWishlist(ctx context.Context, productID int64) error {
	return c.send(ctx, "wishlist.add", http.MethodPost, "wishlist/", map[string]int64{"product_id": productID}, nil)
}

// RemoveFromWishlist drops a saved product.
func (c *Client) RemoveFromWishlist(ctx context.Context, productID int64) error {
	return c.send(ctx, "wishlist.remove", http.MethodDelete, fmt.Sprintf("wishlist/%d/", productID), nil, nil)
}

// InWishlist reports whether a product is saved.
func (c *Client) InWishlist(ctx context.Context, productID int64) (bool, error) {
	var resp struct {
		IsInWishlist bool `json:"is_in_wishlist"`
	}
	err := c.get(ctx, "wishlist.check", fmt.Sprintf("wishlist/check/%d/", productID), nil, &resp)
	return resp.IsInWishlist, err
}
