package storefront

import (
	"net/http"

	"github.com/dukerupert/atelier/internal/handler"
)

// WishlistHandler serves saved products.
type WishlistHandler struct {
	wishlists Wishlists
	rs        *handler.Responder
}

// NewWishlistHandler creates a new wishlist handler
func NewWishlistHandler(wishlists Wishlists, rs *handler.Responder) *WishlistHandler {
	return &WishlistHandler{wishlists: wishlists, rs: rs}
}

// List handles GET /wishlist
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.wishlists.Wishlist(r.Context())
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load your wishlist.")
		return
	}
	h.rs.Page(w, r, "storefront/wishlist", map[string]interface{}{
		"Title": "Wishlist",
		"Items": items,
	})
}

// Add handles POST /wishlist/{id}
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	if err := h.wishlists.AddToWishlist(r.Context(), id); err != nil {
		h.rs.Fail(w, r, err, "We couldn't update your wishlist.")
		return
	}
	h.rs.Success(w, r, "Saved to your wishlist.", handler.Back(r, "/wishlist"))
}

// Remove handles POST /wishlist/{id}/remove
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	if err := h.wishlists.RemoveFromWishlist(r.Context(), id); err != nil {
		h.rs.Fail(w, r, err, "We couldn't update your wishlist.")
		return
	}
	h.rs.Success(w, r, "Removed from your wishlist.", handler.Back(r, "/wishlist"))
}
