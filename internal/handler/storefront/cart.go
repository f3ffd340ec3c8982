package storefront

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/events"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/pricing"
)

// CartHandler handles all cart-related storefront routes
type CartHandler struct {
	carts  Carts
	policy pricing.Policy
	bus    events.Bus
	rs     *handler.Responder
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts Carts, policy pricing.Policy, bus events.Bus, rs *handler.Responder) *CartHandler {
	return &CartHandler{
		carts:  carts,
		policy: policy,
		bus:    bus,
		rs:     rs,
	}
}

// View handles GET /cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.Cart(r.Context())
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load your bag.")
		return
	}

	lines := cart.Lines()
	totals := h.policy.Totals(lines, decimal.Zero)
	h.rs.Page(w, r, "storefront/cart", map[string]interface{}{
		"Title":         "Your bag",
		"Lines":         lines,
		"Totals":        totals,
		"FreeShipping":  h.policy.FreeShippingThreshold,
		"RemainingFree": h.policy.RemainingForFreeShipping(totals.Subtotal),
	})
}

// Update handles POST /cart/items/{variant}
//
// The form posts the desired quantity; the API only accepts deltas, so the
// current quantity is read from the cart first.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	variantID, err := pathID(r, "variant")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.rs.Fail(w, r, domain.Invalid("cart.update", "Invalid form data."), "")
		return
	}
	target, err := strconv.Atoi(r.PostFormValue("quantity"))
	if err != nil || target < 0 {
		h.rs.Fail(w, r, domain.NewValidationError("cart.update", "quantity", "Enter a quantity of 0 or more."), "")
		return
	}

	cart, err := h.carts.Cart(ctx)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't update your bag.")
		return
	}
	current := cart.Quantity(variantID)
	if current == 0 {
		h.rs.Fail(w, r, domain.NotFound("cart.update", "cart item", strconv.FormatInt(variantID, 10)), "")
		return
	}
	if target == current {
		h.rs.Redirect(w, r, "/cart")
		return
	}

	if err := h.carts.SetCartQuantity(ctx, variantID, current, target); err != nil {
		h.rs.Fail(w, r, err, "We couldn't update your bag.")
		return
	}
	action := "update"
	if target == 0 {
		action = "remove"
	}
	cartChanged(ctx, h.bus, action)
	h.rs.Success(w, r, "Your bag was updated.", "/cart")
}

// Remove handles POST /cart/items/{variant}/remove
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	variantID, err := pathID(r, "variant")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}

	if err := h.carts.RemoveFromCart(ctx, variantID); err != nil {
		h.rs.Fail(w, r, err, "We couldn't remove that item.")
		return
	}
	cartChanged(ctx, h.bus, "remove")
	h.rs.Success(w, r, "Item removed from your bag.", "/cart")
}
