package storefront

import (
	"fmt"
	"net/http"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/handler"
)

// OrderHandler serves the shopper's order history.
type OrderHandler struct {
	orders Orders
	rs     *handler.Responder
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders Orders, rs *handler.Responder) *OrderHandler {
	return &OrderHandler{orders: orders, rs: rs}
}

// List handles GET /orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.MyOrders(r.Context())
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load your orders.")
		return
	}
	h.rs.Page(w, r, "storefront/orders", map[string]interface{}{
		"Title":  "My orders",
		"Orders": orders,
	})
}

// Detail handles GET /orders/{id}
func (h *OrderHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	order, err := h.orders.Order(r.Context(), id)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load this order.")
		return
	}

	data := map[string]interface{}{
		"Title": fmt.Sprintf("Order #%d", order.ID),
		"Order": order,
	}
	if eta, ok := order.EstimatedDelivery(); ok {
		data["EstimatedDelivery"] = eta
	}
	h.rs.Page(w, r, "storefront/order", data)
}

// ConfirmCancel handles GET /orders/{id}/cancel
func (h *OrderHandler) ConfirmCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	order, err := h.orders.Order(r.Context(), id)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load this order.")
		return
	}
	if !order.Status.CanCancel() {
		h.rs.Fail(w, r, domain.Conflict("order.cancel", "This order can no longer be cancelled."), "")
		return
	}

	h.rs.Page(w, r, "storefront/confirm", map[string]interface{}{
		"Title":   "Cancel order",
		"Heading": fmt.Sprintf("Cancel order #%d?", order.ID),
		"Body":    "The order will be cancelled and any reserved stock released. This cannot be undone.",
		"Action":  fmt.Sprintf("/orders/%d/cancel", order.ID),
		"Confirm": "Cancel order",
		"Return":  fmt.Sprintf("/orders/%d", order.ID),
	})
}

// Cancel handles POST /orders/{id}/cancel
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	if err := h.orders.CancelOrder(r.Context(), id); err != nil {
		h.rs.Fail(w, r, err, "We couldn't cancel this order.")
		return
	}
	h.rs.Success(w, r, fmt.Sprintf("Order #%d was cancelled.", id), fmt.Sprintf("/orders/%d", id))
}
