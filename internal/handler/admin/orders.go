package admin

import (
	"fmt"
	"net/http"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/handler"
)

// OrderHandler handles order management routes
type OrderHandler struct {
	shop BackOffice
	rs   *handler.Responder
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(shop BackOffice, rs *handler.Responder) *OrderHandler {
	return &OrderHandler{shop: shop, rs: rs}
}

// List handles GET /admin/orders?status=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	if q.Status != "" && !domain.OrderStatus(q.Status).Valid() {
		q.Status = ""
	}
	orders, err := h.shop.AdminOrders(r.Context(), q)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load orders.")
		return
	}
	h.rs.Page(w, r, "admin/orders", map[string]interface{}{
		"Title":           "Orders",
		"Orders":          orders.Results,
		"Pager":           handler.Paginate(r, q.Page, orders.Page),
		"Query":           q,
		"Statuses":        domain.OrderStatuses,
		"PaymentStatuses": domain.PaymentStatuses,
	})
}

// UpdateStatus handles POST /admin/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	const op = "admin.order_status"
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}

	status := domain.OrderStatus(r.PostFormValue("status"))
	payment := domain.PaymentStatus(r.PostFormValue("payment_status"))
	if status != "" && !status.Valid() {
		h.rs.Fail(w, r, domain.NewValidationError(op, "status", "Unknown order status."), "")
		return
	}
	if payment != "" && !payment.Valid() {
		h.rs.Fail(w, r, domain.NewValidationError(op, "payment_status", "Unknown payment status."), "")
		return
	}
	if status == "" && payment == "" {
		h.rs.Fail(w, r, domain.Invalid(op, "Nothing to update."), "")
		return
	}

	if err := h.shop.UpdateOrderStatus(r.Context(), id, status, payment); err != nil {
		h.rs.Fail(w, r, err, "We couldn't update the order.")
		return
	}
	recordAction("order_status")
	h.rs.Success(w, r, fmt.Sprintf("Order #%d updated.", id), handler.Back(r, "/admin/orders"))
}
