package admin

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/form"
	"github.com/dukerupert/atelier/internal/handler"
)

// StockHandler handles inventory routes
type StockHandler struct {
	shop BackOffice
	rs   *handler.Responder
}

// NewStockHandler creates a new stock handler
func NewStockHandler(shop BackOffice, rs *handler.Responder) *StockHandler {
	return &StockHandler{shop: shop, rs: rs}
}

// Variants handles GET /admin/stock
func (h *StockHandler) Variants(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	variants, err := h.shop.StockVariants(r.Context(), q)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load stock levels.")
		return
	}
	h.rs.Page(w, r, "admin/stock", map[string]interface{}{
		"Title":    "Stock",
		"Variants": variants.Results,
		"Pager":    handler.Paginate(r, q.Page, variants.Page),
		"Query":    q,
	})
}

type movementForm struct {
	Quantity        int             `form:"quantity" validate:"gte=0"`
	CostPerItem     decimal.Decimal `form:"cost_per_item"`
	ReferenceNumber string          `form:"reference_number" validate:"max=100"`
	Reason          string          `form:"reason" validate:"max=500"`
}

// Move handles POST /admin/stock/{variant}/{kind}, where kind is one of
// import, adjust, damaged or return.
func (h *StockHandler) Move(w http.ResponseWriter, r *http.Request) {
	const op = "admin.stock_move"
	ctx := r.Context()
	variantID, err := pathID(r, "variant")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.rs.Fail(w, r, domain.Invalid(op, "Invalid form data."), "")
		return
	}

	var f movementForm
	if err := form.Decode(op, r.PostForm, &f); err != nil {
		h.rs.Fail(w, r, err, "")
		return
	}
	form.Trim(&f)
	if err := form.Validate(op, f); err != nil {
		h.rs.Fail(w, r, err, "")
		return
	}

	kind := r.PathValue("kind")
	var msg string
	switch kind {
	case "import":
		if f.Quantity < 1 {
			h.rs.Fail(w, r, domain.NewValidationError(op, "quantity", "Must be at least 1."), "")
			return
		}
		in := api.StockImport{Quantity: f.Quantity, ReferenceNumber: f.ReferenceNumber, Notes: f.Reason}
		if f.CostPerItem.IsPositive() {
			in.CostPerItem = decimal.NewNullDecimal(f.CostPerItem)
		}
		err = h.shop.ImportStock(ctx, variantID, in)
		msg = "Stock received."
	case "adjust":
		if f.Reason == "" {
			h.rs.Fail(w, r, domain.NewValidationError(op, "reason", "Give a reason for the adjustment."), "")
			return
		}
		err = h.shop.AdjustStock(ctx, variantID, f.Quantity, f.Reason)
		msg = "Stock adjusted."
	case "damaged":
		if f.Quantity < 1 {
			h.rs.Fail(w, r, domain.NewValidationError(op, "quantity", "Must be at least 1."), "")
			return
		}
		err = h.shop.WriteOffDamaged(ctx, variantID, f.Quantity, f.Reason)
		msg = "Damaged stock written off."
	case "return":
		if f.Quantity < 1 {
			h.rs.Fail(w, r, domain.NewValidationError(op, "quantity", "Must be at least 1."), "")
			return
		}
		err = h.shop.ReturnStock(ctx, variantID, f.Quantity, f.Reason)
		msg = "Returned stock recorded."
	default:
		h.rs.NotFound(w, r)
		return
	}
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't record the stock movement.")
		return
	}
	recordAction("stock_" + kind)
	h.rs.Success(w, r, msg, handler.Back(r, "/admin/stock"))
}

// History handles GET /admin/stock/history
func (h *StockHandler) History(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	moves, err := h.shop.StockHistory(r.Context(), q)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load stock history.")
		return
	}
	h.rs.Page(w, r, "admin/stock_history", map[string]interface{}{
		"Title":     "Stock history",
		"Movements": moves.Results,
		"Pager":     handler.Paginate(r, q.Page, moves.Page),
		"Query":     q,
	})
}

// Alerts handles GET /admin/stock/alerts
func (h *StockHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	alerts, err := h.shop.StockAlerts(r.Context(), q)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load stock alerts.")
		return
	}
	h.rs.Page(w, r, "admin/stock_alerts", map[string]interface{}{
		"Title":  "Stock alerts",
		"Alerts": alerts.Results,
		"Pager":  handler.Paginate(r, q.Page, alerts.Page),
		"Query":  q,
	})
}

// ResolveAlert handles POST /admin/stock/alerts/{id}/resolve
func (h *StockHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	if err := h.shop.ResolveStockAlert(r.Context(), id); err != nil {
		h.rs.Fail(w, r, err, "We couldn't resolve the alert.")
		return
	}
	recordAction("stock_alert_resolve")
	h.rs.Success(w, r, "Alert resolved.", "/admin/stock/alerts")
}
