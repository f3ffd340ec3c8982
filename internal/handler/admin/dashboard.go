package admin

import (
	"net/http"

	"github.com/dukerupert/atelier/internal/handler"
)

// DashboardHandler handles the admin dashboard
type DashboardHandler struct {
	shop BackOffice
	rs   *handler.Responder
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(shop BackOffice, rs *handler.Responder) *DashboardHandler {
	return &DashboardHandler{shop: shop, rs: rs}
}

// ServeHTTP handles GET /admin
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.shop.DashboardStats(r.Context())
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load the dashboard.")
		return
	}

	h.rs.Page(w, r, "admin/dashboard", map[string]interface{}{
		"Title": "Dashboard",
		"Stats": stats.Scalars(),
	})
}
