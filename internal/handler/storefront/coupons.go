package storefront

import (
	"net/http"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/handler"
)

var couponTabs = []string{api.CouponsAvailable, api.CouponsUsed, api.CouponsExpired}

// CouponHandler serves the coupon wallet.
type CouponHandler struct {
	coupons CouponWallet
	rs      *handler.Responder
}

// NewCouponHandler creates a new coupon handler
func NewCouponHandler(coupons CouponWallet, rs *handler.Responder) *CouponHandler {
	return &CouponHandler{coupons: coupons, rs: rs}
}

// List handles GET /coupons?tab=
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	known := false
	for _, t := range couponTabs {
		if t == tab {
			known = true
		}
	}
	if !known {
		tab = api.CouponsAvailable
	}

	coupons, err := h.coupons.Coupons(r.Context(), tab)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't load your coupons.")
		return
	}
	h.rs.Page(w, r, "storefront/coupons", map[string]interface{}{
		"Title":   "My coupons",
		"Tab":     tab,
		"Tabs":    couponTabs,
		"Coupons": coupons,
	})
}
