package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/atelier/internal/address"
	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/checkout"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/form"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/middleware"
	"github.com/dukerupert/atelier/internal/pricing"
	"github.com/dukerupert/atelier/internal/session"
	"github.com/dukerupert/atelier/internal/telemetry"
)

// Checkout is the wizard as the pages drive it.
type Checkout interface {
	Current(ctx context.Context, sid string) (checkout.State, error)
	Begin(ctx context.Context, sid string, buyNow bool) (checkout.State, error)
	Advance(ctx context.Context, sid string, ev checkout.Event) (checkout.State, error)
	SubmitAddress(ctx context.Context, sid string, f checkout.AddressForm) (checkout.State, error)
	ApplyCoupon(ctx context.Context, sid, code string) (checkout.State, error)
	RemoveCoupon(ctx context.Context, sid string) (checkout.State, error)
	StartWallet(ctx context.Context, sid string) (checkout.State, error)
	ConfirmWallet(ctx context.Context, sid string) (checkout.State, error)
	CancelWallet(ctx context.Context, sid string) (checkout.State, error)
	PlaceOrder(ctx context.Context, sid string, method domain.PaymentMethod) (checkout.Confirmed, error)
	Policy() pricing.Policy
	Now() time.Time
}

// Divisions lists provinces, districts and wards for the address form.
type Divisions interface {
	Provinces(ctx context.Context) ([]address.Division, error)
	Districts(ctx context.Context, province int) ([]address.Division, error)
	Wards(ctx context.Context, district int) ([]address.Division, error)
}

var (
	_ Checkout  = (*checkout.Service)(nil)
	_ Divisions = (*address.Lookup)(nil)
)

// CheckoutHandler serves the checkout wizard, the wallet sub-flow and buy-now.
type CheckoutHandler struct {
	checkout   Checkout
	divisions  Divisions
	catalog    Catalog
	buyNowMode string
	rs         *handler.Responder
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(co Checkout, divisions Divisions, catalog Catalog, buyNowMode string, rs *handler.Responder) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:   co,
		divisions:  divisions,
		catalog:    catalog,
		buyNowMode: buyNowMode,
		rs:         rs,
	}
}

// BuyNow handles POST /products/{id}/buy-now
//
// The chosen variant becomes the session's single buy-now snapshot, replacing
// any earlier one, and a checkout starts from it. The cart is left alone.
func (h *CheckoutHandler) BuyNow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.rs.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.rs.Fail(w, r, domain.Invalid("product.buy_now", "Invalid form data."), "")
		return
	}
	variantID, _ := strconv.ParseInt(r.PostFormValue("variant_id"), 10, 64)
	qty := formInt(r, "quantity", 1)

	product, err := h.catalog.Product(ctx, id)
	if err != nil {
		h.rs.Fail(w, r, err, "We couldn't start your purchase.")
		return
	}
	line, err := api.BuyNowLine(product, variantID, qty)
	if err != nil {
		h.rs.Fail(w, r, err, "")
		return
	}

	sid := sessionID(r)
	now := h.checkout.Now()
	if _, err := h.rs.Sessions.Update(ctx, sid, func(s *session.Session) error {
		s.SetBuyNow([]pricing.LineItem{line}, now)
		return nil
	}); err != nil {
		h.rs.Fail(w, r, domain.Internal(err, "product.buy_now", "failed to store buy-now"), "We couldn't start your purchase.")
		return
	}
	if telemetry.Business != nil {
		telemetry.Business.BuyNowStarted.WithLabelValues(h.buyNowMode).Inc()
	}

	if _, err := h.checkout.Begin(ctx, sid, true); err != nil {
		if h.abort(w, r, err) {
			return
		}
		h.rs.Fail(w, r, err, "We couldn't start your purchase.")
		return
	}
	h.rs.Redirect(w, r, "/checkout")
}

// Start handles POST /checkout/start
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	if _, err := h.checkout.Begin(r.Context(), sessionID(r), false); err != nil {
		if h.abort(w, r, err) {
			return
		}
		h.rs.Fail(w, r, err, "We couldn't start checkout.")
		return
	}
	h.rs.Redirect(w, r, "/checkout")
}

// Show handles GET /checkout and renders the current step.
func (h *CheckoutHandler) Show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, err := h.checkout.Current(ctx, sessionID(r))
	if err != nil {
		h.noCheckout(w, r, err)
		return
	}

	switch s := st.(type) {
	case checkout.ReviewingCart:
		h.render(w, r, http.StatusOK, "storefront/checkout_review", s, nil)
	case checkout.EnteringAddress:
		draft := checkout.AddressForm{}
		if s.Draft != nil {
			draft = *s.Draft
		}
		h.renderAddress(w, r, http.StatusOK, s, draft, nil)
	case checkout.ChoosingPayment:
		h.render(w, r, http.StatusOK, "storefront/checkout_payment", s, map[string]interface{}{
			"Address":  s.Address,
			"Methods":  domain.PaymentMethods,
			"Verified": s.Wallet != nil && s.Wallet.Status(h.checkout.Now()) == checkout.WalletVerified,
		})
	case checkout.Confirmed:
		h.rs.Redirect(w, r, "/checkout/complete")
	}
}

// noCheckout sends a visitor without an active checkout home.
func (h *CheckoutHandler) noCheckout(w http.ResponseWriter, r *http.Request, err error) {
	if h.abort(w, r, err) {
		return
	}
	h.rs.Fail(w, r, err, "We couldn't load your checkout.")
}

// abort ends a checkout that has nothing to buy or no longer exists by
// redirecting home. It reports whether err was one of those.
func (h *CheckoutHandler) abort(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, checkout.ErrNothingToCheckout):
		h.rs.Flash(r, session.FlashInfo, domain.ErrorMessage(err))
	case errors.Is(err, checkout.ErrNoCheckout), errors.Is(err, session.ErrNotFound):
	default:
		return false
	}
	h.rs.Redirect(w, r, "/")
	return true
}

func (h *CheckoutHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, st checkout.State, extra map[string]interface{}) {
	basket, _ := checkout.BasketOf(st)
	data := map[string]interface{}{
		"Title":  "Checkout",
		"Stage":  st.Stage(),
		"Step":   st.Stage().Step(),
		"Basket": basket,
		"Totals": basket.Totals(h.checkout.Policy()),
		"BuyNow": basket.Source == checkout.SourceBuyNow,
	}
	for k, v := range extra {
		data[k] = v
	}
	h.rs.PageStatus(w, r, status, page, data)
}

// renderAddress shows the address step with the province list and, when a
// province or district is already chosen, its children.
func (h *CheckoutHandler) renderAddress(w http.ResponseWriter, r *http.Request, status int, st checkout.EnteringAddress, f checkout.AddressForm, fields map[string]string) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	provinces, err := h.divisions.Provinces(ctx)
	if err != nil {
		logger.Warn("province list unavailable", slog.String("error", err.Error()))
	}
	var districts, wards []address.Division
	if f.ProvinceCode > 0 {
		if districts, err = h.divisions.Districts(ctx, f.ProvinceCode); err != nil {
			logger.Warn("district list unavailable", slog.String("error", err.Error()))
		}
	}
	if f.DistrictCode > 0 {
		if wards, err = h.divisions.Wards(ctx, f.DistrictCode); err != nil {
			logger.Warn("ward list unavailable", slog.String("error", err.Error()))
		}
	}

	h.render(w, r, status, "storefront/checkout_address", st, map[string]interface{}{
		"Form":      f,
		"Errors":    fields,
		"Provinces": provinces,
		"Districts": districts,
		"Wards":     wards,
	})
}

// Proceed handles POST /checkout/proceed
func (h *CheckoutHandler) Proceed(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, checkout.Proceed{})
}

// Back handles POST /checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, checkout.Back{})
}

func (h *CheckoutHandler) advance(w http.ResponseWriter, r *http.Request, ev checkout.Event) {
	if _, err := h.checkout.Advance(r.Context(), sessionID(r), ev); err != nil {
		h.failStep(w, r, err)
		return
	}
	h.rs.Redirect(w, r, "/checkout")
}

// failStep reports a wizard error and returns to the current step.
func (h *CheckoutHandler) failStep(w http.ResponseWriter, r *http.Request, err error) {
	if h.abort(w, r, err) {
		return
	}
	switch domain.ErrorCode(err) {
	case domain.EINVALID, domain.ECONFLICT, domain.ENOTFOUND:
		h.rs.Flash(r, session.FlashError, handler.Message(err, ""))
		h.rs.Redirect(w, r, "/checkout")
		return
	}
	h.rs.Fail(w, r, err, "We couldn't update your checkout.")
}

// Address handles POST /checkout/address
func (h *CheckoutHandler) Address(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(r)
	if err := r.ParseForm(); err != nil {
		h.rs.Fail(w, r, domain.Invalid("checkout.address", "Invalid form data."), "")
		return
	}

	var f checkout.AddressForm
	if err := form.Decode("checkout.address", r.PostForm, &f); err != nil {
		h.addressInvalid(w, r, f, err)
		return
	}

	if _, err := h.checkout.SubmitAddress(ctx, sid, f); err != nil {
		if domain.IsValidationError(err) {
			h.addressInvalid(w, r, f, err)
			return
		}
		h.failStep(w, r, err)
		return
	}
	h.rs.Redirect(w, r, "/checkout")
}

// addressInvalid re-renders the address step with field messages.
func (h *CheckoutHandler) addressInvalid(w http.ResponseWriter, r *http.Request, f checkout.AddressForm, err error) {
	st, cerr := h.checkout.Current(r.Context(), sessionID(r))
	if cerr != nil {
		h.noCheckout(w, r, cerr)
		return
	}
	ea, ok := st.(checkout.EnteringAddress)
	if !ok {
		h.rs.Redirect(w, r, "/checkout")
		return
	}
	h.renderAddress(w, r, http.StatusBadRequest, ea, f, domain.GetValidationFields(err))
}

// ApplyCoupon handles POST /checkout/coupon
func (h *CheckoutHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	if _, err := h.checkout.ApplyCoupon(r.Context(), sessionID(r), r.PostFormValue("coupon_code")); err != nil {
		h.failStep(w, r, err)
		return
	}
	h.rs.Success(w, r, "Coupon applied.", "/checkout")
}

// RemoveCoupon handles POST /checkout/coupon/remove
func (h *CheckoutHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	if _, err := h.checkout.RemoveCoupon(r.Context(), sessionID(r)); err != nil {
		h.failStep(w, r, err)
		return
	}
	h.rs.Success(w, r, "Coupon removed.", "/checkout")
}

// StartWallet handles POST /checkout/wallet
func (h *CheckoutHandler) StartWallet(w http.ResponseWriter, r *http.Request) {
	if _, err := h.checkout.StartWallet(r.Context(), sessionID(r)); err != nil {
		h.failStep(w, r, err)
		return
	}
	h.rs.Redirect(w, r, "/checkout/wallet")
}

// Wallet handles GET /checkout/wallet
func (h *CheckoutHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	cp, ok := h.walletState(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "storefront/checkout_wallet", cp, h.walletData(cp))
}

// WalletStatus handles GET /checkout/wallet/status, polled by the wallet page.
func (h *CheckoutHandler) WalletStatus(w http.ResponseWriter, r *http.Request) {
	cp, ok := h.walletState(w, r)
	if !ok {
		return
	}
	h.rs.Renderer.Fragment(w, "storefront/checkout_wallet", "wallet_status", h.walletData(cp))
}

func (h *CheckoutHandler) walletState(w http.ResponseWriter, r *http.Request) (checkout.ChoosingPayment, bool) {
	st, err := h.checkout.Current(r.Context(), sessionID(r))
	if err != nil {
		h.noCheckout(w, r, err)
		return checkout.ChoosingPayment{}, false
	}
	cp, ok := st.(checkout.ChoosingPayment)
	if !ok || cp.Wallet == nil {
		h.rs.Redirect(w, r, "/checkout")
		return checkout.ChoosingPayment{}, false
	}
	return cp, true
}

func (h *CheckoutHandler) walletData(cp checkout.ChoosingPayment) map[string]interface{} {
	now := h.checkout.Now()
	return map[string]interface{}{
		"Wallet":    cp.Wallet,
		"Status":    string(cp.Wallet.Status(now)),
		"Remaining": int(cp.Wallet.Remaining(now).Seconds()),
		"Payload":   cp.Wallet.Payload(),
	}
}

// ConfirmWallet handles POST /checkout/wallet/confirm
func (h *CheckoutHandler) ConfirmWallet(w http.ResponseWriter, r *http.Request) {
	if _, err := h.checkout.ConfirmWallet(r.Context(), sessionID(r)); err != nil {
		h.failStep(w, r, err)
		return
	}
	h.rs.Redirect(w, r, "/checkout/wallet")
}

// CancelWallet handles POST /checkout/wallet/cancel
func (h *CheckoutHandler) CancelWallet(w http.ResponseWriter, r *http.Request) {
	if _, err := h.checkout.CancelWallet(r.Context(), sessionID(r)); err != nil {
		h.failStep(w, r, err)
		return
	}
	h.rs.Redirect(w, r, "/checkout")
}

// Place handles POST /checkout/place
func (h *CheckoutHandler) Place(w http.ResponseWriter, r *http.Request) {
	method := domain.PaymentMethod(r.PostFormValue("payment_method"))
	if _, err := h.checkout.PlaceOrder(r.Context(), sessionID(r), method); err != nil {
		if errors.Is(err, checkout.ErrCouponNoLonger) || errors.Is(err, checkout.ErrWalletStale) {
			h.rs.Flash(r, session.FlashWarning, domain.ErrorMessage(err))
			h.rs.Redirect(w, r, "/checkout")
			return
		}
		h.failStep(w, r, err)
		return
	}
	h.rs.Redirect(w, r, "/checkout/complete")
}

// Complete handles GET /checkout/complete
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	st, err := h.checkout.Current(r.Context(), sessionID(r))
	if err != nil {
		h.noCheckout(w, r, err)
		return
	}
	done, ok := st.(checkout.Confirmed)
	if !ok {
		h.rs.Redirect(w, r, "/checkout")
		return
	}

	data := map[string]interface{}{
		"Title":     "Thank you",
		"Confirmed": done,
		"Order":     done.Order,
		"Totals":    done.Totals,
		"Warnings":  done.Warnings,
	}
	if eta, ok := done.Order.EstimatedDelivery(); ok {
		data["EstimatedDelivery"] = eta
	}
	h.rs.Page(w, r, "storefront/checkout_complete", data)
}

// Districts handles GET /checkout/districts?province_code=
func (h *CheckoutHandler) Districts(w http.ResponseWriter, r *http.Request) {
	code, _ := strconv.Atoi(r.URL.Query().Get("province_code"))
	h.options(w, r, "Choose a district", func(ctx context.Context) ([]address.Division, error) {
		if code <= 0 {
			return nil, nil
		}
		return h.divisions.Districts(ctx, code)
	})
}

// Wards handles GET /checkout/wards?district_code=
func (h *CheckoutHandler) Wards(w http.ResponseWriter, r *http.Request) {
	code, _ := strconv.Atoi(r.URL.Query().Get("district_code"))
	h.options(w, r, "Choose a ward", func(ctx context.Context) ([]address.Division, error) {
		if code <= 0 {
			return nil, nil
		}
		return h.divisions.Wards(ctx, code)
	})
}

// options renders <option> elements for a dependent select.
func (h *CheckoutHandler) options(w http.ResponseWriter, r *http.Request, placeholder string, load func(context.Context) ([]address.Division, error)) {
	list, err := load(r.Context())
	outcome := "ok"
	if err != nil {
		outcome = "error"
		middleware.GetLogger(r.Context()).Warn("division lookup failed", slog.String("error", err.Error()))
		placeholder = fmt.Sprintf("%s (unavailable, try again)", placeholder)
	}
	if telemetry.Business != nil {
		telemetry.Business.AddressLookup.WithLabelValues(outcome).Inc()
	}
	h.rs.Renderer.Fragment(w, "storefront/checkout_address", "division_options", map[string]interface{}{
		"Placeholder": placeholder,
		"Options":     list,
	})
}
