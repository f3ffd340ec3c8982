package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/atelier/internal/cookie"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/session"
)

type responderFixture struct {
	rs    *Responder
	store *session.MemoryStore
	sess  *session.Session
}

func newResponderFixture(t *testing.T) *responderFixture {
	t.Helper()
	store := session.NewMemoryStore(time.Hour)
	sess := &session.Session{ID: "sid-1", AccessToken: "access", RefreshToken: "refresh", Username: "mai"}
	require.NoError(t, store.Save(context.Background(), sess))

	mgr := session.NewManager(store, cookie.NewConfig("", false), "atelier_session", time.Hour, quietLogger())
	return &responderFixture{
		rs:    NewResponder(newTestRenderer(t), mgr, quietLogger()),
		store: store,
		sess:  sess,
	}
}

func (f *responderFixture) request(method, target string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	s := *f.sess
	return r.WithContext(session.NewContext(r.Context(), &s))
}

func (f *responderFixture) stored(t *testing.T) *session.Session {
	t.Helper()
	s, err := f.store.Get(context.Background(), f.sess.ID)
	require.NoError(t, err)
	return s
}

func TestResponder_PageDataConsumesFlash(t *testing.T) {
	f := newResponderFixture(t)
	f.sess.SetFlash(session.FlashSuccess, "Added to bag.")
	require.NoError(t, f.store.Save(context.Background(), f.sess))

	r := f.request(http.MethodGet, "/cart")
	data := f.rs.PageData(r)

	assert.Equal(t, true, data["Authenticated"])
	assert.Equal(t, "mai", data["Username"])
	assert.Equal(t, "/cart", data["Path"])
	require.NotNil(t, data["Flash"])
	assert.Equal(t, "Added to bag.", data["Flash"].(*session.Flash).Message)

	assert.Nil(t, f.stored(t).Flash)

	again := f.rs.PageData(f.request(http.MethodGet, "/cart"))
	assert.NotContains(t, again, "Flash")
}

func TestResponder_PageRendersFlashOnce(t *testing.T) {
	f := newResponderFixture(t)
	f.sess.SetFlash(session.FlashInfo, "Welcome back.")
	require.NoError(t, f.store.Save(context.Background(), f.sess))

	rec := httptest.NewRecorder()
	f.rs.Page(rec, f.request(http.MethodGet, "/"), "storefront/home", map[string]interface{}{"Name": "x"})
	assert.Equal(t, "[info:Welcome back.]home x", rec.Body.String())

	rec = httptest.NewRecorder()
	f.rs.Page(rec, f.request(http.MethodGet, "/"), "storefront/home", map[string]interface{}{"Name": "x"})
	assert.Equal(t, "[]home x", rec.Body.String())
}

func TestResponder_Fail(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		target       string
		referer      string
		headers      map[string]string
		err          error
		wantStatus   int
		wantLocation string
		wantBody     string
		wantFlash    string
		wantLoggedIn bool
	}{
		{
			name:         "rejected credentials on a page load go to login",
			method:       http.MethodGet,
			target:       "/orders?page=2",
			err:          domain.Unauthorized("orders.list", ""),
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/login?next=%2Forders%3Fpage%3D2",
			wantFlash:    "Your session has expired. Please sign in again.",
		},
		{
			name:         "rejected credentials on a form post return there after login",
			method:       http.MethodPost,
			target:       "/cart/items",
			referer:      "http://example.com/products/7",
			err:          domain.Unauthorized("cart.add", ""),
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/login?next=%2Fproducts%2F7",
			wantFlash:    "Your session has expired. Please sign in again.",
		},
		{
			name:       "rejected credentials on the login page do not loop",
			method:     http.MethodGet,
			target:     "/login",
			err:        domain.Unauthorized("auth.login", ""),
			wantStatus: http.StatusUnauthorized,
			wantBody:   "401",
		},
		{
			name:         "conflict on a form post flashes and goes back",
			method:       http.MethodPost,
			target:       "/cart/items",
			referer:      "http://example.com/products/7",
			err:          domain.Conflict("cart.add", "Only 2 left in stock."),
			wantStatus:   http.StatusSeeOther,
			wantLocation: "/products/7",
			wantFlash:    "Only 2 left in stock.",
			wantLoggedIn: true,
		},
		{
			name:         "missing page renders the error page",
			method:       http.MethodGet,
			target:       "/products/999",
			err:          domain.NotFound("product.get", "product", "999"),
			wantStatus:   http.StatusNotFound,
			wantBody:     "404 product not found: 999",
			wantLoggedIn: true,
		},
		{
			name:         "unreachable api is a bad gateway",
			method:       http.MethodGet,
			target:       "/products",
			err:          domain.Unavailable(nil, "catalog.list"),
			wantStatus:   http.StatusBadGateway,
			wantLoggedIn: true,
		},
		{
			name:         "internal errors use the fallback",
			method:       http.MethodGet,
			target:       "/coupons",
			err:          domain.Internal(nil, "coupons.list", "decode failed: unexpected token"),
			wantStatus:   http.StatusInternalServerError,
			wantBody:     "500 Could not load coupons.",
			wantLoggedIn: true,
		},
		{
			name:         "fragment requests get a bare error",
			method:       http.MethodGet,
			target:       "/checkout/wallet/status",
			headers:      map[string]string{"HX-Request": "true"},
			err:          domain.Conflict("wallet.status", "Payment window expired."),
			wantStatus:   http.StatusConflict,
			wantBody:     "Payment window expired.",
			wantLoggedIn: true,
		},
		{
			name:         "fragment requests are redirected to login",
			method:       http.MethodGet,
			target:       "/checkout/wallet/status",
			headers:      map[string]string{"HX-Request": "true"},
			err:          domain.Unauthorized("wallet.status", ""),
			wantStatus:   http.StatusNoContent,
			wantFlash:    "Your session has expired. Please sign in again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResponderFixture(t)
			r := f.request(tt.method, tt.target)
			r.Host = "example.com"
			if tt.referer != "" {
				r.Header.Set("Referer", tt.referer)
			}
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			fallback := ""
			if strings.HasPrefix(tt.target, "/coupons") {
				fallback = "Could not load coupons."
			}
			f.rs.Fail(rec, r, tt.err, fallback)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			}
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			assert.NotContains(t, rec.Body.String(), "unexpected token")

			stored := f.stored(t)
			assert.Equal(t, tt.wantLoggedIn, stored.Authenticated())
			if tt.wantFlash != "" {
				require.NotNil(t, stored.Flash)
				assert.Equal(t, tt.wantFlash, stored.Flash.Message)
			}
		})
	}
}

func TestResponder_FailJSON(t *testing.T) {
	f := newResponderFixture(t)
	r := f.request(http.MethodPost, "/checkout/address")
	r.Header.Set("Accept", "application/json")
	err := domain.AddFieldError(nil, "phone_number", "Enter a valid phone number.")

	rec := httptest.NewRecorder()
	f.rs.Fail(rec, r, err, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"phone_number":"Enter a valid phone number."`)
}

func TestResponder_Redirect(t *testing.T) {
	f := newResponderFixture(t)

	rec := httptest.NewRecorder()
	f.rs.Redirect(rec, f.request(http.MethodPost, "/cart/items"), "/cart")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/cart", rec.Header().Get("Location"))

	r := f.request(http.MethodPost, "/cart/items")
	r.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	f.rs.Redirect(rec, r, "/cart")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/cart", rec.Header().Get("HX-Redirect"))
}

func TestResponder_Success(t *testing.T) {
	f := newResponderFixture(t)

	rec := httptest.NewRecorder()
	f.rs.Success(rec, f.request(http.MethodPost, "/wishlist/3"), "Saved to your wishlist.", "/wishlist")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	stored := f.stored(t)
	require.NotNil(t, stored.Flash)
	assert.Equal(t, session.FlashSuccess, stored.Flash.Kind)
}

func TestBack(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		target  string
		referer string
		want    string
	}{
		{"same host", http.MethodPost, "/cart/items", "http://example.com/products/4?size=M", "/products/4?size=M"},
		{"foreign host", http.MethodPost, "/cart/items", "http://evil.test/phish", "/cart"},
		{"no referer", http.MethodPost, "/cart/items", "", "/cart"},
		{"relative referer", http.MethodPost, "/cart/items", "/wishlist", "/wishlist"},
		{"post to itself", http.MethodPost, "/checkout/address", "http://example.com/checkout/address", "/cart"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Host = "example.com"
			if tt.referer != "" {
				r.Header.Set("Referer", tt.referer)
			}
			assert.Equal(t, tt.want, Back(r, "/cart"))
		})
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback string
		want     string
	}{
		{"conflict message", domain.Conflict("cart.add", "Out of stock."), "x", "Out of stock."},
		{"internal hides details", domain.Internal(nil, "op", "boom"), "Try again.", "Try again."},
		{"plain error falls back", context.DeadlineExceeded, "Try again.", "Try again."},
		{
			name: "validation fields in key order",
			err: domain.AddFieldError(
				domain.AddFieldError(nil, "ward_code", "Choose a ward."),
				"full_name", "Enter your name."),
			want: "Enter your name. Choose a ward.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err, tt.fallback))
		})
	}
}
