package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/cookie"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/events"
	"github.com/dukerupert/atelier/internal/session"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "lb-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "lb-123", seen)

	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Len(t, seen, 36, "oversized inbound ids are replaced")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.9"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:1234", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.7:5555", "192.0.2.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders(DefaultSecurityHeadersConfig(true))(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))

	w = httptest.NewRecorder()
	SecurityHeaders(DefaultSecurityHeadersConfig(false))(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 2, IdleTTL: time.Minute})
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst exhausted")
	assert.True(t, rl.Allow("b"), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"), "refilled")

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, rl.sweep())
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 0.2, BurstSize: 1})
	defer rl.Stop()
	h := rl.Middleware(ok)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySize(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 100))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, _ = r.Context().Deadline()
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, deadline.IsZero())
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/":                          "/",
		"/products/42":               "/products/:id",
		"/orders/7/cancel":           "/orders/:id/cancel",
		"/admin/products/9/edit":     "/admin/products/:id/edit",
		"/admin/stock/variants/3/in": "/admin/stock/variants/:id/in",
		"/static/css/site.css":       "/static/*",
		"/checkout/address":          "/checkout/address",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizePath(in), in)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.Middleware(ok).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/5", nil))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `test_http_requests_total{method="GET",path="/products/:id",status="200"} 1`)
}

func TestCSRF(t *testing.T) {
	h := CSRF(DefaultCSRFConfig(cookie.NewConfig("", false)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, GetCSRFToken(r.Context()))
	}))

	// A first visit issues a token.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	token := cookies[0].Value
	assert.Equal(t, token, w.Body.String())

	post := func(value string) int {
		form := url.Values{CSRFFormFieldName: {value}}
		r := httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		r.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, post(token))
	assert.Equal(t, http.StatusForbidden, post("forged"))
	assert.Equal(t, http.StatusForbidden, post(""))
}

func TestMatchesPathPrefix(t *testing.T) {
	assert.True(t, matchesPathPrefix("/health", "/health"))
	assert.True(t, matchesPathPrefix("/health/live", "/health"))
	assert.False(t, matchesPathPrefix("/healthz", "/health"))
	assert.True(t, matchesPathPrefix("/static/x", "/static/"))
}

// --- session-aware middleware ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(t *testing.T) (*session.Manager, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore(time.Hour)
	return session.NewManager(store, cookie.NewConfig("", false), cookie.SessionCookieName, time.Hour, discardLogger()), store
}

// withStored runs h with session s already in the store and on the context.
func withStored(t *testing.T, store session.Store, s *session.Session, h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	require.NoError(t, store.Save(r.Context(), s))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
	return w
}

func TestWithSession_CreatesSession(t *testing.T) {
	m, _ := newManager(t)
	var got *session.Session
	h := WithSession(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = session.FromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, got.ID, w.Result().Cookies()[0].Value)
}

func TestRequireAuth(t *testing.T) {
	_, store := newManager(t)
	h := RequireAuth(ok)

	r := httptest.NewRequest(http.MethodGet, "/orders?page=2", nil)
	w := withStored(t, store, &session.Session{ID: "anon"}, h, r)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?next=%2Forders%3Fpage%3D2", w.Header().Get("Location"))

	w = withStored(t, store, &session.Session{ID: "user", AccessToken: "tok"}, h, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth_PostReturnsToReferer(t *testing.T) {
	_, store := newManager(t)
	r := httptest.NewRequest(http.MethodPost, "/wishlist/3", nil)
	r.Header.Set("Referer", "http://example.com/products/3")

	w := withStored(t, store, &session.Session{ID: "anon"}, RequireAuth(ok), r)
	assert.Equal(t, "/login?next=%2Fproducts%2F3", w.Header().Get("Location"))
}

type probeFunc func(ctx context.Context) (bool, error)

func (f probeFunc) IsAdmin(ctx context.Context) (bool, error) { return f(ctx) }

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		probe    probeFunc
		wantCode int
		wantLoc  string
	}{
		{"staff", func(context.Context) (bool, error) { return true, nil }, http.StatusOK, ""},
		{"customer", func(context.Context) (bool, error) { return false, nil }, http.StatusSeeOther, "/"},
		{"token rejected", func(context.Context) (bool, error) {
			return false, domain.Unauthorized("admin.check", "expired")
		}, http.StatusSeeOther, "/login?next=%2Fadmin"},
		{"api down", func(context.Context) (bool, error) {
			return false, domain.Unavailable(errors.New("dial"), "admin.check")
		}, http.StatusServiceUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store := newManager(t)
			h := RequireAdmin(tt.probe, m, 5*time.Minute)(ok)

			r := httptest.NewRequest(http.MethodGet, "/admin", nil)
			w := withStored(t, store, &session.Session{ID: "s", AccessToken: "tok"}, h, r)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, w.Header().Get("Location"))
			}
		})
	}
}

func TestRequireAdmin_CachesProbe(t *testing.T) {
	m, store := newManager(t)
	calls := 0
	h := RequireAdmin(probeFunc(func(context.Context) (bool, error) {
		calls++
		return true, nil
	}), m, 5*time.Minute)(ok)

	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	withStored(t, store, &session.Session{ID: "s", AccessToken: "tok"}, h, r)
	require.Equal(t, 1, calls)

	fresh, err := store.Get(context.Background(), "s")
	require.NoError(t, err)
	assert.True(t, fresh.IsAdmin)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), fresh)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, calls)
}

type cartFunc func(ctx context.Context) (api.Cart, error)

func (f cartFunc) Cart(ctx context.Context) (api.Cart, error) { return f(ctx) }

func TestWithCartCount(t *testing.T) {
	bus := events.NewLocalBus()
	counter, err := events.NewCartCounter(bus)
	require.NoError(t, err)
	defer counter.Close()

	loads := 0
	carts := cartFunc(func(context.Context) (api.Cart, error) {
		loads++
		return api.Cart{Items: []api.CartItem{{Quantity: 2}, {Quantity: 1}}}, nil
	})

	var got int
	h := WithCartCount(counter, carts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetCartCount(r.Context())
	}))

	s := &session.Session{ID: "s", AccessToken: "tok"}
	serve := func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		h.ServeHTTP(httptest.NewRecorder(), r.WithContext(session.NewContext(r.Context(), s)))
	}

	serve()
	serve()
	assert.Equal(t, 3, got)
	assert.Equal(t, 1, loads)

	require.NoError(t, bus.Publish(context.Background(), events.CartChanged("s")))
	serve()
	assert.Equal(t, 2, loads)

	anon := httptest.NewRequest(http.MethodGet, "/", nil)
	got = -1
	h.ServeHTTP(httptest.NewRecorder(), anon.WithContext(session.NewContext(anon.Context(), &session.Session{ID: "x"})))
	assert.Equal(t, 0, got)
}
