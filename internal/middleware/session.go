package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dukerupert/atelier/internal/api"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/events"
	"github.com/dukerupert/atelier/internal/session"
)

// WithSession loads the visitor's session, creating one on first visit, and
// stores it on the request context.
func WithSession(m *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := m.Load(w, r)
			if err != nil {
				respondWithError(w, r, domain.Unavailable(err, "session.load"))
				return
			}
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
		})
	}
}

// LoginURL is the login page that returns to next afterwards.
func LoginURL(next string) string {
	if next == "" || next == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

// ReturnPath is where to come back after logging in. Form posts return to
// the page they were submitted from.
func ReturnPath(r *http.Request) string {
	if r.Method == http.MethodGet {
		return r.URL.RequestURI()
	}
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path != "" && ref.Host == r.Host {
		return ref.RequestURI()
	}
	return "/"
}

// RequireAuth redirects anonymous visitors to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())
		if s == nil || !s.Authenticated() {
			http.Redirect(w, r, LoginURL(ReturnPath(r)), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminProbe asks the shop API whether the caller is staff.
type AdminProbe interface {
	IsAdmin(ctx context.Context) (bool, error)
}

// RequireAdmin lets staff into the back office. The probe result is cached
// on the session for ttl; the shop API still authorizes every admin call.
func RequireAdmin(probe AdminProbe, m *session.Manager, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			s := session.FromContext(ctx)
			if s == nil || !s.Authenticated() {
				http.Redirect(w, r, LoginURL(ReturnPath(r)), http.StatusSeeOther)
				return
			}

			isAdmin := s.IsAdmin
			if now := time.Now(); !s.AdminKnown(now, ttl) {
				ok, err := probe.IsAdmin(ctx)
				if domain.IsCode(err, domain.EUNAUTHORIZED) {
					if xerr := m.Expire(ctx, s.ID); xerr != nil {
						GetLogger(ctx).Warn("failed to expire session", slog.String("error", xerr.Error()))
					}
					http.Redirect(w, r, LoginURL(ReturnPath(r)), http.StatusSeeOther)
					return
				}
				if err != nil {
					respondWithError(w, r, err)
					return
				}
				isAdmin = ok
				if _, err := m.Update(ctx, s.ID, func(sess *session.Session) error {
					sess.IsAdmin = ok
					sess.AdminCheckedAt = now
					return nil
				}); err != nil {
					GetLogger(ctx).Warn("failed to cache admin probe", slog.String("error", err.Error()))
				}
			}

			if !isAdmin {
				m.Flash(ctx, s.ID, session.FlashError, "You don't have access to the back office.")
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CartSource loads the caller's cart.
type CartSource interface {
	Cart(ctx context.Context) (api.Cart, error)
}

const cartCountContextKey contextKey = "cart_count"

// WithCartCount puts the navigation badge count on the context for signed-in
// visitors. Counts are cached per session and dropped on cart events. A
// failed load shows no badge rather than failing the page.
func WithCartCount(counter *events.CartCounter, carts CartSource) func(http.Handler) http.Handler {
	load := func(ctx context.Context) (int, error) {
		c, err := carts.Cart(ctx)
		if err != nil {
			return 0, err
		}
		return c.Count(), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.FromContext(r.Context())
			if s == nil || !s.Authenticated() || r.Method != http.MethodGet || IsHTMX(r) {
				next.ServeHTTP(w, r)
				return
			}
			n, err := counter.Count(r.Context(), s.ID, load)
			if err != nil {
				GetLogger(r.Context()).Debug("cart badge unavailable", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), cartCountContextKey, n)))
		})
	}
}

// GetCartCount returns the badge count, zero when unknown.
func GetCartCount(ctx context.Context) int {
	n, _ := ctx.Value(cartCountContextKey).(int)
	return n
}
