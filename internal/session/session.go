// Package session keeps per-browser state on the server: credentials,
// theme preference, the buy-now snapshot, the checkout wizard's progress and
// a one-shot flash message. The browser only holds an opaque id cookie.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dukerupert/atelier/internal/pricing"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// ErrConflict is returned when a concurrent update kept winning the race.
var ErrConflict = errors.New("session update conflict")

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// Flash is a message shown once on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// BuyNowSnapshot is the single pending immediate purchase.
type BuyNowSnapshot struct {
	Items     []pricing.LineItem `json:"items"`
	CreatedAt time.Time          `json:"created_at"`
}

// Session is the server-side state for one browser.
type Session struct {
	ID           string          `json:"id"`
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	Username     string          `json:"username,omitempty"`
	Theme        string          `json:"theme,omitempty"`
	BuyNow       *BuyNowSnapshot `json:"buy_now,omitempty"`
	Checkout     json.RawMessage `json:"checkout,omitempty"`
	Flash        *Flash          `json:"flash,omitempty"`

	IsAdmin        bool      `json:"is_admin,omitempty"`
	AdminCheckedAt time.Time `json:"admin_checked_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Authenticated reports whether an access token is held.
func (s *Session) Authenticated() bool {
	return s != nil && s.AccessToken != ""
}

// DarkMode reports whether the dark theme is selected.
func (s *Session) DarkMode() bool {
	return s != nil && s.Theme == ThemeDark
}

// ToggleTheme flips between light and dark.
func (s *Session) ToggleTheme() {
	if s.Theme == ThemeDark {
		s.Theme = ThemeLight
		return
	}
	s.Theme = ThemeDark
}

// SetTokens stores a fresh credential pair and drops the admin probe cache.
func (s *Session) SetTokens(access, refresh, username string) {
	s.AccessToken = access
	s.RefreshToken = refresh
	s.Username = username
	s.IsAdmin = false
	s.AdminCheckedAt = time.Time{}
}

// ClearCredentials forgets tokens and the admin probe result.
func (s *Session) ClearCredentials() {
	s.AccessToken = ""
	s.RefreshToken = ""
	s.Username = ""
	s.IsAdmin = false
	s.AdminCheckedAt = time.Time{}
}

// ClearForLogout forgets everything tied to the account. The theme survives.
func (s *Session) ClearForLogout() {
	s.ClearCredentials()
	s.BuyNow = nil
	s.Checkout = nil
}

// SetFlash queues a message for the next page.
func (s *Session) SetFlash(kind, message string) {
	s.Flash = &Flash{Kind: kind, Message: message}
}

// TakeFlash returns and clears the pending message.
func (s *Session) TakeFlash() *Flash {
	f := s.Flash
	s.Flash = nil
	return f
}

// SetBuyNow replaces the buy-now snapshot.
func (s *Session) SetBuyNow(items []pricing.LineItem, now time.Time) {
	s.BuyNow = &BuyNowSnapshot{Items: items, CreatedAt: now}
}

// ActiveBuyNow returns the snapshot if it is younger than ttl.
func (s *Session) ActiveBuyNow(now time.Time, ttl time.Duration) (*BuyNowSnapshot, bool) {
	if s.BuyNow == nil || len(s.BuyNow.Items) == 0 {
		return nil, false
	}
	if ttl > 0 && now.Sub(s.BuyNow.CreatedAt) > ttl {
		return nil, false
	}
	return s.BuyNow, true
}

// AdminKnown reports whether the admin probe result is still fresh.
func (s *Session) AdminKnown(now time.Time, ttl time.Duration) bool {
	return !s.AdminCheckedAt.IsZero() && now.Sub(s.AdminCheckedAt) < ttl
}

// Store persists sessions.
type Store interface {
	// Get loads a session. Returns ErrNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*Session, error)

	// Save writes a session, refreshing its expiry.
	Save(ctx context.Context, s *Session) error

	// Update applies fn to the latest stored copy atomically and returns the result.
	// If fn returns an error nothing is written.
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)

	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

type contextKey int

const sessionContextKey contextKey = iota

// NewContext returns a context carrying the request's session.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// FromContext returns the request's session, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey).(*Session)
	return s
}

// IDFromContext returns the request's session id, or "".
func IDFromContext(ctx context.Context) string {
	if s := FromContext(ctx); s != nil {
		return s.ID
	}
	return ""
}
