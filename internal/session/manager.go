package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/atelier/internal/cookie"
)

// Manager binds a Store to the session cookie.
type Manager struct {
	store   Store
	cookies *cookie.Config
	name    string
	ttl     time.Duration
	logger  *slog.Logger
}

// NewManager creates a manager. name is the cookie name; ttl its lifetime.
func NewManager(store Store, cookies *cookie.Config, name string, ttl time.Duration, logger *slog.Logger) *Manager {
	if name == "" {
		name = cookie.SessionCookieName
	}
	return &Manager{
		store:   store,
		cookies: cookies,
		name:    name,
		ttl:     ttl,
		logger:  logger,
	}
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}

// Load returns the request's session, creating one and setting the cookie
// when the cookie is missing or points at an expired session.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	ctx := r.Context()
	if id := cookie.Get(r, m.name); id != "" {
		s, err := m.store.Get(ctx, id)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		m.logger.Debug("session expired, issuing new one", slog.String("session_id", id))
	}
	return m.create(ctx, w, &Session{Theme: ThemeLight})
}

func (m *Manager) create(ctx context.Context, w http.ResponseWriter, s *Session) (*Session, error) {
	s.ID = uuid.NewString()
	s.CreatedAt = time.Time{}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	m.cookies.SetSession(w, m.name, s.ID, int(m.ttl.Seconds()))
	return s, nil
}

// Update applies fn to the stored session.
func (m *Manager) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	return m.store.Update(ctx, id, fn)
}

// Login stores credentials under a fresh session id so a pre-login id can
// never be reused with the new credentials. Theme and buy-now survive.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, old *Session, access, refresh, username string) (*Session, error) {
	next := &Session{Theme: ThemeLight}
	if old != nil {
		latest, err := m.store.Get(ctx, old.ID)
		if err == nil {
			old = latest
		}
		next.Theme = old.Theme
		next.BuyNow = old.BuyNow
	}
	next.SetTokens(access, refresh, username)

	s, err := m.create(ctx, w, next)
	if err != nil {
		return nil, err
	}
	if old != nil {
		if err := m.store.Delete(ctx, old.ID); err != nil {
			m.logger.Warn("failed to delete pre-login session", slog.String("error", err.Error()))
		}
	}
	return s, nil
}

// Logout forgets credentials, admin status, checkout progress and the buy-now snapshot.
func (m *Manager) Logout(ctx context.Context, id string) error {
	_, err := m.store.Update(ctx, id, func(s *Session) error {
		s.ClearForLogout()
		s.SetFlash(FlashInfo, "You have been signed out.")
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Expire drops stored credentials after the API rejected them.
func (m *Manager) Expire(ctx context.Context, id string) error {
	_, err := m.store.Update(ctx, id, func(s *Session) error {
		s.ClearCredentials()
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Flash queues a message on the stored session.
func (m *Manager) Flash(ctx context.Context, id, kind, message string) {
	_, err := m.store.Update(ctx, id, func(s *Session) error {
		s.SetFlash(kind, message)
		return nil
	})
	if err != nil {
		m.logger.Warn("failed to store flash", slog.String("error", err.Error()))
	}
}

// TokenSource reads the access token from the store on every call, so a
// token cleared by one request is never reused by another.
type TokenSource struct {
	store Store
}

// NewTokenSource creates a TokenSource over store.
func NewTokenSource(store Store) *TokenSource {
	return &TokenSource{store: store}
}

// Token returns the current access token for the session in ctx.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	id := IDFromContext(ctx)
	if id == "" {
		return "", nil
	}
	s, err := t.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.AccessToken, nil
}
