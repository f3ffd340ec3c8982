// Package cookie provides helpers for the storefront's session cookie.
// All cookies the server sets go through Config so scoping and flags stay consistent.
package cookie

import (
	"net/http"
)

// Config holds cookie configuration.
type Config struct {
	// BaseDomain scopes cookies to a parent domain (e.g., "atelier.vn").
	// Empty means host-only cookies, which is what local development wants.
	BaseDomain string

	// Secure determines whether cookies require HTTPS.
	Secure bool
}

// NewConfig creates a new cookie configuration.
//
// Example:
//
//	cfg := cookie.NewConfig("atelier.vn", true)  // production
//	cfg := cookie.NewConfig("", false)           // development
func NewConfig(baseDomain string, secure bool) *Config {
	return &Config{
		BaseDomain: baseDomain,
		Secure:     secure,
	}
}

func (c *Config) domain() string {
	if c.BaseDomain == "" {
		return ""
	}
	return "." + c.BaseDomain
}

// SetSession sets an HttpOnly, SameSite=Lax session cookie.
// maxAge of zero produces a browser-session cookie.
func (c *Config) SetSession(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   c.domain(),
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetReadable sets a cookie scripts may read, such as the CSRF token that
// forms echo back.
func (c *Config) SetReadable(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   c.domain(),
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession removes a cookie. Domain and path must match the original.
func (c *Config) ClearSession(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Domain:   c.domain(),
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Get retrieves a cookie value from the request.
// Returns empty string if cookie not found.
func Get(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SessionCookieName is the default name of the session cookie.
const SessionCookieName = "atelier_session"
