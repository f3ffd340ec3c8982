package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/dukerupert/atelier/internal/cookie"
)

const (
	// CSRFTokenLength is the length of the CSRF token in bytes
	CSRFTokenLength = 32

	// CSRFCookieName is the name of the CSRF cookie
	CSRFCookieName = "csrf_token"

	// CSRFHeaderName is the header name for CSRF token
	CSRFHeaderName = "X-CSRF-Token"

	// CSRFFormFieldName is the form field name for CSRF token
	CSRFFormFieldName = "csrf_token"

	csrfContextKey contextKey = "csrf_token"
)

// CSRFConfig configures CSRF protection
type CSRFConfig struct {
	Cookies      *cookie.Config
	CookieName   string
	CookieMaxAge int

	// SkipPaths are path prefixes that skip validation.
	SkipPaths []string
}

// DefaultCSRFConfig returns sensible defaults.
func DefaultCSRFConfig(cookies *cookie.Config) CSRFConfig {
	return CSRFConfig{
		Cookies:      cookies,
		CookieName:   CSRFCookieName,
		CookieMaxAge: 86400,
	}
}

// CSRF implements the double-submit cookie pattern: every unsafe request
// must echo the cookie's token in a form field or header.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	if cfg.Cookies == nil {
		panic("csrf: Cookies is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = CSRFCookieName
	}
	if cfg.CookieMaxAge == 0 {
		cfg.CookieMaxAge = 86400
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skipPath := range cfg.SkipPaths {
				if matchesPathPrefix(r.URL.Path, skipPath) {
					next.ServeHTTP(w, r)
					return
				}
			}

			token := cookie.Get(r, cfg.CookieName)
			if token == "" {
				var err error
				token, err = generateCSRFToken()
				if err != nil {
					respondInternalError(w, r, err)
					return
				}
				cfg.Cookies.SetReadable(w, cfg.CookieName, token, cfg.CookieMaxAge)
			}

			r = r.WithContext(context.WithValue(r.Context(), csrfContextKey, token))

			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			if !validateCSRFToken(token, submittedCSRFToken(r)) {
				respondForbidden(w, r, "Your form expired. Please go back, reload the page and try again.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetCSRFToken retrieves the CSRF token for templates.
func GetCSRFToken(ctx context.Context) string {
	if token, ok := ctx.Value(csrfContextKey).(string); ok {
		return token
	}
	return ""
}

func generateCSRFToken() (string, error) {
	b := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func submittedCSRFToken(r *http.Request) string {
	if token := r.Header.Get(CSRFHeaderName); token != "" {
		return token
	}
	if err := r.ParseForm(); err == nil {
		return r.PostFormValue(CSRFFormFieldName)
	}
	return ""
}

func validateCSRFToken(cookieToken, submittedToken string) bool {
	if cookieToken == "" || submittedToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(submittedToken)) == 1
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions ||
		method == http.MethodTrace
}

// matchesPathPrefix matches on a path boundary, so "/health" does not match "/healthz".
func matchesPathPrefix(requestPath, skipPath string) bool {
	if !strings.HasPrefix(requestPath, skipPath) {
		return false
	}
	if strings.HasSuffix(skipPath, "/") || len(requestPath) == len(skipPath) {
		return true
	}
	return requestPath[len(skipPath)] == '/'
}
