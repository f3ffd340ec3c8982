package middleware

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client IP, preferring proxy headers.
//
// Note: these headers can be spoofed unless a reverse proxy sets them and
// the app is not reachable directly.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
