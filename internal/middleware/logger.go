package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/atelier/internal/session"
)

const loggerContextKey contextKey = "logger"

// WithRequestLogger injects a request-scoped logger carrying the request id
// and, once WithSession has run, the session id and username. Place it
// after RequestID and WithSession.
func WithRequestLogger(baseLogger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestLogger := baseLogger.With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			if requestID := GetRequestID(r.Context()); requestID != "" {
				requestLogger = requestLogger.With(slog.String("request_id", requestID))
			}
			if s := session.FromContext(r.Context()); s != nil {
				requestLogger = requestLogger.With(slog.String("session_id", shortID(s.ID)))
				if s.Username != "" {
					requestLogger = requestLogger.With(slog.String("username", s.Username))
				}
			}

			ctx := context.WithValue(r.Context(), loggerContextKey, requestLogger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger retrieves the request-scoped logger from the context.
// Without one it returns the fallback, or slog.Default().
func GetLogger(ctx context.Context, fallback ...*slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	if len(fallback) > 0 && fallback[0] != nil {
		return fallback[0]
	}
	return slog.Default()
}

// shortID keeps session ids out of logs in full; a prefix is enough to correlate.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
