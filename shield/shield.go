// Package shield provides the HTTP middleware stack for the gallery
// service: security headers, request body limits, request tracing, and
// per-IP rate limiting.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack(64<<20, nil) {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// DefaultStack returns the standard middleware stack, ordered
// SecurityHeaders, MaxBody, TraceID, RateLimiter. maxBytes caps the
// request body; rules may be nil to disable rate limiting. Health
// checks always bypass the limiter.
func DefaultStack(maxBytes int64, rules map[string]RateLimitConfig) []func(http.Handler) http.Handler {
	rl := NewRateLimiter(rules, "/health")
	return []func(http.Handler) http.Handler{
		SecurityHeaders(DefaultHeaders()),
		MaxBody(maxBytes),
		TraceID,
		rl.Middleware,
	}
}
