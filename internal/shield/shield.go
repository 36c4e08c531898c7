// CLAUDE:SUMMARY HTTP middleware for the web console: security headers, body limit, request IDs, HEAD as GET.
// Package shield holds the HTTP middleware stack in front of the web
// console.
//
//	r := chi.NewRouter()
//	for _, mw := range shield.Stack(logger) {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/domconsole/internal/kit"
)

type contextKey string

// LoggerKey is the context key for the per-request logger.
const LoggerKey contextKey = "shield_logger"

// MaxBodyBytes caps request bodies; logged values arrive as JSON or HTML.
const MaxBodyBytes = 1 << 20

// Stack returns the middleware chain, outermost first.
func Stack(logger *slog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(MaxBodyBytes),
		RequestID(logger),
	}
}

// HeaderConfig defines the security headers set on every response.
type HeaderConfig struct {
	CSP                 string
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
}

// DefaultHeaders allows inline styles only; the console page has no script.
func DefaultHeaders() HeaderConfig {
	return HeaderConfig{
		CSP:                 "default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'",
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
	}
}

// SecurityHeaders sets the non-empty headers of cfg.
func SecurityHeaders(cfg HeaderConfig) func(http.Handler) http.Handler {
	headers := map[string]string{
		"Content-Security-Policy": cfg.CSP,
		"X-Frame-Options":         cfg.XFrameOptions,
		"X-Content-Type-Options":  cfg.XContentTypeOptions,
		"Referrer-Policy":         cfg.ReferrerPolicy,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for k, v := range headers {
				if v != "" {
					w.Header().Set(k, v)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MaxBody limits every request body to maxBytes.
func MaxBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID tags each request with a random ID, reusing X-Request-ID
// when the client sent one. The ID goes to the response header, the kit
// context and a per-request logger.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				b := make([]byte, 6)
				rand.Read(b)
				id = hex.EncodeToString(b)
			}
			w.Header().Set("X-Request-ID", id)

			l := logger.With("request_id", id, "method", r.Method, "path", r.URL.Path)
			l.Debug("request")

			ctx := kit.WithRequestID(kit.WithTransport(r.Context(), "http"), id)
			ctx = context.WithValue(ctx, LoggerKey, l)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger returns the per-request logger, or slog.Default().
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// HeadToGet lets GET routes answer HEAD; net/http drops the body.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}
