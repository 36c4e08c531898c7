// CLAUDE:SUMMARY Transport-agnostic endpoint type with composable middleware, shared by the HTTP and MCP surfaces.
// Package kit holds the endpoint plumbing shared by the web console's HTTP
// routes and its MCP tools: a transport-agnostic Endpoint, middleware
// composition and request-scoped context values.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint handles one decoded request.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first one is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs each call with its transport, duration and error.
func Logging(logger *slog.Logger, name string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"endpoint", name,
				"transport", GetTransport(ctx),
				"duration", time.Since(start),
			}
			if id := GetRequestID(ctx); id != "" {
				attrs = append(attrs, "request_id", id)
			}
			if err != nil {
				logger.WarnContext(ctx, "kit: endpoint failed", append(attrs, "error", err)...)
			} else {
				logger.DebugContext(ctx, "kit: endpoint", attrs...)
			}
			return resp, err
		}
	}
}
