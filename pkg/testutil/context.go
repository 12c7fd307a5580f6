package testutil

import (
	"context"
	"net/http"
	"time"

	"assent/internal/platform/middleware"
	"assent/pkg/requestcontext"
)

// WithOperator adds an authenticated operator to the request context,
// simulating what RequireAuth does after validating a bearer token.
func WithOperator(req *http.Request, subject, role string) *http.Request {
	ctx := req.Context()
	ctx = context.WithValue(ctx, middleware.ContextKeyOperator, subject)
	ctx = context.WithValue(ctx, middleware.ContextKeyOperatorRole, role)
	return req.WithContext(ctx)
}

// WithRequestID stamps a fixed request id, simulating the RequestID
// middleware.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithFrozenTime pins the request clock to a deterministic instant,
// simulating the RequestTime middleware.
func WithFrozenTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithGPC marks the request as carrying a Global Privacy Control signal:
// the header a browser would send plus the context flag the metadata
// middleware derives from it.
func WithGPC(req *http.Request) *http.Request {
	req.Header.Set("Sec-GPC", "1")
	return req.WithContext(requestcontext.WithGPCSignal(req.Context(), true))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), key, value))
}
