// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// This package defines context keys and getter/setter functions for values
// that are typically set by middleware but consumed by services. By keeping
// this package free of net/http dependencies, services can import only what
// they need without pulling in HTTP-related code.
//
// Usage in services (read values):
//
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//	ctx = requestcontext.WithClientMetadata(ctx, ip, userAgent)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithDeviceID(ctx, deviceID)
package requestcontext

import (
	"context"
	"time"

	"assent/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	deviceIDKey    struct{}
	flowIDKey      struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	gpcSignalKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyDeviceID    = deviceIDKey{}
	ContextKeyFlowID      = flowIDKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyGPCSignal   = gpcSignalKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Device context
// -----------------------------------------------------------------------------

// DeviceID retrieves the device identifier from the context.
// Returns the zero value if not set.
func DeviceID(ctx context.Context) domain.DeviceID {
	if deviceID, ok := ctx.Value(ContextKeyDeviceID).(domain.DeviceID); ok {
		return deviceID
	}
	return domain.DeviceID{}
}

// WithDeviceID injects a device identifier into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithDeviceID(ctx context.Context, deviceID domain.DeviceID) context.Context {
	return context.WithValue(ctx, ContextKeyDeviceID, deviceID)
}

// FlowID retrieves the open flow identifier from the context.
// Returns the zero value if not set.
func FlowID(ctx context.Context) domain.FlowID {
	if flowID, ok := ctx.Value(ContextKeyFlowID).(domain.FlowID); ok {
		return flowID
	}
	return domain.FlowID{}
}

// WithFlowID injects a flow identifier into a context.
func WithFlowID(ctx context.Context, flowID domain.FlowID) context.Context {
	return context.WithValue(ctx, ContextKeyFlowID, flowID)
}

// -----------------------------------------------------------------------------
// Client metadata (IP, User-Agent, GPC)
// -----------------------------------------------------------------------------

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

// GPCSignal reports whether the request carried a Global Privacy Control
// header. Absent means false; this system treats the signal as a hint, not
// an auto-applied preference.
func GPCSignal(ctx context.Context) bool {
	if gpc, ok := ctx.Value(ContextKeyGPCSignal).(bool); ok {
		return gpc
	}
	return false
}

// WithGPCSignal injects the Global Privacy Control flag into a context.
func WithGPCSignal(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, ContextKeyGPCSignal, enabled)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers
// and tests). Timestamps written within one request should all come from
// here so a single request never spans two wall-clock values.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
