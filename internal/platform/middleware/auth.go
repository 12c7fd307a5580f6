package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/httputil"
)

// JWTValidator defines the interface for validating operator tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	Subject string
	Role    string
}

// Context keys for storing authenticated operator information.
type contextKeyOperator struct{}
type contextKeyOperatorRole struct{}

// Exported for handlers and tests.
var (
	ContextKeyOperator     = contextKeyOperator{}
	ContextKeyOperatorRole = contextKeyOperatorRole{}
)

// GetOperator retrieves the authenticated operator subject from the context.
func GetOperator(ctx context.Context) string {
	operator, ok := ctx.Value(ContextKeyOperator).(string)
	if !ok {
		return ""
	}
	return operator
}

// GetOperatorRole retrieves the authenticated operator role from the context.
func GetOperatorRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyOperatorRole).(string)
	if !ok {
		return ""
	}
	return role
}

// RequireAuth guards operator routes with bearer token validation.
// Handlers behind it can rely on GetOperator returning a non-empty subject.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = context.WithValue(ctx, ContextKeyOperator, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyOperatorRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
