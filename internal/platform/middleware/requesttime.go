package middleware

import (
	"net/http"
	"time"

	"assent/pkg/requestcontext"
)

// RequestTime captures the current time at the start of the request and
// stores it in the context. Every timestamp written while handling the
// request (record updates, audit events, session bookkeeping) reads the same
// "now", so one request never spans two wall-clock values.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
