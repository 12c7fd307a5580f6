package httpserver

import (
	"net/http"
	"time"
)

// New wraps the handler in an http.Server with timeouts suited to the
// short request/response exchanges this service serves. Consent flows
// never stream, so slow-client protection can be aggressive.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
