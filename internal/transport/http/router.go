// Package httptransport assembles the service route tree: CORS policy,
// health and metrics endpoints, and the mounted API surfaces.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"assent/internal/platform/config"
	"assent/pkg/platform/httputil"
)

// Registrar attaches a handler's routes to the router. The overlay and
// admin handlers both implement it.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires the full route tree. CORS must allow credentials: the
// overlay rides on the device cookie from embedded operator pages.
func NewRouter(cfg config.ServerConfig, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Sec-GPC"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
