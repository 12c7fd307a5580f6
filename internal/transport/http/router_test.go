package httptransport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assent/internal/platform/config"
)

type registrarFunc func(chi.Router)

func (f registrarFunc) Register(r chi.Router) { f(r) }

func TestRouter_Health(t *testing.T) {
	router := NewRouter(config.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	router := NewRouter(config.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_MountsHandlers(t *testing.T) {
	router := NewRouter(config.ServerConfig{}, registrarFunc(func(r chi.Router) {
		r.Get("/probe", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
	}))

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := NewRouter(config.ServerConfig{
		AllowedOrigins: []string{"https://shop.example"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/consent/flow", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRouter_CORSRejectsUnknownOrigin(t *testing.T) {
	router := NewRouter(config.ServerConfig{
		AllowedOrigins: []string{"https://shop.example"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/consent/flow", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
