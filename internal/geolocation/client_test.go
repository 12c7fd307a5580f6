package geolocation

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assent/internal/platform/config"
	dErrors "assent/pkg/domain-errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.GeolocationConfig{URL: server.URL, TimeoutSeconds: 5}
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestResolve(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"location":"en-US","country":"US"}`))
	})

	region, err := client.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "en_us", region.Geography)
	assert.Equal(t, "US", region.Country)
	assert.Equal(t, "us", region.CatalogRegion())
}

func TestResolveMissingCountry(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"location":"en-US"}`))
	})

	_, err := client.Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotApplicable))
}

func TestResolveUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNetwork))
}

func TestResolveMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"location":`))
	})

	_, err := client.Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeDecode))
}

func TestResolveTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	cfg := config.GeolocationConfig{URL: server.URL, TimeoutSeconds: 5}
	client := NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	server.Close()

	_, err := client.Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNetwork))
}

func TestNormalizeGeography(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"en-US", "en_us"},
		{"fr-CA", "fr_ca"},
		{"EN-gb", "en_gb"},
		{"de", "de"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeGeography(tt.location))
		})
	}
}

func TestCatalogRegion(t *testing.T) {
	assert.Equal(t, "us", Region{Country: "US"}.CatalogRegion())
	assert.Equal(t, "fr", Region{Country: "fr"}.CatalogRegion())
	assert.Equal(t, "", Region{}.CatalogRegion())
}
