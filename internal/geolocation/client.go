// Package geolocation resolves the device's region through the
// platform's location lookup endpoint. One lookup per reconciliation
// run; the result decides which notice catalog region applies.
package geolocation

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"assent/internal/platform/config"
	"assent/internal/platform/metrics"
	dErrors "assent/pkg/domain-errors"
)

// HTTPDoer executes HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client looks up the caller's region.
type Client struct {
	endpoint   string
	httpClient HTTPDoer
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient builds a region resolver against the configured endpoint.
func NewClient(cfg config.GeolocationConfig, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		endpoint:   cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		logger:     logger,
		metrics:    m,
	}
}

type locationResponse struct {
	Location string `json:"location"`
	Country  string `json:"country"`
}

// Resolve performs the location lookup and normalizes the result.
// A response without a country resolves to not_applicable: there is no
// catalog region to query, so the flow ends without a notice.
func (c *Client) Resolve(ctx context.Context) (Region, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return Region{}, dErrors.Wrap(err, dErrors.CodeInternal, "building geolocation request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveUpstreamLatency("geolocation", "resolve", time.Since(start))
	if err != nil {
		return Region{}, dErrors.Wrap(err, dErrors.CodeNetwork, "geolocation lookup failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Region{}, dErrors.Newf(dErrors.CodeNetwork, "geolocation lookup returned status %d", resp.StatusCode)
	}

	var payload locationResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Region{}, dErrors.Wrap(err, dErrors.CodeDecode, "decoding geolocation response")
	}
	if payload.Country == "" {
		return Region{}, dErrors.New(dErrors.CodeNotApplicable, "geolocation response carries no country")
	}

	region := Region{
		Geography: normalizeGeography(payload.Location),
		Country:   payload.Country,
	}
	c.logger.DebugContext(ctx, "region resolved",
		"geography", region.Geography,
		"country", region.Country,
	)
	return region, nil
}
