// Package catalog fetches privacy experiences from the consent platform
// and selects the notice a flow should present.
package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"assent/internal/platform/config"
	"assent/internal/platform/metrics"
	dErrors "assent/pkg/domain-errors"
)

// HTTPDoer executes HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads the experience catalog.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient builds a catalog client against the platform API.
func NewClient(cfg config.PlatformConfig, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		logger:     logger,
		metrics:    m,
	}
}

// FetchExperience returns the experience configured for the region. The
// catalog is paged, but configurations pair one experience per region,
// so only the first item of the first page is consulted. An empty page
// means no experience applies there.
func (c *Client) FetchExperience(ctx context.Context, region string) (*Experience, error) {
	params := url.Values{}
	params.Set("show_disabled", "true")
	params.Set("region", region)
	params.Set("systems_applicable", "false")
	params.Set("page", "1")
	params.Set("size", "50")

	fullURL := c.baseURL + "/privacy-experience?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "building experience request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveUpstreamLatency("platform", "fetch_experience", time.Since(start))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNetwork, "experience fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, dErrors.Newf(dErrors.CodeNetwork, "experience fetch returned status %d", resp.StatusCode)
	}

	var page experiencePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDecode, "decoding experience response")
	}
	if len(page.Items) == 0 {
		return nil, dErrors.Newf(dErrors.CodeNotApplicable, "no experience configured for region %q", region)
	}

	exp := page.Items[0]
	c.logger.DebugContext(ctx, "experience fetched",
		"experience_id", exp.ID,
		"region", region,
		"notices", len(exp.PrivacyNotices),
	)
	return &exp, nil
}
