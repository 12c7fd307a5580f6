// Package recorder writes the auditable consent trail to the platform:
// served-notice records and preference submissions.
package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"assent/internal/platform/config"
	"assent/internal/platform/metrics"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/domain"
)

// HTTPDoer executes HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client records served notices and preference submissions.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient builds a recorder against the platform API.
func NewClient(cfg config.PlatformConfig, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		logger:     logger,
		metrics:    m,
	}
}

// RecordServed tells the platform the notice was presented and returns
// the served reference later submissions must cite. An empty response
// array is a failure: without a reference no preference can be linked
// to this presentation.
func (c *Client) RecordServed(ctx context.Context, event ServedEvent) (string, error) {
	body := servedRequest{
		AcknowledgeMode:         false,
		BrowserIdentity:         browserIdentity{FidesUserDeviceID: event.DeviceID.String()},
		PrivacyExperienceID:     event.ExperienceID,
		PrivacyNoticeHistoryIDs: []string{event.NoticeHistoryID},
		ServingComponent:        domain.ServingComponentOverlay.String(),
		UserGeography:           event.UserGeography,
	}

	raw, err := c.patch(ctx, "/notices-served", "record_served", body)
	if err != nil {
		return "", err
	}

	var records []servedRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeDecode, "decoding served response")
	}
	if len(records) == 0 {
		return "", dErrors.New(dErrors.CodeDecode, "served response carries no record")
	}

	c.logger.DebugContext(ctx, "notice served recorded",
		"served_ref", records[0].ServedNoticeHistoryID,
		"notice_history_id", event.NoticeHistoryID,
	)
	return records[0].ServedNoticeHistoryID, nil
}

// SubmitPreference writes the user's decision, citing the served
// reference captured when the notice was presented.
func (c *Client) SubmitPreference(ctx context.Context, sub Submission) error {
	body := preferenceRequest{
		BrowserIdentity: browserIdentity{FidesUserDeviceID: sub.DeviceID.String()},
		Preferences: []preferenceEntry{{
			PrivacyNoticeHistoryID: sub.NoticeHistoryID,
			Preference:             sub.Preference(),
			ServedNoticeHistoryID:  sub.ServedRef,
		}},
		PrivacyExperienceID: sub.ExperienceID,
		UserGeography:       sub.UserGeography,
		Method:              sub.Method.String(),
	}

	if _, err := c.patch(ctx, "/privacy-preferences", "submit_preference", body); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "preference submitted",
		"device_id", sub.DeviceID.String(),
		"preference", sub.Preference(),
		"method", sub.Method.String(),
	)
	return nil
}

func (c *Client) patch(ctx context.Context, path, operation string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "marshaling request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveUpstreamLatency("platform", operation, time.Since(start))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNetwork, operation+" failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, dErrors.Newf(dErrors.CodeNetwork, "%s returned status %d", operation, resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNetwork, "reading response body")
	}
	return buf.Bytes(), nil
}
