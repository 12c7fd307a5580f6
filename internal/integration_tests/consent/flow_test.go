// Package consent exercises the assembled service end to end: real router,
// real handlers, real stores, with only the upstream consent platform
// replaced by a local stub.
package consent

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assent/internal/admin"
	"assent/internal/audit"
	"assent/internal/catalog"
	"assent/internal/geolocation"
	identity "assent/internal/identity/models"
	"assent/internal/overlay"
	"assent/internal/platform/config"
	"assent/internal/recorder"
	"assent/internal/session"
	httptransport "assent/internal/transport/http"
	"assent/pkg/testutil"
)

const (
	cookieName    = "assent_consent"
	allowedOrigin = "https://shop.example"
)

// platformSubmission is one preference write as the stub platform saw it.
type platformSubmission struct {
	DeviceID        string
	ExperienceID    string
	NoticeHistoryID string
	ServedRef       string
	Preference      string
	UserGeography   string
	Method          string
}

// stubPlatform plays the consent platform: geolocation, the experience
// catalog, served-notice records and preference submissions.
type stubPlatform struct {
	server *httptest.Server

	mu            sync.Mutex
	geoDown       bool
	emptyCatalog  bool
	rejectSubmits bool
	servedRefs    []string
	submissions   []platformSubmission
}

func newStubPlatform(t *testing.T) *stubPlatform {
	t.Helper()
	p := &stubPlatform{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /location", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		down := p.geoDown
		p.mu.Unlock()
		if down {
			http.Error(w, "geolocation unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"location":"en-US","country":"US"}`))
	})
	mux.HandleFunc("GET /privacy-experience", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		empty := p.emptyCatalog
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if empty {
			w.Write([]byte(`{"items":[]}`))
			return
		}
		fmt.Fprintf(w, `{
			"items": [{
				"id": "exp-integration",
				"region": %q,
				"privacy_notices": [
					{
						"id": "notice-marketing",
						"notice_key": "marketing",
						"name": "Marketing",
						"privacy_notice_history_id": "hist-marketing-1"
					},
					{
						"id": "notice-signup",
						"notice_key": "advertising_and_email_signup",
						"name": "Email signup",
						"description": "Advertising emails and newsletter signup",
						"privacy_notice_history_id": "hist-signup-1"
					}
				]
			}]
		}`, r.URL.Query().Get("region"))
	})
	mux.HandleFunc("PATCH /notices-served", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		ref := fmt.Sprintf("served-ref-%d", len(p.servedRefs)+1)
		p.servedRefs = append(p.servedRefs, ref)
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[{"served_notice_history_id":%q}]`, ref)
	})
	mux.HandleFunc("PATCH /privacy-preferences", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		reject := p.rejectSubmits
		p.mu.Unlock()
		if reject {
			http.Error(w, "platform rejected the write", http.StatusBadGateway)
			return
		}

		var body struct {
			BrowserIdentity struct {
				FidesUserDeviceID string `json:"fides_user_device_id"`
			} `json:"browser_identity"`
			Preferences []struct {
				PrivacyNoticeHistoryID string `json:"privacy_notice_history_id"`
				Preference             string `json:"preference"`
				ServedNoticeHistoryID  string `json:"served_notice_history_id"`
			} `json:"preferences"`
			PrivacyExperienceID string `json:"privacy_experience_id"`
			UserGeography       string `json:"user_geography"`
			Method              string `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Preferences, 1)

		p.mu.Lock()
		p.submissions = append(p.submissions, platformSubmission{
			DeviceID:        body.BrowserIdentity.FidesUserDeviceID,
			ExperienceID:    body.PrivacyExperienceID,
			NoticeHistoryID: body.Preferences[0].PrivacyNoticeHistoryID,
			ServedRef:       body.Preferences[0].ServedNoticeHistoryID,
			Preference:      body.Preferences[0].Preference,
			UserGeography:   body.UserGeography,
			Method:          body.Method,
		})
		p.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *stubPlatform) setGeoDown(v bool) {
	p.mu.Lock()
	p.geoDown = v
	p.mu.Unlock()
}

func (p *stubPlatform) setEmptyCatalog(v bool) {
	p.mu.Lock()
	p.emptyCatalog = v
	p.mu.Unlock()
}

func (p *stubPlatform) setRejectSubmits(v bool) {
	p.mu.Lock()
	p.rejectSubmits = v
	p.mu.Unlock()
}

func (p *stubPlatform) allSubmissions() []platformSubmission {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]platformSubmission, len(p.submissions))
	copy(out, p.submissions)
	return out
}

func (p *stubPlatform) allServedRefs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.servedRefs))
	copy(out, p.servedRefs)
	return out
}

type env struct {
	router http.Handler
	tokens *admin.TokenService
}

// newEnv assembles the full service around the stub platform: cookie
// identity backend, in-memory audit trail, synchronous publisher.
func newEnv(t *testing.T, platform *stubPlatform) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	trail := audit.NewMemoryStore()
	publisher := audit.NewPublisher(trail, logger, nil)
	t.Cleanup(publisher.Close)

	flows := session.NewRegistry(time.Minute, time.Hour, logger, nil)
	t.Cleanup(flows.Close)

	platformCfg := config.PlatformConfig{BaseURL: platform.server.URL, TimeoutSeconds: 5}
	geoCfg := config.GeolocationConfig{URL: platform.server.URL + "/location", TimeoutSeconds: 5}
	identityCfg := config.IdentityConfig{Backend: "cookie", CookieName: cookieName, TTLDays: 365}

	regions := geolocation.NewClient(geoCfg, logger, nil)
	notices := catalog.NewClient(platformCfg, logger, nil)
	preferences := recorder.NewClient(platformCfg, logger, nil)

	overlayHandler := overlay.New(flows, regions, notices, preferences, publisher, nil, identityCfg, logger, nil)
	tokens := admin.NewTokenService("integration-signing-key")
	adminHandler := admin.New(trail, tokens, logger, nil)

	router := httptransport.NewRouter(
		config.ServerConfig{AllowedOrigins: []string{allowedOrigin}},
		overlayHandler,
		adminHandler,
	)
	return &env{router: router, tokens: tokens}
}

type flowPayload struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Notice    *struct {
		Key         string `json:"key"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"notice"`
	CanSubmit  bool `json:"can_submit"`
	GPCApplied bool `json:"gpc_applied"`
}

type submitPayload struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Consent   bool   `json:"consent"`
	Method    string `json:"method"`
}

func (e *env) openFlow(t *testing.T, mutate ...func(*http.Request)) (*flowPayload, *httptest.ResponseRecorder) {
	t.Helper()
	req := testutil.NewRequest(t, http.MethodPost, "/consent/flow")
	for _, fn := range mutate {
		fn(req)
	}
	rr := testutil.DoRequest(e.router, req)
	require.Equal(t, http.StatusOK, rr.Code, "open flow failed: %s", rr.Body.String())
	return testutil.UnmarshalResponse[flowPayload](t, rr), rr
}

func (e *env) submit(t *testing.T, sessionID string, consent bool, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost,
		"/consent/flow/"+sessionID+"/preference",
		map[string]bool{"consent": consent},
	)
	for _, fn := range mutate {
		fn(req)
	}
	return testutil.DoRequest(e.router, req)
}

func (e *env) adminGet(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := e.tokens.GenerateOperatorToken("ops-reviewer", "auditor", time.Hour)
	require.NoError(t, err)
	req := testutil.NewRequest(t, http.MethodGet, path)
	req.Header.Set("Authorization", "Bearer "+token)
	return testutil.DoRequest(e.router, req)
}

type trailPayload struct {
	Items []struct {
		Category  string `json:"category"`
		DeviceID  string `json:"device_id"`
		Action    string `json:"action"`
		Region    string `json:"region"`
		Geography string `json:"geography"`
		ServedRef string `json:"served_ref"`
		Reason    string `json:"reason"`
	} `json:"items"`
	Count int `json:"count"`
}

func deviceFromCookie(t *testing.T, rr *httptest.ResponseRecorder) (*identity.Record, *http.Cookie) {
	t.Helper()
	c := testutil.ResponseCookie(rr, cookieName)
	require.NotNil(t, c, "expected a device identity cookie")
	rec, err := identity.Decode(c.Value)
	require.NoError(t, err)
	return rec, c
}

func TestConsentFlow_OpenAndSubmit(t *testing.T) {
	platform := newStubPlatform(t)
	e := newEnv(t, platform)

	flow, rr := e.openFlow(t)
	assert.Equal(t, "served", flow.State)
	assert.True(t, flow.CanSubmit)
	require.NotNil(t, flow.Notice)
	assert.Equal(t, "advertising_and_email_signup", flow.Notice.Key)
	assert.Equal(t, "Email signup", flow.Notice.Name)

	rec, _ := deviceFromCookie(t, rr)
	deviceID := rec.Identity.DeviceID.String()
	require.Len(t, platform.allServedRefs(), 1)

	subRR := e.submit(t, flow.SessionID, true)
	testutil.AssertStatus(t, subRR, http.StatusOK)
	result := testutil.UnmarshalResponse[submitPayload](t, subRR)
	assert.Equal(t, "submitted", result.State)
	assert.True(t, result.Consent)
	assert.Equal(t, "button", result.Method)

	subs := platform.allSubmissions()
	require.Len(t, subs, 1)
	assert.Equal(t, deviceID, subs[0].DeviceID)
	assert.Equal(t, "exp-integration", subs[0].ExperienceID)
	assert.Equal(t, "hist-signup-1", subs[0].NoticeHistoryID)
	assert.Equal(t, platform.allServedRefs()[0], subs[0].ServedRef)
	assert.Equal(t, "opt_in", subs[0].Preference)
	assert.Equal(t, "us", subs[0].UserGeography)
	assert.Equal(t, "button", subs[0].Method)

	// The submit response refreshes the device record with the decision.
	refreshed, _ := deviceFromCookie(t, subRR)
	assert.True(t, refreshed.Consent.AdvertisingAndEmailSignup)
	assert.Equal(t, rec.Identity.DeviceID, refreshed.Identity.DeviceID)

	trailRR := e.adminGet(t, "/admin/audit?device_id="+deviceID)
	testutil.AssertStatus(t, trailRR, http.StatusOK)
	trail := testutil.UnmarshalResponse[trailPayload](t, trailRR)
	require.Equal(t, 3, trail.Count)
	assert.Equal(t, "preference_submitted", trail.Items[0].Action)
	assert.Equal(t, "notice_served", trail.Items[1].Action)
	assert.Equal(t, "device_identity_created", trail.Items[2].Action)
	assert.Equal(t, "us", trail.Items[1].Region)
	assert.Equal(t, "en_us", trail.Items[1].Geography)
	assert.Equal(t, platform.allServedRefs()[0], trail.Items[1].ServedRef)
}

func TestConsentFlow_ReturningDeviceKeepsIdentity(t *testing.T) {
	platform := newStubPlatform(t)
	e := newEnv(t, platform)

	_, firstRR := e.openFlow(t)
	rec, cookie := deviceFromCookie(t, firstRR)

	_, secondRR := e.openFlow(t, func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: cookie.Value})
	})

	// The record did not change, so the second open owes no cookie.
	assert.Nil(t, testutil.ResponseCookie(secondRR, cookieName))

	trailRR := e.adminGet(t, "/admin/audit?device_id="+rec.Identity.DeviceID.String())
	trail := testutil.UnmarshalResponse[trailPayload](t, trailRR)
	minted := 0
	served := 0
	for _, item := range trail.Items {
		switch item.Action {
		case "device_identity_created":
			minted++
		case "notice_served":
			served++
		}
	}
	assert.Equal(t, 1, minted, "identity is minted once per device")
	assert.Equal(t, 2, served, "each open serves the notice")
}

func TestConsentFlow_GPCDecline(t *testing.T) {
	platform := newStubPlatform(t)
	e := newEnv(t, platform)

	flow, _ := e.openFlow(t, func(req *http.Request) {
		req.Header.Set("Sec-GPC", "1")
	})
	assert.True(t, flow.GPCApplied)

	subRR := e.submit(t, flow.SessionID, false)
	testutil.AssertStatus(t, subRR, http.StatusOK)
	result := testutil.UnmarshalResponse[submitPayload](t, subRR)
	assert.False(t, result.Consent)
	assert.Equal(t, "gpc", result.Method)

	subs := platform.allSubmissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "opt_out", subs[0].Preference)
	assert.Equal(t, "gpc", subs[0].Method)
}

func TestConsentFlow_NoExperienceConfigured(t *testing.T) {
	platform := newStubPlatform(t)
	platform.setEmptyCatalog(true)
	e := newEnv(t, platform)

	flow, _ := e.openFlow(t)
	assert.Equal(t, "region_resolved", flow.State)
	assert.False(t, flow.CanSubmit)
	assert.Nil(t, flow.Notice)

	subRR := e.submit(t, flow.SessionID, true)
	testutil.AssertErrorCode(t, subRR, http.StatusConflict, "invalid_state")
}

func TestConsentFlow_GeolocationOutage(t *testing.T) {
	platform := newStubPlatform(t)
	platform.setGeoDown(true)
	e := newEnv(t, platform)

	flow, rr := e.openFlow(t)
	assert.Equal(t, "identity_ready", flow.State)
	assert.False(t, flow.CanSubmit)

	// Identity still resolves; only the chain beyond it halted.
	rec, _ := deviceFromCookie(t, rr)

	recentRR := e.adminGet(t, "/admin/audit/recent")
	testutil.AssertStatus(t, recentRR, http.StatusOK)
	recent := testutil.UnmarshalResponse[trailPayload](t, recentRR)
	require.NotEmpty(t, recent.Items)
	assert.Equal(t, "reconciliation_halted", recent.Items[0].Action)
	assert.Equal(t, rec.Identity.DeviceID.String(), recent.Items[0].DeviceID)
	assert.NotEmpty(t, recent.Items[0].Reason)
}

func TestConsentFlow_UpstreamRejectionIsRetryable(t *testing.T) {
	platform := newStubPlatform(t)
	e := newEnv(t, platform)

	flow, _ := e.openFlow(t)

	platform.setRejectSubmits(true)
	failedRR := e.submit(t, flow.SessionID, true)
	testutil.AssertErrorCode(t, failedRR, http.StatusBadGateway, "network_error")

	platform.setRejectSubmits(false)
	retryRR := e.submit(t, flow.SessionID, true)
	testutil.AssertStatus(t, retryRR, http.StatusOK)

	// The retry reuses the served reference instead of re-serving.
	assert.Len(t, platform.allServedRefs(), 1)
	subs := platform.allSubmissions()
	require.Len(t, subs, 1)
	assert.Equal(t, platform.allServedRefs()[0], subs[0].ServedRef)
}

func TestAdminAudit_RejectsAnonymousCallers(t *testing.T) {
	platform := newStubPlatform(t)
	e := newEnv(t, platform)

	req := testutil.NewRequest(t, http.MethodGet, "/admin/audit/recent")
	rr := testutil.DoRequest(e.router, req)
	testutil.AssertErrorCode(t, rr, http.StatusUnauthorized, "unauthorized")

	req = testutil.NewRequest(t, http.MethodGet, "/admin/audit/recent")
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr = testutil.DoRequest(e.router, req)
	testutil.AssertErrorCode(t, rr, http.StatusUnauthorized, "unauthorized")
}
