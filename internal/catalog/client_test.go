package catalog

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

	cfg := config.PlatformConfig{BaseURL: server.URL, TimeoutSeconds: 5}
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestFetchExperience(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/privacy-experience", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("show_disabled"))
		assert.Equal(t, "us", q.Get("region"))
		assert.Equal(t, "false", q.Get("systems_applicable"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "50", q.Get("size"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[
			{"id":"exp-1","region":"us","privacy_notices":[
				{"id":"n-1","notice_key":"email_signup","name":"Email signup",
				 "description":"Marketing emails","privacy_notice_history_id":"hist-1",
				 "disabled":false,"consent_mechanism":"opt_in"}
			]},
			{"id":"exp-2","region":"us","privacy_notices":[]}
		]}`))
	})

	exp, err := client.FetchExperience(context.Background(), "us")
	require.NoError(t, err)
	assert.Equal(t, "exp-1", exp.ID)
	require.Len(t, exp.PrivacyNotices, 1)
	assert.Equal(t, "email_signup", exp.PrivacyNotices[0].NoticeKey)
	assert.Equal(t, "hist-1", exp.PrivacyNotices[0].HistoryID)
}

func TestFetchExperienceEmptyPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	})

	_, err := client.FetchExperience(context.Background(), "aq")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotApplicable))
}

func TestFetchExperienceUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchExperience(context.Background(), "us")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNetwork))
}

func TestFetchExperienceMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":`))
	})

	_, err := client.FetchExperience(context.Background(), "us")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeDecode))
}

func TestFetchExperienceSendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"items":[{"id":"exp-1","region":"us","privacy_notices":[]}]}`))
	}))
	defer server.Close()

	cfg := config.PlatformConfig{BaseURL: server.URL, APIKey: "secret", TimeoutSeconds: 5}
	client := NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	_, err := client.FetchExperience(context.Background(), "us")
	require.NoError(t, err)
}

func TestSelectNotice(t *testing.T) {
	tests := []struct {
		name     string
		notices  []Notice
		wantKey  string
		wantShow bool
	}{
		{
			name:     "first matching suffix wins",
			notices:  []Notice{{NoticeKey: "marketing"}, {NoticeKey: "email_signup"}, {NoticeKey: "other_signup"}},
			wantKey:  "email_signup",
			wantShow: true,
		},
		{
			name:     "exact suffix word matches",
			notices:  []Notice{{NoticeKey: "signup"}},
			wantKey:  "signup",
			wantShow: true,
		},
		{
			name:     "no match",
			notices:  []Notice{{NoticeKey: "marketing"}, {NoticeKey: "analytics"}},
			wantShow: false,
		},
		{
			name:     "empty notice list",
			notices:  nil,
			wantShow: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notice, ok := SelectNotice(&Experience{PrivacyNotices: tt.notices})
			assert.Equal(t, tt.wantShow, ok)
			if tt.wantShow {
				assert.Equal(t, tt.wantKey, notice.NoticeKey)
			}
		})
	}
}

func TestSelectNoticeNilExperience(t *testing.T) {
	_, ok := SelectNotice(nil)
	assert.False(t, ok)
}
