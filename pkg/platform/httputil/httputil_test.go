package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "assent/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("description never includes wrapped cause", func(t *testing.T) {
		w := httptest.NewRecorder()
		cause := errors.New("dial tcp 10.0.0.1:443: connection refused")
		WriteError(w, dErrors.Wrap(cause, dErrors.CodeNetwork, "fetch experience"))

		if w.Code != http.StatusBadGateway {
			t.Fatalf("expected status %d, got %d", http.StatusBadGateway, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "network_error" {
			t.Fatalf("expected error code network_error, got %q", body["error"])
		}
		if body["error_description"] != "fetch experience" {
			t.Fatalf("expected coded message only, got %q", body["error_description"])
		}
	})

	t.Run("uncoded error maps to internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("surprise"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})
}

func TestStatusMapping(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeValidation:    http.StatusBadRequest,
		dErrors.CodeUnauthorized:  http.StatusUnauthorized,
		dErrors.CodeForbidden:     http.StatusForbidden,
		dErrors.CodeNotFound:      http.StatusNotFound,
		dErrors.CodeConflict:      http.StatusConflict,
		dErrors.CodeInvalidState:  http.StatusConflict,
		dErrors.CodeNotApplicable: http.StatusUnprocessableEntity,
		dErrors.CodeDecode:        http.StatusBadGateway,
		dErrors.CodeTimeout:       http.StatusGatewayTimeout,
	}

	for code, want := range cases {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%s) = %d, want %d", code, got, want)
		}
	}
}
