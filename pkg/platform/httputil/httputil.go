// Package httputil centralizes JSON response writing so every handler emits
// the same envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "assent/pkg/domain-errors"
)

// errorResponse is the error envelope every handler returns.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded error into the standard error envelope.
// Internal errors omit the description so store and upstream details never
// reach clients; all other codes surface the coded message, never the
// wrapped cause.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	resp := errorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.ErrorDescription = de.Message
		}
	}

	WriteJSON(w, statusFor(code), resp)
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvalidState:
		return http.StatusConflict
	case dErrors.CodeNotApplicable:
		return http.StatusUnprocessableEntity
	case dErrors.CodeNetwork, dErrors.CodeDecode:
		return http.StatusBadGateway
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
