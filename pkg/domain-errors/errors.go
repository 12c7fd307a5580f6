// Package domainerrors defines coded errors shared by services, clients and
// HTTP handlers. Services classify failures with a stable Code; the HTTP
// boundary translates codes into status lines without inspecting causes.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and for the HTTP boundary.
type Code string

const (
	// CodeNetwork marks transport-level failures talking to an upstream:
	// connection refused, DNS, TLS, or a non-2xx upstream status.
	CodeNetwork Code = "network_error"

	// CodeDecode marks an upstream response that arrived but could not be
	// parsed into the expected shape.
	CodeDecode Code = "decode_error"

	// CodeNotApplicable marks a flow that cannot proceed because the
	// upstream catalog has nothing applicable, as opposed to a failure.
	CodeNotApplicable Code = "not_applicable"

	// CodeInvalidState marks an operation attempted while the flow is not
	// in a state that permits it.
	CodeInvalidState Code = "invalid_state"

	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_error"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal_error"
)

// Error carries a stable code alongside a human-readable message and an
// optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
// Returns nil when err is nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// Is reports whether the most recent classification in err's chain carries
// the given code. Re-wrapping with a new code deliberately supersedes the
// old one.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the outermost code from err's chain. Uncoded errors
// default to CodeInternal so nothing leaks unclassified.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
