package domain

import dErrors "assent/pkg/domain-errors"

// ConsentMethod is a domain value that records how a preference was captured.
// Invariant: the value must be one of the supported capture methods.
type ConsentMethod string

// Supported consent capture methods.
const (
	// ConsentMethodButton marks an explicit user action in the overlay.
	ConsentMethodButton ConsentMethod = "button"
	// ConsentMethodGPC marks a preference applied from a Global Privacy
	// Control signal rather than a click.
	ConsentMethodGPC ConsentMethod = "gpc"
)

// validConsentMethods is the single source of truth for valid capture methods.
var validConsentMethods = map[ConsentMethod]bool{
	ConsentMethodButton: true,
	ConsentMethodGPC:    true,
}

// MethodFor returns the capture method recorded for a decision. A decline
// made while a Global Privacy Control signal is active is attributed to the
// signal, not the button.
func MethodFor(consent, gpcSignal bool) ConsentMethod {
	if !consent && gpcSignal {
		return ConsentMethodGPC
	}
	return ConsentMethodButton
}

// ParseConsentMethod constructs a ConsentMethod from external input.
// Returns a validation error for anything outside the allowlist.
func ParseConsentMethod(s string) (ConsentMethod, error) {
	m := ConsentMethod(s)
	if !validConsentMethods[m] {
		return "", dErrors.Newf(dErrors.CodeValidation, "unsupported consent method: %q", s)
	}
	return m, nil
}

// String returns the wire representation of the method.
func (m ConsentMethod) String() string {
	return string(m)
}
