// Package domain holds shared domain primitives: typed identifiers and
// validated value types used across services.
//
// Construct values via the ParseX functions at trust boundaries so the
// allowlists and format checks run; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "assent/pkg/domain-errors"
)

// Typed UUID identifiers. Distinct types keep a device identifier from being
// passed where a flow identifier is expected; the compiler enforces it.
type (
	// DeviceID identifies a device across visits. Minted exactly once per
	// device and persisted in the identity slot; immutable thereafter.
	DeviceID uuid.UUID

	// FlowID identifies one open consent flow held by the session registry.
	FlowID uuid.UUID
)

// parseUUID is the single validation path for all ID types.
// Invariant: IDs must be valid, non-empty, non-nil UUIDs.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeValidation, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be the nil UUID")
	}
	return u, nil
}

// NewDeviceID mints a fresh random device identifier.
func NewDeviceID() DeviceID { return DeviceID(uuid.New()) }

// ParseDeviceID constructs a DeviceID from external input.
func ParseDeviceID(s string) (DeviceID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return DeviceID{}, err
	}
	return DeviceID(u), nil
}

func (id DeviceID) String() string  { return uuid.UUID(id).String() }
func (id DeviceID) UUID() uuid.UUID { return uuid.UUID(id) }
func (id DeviceID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText encodes the ID as its canonical UUID string for JSON payloads.
func (id DeviceID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses and validates an ID from a JSON payload.
func (id *DeviceID) UnmarshalText(b []byte) error {
	parsed, err := ParseDeviceID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewFlowID mints a fresh random flow identifier.
func NewFlowID() FlowID { return FlowID(uuid.New()) }

// ParseFlowID constructs a FlowID from external input.
func ParseFlowID(s string) (FlowID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return FlowID{}, err
	}
	return FlowID(u), nil
}

func (id FlowID) String() string  { return uuid.UUID(id).String() }
func (id FlowID) UUID() uuid.UUID { return uuid.UUID(id) }
func (id FlowID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText encodes the ID as its canonical UUID string for JSON payloads.
func (id FlowID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses and validates an ID from a JSON payload.
func (id *FlowID) UnmarshalText(b []byte) error {
	parsed, err := ParseFlowID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
