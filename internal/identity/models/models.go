// Package models defines the device identity record persisted in the
// identity slot, and its slot encoding.
package models

import (
	"encoding/json"
	"net/url"
	"time"

	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
)

// Record is the consent record kept per device. Fields written by other
// encodings are captured on read and written back untouched, so records
// survive round-trips through older and newer writers alike.
type Record struct {
	Consent  Consent
	Identity Identity
	Meta     Meta

	extra map[string]json.RawMessage
}

// Consent holds the per-notice opt-in flags.
type Consent struct {
	// AdvertisingAndEmailSignup is the flag this service reconciles.
	AdvertisingAndEmailSignup bool

	extra map[string]json.RawMessage
}

// Identity holds the stable device identifier.
type Identity struct {
	DeviceID domain.DeviceID

	extra map[string]json.RawMessage
}

// Meta carries the encoding tag and record timestamps.
type Meta struct {
	SchemaVersion domain.SchemaVersion
	CreatedAt     time.Time
	UpdatedAt     time.Time

	extra map[string]json.RawMessage
}

// New builds a fresh record for a just-minted device: all consent flags
// false, both timestamps stamped to now, current schema tag.
func New(deviceID domain.DeviceID, now time.Time) *Record {
	return &Record{
		Identity: Identity{DeviceID: deviceID},
		Meta: Meta{
			SchemaVersion: domain.CurrentSchemaVersion(),
			CreatedAt:     now.UTC(),
			UpdatedAt:     now.UTC(),
		},
	}
}

// SetConsent flips the signup consent flag and refreshes updatedAt.
// Nothing else on the record changes.
func (r *Record) SetConsent(value bool, now time.Time) {
	r.Consent.AdvertisingAndEmailSignup = value
	r.Meta.UpdatedAt = now.UTC()
}

// Encode serializes the record as URI-encoded JSON, safe for cookie-style
// slots where ';' and '=' are reserved.
func (r *Record) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "encode identity record")
	}
	return url.QueryEscape(string(b)), nil
}

// Decode parses a slot value produced by Encode. Any malformed content,
// including a missing or invalid device id, yields a decode error; callers
// treat that as an absent record rather than a fault.
func Decode(value string) (*Record, error) {
	unescaped, err := url.QueryUnescape(value)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDecode, "unescape identity record")
	}

	var rec Record
	if err := json.Unmarshal([]byte(unescaped), &rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDecode, "parse identity record")
	}
	if rec.Identity.DeviceID.IsZero() {
		return nil, dErrors.New(dErrors.CodeDecode, "identity record missing device id")
	}

	return &rec, nil
}

// JSON field names are part of the persisted format and never change.
const (
	fieldConsent  = "consent"
	fieldIdentity = "identity"
	fieldMeta     = "meta"

	fieldSignupConsent = "advertisingAndEmailSignupConsent"
	fieldDeviceID      = "deviceId"
	fieldSchemaVersion = "schemaVersion"
	fieldCreatedAt     = "createdAt"
	fieldUpdatedAt     = "updatedAt"
)

func (r Record) MarshalJSON() ([]byte, error) {
	out := cloneRaw(r.extra, 3)

	if err := setRaw(out, fieldConsent, r.Consent); err != nil {
		return nil, err
	}
	if err := setRaw(out, fieldIdentity, r.Identity); err != nil {
		return nil, err
	}
	if err := setRaw(out, fieldMeta, r.Meta); err != nil {
		return nil, err
	}

	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	if raw, ok := takeRaw(fields, fieldConsent); ok {
		if err := json.Unmarshal(raw, &r.Consent); err != nil {
			return err
		}
	}
	if raw, ok := takeRaw(fields, fieldIdentity); ok {
		if err := json.Unmarshal(raw, &r.Identity); err != nil {
			return err
		}
	}
	if raw, ok := takeRaw(fields, fieldMeta); ok {
		if err := json.Unmarshal(raw, &r.Meta); err != nil {
			return err
		}
	}

	r.extra = fields
	return nil
}

func (c Consent) MarshalJSON() ([]byte, error) {
	out := cloneRaw(c.extra, 1)
	if err := setRaw(out, fieldSignupConsent, c.AdvertisingAndEmailSignup); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (c *Consent) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	if raw, ok := takeRaw(fields, fieldSignupConsent); ok {
		if err := json.Unmarshal(raw, &c.AdvertisingAndEmailSignup); err != nil {
			return err
		}
	}

	c.extra = fields
	return nil
}

func (i Identity) MarshalJSON() ([]byte, error) {
	out := cloneRaw(i.extra, 1)
	if err := setRaw(out, fieldDeviceID, i.DeviceID); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (i *Identity) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	if raw, ok := takeRaw(fields, fieldDeviceID); ok {
		if err := json.Unmarshal(raw, &i.DeviceID); err != nil {
			return err
		}
	}

	i.extra = fields
	return nil
}

func (m Meta) MarshalJSON() ([]byte, error) {
	out := cloneRaw(m.extra, 3)

	if err := setRaw(out, fieldSchemaVersion, m.SchemaVersion); err != nil {
		return nil, err
	}
	if err := setRaw(out, fieldCreatedAt, m.CreatedAt); err != nil {
		return nil, err
	}
	if err := setRaw(out, fieldUpdatedAt, m.UpdatedAt); err != nil {
		return nil, err
	}

	return json.Marshal(out)
}

func (m *Meta) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	if raw, ok := takeRaw(fields, fieldSchemaVersion); ok {
		if err := json.Unmarshal(raw, &m.SchemaVersion); err != nil {
			return err
		}
	}
	if raw, ok := takeRaw(fields, fieldCreatedAt); ok {
		if err := json.Unmarshal(raw, &m.CreatedAt); err != nil {
			return err
		}
	}
	if raw, ok := takeRaw(fields, fieldUpdatedAt); ok {
		if err := json.Unmarshal(raw, &m.UpdatedAt); err != nil {
			return err
		}
	}

	m.extra = fields
	return nil
}

func cloneRaw(extra map[string]json.RawMessage, known int) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(extra)+known)
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func setRaw(out map[string]json.RawMessage, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	out[key] = raw
	return nil
}

func takeRaw(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if ok {
		delete(fields, key)
	}
	return raw, ok
}
