package domain

// SchemaVersion tags the encoding of a persisted device identity record.
// The tag travels with the record so future encodings can be told apart;
// readers do not branch on it today, and unknown tags round-trip untouched.
type SchemaVersion string

// SchemaV1 is the encoding written by this service.
const SchemaV1 SchemaVersion = "1.0"

// CurrentSchemaVersion returns the tag stamped on newly written records.
func CurrentSchemaVersion() SchemaVersion {
	return SchemaV1
}

// IsCurrent reports whether the record was written with the current encoding.
func (v SchemaVersion) IsCurrent() bool {
	return v == SchemaV1
}

// String returns the wire representation of the tag.
func (v SchemaVersion) String() string {
	return string(v)
}
