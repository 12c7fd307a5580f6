package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, slots and registries
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity or key does not exist in the store
// - ErrExpired: persisted record or session outlived its TTL
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrClosed: component already shut down, no further work accepted
// - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrClosed       = errors.New("closed")
	ErrUnavailable  = errors.New("unavailable")
)
