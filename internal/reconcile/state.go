package reconcile

import (
	"assent/internal/catalog"
	"assent/internal/geolocation"
	"assent/pkg/domain"
)

// State is the machine's position in the reconciliation chain. States are
// ordered; a flow only ever moves forward, and a failed step leaves the
// flow parked at the last state it reached.
type State int

const (
	StateUninitialized State = iota
	StateIdentityReady
	StateRegionResolved
	StateNoticeResolved
	StateServed
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdentityReady:
		return "identity_ready"
	case StateRegionResolved:
		return "region_resolved"
	case StateNoticeResolved:
		return "notice_resolved"
	case StateServed:
		return "served"
	case StateSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of a flow's progress. Fields belonging
// to steps the flow has not reached hold zero values.
type Snapshot struct {
	State    State
	DeviceID domain.DeviceID
	Region   geolocation.Region

	// Notice is only meaningful when HasNotice is true.
	Notice    catalog.Notice
	HasNotice bool

	// ServedRef is the upstream reference for the served event. Stable
	// across resubmissions.
	ServedRef string

	// CanSubmit reports whether the flow reached a submittable state and
	// has not been closed.
	CanSubmit bool

	// GPCApplied reports whether a Global Privacy Control signal was
	// attached to the flow.
	GPCApplied bool
}
