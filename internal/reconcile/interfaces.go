package reconcile

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

import (
	"context"

	"assent/internal/audit"
	"assent/internal/catalog"
	"assent/internal/geolocation"
	identity "assent/internal/identity/models"
	"assent/internal/recorder"
)

// IdentityStore defines the device identity operations the machine needs.
// Satisfied by identity/store.Store; defined here to keep the machine
// testable without a slot backend.
type IdentityStore interface {
	// Ensure loads the device record, minting one when the slot is empty.
	// The bool reports whether a fresh identity was minted on this call.
	Ensure(ctx context.Context) (*identity.Record, bool, error)

	// UpdateConsent rewrites the record's consent decision in place.
	UpdateConsent(ctx context.Context, rec *identity.Record, value bool) error
}

// RegionResolver turns the caller's network position into a region.
type RegionResolver interface {
	Resolve(ctx context.Context) (geolocation.Region, error)
}

// CatalogSource fetches the notice catalog for a region.
type CatalogSource interface {
	FetchExperience(ctx context.Context, region string) (*catalog.Experience, error)
}

// ConsentRecorder writes served events and preference decisions to the
// upstream platform.
type ConsentRecorder interface {
	// RecordServed reports which notice was shown and returns the served
	// reference later cited by submissions.
	RecordServed(ctx context.Context, event recorder.ServedEvent) (string, error)

	// SubmitPreference records the user's decision against a served reference.
	SubmitPreference(ctx context.Context, sub recorder.Submission) error
}

// Auditor defines the interface for publishing audit events.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}
