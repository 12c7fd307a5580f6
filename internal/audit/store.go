package audit

import (
	"context"

	"assent/pkg/domain"
)

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// Store persists audit events. List methods return newest first.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByDevice(ctx context.Context, deviceID domain.DeviceID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
