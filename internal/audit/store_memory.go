package audit

import (
	"context"
	"sync"

	"assent/pkg/domain"
)

// MemoryStore keeps events in process. Used by tests and single-node
// development setups.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByDevice(_ context.Context, deviceID domain.DeviceID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].DeviceID == deviceID {
			matched = append(matched, s.events[i])
		}
	}
	return matched, nil
}

func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	recent := make([]Event, 0, limit)
	for i := len(s.events) - 1; i >= len(s.events)-limit; i-- {
		recent = append(recent, s.events[i])
	}
	return recent, nil
}

// Clear drops all events. Test helper.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
