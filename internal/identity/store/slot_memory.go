package store

import (
	"context"
	"sync"
	"time"

	"assent/pkg/platform/sentinel"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemorySlot is an in-process Slot for tests and single-node deployments
// that do not want client-held records.
type MemorySlot struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemorySlot creates an empty in-memory slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetClock overrides the time source for expiry checks in tests.
func (s *MemorySlot) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemorySlot) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		return "", sentinel.ErrExpired
	}
	return entry.value, nil
}

func (s *MemorySlot) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}
