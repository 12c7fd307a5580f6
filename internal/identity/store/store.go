// Package store owns the persisted device identity record. The record lives
// in a single named slot; the Slot implementation decides where that slot is
// (client cookie, Redis, process memory), the Store decides what goes in it.
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	identity "assent/internal/identity/models"
	"assent/internal/platform/metrics"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/sentinel"
	"assent/pkg/requestcontext"
)

//go:generate mockgen -source=store.go -destination=mocks/mock_slot.go -package=mocks

// Slot is the single key-value cell backing the identity record.
// Implementations return sentinel.ErrNotFound for an absent key and
// sentinel.ErrExpired for one that outlived its TTL.
type Slot interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Store reads and writes the device identity record through a Slot.
type Store struct {
	slot    Slot
	key     string
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Store over the given slot. key names the slot cell and ttl
// bounds how long a written record is retained.
func New(slot Slot, key string, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *Store {
	return &Store{
		slot:    slot,
		key:     key,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

// Load reads the persisted record. Absent, expired and malformed slot
// content all come back as sentinel.ErrNotFound: a record this service
// cannot parse is treated as no record at all rather than a fault.
func (s *Store) Load(ctx context.Context) (*identity.Record, error) {
	value, err := s.slot.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return nil, sentinel.ErrNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read identity slot")
	}

	rec, err := identity.Decode(value)
	if err != nil {
		s.logger.WarnContext(ctx, "malformed identity record, treating as absent",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, sentinel.ErrNotFound
	}

	return rec, nil
}

// CreateDefault mints a fresh device identity, persists it and returns it.
// All consent flags start false.
func (s *Store) CreateDefault(ctx context.Context) (*identity.Record, error) {
	rec := identity.New(domain.NewDeviceID(), requestcontext.Now(ctx))

	if err := s.persist(ctx, rec); err != nil {
		return nil, err
	}

	s.metrics.IncrementIdentitiesMinted()
	s.logger.InfoContext(ctx, "minted device identity",
		"device_id", rec.Identity.DeviceID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return rec, nil
}

// Ensure loads the existing record or creates a default one. For any fixed
// slot content, every call returns the same device id. The bool reports
// whether a fresh identity was minted on this call.
func (s *Store) Ensure(ctx context.Context) (*identity.Record, bool, error) {
	rec, err := s.Load(ctx)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, err
	}
	rec, err = s.CreateDefault(ctx)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// UpdateConsent flips the consent flag on the record and re-persists it.
// Everything else on the record, including fields this service does not
// recognize, is written back unchanged.
func (s *Store) UpdateConsent(ctx context.Context, rec *identity.Record, value bool) error {
	rec.SetConsent(value, requestcontext.Now(ctx))
	return s.persist(ctx, rec)
}

func (s *Store) persist(ctx context.Context, rec *identity.Record) error {
	encoded, err := rec.Encode()
	if err != nil {
		return err
	}
	if err := s.slot.Set(ctx, s.key, encoded, s.ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "write identity slot")
	}
	return nil
}
