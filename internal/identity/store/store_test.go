package store

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"assent/pkg/domain"
	"assent/pkg/platform/sentinel"
	"assent/pkg/requestcontext"
)

const slotKey = "assent_consent"

type StoreTestSuite struct {
	suite.Suite
	slot  *MemorySlot
	store *Store
}

func (s *StoreTestSuite) SetupTest() {
	s.slot = NewMemorySlot()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = New(s.slot, slotKey, 365*24*time.Hour, logger, nil)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) TestLoadAbsent() {
	_, err := s.store.Load(context.Background())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreTestSuite) TestEnsureIsIdempotent() {
	ctx := context.Background()

	first, created, err := s.store.Ensure(ctx)
	s.Require().NoError(err)
	s.True(created)
	s.Require().False(first.Identity.DeviceID.IsZero())

	for range 5 {
		again, created, err := s.store.Ensure(ctx)
		s.Require().NoError(err)
		s.False(created)
		s.Equal(first.Identity.DeviceID, again.Identity.DeviceID)
	}
}

func (s *StoreTestSuite) TestCreateDefaultThenLoadRoundTrips() {
	now := time.Date(2026, 2, 2, 8, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	created, err := s.store.CreateDefault(ctx)
	s.Require().NoError(err)

	loaded, err := s.store.Load(ctx)
	s.Require().NoError(err)

	s.Equal(created.Identity.DeviceID, loaded.Identity.DeviceID)
	s.False(loaded.Consent.AdvertisingAndEmailSignup)
	s.Equal(domain.CurrentSchemaVersion(), loaded.Meta.SchemaVersion)
	s.True(loaded.Meta.CreatedAt.Equal(now))
	s.True(loaded.Meta.UpdatedAt.Equal(now))
}

func (s *StoreTestSuite) TestMalformedSlotTreatedAsAbsent() {
	ctx := context.Background()
	s.Require().NoError(s.slot.Set(ctx, slotKey, "%%%not-a-record", time.Hour))

	_, err := s.store.Load(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)

	// Ensure recovers by minting a fresh identity, which then sticks.
	minted, created, err := s.store.Ensure(ctx)
	s.Require().NoError(err)
	s.True(created)
	s.Require().False(minted.Identity.DeviceID.IsZero())

	again, created, err := s.store.Ensure(ctx)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(minted.Identity.DeviceID, again.Identity.DeviceID)
}

func (s *StoreTestSuite) TestExpiredSlotTreatedAsAbsent() {
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	current := base
	s.slot.SetClock(func() time.Time { return current })

	_, _, err := s.store.Ensure(ctx)
	s.Require().NoError(err)

	current = base.Add(366 * 24 * time.Hour)

	_, err = s.store.Load(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreTestSuite) TestUpdateConsent() {
	created := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), created)

	rec, _, err := s.store.Ensure(ctx)
	s.Require().NoError(err)
	deviceID := rec.Identity.DeviceID

	later := created.Add(2 * time.Hour)
	laterCtx := requestcontext.WithTime(context.Background(), later)
	s.Require().NoError(s.store.UpdateConsent(laterCtx, rec, true))

	loaded, err := s.store.Load(laterCtx)
	s.Require().NoError(err)
	s.True(loaded.Consent.AdvertisingAndEmailSignup)
	s.Equal(deviceID, loaded.Identity.DeviceID)
	s.True(loaded.Meta.CreatedAt.Equal(created))
	s.True(loaded.Meta.UpdatedAt.Equal(later))
}

func (s *StoreTestSuite) TestUpdateConsentPreservesForeignFields() {
	ctx := context.Background()

	deviceID := domain.NewDeviceID()
	legacy := `{"consent":{"advertisingAndEmailSignupConsent":false,"analyticsConsent":true},` +
		`"identity":{"deviceId":"` + deviceID.String() + `"},` +
		`"meta":{"schemaVersion":"0.9","createdAt":"2024-06-01T00:00:00Z","updatedAt":"2024-06-01T00:00:00Z"},` +
		`"vendor":{"tag":"xyz"}}`
	s.Require().NoError(s.slot.Set(ctx, slotKey, url.QueryEscape(legacy), time.Hour))

	rec, created, err := s.store.Ensure(ctx)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(deviceID, rec.Identity.DeviceID)

	s.Require().NoError(s.store.UpdateConsent(ctx, rec, true))

	raw, err := s.slot.Get(ctx, slotKey)
	s.Require().NoError(err)
	unescaped, err := url.QueryUnescape(raw)
	s.Require().NoError(err)

	s.Contains(unescaped, `"analyticsConsent":true`)
	s.Contains(unescaped, `"vendor":{"tag":"xyz"}`)
	s.Contains(unescaped, `"advertisingAndEmailSignupConsent":true`)
	s.Contains(unescaped, `"schemaVersion":"0.9"`)

	reloaded, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Equal(deviceID, reloaded.Identity.DeviceID)
	s.True(reloaded.Consent.AdvertisingAndEmailSignup)
}

func (s *StoreTestSuite) TestLoadIgnoresRecordFromForeignWriterWithoutIdentity() {
	ctx := context.Background()
	s.Require().NoError(s.slot.Set(ctx, slotKey, url.QueryEscape(`{"consent":{}}`), time.Hour))

	_, err := s.store.Load(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
