package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assent/internal/catalog"
	"assent/internal/geolocation"
	identity "assent/internal/identity/models"
	"assent/internal/reconcile"
	"assent/internal/recorder"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/sentinel"
)

// stubPorts satisfies every machine port with canned happy-path values.
type stubPorts struct{}

func (stubPorts) Ensure(context.Context) (*identity.Record, bool, error) {
	return identity.New(domain.NewDeviceID(), time.Now()), false, nil
}

func (stubPorts) UpdateConsent(context.Context, *identity.Record, bool) error { return nil }

func (stubPorts) Resolve(context.Context) (geolocation.Region, error) {
	return geolocation.Region{Geography: "en_us", Country: "US"}, nil
}

func (stubPorts) FetchExperience(context.Context, string) (*catalog.Experience, error) {
	return &catalog.Experience{
		ID:     "exp-1",
		Region: "us",
		PrivacyNotices: []catalog.Notice{
			{ID: "n-1", NoticeKey: "email_signup", HistoryID: "hist-1"},
		},
	}, nil
}

func (stubPorts) RecordServed(context.Context, recorder.ServedEvent) (string, error) {
	return "served-1", nil
}

func (stubPorts) SubmitPreference(context.Context, recorder.Submission) error { return nil }

func newFlowMachine(t *testing.T) *reconcile.Machine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ports := stubPorts{}
	machine, err := reconcile.New(ports, ports, ports, ports, logger, nil)
	require.NoError(t, err)
	return machine
}

func newTestRegistry(t *testing.T, ttl, sweep time.Duration) *Registry {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := NewRegistry(ttl, sweep, logger, nil)
	t.Cleanup(registry.Close)
	return registry
}

func TestRegistry_PutAndGet(t *testing.T) {
	registry := newTestRegistry(t, time.Minute, time.Hour)
	machine := newFlowMachine(t)

	flowID, err := registry.Put(&Flow{Machine: machine})
	require.NoError(t, err)
	assert.False(t, flowID.IsZero())

	got, err := registry.Get(flowID)
	require.NoError(t, err)
	assert.Same(t, machine, got.Machine)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistry_PutRequiresMachine(t *testing.T) {
	registry := newTestRegistry(t, time.Minute, time.Hour)

	_, err := registry.Put(nil)
	assert.Error(t, err)

	_, err = registry.Put(&Flow{})
	assert.Error(t, err)
}

func TestRegistry_GetUnknownFlow(t *testing.T) {
	registry := newTestRegistry(t, time.Minute, time.Hour)

	_, err := registry.Get(domain.NewFlowID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRegistry_ExpiredFlowIsReapedOnGet(t *testing.T) {
	// Sweep interval far out so only the lazy path runs.
	registry := newTestRegistry(t, 10*time.Millisecond, time.Hour)
	machine := newFlowMachine(t)

	flowID, err := registry.Put(&Flow{Machine: machine})
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)

	_, err = registry.Get(flowID)
	assert.ErrorIs(t, err, sentinel.ErrExpired)

	// Reaped for good: a second lookup no longer knows the flow.
	_, err = registry.Get(flowID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// The machine was closed on reap.
	_, err = machine.Start(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidState))
}

func TestRegistry_JanitorReapsExpiredFlows(t *testing.T) {
	registry := newTestRegistry(t, 10*time.Millisecond, 10*time.Millisecond)

	for range 3 {
		_, err := registry.Put(&Flow{Machine: newFlowMachine(t)})
		require.NoError(t, err)
	}
	require.Equal(t, 3, registry.Len())

	assert.Eventually(t, func() bool {
		return registry.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestRegistry_LiveFlowSurvivesSweep(t *testing.T) {
	registry := newTestRegistry(t, time.Hour, 10*time.Millisecond)
	machine := newFlowMachine(t)

	flowID, err := registry.Put(&Flow{Machine: machine})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	got, err := registry.Get(flowID)
	require.NoError(t, err)
	assert.Same(t, machine, got.Machine)
}

func TestRegistry_CloseRefusesFurtherUse(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := NewRegistry(time.Minute, time.Hour, logger, nil)
	machine := newFlowMachine(t)

	flowID, err := registry.Put(&Flow{Machine: machine})
	require.NoError(t, err)

	registry.Close()

	_, err = registry.Put(&Flow{Machine: newFlowMachine(t)})
	assert.ErrorIs(t, err, sentinel.ErrClosed)

	_, err = registry.Get(flowID)
	assert.ErrorIs(t, err, sentinel.ErrClosed)

	// Open flows were closed along with the registry.
	_, err = machine.Start(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidState))

	// Closing twice is safe.
	registry.Close()
}

func TestRegistry_MachineRunsThroughStubChain(t *testing.T) {
	// The stub ports drive a full chain; this pins the helper itself so
	// the closed-machine assertions above stay meaningful.
	machine := newFlowMachine(t)

	snap, err := machine.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reconcile.StateServed, snap.State)
	assert.True(t, snap.CanSubmit)
}
