// Package reconcile drives a device's consent flow through its steps:
// identity, region, notice selection, served recording, and preference
// submission. Each flow owns one Machine; the session registry keeps it
// alive between the opening request and the submission.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"assent/internal/audit"
	"assent/internal/catalog"
	"assent/internal/geolocation"
	identity "assent/internal/identity/models"
	"assent/internal/platform/metrics"
	"assent/internal/recorder"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
)

var errFlowClosed = dErrors.New(dErrors.CodeInvalidState, "flow closed during reconciliation")

// Listener receives a snapshot after every state change. It is invoked
// outside the machine's lock.
type Listener func(Snapshot)

// Machine reconciles one device's consent. Start walks the chain as far
// as it can and parks the flow at the last state it reached; Submit is
// only valid once a notice was served and may be repeated when the user
// changes their mind.
type Machine struct {
	identities  IdentityStore
	regions     RegionResolver
	notices     CatalogSource
	preferences ConsentRecorder
	auditor     Auditor
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	listener    Listener
	gpcHint     bool

	mu         sync.Mutex
	state      State
	started    bool
	closed     bool
	record     *identity.Record
	region     geolocation.Region
	experience *catalog.Experience
	notice     catalog.Notice
	hasNotice  bool
	servedRef  string

	submitGroup singleflight.Group
}

type Option func(*Machine)

// WithAuditor attaches an audit publisher. Without one the machine still
// reconciles, it just leaves no trail.
func WithAuditor(a Auditor) Option {
	return func(m *Machine) {
		m.auditor = a
	}
}

// WithListener registers a state change callback.
func WithListener(fn Listener) Option {
	return func(m *Machine) {
		m.listener = fn
	}
}

// WithGPCHint marks the flow as carrying a Global Privacy Control signal.
// The hint never submits anything on its own; it changes the recorded
// method when the flow resolves to a decline.
func WithGPCHint(enabled bool) Option {
	return func(m *Machine) {
		m.gpcHint = enabled
	}
}

func New(
	identities IdentityStore,
	regions RegionResolver,
	notices CatalogSource,
	preferences ConsentRecorder,
	logger *slog.Logger,
	m *metrics.Metrics,
	opts ...Option,
) (*Machine, error) {
	if identities == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	if regions == nil {
		return nil, fmt.Errorf("region resolver is required")
	}
	if notices == nil {
		return nil, fmt.Errorf("catalog source is required")
	}
	if preferences == nil {
		return nil, fmt.Errorf("consent recorder is required")
	}

	machine := &Machine{
		identities:  identities,
		regions:     regions,
		notices:     notices,
		preferences: preferences,
		logger:      logger,
		metrics:     m,
		tracer:      otel.Tracer("assent/internal/reconcile"),
	}

	for _, opt := range opts {
		opt(machine)
	}

	return machine, nil
}

// Start runs the chain up to the served state. It is one-shot: a second
// call is refused regardless of how far the first one got. The returned
// snapshot always reflects the last state reached, including on error.
func (m *Machine) Start(ctx context.Context) (Snapshot, error) {
	m.mu.Lock()
	if m.closed {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, dErrors.New(dErrors.CodeInvalidState, "flow is closed")
	}
	if m.started {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, dErrors.New(dErrors.CodeInvalidState, "flow already started")
	}
	m.started = true
	m.mu.Unlock()

	if err := m.runChain(ctx); err != nil {
		m.halt(ctx, err)
		return m.Snapshot(), err
	}

	m.metrics.IncrementFlowsOpened("served")
	snap := m.Snapshot()
	m.logger.InfoContext(ctx, "flow served",
		"device_id", snap.DeviceID.String(),
		"region", snap.Region.CatalogRegion(),
		"notice_key", snap.Notice.NoticeKey,
	)
	return snap, nil
}

func (m *Machine) runChain(ctx context.Context) error {
	rec, err := m.ensureIdentity(ctx)
	if err != nil {
		return err
	}
	region, err := m.resolveRegion(ctx)
	if err != nil {
		return err
	}
	exp, notice, err := m.resolveNotice(ctx, region)
	if err != nil {
		return err
	}
	return m.recordServed(ctx, rec, region, exp, notice)
}

func (m *Machine) ensureIdentity(ctx context.Context) (*identity.Record, error) {
	ctx, span := m.tracer.Start(ctx, "reconcile.ensure_identity")
	defer span.End()

	rec, created, err := m.identities.Ensure(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !m.advance(StateIdentityReady, func() { m.record = rec }) {
		return nil, errFlowClosed
	}
	if created {
		m.audit(ctx, audit.Event{
			DeviceID: rec.Identity.DeviceID,
			Action:   audit.ActionDeviceIdentityCreated,
		})
	}
	return rec, nil
}

func (m *Machine) resolveRegion(ctx context.Context) (geolocation.Region, error) {
	ctx, span := m.tracer.Start(ctx, "reconcile.resolve_region")
	defer span.End()

	region, err := m.regions.Resolve(ctx)
	if err != nil {
		span.RecordError(err)
		return geolocation.Region{}, err
	}
	if !m.advance(StateRegionResolved, func() { m.region = region }) {
		return geolocation.Region{}, errFlowClosed
	}
	return region, nil
}

func (m *Machine) resolveNotice(ctx context.Context, region geolocation.Region) (*catalog.Experience, catalog.Notice, error) {
	ctx, span := m.tracer.Start(ctx, "reconcile.resolve_notice")
	defer span.End()

	exp, err := m.notices.FetchExperience(ctx, region.CatalogRegion())
	if err != nil {
		span.RecordError(err)
		return nil, catalog.Notice{}, err
	}
	notice, ok := catalog.SelectNotice(exp)
	if !ok {
		err := dErrors.Newf(dErrors.CodeNotApplicable, "experience %s carries no signup notice", exp.ID)
		span.RecordError(err)
		return nil, catalog.Notice{}, err
	}
	if !m.advance(StateNoticeResolved, func() {
		m.experience = exp
		m.notice = notice
		m.hasNotice = true
	}) {
		return nil, catalog.Notice{}, errFlowClosed
	}
	return exp, notice, nil
}

func (m *Machine) recordServed(ctx context.Context, rec *identity.Record, region geolocation.Region, exp *catalog.Experience, notice catalog.Notice) error {
	ctx, span := m.tracer.Start(ctx, "reconcile.record_served")
	defer span.End()

	ref, err := m.preferences.RecordServed(ctx, recorder.ServedEvent{
		DeviceID:        rec.Identity.DeviceID,
		ExperienceID:    exp.ID,
		NoticeHistoryID: notice.HistoryID,
		UserGeography:   region.CatalogRegion(),
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !m.advance(StateServed, func() { m.servedRef = ref }) {
		return errFlowClosed
	}
	m.audit(ctx, audit.Event{
		DeviceID:        rec.Identity.DeviceID,
		Action:          audit.ActionNoticeServed,
		Region:          region.CatalogRegion(),
		Geography:       region.Geography,
		NoticeKey:       notice.NoticeKey,
		NoticeHistoryID: notice.HistoryID,
		ServedRef:       ref,
	})
	return nil
}

// Submit records the user's decision against the served reference. Valid
// once a notice was served; repeat calls re-submit so a changed mind
// reaches the platform, citing the same served reference each time.
func (m *Machine) Submit(ctx context.Context, consent bool) (Snapshot, error) {
	m.mu.Lock()
	if m.closed {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, dErrors.New(dErrors.CodeInvalidState, "flow is closed")
	}
	if m.state < StateServed {
		err := dErrors.Newf(dErrors.CodeInvalidState, "cannot submit from state %s", m.state)
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap, err
	}
	rec := m.record
	region := m.region
	exp := m.experience
	notice := m.notice
	servedRef := m.servedRef
	gpc := m.gpcHint
	m.mu.Unlock()

	method := domain.MethodFor(consent, gpc)

	// Concurrent duplicates of the same decision collapse into one write.
	key := fmt.Sprintf("submit:%t", consent)
	_, err, _ := m.submitGroup.Do(key, func() (any, error) {
		return nil, m.submit(ctx, rec, region, exp, notice, servedRef, consent, method)
	})
	if err != nil {
		return m.Snapshot(), err
	}

	m.mu.Lock()
	changed := m.state != StateSubmitted && !m.closed
	if !m.closed {
		m.state = StateSubmitted
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()
	if changed {
		m.notify(snap)
	}
	return snap, nil
}

func (m *Machine) submit(
	ctx context.Context,
	rec *identity.Record,
	region geolocation.Region,
	exp *catalog.Experience,
	notice catalog.Notice,
	servedRef string,
	consent bool,
	method domain.ConsentMethod,
) error {
	ctx, span := m.tracer.Start(ctx, "reconcile.submit_preference")
	defer span.End()

	// The device slot is advisory. The platform stays the system of
	// record, so a failed local write must not block the submission.
	if err := m.identities.UpdateConsent(ctx, rec, consent); err != nil {
		m.logger.WarnContext(ctx, "device record update failed",
			"device_id", rec.Identity.DeviceID.String(),
			"error", err,
		)
	}

	sub := recorder.Submission{
		DeviceID:        rec.Identity.DeviceID,
		ExperienceID:    exp.ID,
		NoticeHistoryID: notice.HistoryID,
		ServedRef:       servedRef,
		OptIn:           consent,
		UserGeography:   region.CatalogRegion(),
		Method:          method,
	}
	if err := m.preferences.SubmitPreference(ctx, sub); err != nil {
		span.RecordError(err)
		m.audit(ctx, audit.Event{
			DeviceID:        rec.Identity.DeviceID,
			Action:          audit.ActionPreferenceRejected,
			Region:          region.CatalogRegion(),
			Geography:       region.Geography,
			NoticeKey:       notice.NoticeKey,
			NoticeHistoryID: notice.HistoryID,
			ServedRef:       servedRef,
			Preference:      sub.Preference(),
			Reason:          err.Error(),
		})
		return err
	}

	m.audit(ctx, audit.Event{
		DeviceID:        rec.Identity.DeviceID,
		Action:          audit.ActionPreferenceSubmitted,
		Region:          region.CatalogRegion(),
		Geography:       region.Geography,
		NoticeKey:       notice.NoticeKey,
		NoticeHistoryID: notice.HistoryID,
		ServedRef:       servedRef,
		Preference:      sub.Preference(),
	})
	m.metrics.IncrementPreferencesSubmitted(method.String())
	m.logger.InfoContext(ctx, "preference reconciled",
		"device_id", rec.Identity.DeviceID.String(),
		"preference", sub.Preference(),
		"method", method.String(),
	)
	return nil
}

// Close retires the flow. Later transitions no-op and submissions are
// refused. Safe to call more than once.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Snapshot returns a copy of the flow's current progress.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      m.state,
		Region:     m.region,
		Notice:     m.notice,
		HasNotice:  m.hasNotice,
		ServedRef:  m.servedRef,
		CanSubmit:  m.state >= StateServed && !m.closed,
		GPCApplied: m.gpcHint,
	}
	if m.record != nil {
		snap.DeviceID = m.record.Identity.DeviceID
	}
	return snap
}

// advance moves the machine to the next state under the lock and tells
// the listener. It reports false when the flow was closed underneath the
// running chain, in which case nothing is mutated.
func (m *Machine) advance(next State, apply func()) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if apply != nil {
		apply()
	}
	m.state = next
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
	return true
}

func (m *Machine) notify(snap Snapshot) {
	if m.listener != nil {
		m.listener(snap)
	}
}

// halt records why a chain stopped short of the served state.
func (m *Machine) halt(ctx context.Context, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	state := m.state
	region := m.region
	var deviceID domain.DeviceID
	if m.record != nil {
		deviceID = m.record.Identity.DeviceID
	}
	m.mu.Unlock()

	outcome := "error"
	if dErrors.Is(err, dErrors.CodeNotApplicable) {
		outcome = "not_applicable"
	}
	m.metrics.IncrementFlowsOpened(outcome)
	m.logger.WarnContext(ctx, "reconciliation halted",
		"state", state.String(),
		"error", err,
	)
	m.audit(ctx, audit.Event{
		DeviceID:  deviceID,
		Action:    audit.ActionReconciliationHalted,
		Region:    region.CatalogRegion(),
		Geography: region.Geography,
		Reason:    err.Error(),
	})
}

func (m *Machine) audit(ctx context.Context, event audit.Event) {
	if m.auditor == nil {
		return
	}
	if err := m.auditor.Emit(ctx, event); err != nil {
		m.logger.WarnContext(ctx, "audit emit failed",
			"action", string(event.Action),
			"error", err,
		)
	}
}
