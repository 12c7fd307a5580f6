// Package session tracks live consent flows between the opening request
// and the preference submission. Each flow holds a reconcile.Machine; a
// janitor reaps flows whose TTL lapsed without a submission.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	idstore "assent/internal/identity/store"
	"assent/internal/platform/metrics"
	"assent/internal/reconcile"
	"assent/pkg/domain"
	"assent/pkg/platform/sentinel"
)

// Flow is one open consent flow. Slot is the identity slot the flow's
// machine writes through; the transport needs it back on the submission
// request to emit the refreshed cookie.
type Flow struct {
	Machine *reconcile.Machine
	Slot    idstore.Slot
}

type entry struct {
	flow      *Flow
	expiresAt time.Time
}

// Registry keeps open flows in process, keyed by flow id. Flows are
// per-device-visit and short-lived, so a node-local map is the store;
// losing a node loses only flows that would have expired anyway.
type Registry struct {
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	flows  map[domain.FlowID]*entry
	closed bool

	stop chan struct{}
	done chan struct{}
}

// NewRegistry starts the janitor. Close stops it.
func NewRegistry(ttl, sweepInterval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Registry {
	r := &Registry{
		ttl:     ttl,
		logger:  logger,
		metrics: m,
		flows:   make(map[domain.FlowID]*entry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.janitor(sweepInterval)
	return r
}

// Put registers a flow and returns the id the client will cite on
// submission.
func (r *Registry) Put(flow *Flow) (domain.FlowID, error) {
	if flow == nil || flow.Machine == nil {
		return domain.FlowID{}, fmt.Errorf("flow machine is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.FlowID{}, sentinel.ErrClosed
	}

	flowID := domain.NewFlowID()
	r.flows[flowID] = &entry{
		flow:      flow,
		expiresAt: time.Now().Add(r.ttl),
	}
	r.metrics.SetOpenFlows(len(r.flows))
	return flowID, nil
}

// Get returns the flow for an id. Expired flows are reaped on the spot
// and reported as expired rather than absent, so clients can tell a
// stale link from a wrong one.
func (r *Registry) Get(flowID domain.FlowID) (*Flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, sentinel.ErrClosed
	}

	e, ok := r.flows[flowID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if time.Now().After(e.expiresAt) {
		delete(r.flows, flowID)
		r.metrics.SetOpenFlows(len(r.flows))
		e.flow.Machine.Close()
		return nil, sentinel.ErrExpired
	}
	return e.flow, nil
}

// Len reports the number of open flows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.flows)
}

// Close stops the janitor and closes every open flow.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	machines := make([]*reconcile.Machine, 0, len(r.flows))
	for _, e := range r.flows {
		machines = append(machines, e.flow.Machine)
	}
	r.flows = make(map[domain.FlowID]*entry)
	r.metrics.SetOpenFlows(0)
	r.mu.Unlock()

	close(r.stop)
	<-r.done

	for _, machine := range machines {
		machine.Close()
	}
}

func (r *Registry) janitor(interval time.Duration) {
	defer close(r.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Registry) sweep() {
	now := time.Now()

	r.mu.Lock()
	var reaped []*reconcile.Machine
	for flowID, e := range r.flows {
		if now.After(e.expiresAt) {
			delete(r.flows, flowID)
			reaped = append(reaped, e.flow.Machine)
		}
	}
	open := len(r.flows)
	r.mu.Unlock()

	if len(reaped) == 0 {
		return
	}
	r.metrics.SetOpenFlows(open)
	for _, machine := range reaped {
		machine.Close()
	}
	r.logger.Debug("expired flows reaped", "count", len(reaped), "open", open)
}
