package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"assent/internal/platform/metrics"
	"assent/pkg/requestcontext"
)

// ErrBufferFull reports that an async publisher dropped an event.
var ErrBufferFull = errors.New("audit buffer full")

// Sink receives a best-effort copy of every stored event. Sink failures
// are logged, never surfaced to the reconciliation path.
type Sink interface {
	Produce(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and uses
// the storage layer for persistence so tests can swap sinks easily.
// Synchronous by default; WithAsyncBuffer moves persistence onto a
// background goroutine with a bounded inbox.
type Publisher struct {
	store   Store
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	inbox  chan Event
	done   chan struct{}
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer sizes a bounded inbox and moves event persistence off
// the caller's goroutine. A full inbox drops the event.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

// WithSink mirrors stored events to a secondary sink.
func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		p.sink = sink
	}
}

func NewPublisher(store Store, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Publisher {
	p := &Publisher{
		store:   store,
		logger:  logger,
		metrics: m,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		go p.run()
	}
	return p
}

// Emit records one event. Zero timestamps are stamped from the request
// clock and the category always derives from the action. In async mode
// a full inbox returns ErrBufferFull rather than blocking.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	event.Category = event.Action.Category()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("audit publisher closed")
	}
	if p.inbox == nil {
		return p.deliver(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.IncrementAuditEventsDropped()
		return ErrBufferFull
	}
}

// Close drains the inbox in async mode and stops the worker. Emit after
// Close fails.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	if p.inbox != nil {
		close(p.inbox)
		<-p.done
	}
}

func (p *Publisher) run() {
	for event := range p.inbox {
		if err := p.deliver(context.Background(), event); err != nil {
			p.logger.Warn("audit append failed",
				"error", err,
				"action", string(event.Action),
			)
		}
	}
	close(p.done)
}

func (p *Publisher) deliver(ctx context.Context, event Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.sink != nil {
		if err := p.sink.Produce(ctx, event); err != nil {
			p.logger.WarnContext(ctx, "audit sink produce failed",
				"error", err,
				"action", string(event.Action),
			)
		}
	}
	return nil
}
