package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the consent flow engine.
// All methods are nil-safe so tests can pass a nil *Metrics.
type Metrics struct {
	// Flow outcomes by result
	FlowsOpened *prometheus.CounterVec

	// Preference submissions by capture method
	PreferencesSubmitted *prometheus.CounterVec

	// Upstream call latencies by service and operation
	UpstreamLatency *prometheus.HistogramVec

	// Inbound request latencies by route
	HTTPLatency *prometheus.HistogramVec

	// Fresh device identities minted
	IdentitiesMinted prometheus.Counter

	// Audit events dropped because the publisher buffer was full
	AuditEventsDropped prometheus.Counter

	// Open flow sessions currently held in the registry
	OpenFlows prometheus.Gauge
}

// New creates a Metrics instance with all engine metrics registered.
func New() *Metrics {
	return &Metrics{
		FlowsOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assent_flows_opened_total",
			Help: "Total consent flows opened by outcome",
		}, []string{"outcome"}), // outcome: "served", "not_applicable", "error"

		PreferencesSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "assent_preferences_submitted_total",
			Help: "Total preferences submitted by capture method",
		}, []string{"method"}), // method: "button", "gpc"

		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assent_upstream_request_duration_seconds",
			Help:    "Duration of upstream consent platform calls by service and operation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"service", "operation"}),

		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assent_http_request_duration_seconds",
			Help:    "Duration of inbound HTTP requests by route, method and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method", "status"}),

		IdentitiesMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assent_identities_minted_total",
			Help: "Total fresh device identities minted on first visit",
		}),

		AuditEventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assent_audit_events_dropped_total",
			Help: "Total audit events dropped because the async buffer was full",
		}),

		OpenFlows: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "assent_open_flows",
			Help: "Consent flow sessions currently open in the registry",
		}),
	}
}

// IncrementFlowsOpened records a flow open with its outcome.
func (m *Metrics) IncrementFlowsOpened(outcome string) {
	if m != nil {
		m.FlowsOpened.WithLabelValues(outcome).Inc()
	}
}

// IncrementPreferencesSubmitted records a submitted preference.
func (m *Metrics) IncrementPreferencesSubmitted(method string) {
	if m != nil {
		m.PreferencesSubmitted.WithLabelValues(method).Inc()
	}
}

// ObserveUpstreamLatency records the duration of one upstream call.
func (m *Metrics) ObserveUpstreamLatency(service, operation string, d time.Duration) {
	if m != nil {
		m.UpstreamLatency.WithLabelValues(service, operation).Observe(d.Seconds())
	}
}

// ObserveHTTPLatency records the duration of one inbound request.
func (m *Metrics) ObserveHTTPLatency(route, method, status string, d time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(route, method, status).Observe(d.Seconds())
	}
}

// IncrementIdentitiesMinted records a freshly minted device identity.
func (m *Metrics) IncrementIdentitiesMinted() {
	if m != nil {
		m.IdentitiesMinted.Inc()
	}
}

// IncrementAuditEventsDropped records a dropped audit event.
func (m *Metrics) IncrementAuditEventsDropped() {
	if m != nil {
		m.AuditEventsDropped.Inc()
	}
}

// SetOpenFlows records the current number of open flow sessions.
func (m *Metrics) SetOpenFlows(count int) {
	if m != nil {
		m.OpenFlows.Set(float64(count))
	}
}
