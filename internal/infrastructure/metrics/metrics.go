package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
)

const namespace = "zigbee"

// Write results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the service's Prometheus collectors.
//
// Each Metrics owns its own registry so tests can create as many as they
// like without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	frames          *prometheus.CounterVec
	unknownDPs      prometheus.Counter
	writes          *prometheus.CounterVec
	mutations       *prometheus.CounterVec
	sessions        prometheus.Gauge
	interviewErrors prometheus.Counter
	cacheErrors     prometheus.Counter
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Inbound messages handled, by kind.",
		}, []string{"kind"}),
		unknownDPs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datapoints_unknown_total",
			Help:      "Datapoints whose id is not in the device profile.",
		}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_writes_total",
			Help:      "Capability value writes, by result.",
		}, []string{"result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_mutations_total",
			Help:      "Capability add attempts, by outcome.",
		}, []string{"result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Active device sessions.",
		}),
		interviewErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interview_errors_total",
			Help:      "Interviews that could not be registered.",
		}),
		cacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_cache_errors_total",
			Help:      "Last-value cache operations that failed or were dropped.",
		}),
	}

	m.registry.MustRegister(
		m.frames,
		m.unknownDPs,
		m.writes,
		m.mutations,
		m.sessions,
		m.interviewErrors,
		m.cacheErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// FrameReceived counts one inbound message of the given kind.
func (m *Metrics) FrameReceived(kind string) {
	m.frames.WithLabelValues(kind).Inc()
}

// UnknownDatapoint counts a datapoint missing from the device profile.
func (m *Metrics) UnknownDatapoint(string, int) {
	m.unknownDPs.Inc()
}

// WriteResult counts a capability write.
func (m *Metrics) WriteResult(_ capability.Capability, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.writes.WithLabelValues(result).Inc()
}

// MutationOutcome counts a capability add attempt.
func (m *Metrics) MutationOutcome(o capability.Outcome) {
	m.mutations.WithLabelValues(string(o)).Inc()
}

// SetSessions sets the active session gauge.
func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}

// InterviewFailed counts an interview that could not be registered.
func (m *Metrics) InterviewFailed() {
	m.interviewErrors.Inc()
}

// CacheError counts a failed or dropped state cache operation.
func (m *Metrics) CacheError(string, error) {
	m.cacheErrors.Inc()
}
