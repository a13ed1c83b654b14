package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Capture metrics
	SignalsCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "standlog_signals_captured_total",
			Help: "Total number of signals captured by event type",
		},
		[]string{"type"},
	)

	// Delivery metrics
	BatchesFlushed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "standlog_batches_flushed_total",
			Help: "Total number of batches flushed by trigger reason",
		},
		[]string{"reason"},
	)

	BatchesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "standlog_batches_dropped_total",
			Help: "Total number of batches dropped after transport failure",
		},
	)

	BatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "standlog_batch_size_events",
			Help:    "Number of events per flushed batch",
			Buckets: []float64{1, 2, 5, 10, 20, 50},
		},
	)

	SessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "standlog_sessions_created_total",
			Help: "Total number of successful session-creation calls",
		},
	)

	// Funnel metrics
	FunnelSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "standlog_funnel_steps_total",
			Help: "Total number of funnel step advances by funnel",
		},
		[]string{"funnel"},
	)

	FunnelCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "standlog_funnel_completions_total",
			Help: "Total number of funnel completions by funnel",
		},
		[]string{"funnel"},
	)

	// Persona metrics
	PersonaAssignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "standlog_persona_assignments_total",
			Help: "Total number of persona membership changes",
		},
		[]string{"persona", "change"},
	)

	// Collector metrics
	CollectorRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "standlog_collector_requests_total",
			Help: "Total number of collector API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	CollectorEventsReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "standlog_collector_events_received_total",
			Help: "Total number of events received by the dev collector",
		},
	)
)

func init() {
	prometheus.MustRegister(SignalsCaptured)
	prometheus.MustRegister(BatchesFlushed)
	prometheus.MustRegister(BatchesDropped)
	prometheus.MustRegister(BatchSize)
	prometheus.MustRegister(SessionsCreated)
	prometheus.MustRegister(FunnelSteps)
	prometheus.MustRegister(FunnelCompletions)
	prometheus.MustRegister(PersonaAssignments)
	prometheus.MustRegister(CollectorRequests)
	prometheus.MustRegister(CollectorEventsReceived)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
