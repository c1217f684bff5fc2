package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	allocations        *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contracts",
			Name:      "transitions_total",
			Help:      "Lifecycle operations by outcome.",
		}, []string{"operation", "result"}),
		transitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "contracts",
			Name:      "transition_duration_seconds",
			Help:      "Lifecycle operation latency including the transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contracts",
			Name:      "identifiers_allocated_total",
			Help:      "Identifiers issued and committed per series.",
		}, []string{"series"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contracts",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "contracts",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.transitions,
		m.transitionDuration,
		m.allocations,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveTransition(operation, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(operation, result).Inc()
	m.transitionDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) IdentifierAllocated(series string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(series).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
