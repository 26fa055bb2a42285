// Package metrics wires the server's Prometheus instrumentation, grounded
// on the donor's NewMetrics(reg) pattern: one promauto-registered metric per
// field, namespaced, created once at server construction.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors exposed by an embedded server.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	ActiveSessions     prometheus.Gauge
	StaticCacheEntries prometheus.Gauge
	StaticCacheBytes   prometheus.Gauge
}

// New creates and registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "corehttp",
				Name:      "requests_total",
				Help:      "Total number of requests processed, by method and status class.",
			},
			[]string{"method", "status_class"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "corehttp",
				Name:      "request_duration_seconds",
				Help:      "Request handling duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ActiveSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "corehttp",
				Name:      "active_sessions",
				Help:      "Number of currently open connections.",
			},
		),
		StaticCacheEntries: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "corehttp",
				Name:      "static_cache_entries",
				Help:      "Number of entries currently held in the static file cache.",
			},
		),
		StaticCacheBytes: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "corehttp",
				Name:      "static_cache_bytes",
				Help:      "Aggregate bytes currently held in the static file cache.",
			},
		),
	}
}

// StatusClass buckets an HTTP status code into "2xx", "4xx", etc. for the
// requests_total label, keeping cardinality bounded.
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "1xx"
	}
}
