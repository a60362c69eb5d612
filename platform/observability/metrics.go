// Package observability holds the Prometheus instruments for the context engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "context_engine"

// Metrics holds the Prometheus counters and histograms for report building.
type Metrics struct {
	// CacheLookups counts cache reads. labels: source, tier={memory,persistent}, result={hit,miss,error}
	CacheLookups *prometheus.CounterVec
	// ProviderRequests counts live provider calls. labels: source, outcome={success,empty,error}
	ProviderRequests *prometheus.CounterVec
	// ProviderDuration observes live provider latency. labels: source
	ProviderDuration *prometheus.HistogramVec
	// ReportsBuilt counts finished reports. labels: completeness={full,partial,empty}
	ReportsBuilt *prometheus.CounterVec
	// ReportDuration observes end-to-end report build time.
	ReportDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CacheLookups,
		m.ProviderRequests,
		m.ProviderDuration,
		m.ReportsBuilt,
		m.ReportDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// construct as many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by source, tier and result.",
		}, []string{"source", "tier", "result"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Live provider requests by source and outcome.",
		}, []string{"source", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Live provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		ReportsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_built_total",
			Help:      "Context reports built, by how many categories carried a score.",
		}, []string{"completeness"}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_build_duration_seconds",
			Help:      "Duration of a complete report build.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20},
		}),
	}
}
