package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analytics service.
type Metrics struct {
	DatasetLoads      *prometheus.CounterVec // labels: outcome={success,error}
	RowsLoaded        prometheus.Counter
	DateParseFailures prometheus.Counter
	DatasetReady      prometheus.Gauge

	// Load and query latency.
	DatasetLoadDuration prometheus.Histogram
	QueryDuration       *prometheus.HistogramVec // labels: query

	// Table cache metrics.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "dataset_loads_total",
			Help:      "Dataset load attempts by outcome.",
		}, []string{"outcome"}),
		RowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "rows_loaded_total",
			Help:      "Total incident rows parsed across all successful loads.",
		}),
		DateParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "date_parse_failures_total",
			Help:      "Rows whose Date column could not be parsed (row retained).",
		}),
		DatasetReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_analytics",
			Name:      "dataset_ready",
			Help:      "1 once the dataset has been loaded at least once.",
		}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_analytics",
			Name:      "dataset_load_duration_seconds",
			Help:      "Duration of a complete fetch-parse-derive cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "incident_analytics",
			Name:      "query_duration_seconds",
			Help:      "Duration of one filter-and-aggregate query.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"query"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "table_cache_lookups_total",
			Help:      "Table cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.DatasetLoads,
		m.RowsLoaded,
		m.DateParseFailures,
		m.DatasetReady,
		m.DatasetLoadDuration,
		m.QueryDuration,
		m.CacheLookups,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DatasetLoads:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "incident_analytics", Name: "dataset_loads_total"}, []string{"outcome"}),
		RowsLoaded:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "incident_analytics", Name: "rows_loaded_total"}),
		DateParseFailures:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "incident_analytics", Name: "date_parse_failures_total"}),
		DatasetReady:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "incident_analytics", Name: "dataset_ready"}),
		DatasetLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "incident_analytics", Name: "dataset_load_duration_seconds"}),
		QueryDuration:       prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "incident_analytics", Name: "query_duration_seconds"}, []string{"query"}),
		CacheLookups:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "incident_analytics", Name: "table_cache_lookups_total"}, []string{"result"}),
	}
}
