package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "disaster"

// Metrics holds the Prometheus counters and histograms for ingestion,
// answering, publishing, geocoding, and graph builds.
type Metrics struct {
	// Ingest cycle metrics.
	EventsFetched       *prometheus.CounterVec // labels: source
	SourceErrors        *prometheus.CounterVec // labels: source
	EventsStored        prometheus.Counter
	StoreErrors         prometheus.Counter
	IngestCycleDuration prometheus.Histogram
	IngestCycles        *prometheus.CounterVec // labels: outcome={success,error}
	IngestCyclesSkipped prometheus.Counter

	// Answers by mode={summary,fallback}.
	Answers *prometheus.CounterVec

	// Downstream publishing.
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram

	GraphBuildDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates metrics registered with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		EventsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_fetched_total",
			Help:      "Canonical events returned by each source adapter.",
		}, []string{"source"}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Failed fetches by source adapter.",
		}, []string{"source"}),
		EventsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_stored_total",
			Help:      "Events appended to the event store.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed event store inserts.",
		}),
		IngestCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_cycle_duration_seconds",
			Help:      "Duration of a complete fetch-and-store cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		IngestCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_cycles_total",
			Help:      "Completed ingest cycles by outcome.",
		}, []string{"outcome"}),
		IngestCyclesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_cycles_skipped_total",
			Help:      "Ingest triggers skipped because a cycle was already running.",
		}),
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answers produced by mode.",
		}, []string{"mode"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events written to the downstream Kafka topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed downstream publish batches.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GraphBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_build_duration_seconds",
			Help:      "Duration of knowledge graph builds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.EventsFetched,
		m.SourceErrors,
		m.EventsStored,
		m.StoreErrors,
		m.IngestCycleDuration,
		m.IngestCycles,
		m.IngestCyclesSkipped,
		m.Answers,
		m.EventsPublished,
		m.PublishErrors,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GraphBuildDuration,
	}
}
