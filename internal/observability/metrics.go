package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "heatzone"

// Metrics holds the Prometheus counters, histograms, and gauges for the zone service.
type Metrics struct {
	Reloads          *prometheus.CounterVec // labels: outcome={success,schema_error,source_error,error}
	ReloadDuration   prometheus.Histogram
	ZonesLoaded      prometheus.Gauge
	ZonesByTier      *prometheus.GaugeVec // labels: tier={Critical,Medium,Safe}
	CoercionWarnings prometheus.Counter
	RefresherRunning prometheus.Gauge

	// Snapshot publishing metrics.
	SnapshotsPublished  *prometheus.CounterVec // labels: outcome={success,error}
	SnapshotMessages    prometheus.Counter
	SnapshotPublishTime prometheus.Histogram

	HTTPRequests *prometheus.CounterVec // labels: route, code
}

func newMetrics() *Metrics {
	return &Metrics{
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Dataset reload attempts by outcome.",
		}, []string{"outcome"}),
		ReloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reload_duration_seconds",
			Help:      "Duration of a complete load, classify and aggregate cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		ZonesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zones_loaded",
			Help:      "Number of zones in the active dataset.",
		}),
		ZonesByTier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "zones_by_tier",
			Help:      "Number of zones in the active dataset per risk tier.",
		}, []string{"tier"}),
		CoercionWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coercion_warnings_total",
			Help:      "Total cells that could not be coerced during loads.",
		}),
		RefresherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresher_running",
			Help:      "1 when periodic reload is active, 0 otherwise.",
		}),
		SnapshotsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Snapshot publish attempts by outcome.",
		}, []string{"outcome"}),
		SnapshotMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_messages_total",
			Help:      "Total zone messages written to the snapshot topic.",
		}),
		SnapshotPublishTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_publish_duration_seconds",
			Help:      "Duration of a snapshot publish.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route template and status code.",
		}, []string{"route", "code"}),
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Reloads,
		m.ReloadDuration,
		m.ZonesLoaded,
		m.ZonesByTier,
		m.CoercionWarnings,
		m.RefresherRunning,
		m.SnapshotsPublished,
		m.SnapshotMessages,
		m.SnapshotPublishTime,
		m.HTTPRequests,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
