package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hexweather"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Sampling metrics.
	SamplingPasses prometheus.Counter
	PassCells      prometheus.Histogram
	IndexErrors    prometheus.Counter

	// Rendering metrics.
	BoundaryErrors prometheus.Counter
	BoundaryCache  *prometheus.CounterVec   // labels: result={hit,miss}
	RenderDuration *prometheus.HistogramVec // labels: renderer={raster,tiled,svg}
	FramesRendered *prometheus.CounterVec   // labels: renderer
	PointerEvents  *prometheus.CounterVec   // labels: event={move,click,leave,close}, outcome={hit,miss,none}
	ActiveViews    prometheus.Gauge

	// Snapshot sink metrics.
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SamplingPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sampling_passes_total",
			Help:      "Total synthetic sampling passes generated.",
		}),
		PassCells: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_cells",
			Help:      "Number of unique cells per sampling pass.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2000, 5000},
		}),
		IndexErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_errors_total",
			Help:      "Sample points the grid indexer could not resolve.",
		}),
		BoundaryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_errors_total",
			Help:      "Cells skipped during rendering because their boundary could not be resolved.",
		}),
		BoundaryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_cache_total",
			Help:      "Cell boundary cache lookups by result.",
		}, []string{"result"}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of a single frame render.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"renderer"}),
		FramesRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rendered_total",
			Help:      "Frames rendered by renderer.",
		}, []string{"renderer"}),
		PointerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pointer_events_total",
			Help:      "Pointer events by kind and whether they resolved to a sampled cell.",
		}, []string{"event", "outcome"}),
		ActiveViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_views",
			Help:      "Number of mounted map views.",
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Sampling passes published to the snapshot topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed snapshot publish attempts.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding requests by outcome.",
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
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when reverse geocoding of selected cells is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SamplingPasses,
		m.PassCells,
		m.IndexErrors,
		m.BoundaryErrors,
		m.BoundaryCache,
		m.RenderDuration,
		m.FramesRendered,
		m.PointerEvents,
		m.ActiveViews,
		m.SnapshotsPublished,
		m.PublishErrors,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}
