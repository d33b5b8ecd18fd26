package runtime

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the collectors created by NewMetrics.
type MetricsConfig struct {
	// Namespace is the metric namespace (prefix).
	// Default: "sprout"
	Namespace string

	// Subsystem is the metric subsystem.
	// Default: "runtime"
	Subsystem string

	// ConstLabels are labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for render durations, in seconds.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the registerer the collectors are added to.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures MetricsConfig.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metric namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

// WithConstLabels sets labels added to all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithRegistry sets the registerer.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = registry }
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "sprout",
		Subsystem: "runtime",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Render modes, used as label values.
const (
	renderFull        = "full"
	renderIncremental = "incremental"
)

// Event outcomes, used as label values.
const (
	eventDispatched = "dispatched"
	eventDropped    = "dropped"
)

// Metrics holds the collectors shared by every runtime of a process.
// Create it once and hand it to each runtime with WithMetrics.
// A nil *Metrics records nothing.
type Metrics struct {
	renders        *prometheus.CounterVec
	deferred       prometheus.Counter
	patchBytes     prometheus.Histogram
	renderDuration prometheus.Histogram
	events         *prometheus.CounterVec
	dialogsQueued  prometheus.Gauge
	activeRuntimes prometheus.Gauge
}

// NewMetrics creates and registers the runtime collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Total number of render passes by mode",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),

		deferred: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_deferred_total",
			Help:        "Renders postponed because a patch was not yet acknowledged",
			ConstLabels: config.ConstLabels,
		}),

		patchBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patch_bytes",
			Help:        "Size of encoded patches sent to the frontend",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(64, 4, 8),
		}),

		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Time spent collecting, diffing and encoding a frame",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Frontend events by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		dialogsQueued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dialogs_queued",
			Help:        "Dialogs waiting or in flight across all runtimes",
			ConstLabels: config.ConstLabels,
		}),

		activeRuntimes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active",
			Help:        "Number of running runtimes",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) recordRender(mode string) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(mode).Inc()
}

func (m *Metrics) recordDeferred() {
	if m == nil {
		return
	}
	m.deferred.Inc()
}

func (m *Metrics) recordPatch(size int, took time.Duration) {
	if m == nil {
		return
	}
	m.patchBytes.Observe(float64(size))
	m.renderDuration.Observe(took.Seconds())
}

func (m *Metrics) recordEvent(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}

func (m *Metrics) addDialogs(delta int) {
	if m == nil {
		return
	}
	m.dialogsQueued.Add(float64(delta))
}

func (m *Metrics) addActive(delta int) {
	if m == nil {
		return
	}
	m.activeRuntimes.Add(float64(delta))
}
