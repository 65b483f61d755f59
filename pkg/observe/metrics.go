// Package observe provides the observability layer over the engine's event
// hooks: Prometheus metrics for signal lifecycle events and OpenTelemetry
// spans around effect functions. The core stays free of instrumentation; this
// package subscribes to it from the outside.
package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/linq2js/resignal"
)

// MetricsConfig configures the Prometheus lifecycle metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "resignal").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus lifecycle metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "resignal",
		Registry:  prometheus.DefaultRegisterer,
	}
}

type metrics struct {
	invocationsTotal *prometheus.CounterVec
	emitsTotal       *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	loadingTotal     *prometheus.CounterVec
	cancelsTotal     *prometheus.CounterVec
	liveContexts     prometheus.Gauge
}

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	counter := func(name, help string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, []string{"signal"})
	}

	return &metrics{
		invocationsTotal: counter("invocations_total",
			"Total number of signal invocations started"),
		emitsTotal: counter("emits_total",
			"Total number of successful signal resolutions"),
		errorsTotal: counter("errors_total",
			"Total number of failed signal resolutions"),
		loadingTotal: counter("loading_total",
			"Total number of resolutions that became asynchronous"),
		cancelsTotal: counter("cancels_total",
			"Total number of signal cancellations"),
		liveContexts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_contexts",
			Help:        "Number of effect contexts created and not yet disposed",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus registers lifecycle metrics fed from the engine's event hook.
// The returned stop function detaches the hook; the metrics stay registered.
//
// Anonymous signals are aggregated under the empty signal label.
func Prometheus(opts ...MetricsOption) (stop func()) {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	m := initMetrics(config)
	return resignal.OnEvent(func(ev resignal.Event) {
		switch ev.Kind {
		case resignal.EventInvoke:
			m.invocationsTotal.WithLabelValues(ev.Key).Inc()
			m.liveContexts.Inc()
		case resignal.EventEmit:
			m.emitsTotal.WithLabelValues(ev.Key).Inc()
		case resignal.EventError:
			m.errorsTotal.WithLabelValues(ev.Key).Inc()
		case resignal.EventLoading:
			m.loadingTotal.WithLabelValues(ev.Key).Inc()
		case resignal.EventCancel:
			m.cancelsTotal.WithLabelValues(ev.Key).Inc()
		case resignal.EventDispose:
			m.liveContexts.Dec()
		}
	})
}
