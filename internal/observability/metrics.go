package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for engine self-monitoring.
// It uses a custom registry to avoid polluting the global default.
type Metrics struct {
	Registry *prometheus.Registry

	// Cycle metrics
	CycleTotal    prometheus.Counter
	CycleDuration prometheus.Histogram

	// Probe metrics
	ProbeFailuresTotal *prometheus.CounterVec
	HostUp             *prometheus.GaugeVec

	// Feed metrics
	Observers prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all Prometheus metrics
// registered on a custom registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		CycleTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hostwatch_cycle_total",
			Help: "Total number of completed poll cycles.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hostwatch_cycle_duration_seconds",
			Help:    "Duration of poll cycles in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),

		ProbeFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hostwatch_probe_failures_total",
			Help: "Total number of failed host probes.",
		}, []string{"host", "code"}),
		HostUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hostwatch_host_up",
			Help: "Whether the host's last probe succeeded (1 = up, 0 = not up).",
		}, []string{"host"}),

		Observers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hostwatch_observers",
			Help: "Current number of connected feed observers.",
		}),
	}

	// Register all metrics with the custom registry.
	reg.MustRegister(
		m.CycleTotal,
		m.CycleDuration,
		m.ProbeFailuresTotal,
		m.HostUp,
		m.Observers,
	)

	return m
}
