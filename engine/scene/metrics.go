package scene

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports scene tick telemetry. A nil *Metrics records nothing.
type Metrics struct {
	ticks        prometheus.Counter
	characters   prometheus.Gauge
	tickDuration prometheus.Histogram
}

// NewMetrics creates unregistered scene metrics under the given namespace.
//
// Parameters:
//   - namespace: the Prometheus namespace, e.g. "oxy_anim"
//
// Returns:
//   - *Metrics: the metric set; call Register to expose it
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scene",
			Name:      "ticks_total",
			Help:      "Completed scene updates.",
		}),
		characters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scene",
			Name:      "characters",
			Help:      "Characters registered in the scene.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scene",
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one scene update across all workers.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
}

// Register adds every scene metric to r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.ticks, m.characters, m.tickDuration} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observeTick(elapsed time.Duration, characters int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.characters.Set(float64(characters))
	m.tickDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) setCharacters(n int) {
	if m == nil {
		return
	}
	m.characters.Set(float64(n))
}
