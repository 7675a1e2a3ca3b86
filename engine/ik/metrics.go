package ik

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports solver telemetry. A nil *Metrics records nothing.
type Metrics struct {
	solves     *prometheus.CounterVec
	iterations *prometheus.HistogramVec
	distance   *prometheus.HistogramVec
}

// NewMetrics creates unregistered solver metrics under the given namespace.
//
// Parameters:
//   - namespace: the Prometheus namespace, e.g. "oxy_anim"
//
// Returns:
//   - *Metrics: the metric set; call Register to expose it
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ik",
			Name:      "solves_total",
			Help:      "IK solves by solver and outcome (converged, exhausted, unreachable).",
		}, []string{"solver", "outcome"}),
		iterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ik",
			Name:      "iterations",
			Help:      "Passes run per IK solve.",
			Buckets:   prometheus.LinearBuckets(0, 2, 8),
		}, []string{"solver"}),
		distance: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ik",
			Name:      "final_distance",
			Help:      "End-effector distance from target after an IK solve.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"solver"}),
	}
}

// Register adds every solver metric to r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.solves, m.iterations, m.distance} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observe(solver string, res Result) {
	if m == nil {
		return
	}
	outcome := "converged"
	switch {
	case !res.Reachable:
		outcome = "unreachable"
	case !res.Converged:
		outcome = "exhausted"
	}
	m.solves.WithLabelValues(solver, outcome).Inc()
	m.iterations.WithLabelValues(solver).Observe(float64(res.Iterations))
	m.distance.WithLabelValues(solver).Observe(float64(res.Distance))
}
