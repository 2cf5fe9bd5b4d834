// Package metrics holds the Prometheus instruments of a depth run.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vgkit/vgdepth/pkg/types"
)

const namespace = "vgdepth"

// Metrics groups the counters of one process on a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	queries     *prometheus.CounterVec
	unreachable prometheus.Counter
	duration    *prometheus.HistogramVec
}

// New creates the instruments and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total queries evaluated by result kind",
		}, []string{"kind"}),
		unreachable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unreachable_positions_total",
			Help:      "Path positions that fell outside their path",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent evaluating a single query",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 10},
		}, []string{"kind"}),
	}
	m.registry.MustRegister(m.queries, m.unreachable, m.duration)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveQuery records one evaluated query.
func (m *Metrics) ObserveQuery(kind types.ResultKind, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(string(kind)).Inc()
	m.duration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

// Unreachable records a path position that could not be resolved.
func (m *Metrics) Unreachable() {
	if m == nil {
		return
	}
	m.unreachable.Inc()
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
