// Package metrics records per-operation outcomes and latencies of the todo
// services and exposes them to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives one observation per service operation.
type Recorder interface {
	// Observe records that op finished with result after elapsed.
	// result is "ok" or an error kind label.
	Observe(op, result string, elapsed time.Duration)
}

// Nop discards observations.
type Nop struct{}

// Observe implements Recorder.
func (Nop) Observe(string, string, time.Duration) {}

// Prometheus is a Recorder backed by a counter and a histogram vector.
type Prometheus struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophtodo",
			Name:      "operations_total",
			Help:      "Todo operations by operation and result.",
		}, []string{"op", "result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gophtodo",
			Name:      "operation_duration_seconds",
			Help:      "Todo operation latency, including the store transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	for _, c := range []prometheus.Collector{p.operations, p.durations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Observe implements Recorder.
func (p *Prometheus) Observe(op, result string, elapsed time.Duration) {
	p.operations.WithLabelValues(op, result).Inc()
	p.durations.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
