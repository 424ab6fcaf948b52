// Package metrics records the points emitted by the outbox relay.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Point statuses.
const (
	StatusOK          = "ok"
	StatusDeadlocked  = "deadlocked"
	StatusLockTimeout = "lock_timeout"
	StatusFailed      = "failed"
)

// QueuePoint is emitted once per partition per sweep.
type QueuePoint struct {
	PartitionKey string
	Status       string
	Enqueued     int
	Failed       int
}

// Sink receives relay metric points.
type Sink interface {
	WriteQueuePoint(point QueuePoint)
}

// Nop drops every point.
type Nop struct{}

// WriteQueuePoint implements Sink.
func (Nop) WriteQueuePoint(QueuePoint) {}

// Prometheus exposes relay points as prometheus collectors.
type Prometheus struct {
	Points   *prometheus.CounterVec
	Enqueued *prometheus.CounterVec
	Failed   *prometheus.CounterVec
}

// NewPrometheus creates the relay collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		Points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_relay_queue_points_total",
			Help: "Relay sweeps per partition by status",
		}, []string{"partition_key", "status"}),
		Enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_relay_enqueued_total",
			Help: "Outbox records pushed to the queue backend",
		}, []string{"partition_key"}),
		Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_relay_failed_total",
			Help: "Outbox records left pending after a failed attempt",
		}, []string{"partition_key"}),
	}

	for _, c := range []prometheus.Collector{p.Points, p.Enqueued, p.Failed} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register relay metrics: %w", err)
		}
	}

	return p, nil
}

// WriteQueuePoint implements Sink.
func (p *Prometheus) WriteQueuePoint(point QueuePoint) {
	p.Points.WithLabelValues(point.PartitionKey, point.Status).Inc()

	if point.Enqueued > 0 {
		p.Enqueued.WithLabelValues(point.PartitionKey).Add(float64(point.Enqueued))
	}

	if point.Failed > 0 {
		p.Failed.WithLabelValues(point.PartitionKey).Add(float64(point.Failed))
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
