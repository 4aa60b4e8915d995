// Package metrics holds the Prometheus collectors for stock and transfer
// activity. All methods are safe on a nil *Metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "zaloga"

// Metrics is a set of collectors registered on their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	transitions    *prometheus.CounterVec
	movements      *prometheus.CounterVec
	units          *prometheus.CounterVec
	insufficient   prometheus.Counter
	notifyFailures *prometheus.CounterVec
	notifyDropped  prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Transfer order transitions, by workflow event.",
		}, []string{"event"}),
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movements_total",
			Help:      "Committed stock ledger rows, by movement kind.",
		}, []string{"kind"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_units_moved_total",
			Help:      "Absolute units moved by committed ledger rows, by movement kind.",
		}, []string{"kind"}),
		insufficient: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insufficient_stock_total",
			Help:      "Shipments refused because a lot could not cover a line.",
		}),
		notifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be delivered, by sink.",
		}, []string{"sink"}),
		notifyDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_queue_dropped_total",
			Help:      "Notifications dropped because the queue was full or closed.",
		}),
	}

	m.Registry.MustRegister(m.transitions, m.movements, m.units, m.insufficient, m.notifyFailures, m.notifyDropped)
	return m
}

// Transition counts one order transition.
func (m *Metrics) Transition(event string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(event).Inc()
}

// Movement counts one committed ledger row.
func (m *Metrics) Movement(kind string, delta int) {
	if m == nil || delta == 0 {
		return
	}
	if delta < 0 {
		delta = -delta
	}
	m.movements.WithLabelValues(kind).Inc()
	m.units.WithLabelValues(kind).Add(float64(delta))
}

// InsufficientStock counts one refused shipment.
func (m *Metrics) InsufficientStock() {
	if m == nil {
		return
	}
	m.insufficient.Inc()
}

// NotificationFailed counts one failed delivery on the named sink.
func (m *Metrics) NotificationFailed(sink string) {
	if m == nil {
		return
	}
	m.notifyFailures.WithLabelValues(sink).Inc()
}

// NotificationDropped counts one notification the queue could not accept.
func (m *Metrics) NotificationDropped() {
	if m == nil {
		return
	}
	m.notifyDropped.Inc()
}

// WriteTextfile writes the current values in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
