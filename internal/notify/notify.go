// Package notify delivers branch-scoped notifications about transfer
// orders. Delivery is best effort: the Emitter logs and swallows sink
// failures so a missed notification never fails a transition.
package notify

import (
	"context"
	"log/slog"

	"github.com/erazemk/zaloga/internal/metrics"
)

// Event is one notification addressed to a branch.
type Event struct {
	BranchID string `json:"branch_id"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Link     string `json:"link,omitempty"`
	OrderID  string `json:"order_id,omitempty"`
	Event    string `json:"event,omitempty"`
}

// Sink delivers events.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })

// sinkName labels a sink in logs and metrics.
func sinkName(s Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "custom"
}

// Emitter is the call site the transfer workflow uses.
type Emitter struct {
	sink    Sink
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewEmitter wraps sink. A nil sink discards, a nil logger uses slog.Default.
func NewEmitter(sink Sink, log *slog.Logger, m *metrics.Metrics) *Emitter {
	if sink == nil {
		sink = Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{sink: sink, log: log, metrics: m}
}

// Emit delivers ev. Failures are logged at warn level and counted, never returned.
func (e *Emitter) Emit(ctx context.Context, ev Event) {
	if e == nil || ev.BranchID == "" {
		return
	}
	if err := e.sink.Emit(ctx, ev); err != nil {
		e.log.Warn("notification failed", "branch", ev.BranchID, "order", ev.OrderID, "event", ev.Event,
			"sink", sinkName(e.sink), "error", err)
		e.metrics.NotificationFailed(sinkName(e.sink))
	}
}
