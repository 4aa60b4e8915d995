package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/erazemk/zaloga/internal/metrics"
)

// DefaultQueueSize is the buffer used when none is configured.
const DefaultQueueSize = 64

// ErrQueueFull is returned when an event cannot be buffered.
var ErrQueueFull = errors.New("notification queue full")

// ErrQueueClosed is returned for events emitted after Close.
var ErrQueueClosed = errors.New("notification queue closed")

// Queue is a Sink that buffers events and delivers them to another sink
// from one background goroutine. Emit never blocks.
type Queue struct {
	sink    Sink
	log     *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	ch     chan Event
	closed bool
	done   chan struct{}
}

// NewQueue starts a queue delivering to sink.
func NewQueue(sink Sink, size int, log *slog.Logger, m *metrics.Metrics) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if log == nil {
		log = slog.Default()
	}
	q := &Queue{
		sink:    sink,
		log:     log,
		metrics: m,
		ch:      make(chan Event, size),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Name implements the sink label.
func (q *Queue) Name() string { return "queue" }

// Emit buffers ev, failing if the queue is full or closed.
func (q *Queue) Emit(_ context.Context, ev Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.metrics.NotificationDropped()
		return ErrQueueClosed
	}
	select {
	case q.ch <- ev:
		return nil
	default:
		q.metrics.NotificationDropped()
		return ErrQueueFull
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for ev := range q.ch {
		if err := q.sink.Emit(context.Background(), ev); err != nil {
			q.log.Warn("queued notification failed", "branch", ev.BranchID, "order", ev.OrderID,
				"event", ev.Event, "sink", sinkName(q.sink), "error", err)
			q.metrics.NotificationFailed(sinkName(q.sink))
		}
	}
}

// Close stops accepting events and waits until the buffered ones are
// delivered or ctx is done.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
