// Package queue buffers ingest notifications between the delivery surface
// and the worker pool.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/metrics"
)

const defaultCapacity = 1024

// Event is the payload type flowing through the queue.
type Event = model.IngestEvent

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event. Returns false when the queue is full or closed.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns a channel delivering events until the queue closes.
	Dequeue(ctx context.Context) <-chan Event

	// Len returns the number of queued events.
	Len(ctx context.Context) int

	// Close stops the queue; the dequeue channel drains and closes.
	Close() error
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	events chan Event

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue with the configured capacity.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	cfg := options{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	metrics.UpdateQueueCapacity(cfg.capacity)
	metrics.UpdateQueueSize(0)
	return &InMemoryQueue{
		events: make(chan Event, cfg.capacity),
	}
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejection()
		return false
	}
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now().UTC()
	}

	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.events))
		return true
	case <-ctx.Done():
		metrics.RecordQueueRejection()
		return false
	default:
		// Queue full: backpressure to the caller.
		metrics.RecordQueueRejection()
		return false
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for event := range q.events {
			select {
			case out <- event:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.events))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len implements Queue.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.events)
}

// Close implements Queue. Safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
