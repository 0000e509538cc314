// Package queue carries game events from a session to its consumers.
//
// The game loop must never block on a slow consumer, so Enqueue is
// non-blocking and reports false when the event was dropped. The one
// exception is game_end, which waits for room until ctx ends.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/groove/internal/domain/model"
	"github.com/okian/groove/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 4096
	defaultBufferSize    = 4096
)

// Event is the payload flowing through the queue.
type Event = model.Event

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event to the queue.
	// Returns false if the queue is full or closed and the event was dropped.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns a channel that receives events as they become available.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Event

	// Len returns the current number of queued events.
	Len(ctx context.Context) int

	// Close stops accepting events. Already queued events are still delivered.
	Close() error

	// IsClosed reports whether Close has been called.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events     chan Event
	capacity   int
	bufferSize int
	mu         sync.RWMutex
	closed     bool
	dropped    map[model.EventKind]int
	dropMu     sync.Mutex
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
		dropped:    make(map[model.EventKind]int),
	}
	for _, opt := range opts {
		opt(q)
	}
	// the channel never holds more than capacity
	q.bufferSize = min(q.bufferSize, q.capacity)
	q.events = make(chan Event, q.bufferSize)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds an event to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop(e.Kind, "closed")
		return false
	}
	if ctx.Err() != nil {
		q.drop(e.Kind, "context_cancelled")
		return false
	}

	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		q.observe()
		return true
	default:
	}

	// a finished run must reach the store; wait for room instead of dropping
	if e.Kind == model.KindGameEnd {
		select {
		case q.events <- e:
			metrics.RecordQueueEnqueue()
			q.observe()
			return true
		case <-ctx.Done():
			q.drop(e.Kind, "context_cancelled")
			return false
		}
	}
	q.drop(e.Kind, "queue_full")
	return false
}

func (q *InMemoryQueue) drop(kind model.EventKind, reason string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
	q.dropMu.Lock()
	q.dropped[kind]++
	q.dropMu.Unlock()
}

func (q *InMemoryQueue) observe() {
	size := len(q.events)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Dequeue returns a channel that will receive events as they become available.
// Several consumers may call Dequeue; each event is delivered to exactly one.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-q.events:
				if !ok {
					return
				}
				select {
				case out <- e:
					metrics.RecordQueueDequeue()
					q.observe()
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len(_ context.Context) int {
	q.observe()
	return len(q.events)
}

// Dropped returns how many events of the given kind were refused.
func (q *InMemoryQueue) Dropped(kind model.EventKind) int {
	q.dropMu.Lock()
	defer q.dropMu.Unlock()
	return q.dropped[kind]
}

// Close stops accepting events. Consumers drain what is left.
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

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
