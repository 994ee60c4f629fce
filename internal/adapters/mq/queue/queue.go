// Package queue holds canonical batches waiting for asynchronous insertion.
package queue

import (
	"context"
	"sync"

	"github.com/okian/wastesync/internal/domain/model"
	"github.com/okian/wastesync/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Batch is the payload flowing through the queue.
type Batch = model.Batch

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds a batch. It never blocks; a full or closed queue
	// returns an error.
	Enqueue(ctx context.Context, b Batch) error

	// Dequeue returns the channel batches are delivered on. It is closed
	// once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Batch

	// Len returns the number of queued batches.
	Len(ctx context.Context) int

	// Close stops new enqueues. Batches already queued stay deliverable.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	batches  chan Batch
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.batches = make(chan Batch, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a batch to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, b Batch) error { //nolint:gocritic // hugeParam: Batch is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueRejected("context_cancelled")
		return err
	}

	select {
	case q.batches <- b:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.batches))
		return nil
	default:
		metrics.RecordQueueRejected("queue_full")
		return ErrFull
	}
}

// Dequeue returns the delivery channel. Every caller shares the same channel,
// so each batch goes to exactly one consumer.
func (q *InMemoryQueue) Dequeue(context.Context) <-chan Batch {
	return q.batches
}

// Len returns the current number of queued batches.
func (q *InMemoryQueue) Len(context.Context) int {
	size := len(q.batches)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops the queue from accepting batches.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.batches)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
