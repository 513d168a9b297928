// Package queue provides the bounded in-memory hand-off between transports
// and pipeline workers.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/matchpred/internal/domain/model"
	"github.com/okian/matchpred/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Queue is a bounded FIFO of inbound messages.
type Queue interface {
	// Enqueue adds msg without blocking. It fails with ErrFull or ErrClosed.
	Enqueue(ctx context.Context, msg model.Message) error

	// Dequeue blocks for the next message. After Close it keeps returning
	// buffered messages and then ErrClosed.
	Dequeue(ctx context.Context) (model.Message, error)

	Len() int
	Cap() int

	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	messages chan model.Message
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.messages = make(chan model.Message, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, msg model.Message) error { //nolint:gocritic // hugeParam: passed by value into the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return fmt.Errorf("enqueue: %w", err)
	}

	select {
	case q.messages <- msg:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.messages))
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) (model.Message, error) {
	select {
	case msg, ok := <-q.messages:
		if !ok {
			return model.Message{}, ErrClosed
		}
		metrics.RecordQueueDequeue()
		metrics.UpdateQueueSize(len(q.messages))
		return msg, nil
	case <-ctx.Done():
		return model.Message{}, fmt.Errorf("dequeue: %w", ctx.Err())
	}
}

// Len returns the number of buffered messages.
func (q *InMemoryQueue) Len() int {
	size := len(q.messages)
	metrics.UpdateQueueSize(size)
	return size
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close stops intake. Buffered messages stay available to Dequeue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.messages)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
