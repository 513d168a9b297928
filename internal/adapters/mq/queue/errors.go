package queue

import "errors"

var (
	// ErrFull is returned by Enqueue when the queue is at capacity.
	ErrFull = errors.New("queue full")
	// ErrClosed is returned once the queue is closed, by Dequeue only after it is drained.
	ErrClosed = errors.New("queue closed")
)
