// Package queue provides the unbounded FIFO queues that connect an
// agent's transport, worker and event stream. Flow control is
// end-to-end: the kernel never blocks a producer, and the consumer
// paces itself by how fast it drains.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Get once the queue is closed and empty.
var ErrClosed = errors.New("queue closed")

// Queue is an unbounded FIFO. Put never blocks; Get blocks until an
// item arrives, the context is cancelled, or the queue is closed.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
	closed bool
}

// New returns an empty open queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{notify: make(chan struct{})}
}

// Put appends an item. Items offered after Close are dropped.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, item)
	close(q.notify)
	q.notify = make(chan struct{})
}

// Get removes and returns the oldest item, blocking while the queue
// is empty. It returns ctx.Err() on cancellation and ErrClosed once
// the queue has been closed and drained.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		if q.closed {
			q.mu.Unlock()
			return zero, ErrClosed
		}
		wait := q.notify
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-wait:
		}
	}
}

// TryGet removes and returns the oldest item without blocking.
func (q *Queue[T]) TryGet() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain discards all queued items and returns how many were removed.
func (q *Queue[T]) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// Close marks the queue closed and wakes all waiters. Safe to call
// more than once.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.notify)
}
