// Package queue provides the unbounded in-memory work queue shared by the
// coalesce registry and its worker pool. Producers push without blocking;
// consumers drain a plain receive channel, so the queue is naturally
// multi-producer/multi-consumer with FIFO delivery into the channel (no
// ordering is promised across concurrent consumers).
package queue

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Push once the queue has been closed.
var ErrClosed = errors.New("queue: closed")

// Unbounded is a FIFO queue with no capacity bound. Push appends under a
// short mutex and never waits on consumers; a pump goroutine moves items
// to the consumer channel. Close stops new pushes, but items already
// queued are still delivered; the consumer channel closes only once the
// backlog drains.
type Unbounded[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool

	out    chan T
	notify chan struct{}
}

// New creates an open queue and starts its pump goroutine.
func New[T any]() *Unbounded[T] {
	q := &Unbounded[T]{
		out:    make(chan T),
		notify: make(chan struct{}, 1),
	}
	go q.pump()
	return q
}

// Push appends an item to the queue. It never blocks and fails only with
// ErrClosed after Close.
func (q *Unbounded[T]) Push(item T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.wake()
	return nil
}

// Chan returns the consumer endpoint. It may be called repeatedly and the
// channel may be shared by any number of concurrent receivers. The channel
// is closed once the queue is closed and fully drained.
func (q *Unbounded[T]) Chan() <-chan T { return q.out }

// Len returns the number of items buffered behind the consumer channel.
func (q *Unbounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue closed. Pending items remain deliverable; Push
// calls from this point on fail with ErrClosed. Close is idempotent.
func (q *Unbounded[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// wake nudges the pump without blocking; the buffer of one collapses
// redundant notifications.
func (q *Unbounded[T]) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pump moves items from the internal buffer to the consumer channel. If
// the queue is abandoned with a backlog and no consumer, pump parks on the
// send until process exit; an orderly shutdown drains the queue first.
func (q *Unbounded[T]) pump() {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()

			q.out <- item
			continue
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			close(q.out)
			return
		}
		<-q.notify
	}
}
