package engine

import (
	"sync"

	"github.com/roach88/hotclick/internal/model"
)

// statusQueue is a thread-safe unbounded FIFO of status values.
//
// Producers (the master loop and macro runs) enqueue from their own
// goroutines and must never block on the display layer, so the queue has
// no capacity limit. A single consumer drains it.
//
// The queue uses a 1-buffered channel for signaling so the consumer can wait
// in a select alongside context cancellation.
type statusQueue struct {
	mu     sync.Mutex
	items  []model.Status
	closed bool
	signal chan struct{}
}

func newStatusQueue() *statusQueue {
	return &statusQueue{
		items:  make([]model.Status, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds s to the back of the queue. Returns false if the queue is
// closed.
func (q *statusQueue) Enqueue(s model.Status) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, s)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front item without blocking.
func (q *statusQueue) TryDequeue() (model.Status, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return model.Status{}, false
	}

	s := q.items[0]
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return s, true
}

// Wait returns a channel that fires when items may be available. It is
// closed once the queue is closed.
func (q *statusQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *statusQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops further enqueues and wakes the consumer.
func (q *statusQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
