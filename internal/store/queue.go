package store

import (
	"sync"

	"github.com/roach88/guildgrid/internal/model"
)

// eventQueue is a thread-safe FIFO of change events for one subscriber.
//
// The queue is unbounded so that a slow subscriber never blocks a writer's
// commit. It uses a channel for signaling so the delivery goroutine can
// sleep until work arrives.
type eventQueue struct {
	mu     sync.Mutex
	events []model.ChangeEvent
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]model.ChangeEvent, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e model.ChangeEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front event without blocking.
// Returns false if the queue is empty or closed; closing discards
// anything still pending.
func (q *eventQueue) TryDequeue() (model.ChangeEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.events) == 0 {
		return model.ChangeEvent{}, false
	}

	e := q.events[0]
	q.events[0] = model.ChangeEvent{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// The channel is closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops the queue and wakes any waiter. Idempotent.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	q.events = nil
	close(q.signal)
}
