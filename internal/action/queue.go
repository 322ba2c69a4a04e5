package action

import (
	"context"
	"sync"
)

// Queue is a thread-safe FIFO dispatcher that decouples listener callbacks
// from the state container. Listener firings enqueue from any goroutine; a
// single Run loop drains into the downstream dispatcher, so the container
// only ever sees one action at a time.
//
// The queue is unbounded: a burst of listener firings must never block the
// remote client's read loop.
type Queue struct {
	mu      sync.Mutex
	actions []Action
	closed  bool
	signal  chan struct{} // buffered size 1, coalesces wakeups
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		actions: make([]Action, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Dispatch enqueues an action. Implements Dispatcher. Actions dispatched
// after Close are dropped.
func (q *Queue) Dispatch(a Action) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.actions = append(q.actions, a)

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// TryNext dequeues without blocking. Returns false when the queue is empty.
func (q *Queue) TryNext() (Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return Action{}, false
	}

	a := q.actions[0]
	// Nil out the slot so the backing array does not retain Data payloads.
	q.actions[0] = Action{}
	if len(q.actions) == 1 {
		q.actions = q.actions[:0]
	} else {
		q.actions = q.actions[1:]
	}
	return a, true
}

// Len returns the number of pending actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// Close stops the queue. Pending actions are still drained by Run; further
// dispatches are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Run drains the queue into next until ctx is cancelled or the queue is
// closed and empty. Must be called from exactly one goroutine.
func (q *Queue) Run(ctx context.Context, next Dispatcher) error {
	for {
		if a, ok := q.TryNext(); ok {
			next.Dispatch(a)
			continue
		}

		select {
		case <-ctx.Done():
			q.Close()
			return ctx.Err()
		case <-q.signal:
			if q.Len() == 0 {
				q.mu.Lock()
				done := q.closed
				q.mu.Unlock()
				if done {
					return nil
				}
			}
		}
	}
}
