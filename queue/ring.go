// Package queue provides a fixed-capacity FIFO ring used as the per-consumer
// mailbox of the hub.
//
// A Ring never grows and never blocks on its own: TryPush fails when the ring
// is full, DropOldest makes room by evicting the head, and PushWithin waits a
// bounded amount of time for a concurrent Pop to free a slot. The overflow
// policy is left to the caller.
//
// A Ring is safe for one producer and one consumer running concurrently;
// additional goroutines are also safe, since every operation takes the ring's
// mutex.
package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrInvalidCapacity is returned by New when capacity is not positive.
var ErrInvalidCapacity = errors.New("queue: capacity must be positive")

// Ring is a bounded circular FIFO of T.
type Ring[T any] struct {
	mu    sync.Mutex
	items []T
	head  int // next read position
	size  int

	// space is signalled (coalesced) whenever Pop or DropOldest frees a slot.
	space chan struct{}

	pushed  atomic.Uint64
	popped  atomic.Uint64
	evicted atomic.Uint64
	timeout atomic.Uint64
}

// New creates a ring holding at most capacity items.
func New[T any](capacity int) (*Ring[T], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Ring[T]{
		items: make([]T, capacity),
		space: make(chan struct{}, 1),
	}, nil
}

// TryPush appends item if a slot is free. It never waits.
func (r *Ring[T]) TryPush(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == len(r.items) {
		return false
	}
	r.items[(r.head+r.size)%len(r.items)] = item
	r.size++
	r.pushed.Add(1)
	return true
}

// PushWithin retries TryPush until it succeeds or wait elapses.
// A non-positive wait makes it equivalent to TryPush.
func (r *Ring[T]) PushWithin(item T, wait time.Duration) bool {
	if r.TryPush(item) {
		return true
	}
	if wait <= 0 {
		r.timeout.Add(1)
		return false
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-r.space:
			if r.TryPush(item) {
				return true
			}
		case <-timer.C:
			if r.TryPush(item) {
				return true
			}
			r.timeout.Add(1)
			return false
		}
	}
}

// Pop removes and returns the oldest item.
func (r *Ring[T]) Pop() (T, bool) {
	item, ok := r.take()
	if ok {
		r.popped.Add(1)
	}
	return item, ok
}

// DropOldest evicts the oldest item to make room for a newer one.
func (r *Ring[T]) DropOldest() (T, bool) {
	item, ok := r.take()
	if ok {
		r.evicted.Add(1)
	}
	return item, ok
}

func (r *Ring[T]) take() (T, bool) {
	r.mu.Lock()
	var zero T
	if r.size == 0 {
		r.mu.Unlock()
		return zero, false
	}
	item := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.size--
	r.mu.Unlock()

	select {
	case r.space <- struct{}{}:
	default:
	}
	return item, true
}

// Len returns the number of pending items.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Stats is a point-in-time copy of a ring's counters.
type Stats struct {
	Pushed   uint64 `json:"pushed"`
	Popped   uint64 `json:"popped"`
	Evicted  uint64 `json:"evicted"`
	TimedOut uint64 `json:"timed_out"`
	Pending  int    `json:"pending"`
	Capacity int    `json:"capacity"`
}

// Stats returns the ring's counters.
func (r *Ring[T]) Stats() Stats {
	return Stats{
		Pushed:   r.pushed.Load(),
		Popped:   r.popped.Load(),
		Evicted:  r.evicted.Load(),
		TimedOut: r.timeout.Load(),
		Pending:  r.Len(),
		Capacity: r.Cap(),
	}
}
