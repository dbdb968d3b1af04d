// Package cancel adapts a long-running, incrementally-emitting producer
// (an LLM completion stream) into something a single-threaded input loop
// can interrupt. It is the Go shape of original_source/common.py's
// cancelable(): there a producer thread pushed into a queue.Queue while the
// main loop polled stdin for Ctrl-C/Ctrl-D between dequeues; here the
// producer runs on its own goroutine writing to a channel, and Cancel is a
// plain method the input dispatcher calls the moment it sees a cancel byte
// on the stream it already reads.
package cancel

import (
	"context"
	"sync"
)

// IsCancelByte reports whether b is one of the two chords that abort an
// in-flight generation (Ctrl-C, Ctrl-D).
func IsCancelByte(b byte) bool {
	return b == 0x03 || b == 0x04
}

// Adapter runs produce on its own goroutine, forwarding items it emits over
// a channel until produce returns or Cancel is called.
type Adapter[T any] struct {
	out    chan T
	result chan error

	mu        sync.Mutex
	cancelled bool
	once      sync.Once
	cancelFn  context.CancelFunc
}

// Start launches produce in a new goroutine. produce must call emit for
// every item it wants to surface, in order, and must stop promptly once
// ctx is done — emit itself blocks until either the item is delivered or
// ctx is cancelled, so a produce loop that calls emit on every iteration
// will notice cancellation without any extra polling.
func Start[T any](produce func(ctx context.Context, emit func(T)) error) *Adapter[T] {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter[T]{
		out:      make(chan T, 32),
		result:   make(chan error, 1),
		cancelFn: cancel,
	}
	go func() {
		defer close(a.out)
		err := produce(ctx, func(item T) {
			select {
			case a.out <- item:
			case <-ctx.Done():
			}
		})
		a.result <- err
	}()
	return a
}

// Cancel stops the producer at its next emit or context check. Safe to call
// more than once or concurrently with Collect.
func (a *Adapter[T]) Cancel() {
	a.once.Do(func() {
		a.mu.Lock()
		a.cancelled = true
		a.mu.Unlock()
		a.cancelFn()
	})
}

// Cancelled reports whether Cancel has been called.
func (a *Adapter[T]) Cancelled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelled
}

// Items exposes the raw item channel for callers that want to react to
// each item as it arrives (e.g. to redraw a partial command as it streams
// in) rather than waiting for Collect.
func (a *Adapter[T]) Items() <-chan T {
	return a.out
}

// Err blocks until the producer has returned and reports its error, if any.
// It must be read after Items() has been fully drained or after Collect.
func (a *Adapter[T]) Err() error {
	return <-a.result
}

// Collect drains every item the producer manages to emit before it finishes
// or is cancelled, then returns them alongside the producer's error and
// whether Cancel was invoked. A cancelled stream still returns whatever
// partial items were already queued — the "partial-progress promotion"
// the original's cancelable() gave a caller that caught KeyboardInterrupt
// mid-iteration.
func (a *Adapter[T]) Collect() ([]T, error, bool) {
	var items []T
	for it := range a.out {
		items = append(items, it)
	}
	return items, a.Err(), a.Cancelled()
}
