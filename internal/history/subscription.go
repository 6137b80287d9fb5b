package history

import (
	"sync"
	"sync/atomic"
)

// Subscription receives points appended to one series after it was created.
//
// Delivery never blocks the writer. If the consumer falls behind and the channel fills up,
// points are dropped and Lagged reports true; the consumer should re-hydrate from a fresh
// snapshot. Reset fires (coalesced) when the buffer is cleared on a mode transition.
type Subscription[T any] struct {
	c       chan T
	reset   chan struct{}
	lagged  atomic.Bool
	dropped atomic.Int64

	closeOnce sync.Once
	unlink    func(*Subscription[T])
}

func newSubscription[T any](unlink func(*Subscription[T])) *Subscription[T] {
	return &Subscription[T]{
		c:      make(chan T, subscriptionBuffer),
		reset:  make(chan struct{}, 1),
		unlink: unlink,
	}
}

// C returns the point channel. It is closed by Close.
func (s *Subscription[T]) C() <-chan T {
	return s.c
}

// Reset returns a channel signalled when the buffer was reset.
func (s *Subscription[T]) Reset() <-chan struct{} {
	return s.reset
}

// Lagged reports whether any point was dropped because the consumer fell behind.
func (s *Subscription[T]) Lagged() bool {
	return s.lagged.Load()
}

// Dropped returns the number of points dropped.
func (s *Subscription[T]) Dropped() int64 {
	return s.dropped.Load()
}

// Close unregisters the subscription and closes its channel. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		// unlink takes the buffer lock, so no deliver runs concurrently with the close.
		s.unlink(s)
		close(s.c)
	})
}

// deliver is called with the buffer lock held.
func (s *Subscription[T]) deliver(p T) {
	select {
	case s.c <- p:
	default:
		s.lagged.Store(true)
		s.dropped.Add(1)
	}
}

func (s *Subscription[T]) markReset() {
	select {
	case s.reset <- struct{}{}:
	default:
	}
}
