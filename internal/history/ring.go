package history

// Ring is a fixed-capacity FIFO. Pushing onto a full ring evicts the oldest item.
// Not safe for concurrent use; Buffer guards it.
type Ring[T any] struct {
	buf      []T
	head     int // oldest item
	tail     int // next write position
	count    int
	capacity int

	// Stats
	totalPushed int64
	evicted     int64
}

// NewRing creates a ring with the given capacity.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		buf:      make([]T, capacity),
		capacity: capacity,
	}
}

// Push appends an item, evicting the oldest if full.
func (r *Ring[T]) Push(item T) {
	if r.count == r.capacity {
		var zero T
		r.buf[r.head] = zero // Clear reference for GC
		r.head = (r.head + 1) % r.capacity
		r.count--
		r.evicted++
	}

	r.buf[r.tail] = item
	r.tail = (r.tail + 1) % r.capacity
	r.count++
	r.totalPushed++
}

// Last returns the newest item.
func (r *Ring[T]) Last() (T, bool) {
	if r.count == 0 {
		var zero T
		return zero, false
	}
	return r.buf[(r.tail-1+r.capacity)%r.capacity], true
}

// ReplaceLast overwrites the newest item. No-op on an empty ring.
func (r *Ring[T]) ReplaceLast(item T) {
	if r.count == 0 {
		return
	}
	r.buf[(r.tail-1+r.capacity)%r.capacity] = item
}

// Items returns a copy of all items, oldest first.
func (r *Ring[T]) Items() []T {
	result := make([]T, r.count)
	if r.count == 0 {
		return result
	}
	if r.head < r.tail {
		// Contiguous: [head...tail)
		copy(result, r.buf[r.head:r.tail])
	} else {
		// Wrapped: [head...end) + [0...tail)
		n := copy(result, r.buf[r.head:])
		copy(result[n:], r.buf[:r.tail])
	}
	return result
}

// Len returns the current number of items.
func (r *Ring[T]) Len() int {
	return r.count
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return r.capacity
}

// Stats returns ring statistics.
func (r *Ring[T]) Stats() RingStats {
	return RingStats{
		Count:       r.count,
		Capacity:    r.capacity,
		TotalPushed: r.totalPushed,
		Evicted:     r.evicted,
	}
}

// RingStats contains ring statistics.
type RingStats struct {
	Count       int
	Capacity    int
	TotalPushed int64
	Evicted     int64
}
