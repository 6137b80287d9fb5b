package connection

import "time"

// Backoff produces reconnect delays: base, doubling each attempt, capped at max.
// Not safe for concurrent use; the transport guards it.
type Backoff struct {
	base     time.Duration
	max      time.Duration
	next     time.Duration
	attempts int
}

// NewBackoff creates a backoff starting at base and capped at max.
func NewBackoff(base, max time.Duration) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	return &Backoff{base: base, max: max, next: base}
}

// Next returns the delay for the upcoming attempt and advances the sequence.
func (b *Backoff) Next() time.Duration {
	d := b.next
	b.attempts++

	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// Reset restores the floor. Called only after a successful open.
func (b *Backoff) Reset() {
	b.next = b.base
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last Reset.
func (b *Backoff) Attempts() int {
	return b.attempts
}
