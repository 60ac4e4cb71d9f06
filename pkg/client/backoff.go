package client

import "time"

// Reconnect delays
const (
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 15 * time.Second
	DefaultBackoffFactor  = 1.5
)

// Backoff yields the reconnect delays: Initial, then each delay multiplied
// by Factor, capped at Max.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64

	next time.Duration
}

// NewBackoff returns the default reconnect backoff.
func NewBackoff(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if max <= 0 {
		max = DefaultMaxBackoff
	}
	return &Backoff{Initial: initial, Max: max, Factor: DefaultBackoffFactor, next: initial}
}

// Next returns the delay to wait now and advances the sequence.
func (b *Backoff) Next() time.Duration {
	if b.next <= 0 {
		b.next = b.Initial
	}
	d := b.next
	b.next = time.Duration(float64(b.next) * b.Factor)
	if b.next > b.Max {
		b.next = b.Max
	}
	return d
}

// Reset restarts the sequence at Initial.
func (b *Backoff) Reset() { b.next = b.Initial }
