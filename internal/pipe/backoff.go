package pipe

import (
	"math/rand"
	"time"
)

// Default backoff configuration values.
const (
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 10 * time.Second
)

// backoff implements exponential backoff with jitter. It never sleeps: the
// event loop asks for the next delay and keeps polling until it elapses.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
	jitter  func() float64
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
		jitter:  rand.Float64,
	}
}

// Next returns the current delay with ±20% jitter and doubles the delay for
// the following call.
func (b *backoff) Next() time.Duration {
	jitter := float64(b.current) * 0.2 * (b.jitter()*2 - 1)
	d := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Reset resets the backoff to the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the current backoff duration.
func (b *backoff) Current() time.Duration {
	return b.current
}
