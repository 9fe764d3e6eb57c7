package reconcile

import (
	"math/rand"
	"time"
)

const backoffMultiplier = 2.0

// backoff yields reconnect delays. With max <= initial every delay is
// exactly initial. Otherwise it is truncated exponential with ±25% jitter.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, maxDelay time.Duration) *backoff {
	return &backoff{initial: initial, max: maxDelay, current: initial}
}

func (b *backoff) fixed() bool { return b.max <= b.initial }

// next returns the current delay and advances the internal state.
func (b *backoff) next() time.Duration {
	if b.fixed() {
		return b.initial
	}

	d := b.current
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

func (b *backoff) reset() {
	b.current = b.initial
}
