package presence

import (
	"math"
	"math/rand/v2"
	"time"
)

// ReconnectStrategy decides whether and when a dropped or failed connection is retried.
// attempt starts at 1 for the first retry after a failure.
type ReconnectStrategy interface {
	NextDelay(attempt int) (time.Duration, bool)
}

// NoReconnect never retries. It is the default.
type NoReconnect struct{}

func (NoReconnect) NextDelay(int) (time.Duration, bool) {
	return 0, false
}

// ExponentialBackoff retries after Base*Multiplier^(attempt-1), capped at Max,
// with a symmetric random jitter of up to Jitter (0..1) of the delay.
// MaxAttempts <= 0 retries forever.
type ExponentialBackoff struct {
	Base        time.Duration
	Max         time.Duration
	Multiplier  float64
	Jitter      float64
	MaxAttempts int

	// Rand returns a value in [0,1). Nil uses math/rand/v2.
	Rand func() float64
}

// DefaultBackoff returns a backoff starting at 500ms, doubling up to 30s, with 20% jitter.
func DefaultBackoff(maxAttempts int) ExponentialBackoff {
	return ExponentialBackoff{
		Base:        500 * time.Millisecond,
		Max:         30 * time.Second,
		Multiplier:  2,
		Jitter:      0.2,
		MaxAttempts: maxAttempts,
	}
}

func (b ExponentialBackoff) NextDelay(attempt int) (time.Duration, bool) {
	if attempt < 1 {
		attempt = 1
	}
	if b.MaxAttempts > 0 && attempt > b.MaxAttempts {
		return 0, false
	}

	base := b.Base
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 2
	}

	d := float64(base) * math.Pow(mult, float64(attempt-1))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}

	if j := math.Min(math.Max(b.Jitter, 0), 1); j > 0 {
		r := b.Rand
		if r == nil {
			r = rand.Float64
		}
		d = d * (1 - j + 2*j*r())
	}

	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	return time.Duration(d), true
}
