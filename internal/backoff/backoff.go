// Package backoff provides exponential backoff with jitter for retrying
// rate-limited or transiently failing external calls.
package backoff

import (
	"math/rand"
	"time"
)

// Backoff computes successive retry delays. Each Next call grows the delay
// exponentially up to a maximum, with optional jitter to avoid thundering
// herds against the provider.
type Backoff struct {
	base    time.Duration
	max     time.Duration
	jitter  float64 // fraction, e.g. 0.2 for ±20%
	attempt int
}

// New creates a backoff calculator.
func New(base, max time.Duration, jitter float64) *Backoff {
	return &Backoff{base: base, max: max, jitter: jitter}
}

// NewDefault returns a calculator with 1s base, 30s cap, ±20% jitter.
func NewDefault() *Backoff {
	return New(time.Second, 30*time.Second, 0.2)
}

// Next returns the wait before the following attempt: base * 2^attempt,
// capped at max, then jittered.
func (b *Backoff) Next() time.Duration {
	delay := b.base * time.Duration(int64(1)<<b.attempt)
	if delay > b.max || delay <= 0 {
		delay = b.max
	}
	if b.jitter > 0 {
		factor := 1.0 + (rand.Float64()*2-1)*b.jitter
		delay = time.Duration(float64(delay) * factor)
	}
	b.attempt++
	return delay
}

// Reset clears the attempt counter after a success.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt returns the number of Next calls since the last Reset.
func (b *Backoff) Attempt() int {
	return b.attempt
}
