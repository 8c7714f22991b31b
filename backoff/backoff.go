// Package backoff computes the retry delay store.Fail applies to a
// failed job.
package backoff

import (
	"math"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n
	// (1-indexed). Attempt 1 is the first retry after the initial
	// failure.
	Delay(attempt int) time.Duration
}

// powStrategy implements the exponential-backoff formula spec.md §4.3
// mandates: delay = base^attempt seconds, with no jitter and no
// initial/max clamp. Store.Fail uses this exclusively so that
// next_retry_at is reproducible from (attempts, backoff_base) alone.
type powStrategy struct {
	base float64
}

// Pow returns the deterministic base^attempt-seconds backoff policy.
func Pow(base float64) Strategy {
	return &powStrategy{base: base}
}

// Delay returns base^attempt seconds.
func (p *powStrategy) Delay(attempt int) time.Duration {
	seconds := math.Pow(p.base, float64(attempt))
	return time.Duration(seconds * float64(time.Second))
}
