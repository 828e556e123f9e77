package vo

import (
	"math/rand"
	"time"
)

// RetryPolicy computes backoff delays for transient failures. Delays double
// per attempt from BaseDelay and are capped at MaxDelay; Jittered spreads
// retries so workers that failed together do not retry together.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// Delay returns the deterministic backoff for a retry attempt (first retry is
// attempt 1).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Jittered randomizes a delay within [d/2, d].
func (p RetryPolicy) Jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// Exhausted reports whether the retry budget is used up after the given
// number of failed attempts.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}
