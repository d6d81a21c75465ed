package connection

import (
	"math/rand"
	"time"
)

// RetryPolicy computes reconnection delays. It is immutable; the mutable
// attempts-so-far counter lives in the Manager.
type RetryPolicy struct {
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	MaxAttempts    int
	JitterFraction float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		MaxAttempts:    10,
		JitterFraction: 0.1,
	}
}

func normalizePolicy(p RetryPolicy) RetryPolicy {
	def := DefaultRetryPolicy()
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.JitterFraction < 0 {
		p.JitterFraction = def.JitterFraction
	}
	return p
}

// Delay returns the backoff before the given attempt (1-based):
// min(base * 2^(attempt-1), max) plus uniform jitter in
// [0, JitterFraction * delay].
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	jitter := time.Duration(rand.Float64() * p.JitterFraction * float64(delay))
	return delay + jitter
}
