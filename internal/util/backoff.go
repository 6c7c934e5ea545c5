package util

import (
	"math"
	"math/rand"
	"time"
)

const (
	// Retry pacing for upstream dispatch
	DefaultRetryBaseDelay = 1 * time.Second
	DefaultRetryMaxDelay  = 10 * time.Second
	DefaultRetryJitterMax = 200 * time.Millisecond
)

// CalculateExponentialBackoff computes the deterministic backoff delay for a
// retry attempt. Formula: baseDelay * 2^(attempt-1), capped at maxDelay.
// Attempt numbering starts at 1; the jitter term is added separately so retry
// timing stays testable.
func CalculateExponentialBackoff(attempt int, baseDelay time.Duration, maxDelay time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}

	backoff := float64(baseDelay) * math.Pow(2, float64(attempt-1))
	if backoff > float64(maxDelay) {
		backoff = float64(maxDelay)
	}

	return time.Duration(backoff)
}

// RetryJitter returns a random delay in [0, max) to spread simultaneous
// retries against the same provider
func RetryJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}
