package llm

import (
	"math/rand"
	"time"
)

// RetryConfig controls how transient failures are retried.
type RetryConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryConfig matches the gateway contract: three attempts starting
// at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       1 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// backoffDelay computes the wait before the given retry attempt (0-based),
// exponential with +/-25% jitter so concurrent callers spread out.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := float64(cfg.BackoffBase)
	for i := 0; i < attempt; i++ {
		delay *= cfg.BackoffMultiplier
	}
	if max := float64(cfg.MaxBackoff); cfg.MaxBackoff > 0 && delay > max {
		delay = max
	}

	jitter := 0.75 + rand.Float64()*0.5
	return time.Duration(delay * jitter)
}
