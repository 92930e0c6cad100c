package api

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig configures how often and how long the client backs off.
type RetryConfig struct {
	// MaxRetries is the ceiling for the retry counter. Once the counter
	// exceeds it, calls fail with RetryExhaustedError without any request.
	MaxRetries int
	// BackoffUnit scales the jittered linear backoff.
	BackoffUnit time.Duration
	// Rand returns a number in [0, 1). Defaults to math/rand.Float64.
	Rand func() float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:  DefaultMaxRetries,
		BackoffUnit: DefaultBackoffUnit,
		Rand:        rand.Float64,
	}
}

// Delay returns the backoff before the next attempt: a random fraction of
// retries backoff units. It is never longer than retries*BackoffUnit.
func (r *RetryConfig) Delay(retries int) time.Duration {
	if retries <= 0 {
		return 0
	}
	f := rand.Float64
	if r.Rand != nil {
		f = r.Rand
	}
	return time.Duration(f() * float64(retries) * float64(r.BackoffUnit))
}

// Wait blocks for Delay(retries) or until ctx is done.
func (r *RetryConfig) Wait(ctx context.Context, retries int) error {
	return sleepContext(ctx, r.Delay(retries))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
