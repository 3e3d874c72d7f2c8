package services

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryBase   = time.Second
)

// RetryPolicy retries an operation up to MaxAttempts times in total, waiting
// Backoff(n) after the n-th failure. Every error is retried; wrap with
// backoff.Permanent to stop early.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration

	// Timer drives the waits. Nil uses a real timer.
	Timer backoff.Timer
}

// ExponentialBackoff waits base * 2^attempt: 2s then 4s for a one-second base.
func ExponentialBackoff(base time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		return base << uint(attempt)
	}
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     ExponentialBackoff(DefaultRetryBase),
	}
}

// Do runs op until it succeeds, attempts run out or ctx is done. The last
// error is returned unchanged. onRetry, when set, is called before each wait.
func (p RetryPolicy) Do(ctx context.Context, op func(attempt int) error, onRetry func(attempt int, err error, wait time.Duration)) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := p.Backoff
	if delay == nil {
		delay = ExponentialBackoff(DefaultRetryBase)
	}

	attempt := 0
	operation := func() error {
		attempt++
		return op(attempt)
	}
	notify := func(err error, wait time.Duration) {
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(&attemptBackOff{delay: delay}, uint64(maxAttempts-1)),
		ctx,
	)
	return backoff.RetryNotifyWithTimer(operation, b, notify, p.Timer)
}

// attemptBackOff adapts a per-attempt delay function to backoff.BackOff.
type attemptBackOff struct {
	delay   func(attempt int) time.Duration
	attempt int
}

func (b *attemptBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.delay(b.attempt)
}

func (b *attemptBackOff) Reset() { b.attempt = 0 }
