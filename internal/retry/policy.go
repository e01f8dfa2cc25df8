// Package retry runs an operation a bounded number of times with a delay
// between sequential attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DelayFunc returns how long to wait after the given failed attempt (1-based).
type DelayFunc func(base time.Duration, attempt int) time.Duration

// Linear waits base*attempt.
func Linear(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

// Policy describes how an operation is retried. The zero Delay is Linear and
// a nil Retryable retries every error.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Delay       DelayFunc
	Retryable   func(error) bool

	// timer overrides the wall-clock timer in tests.
	timer backoff.Timer
}

// Operation is invoked once per attempt.
type Operation func(ctx context.Context, attempt int) error

// Notify observes every failed attempt, including the last one.
type Notify func(attempt int, err error)

// ErrInvalidPolicy is returned when MaxAttempts is below one.
var ErrInvalidPolicy = errors.New("retry: max attempts must be at least 1")

// Do runs op until it succeeds, returns a non-retryable error, the context
// ends or MaxAttempts attempts have failed. It returns the last error observed.
func (p Policy) Do(ctx context.Context, op Operation, notify Notify) error {
	if p.MaxAttempts < 1 {
		return ErrInvalidPolicy
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attempt := 0
	wrapped := func() error {
		attempt++
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		if notify != nil {
			notify(attempt, err)
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(&attemptBackOff{policy: p}, ctx)
	return backoff.RetryNotifyWithTimer(wrapped, b, nil, p.timer)
}

// attemptBackOff stops after MaxAttempts-1 waits.
type attemptBackOff struct {
	policy Policy
	failed int
}

func (b *attemptBackOff) Reset() { b.failed = 0 }

func (b *attemptBackOff) NextBackOff() time.Duration {
	b.failed++
	if b.failed >= b.policy.MaxAttempts {
		return backoff.Stop
	}
	delay := b.policy.Delay
	if delay == nil {
		delay = Linear
	}
	return delay(b.policy.BaseDelay, b.failed)
}
