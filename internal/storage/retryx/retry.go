// Package retryx executes remote-store operations under a retry policy
// with exponential backoff. It is the only place in this subsystem where
// sleeping and retrying happen; every other component reaches the store
// exclusively through Do or DoValue.
package retryx

import (
	"context"
	"time"

	"github.com/lingodocs/docstore/internal/metrics"
	"github.com/lingodocs/docstore/internal/storage"
)

// Policy is a pure retry configuration value. One instance may be shared
// by all operations of a given retry class; it holds no mutable state.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration
	// BackoffFactor multiplies the delay after every attempt.
	BackoffFactor float64
	// MaxDelay caps the grown delay.
	MaxDelay time.Duration
}

// Default is the policy shared by call sites that have no reason to
// deviate.
func Default() Policy {
	return Policy{
		MaxRetries:    5,
		InitialDelay:  1 * time.Second,
		BackoffFactor: 2.0,
		MaxDelay:      16 * time.Second,
	}
}

// Delay returns the wait before the retry-th retry (1-based):
// InitialDelay * BackoffFactor^(retry-1), capped at MaxDelay.
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	d := float64(p.InitialDelay)
	for i := 1; i < retry; i++ {
		d *= p.BackoffFactor
		if d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// sleepFn is swapped out in tests to observe delays without waiting.
var sleepFn = sleepContext

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn under the policy. Transient failures (per storage.Retryable)
// are retried with backoff; anything else is returned immediately. When
// the budget is spent, the last failure is wrapped in a
// storage.ExhaustedError named after op.
func Do(ctx context.Context, p Policy, op string, fn func(context.Context) error) error {
	_, err := DoValue(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a result.
func DoValue[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			metrics.RecordStoreOperation(op, time.Since(start), true)
			return v, nil
		}

		if !storage.Retryable(err) {
			metrics.RecordStoreOperation(op, time.Since(start), false)
			return zero, err
		}

		if attempt == p.MaxRetries {
			metrics.RecordStoreOperation(op, time.Since(start), false)
			return zero, &storage.ExhaustedError{Op: op, Attempts: attempt + 1, Err: err}
		}

		metrics.RecordRetry(op)
		if serr := sleepFn(ctx, p.Delay(attempt+1)); serr != nil {
			return zero, serr
		}
	}
}
