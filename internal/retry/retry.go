// Package retry implements an explicit retry policy with exponential backoff
// and jitter for outbound network calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Retryable marks errors that should trigger another attempt. Errors that do
// not implement it are treated as permanent and returned immediately.
type Retryable interface {
	IsRetryable() bool
}

// Permanent wraps err so the policy gives up immediately.
func Permanent(err error) error {
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string     { return e.err.Error() }
func (e *permanentError) Unwrap() error     { return e.err }
func (e *permanentError) IsRetryable() bool { return false }

// Policy describes an exponential backoff schedule: delays start at BaseDelay
// and grow by Multiplier per attempt, capped at MaxDelay, for at most
// MaxAttempts total attempts. Each wait is jittered to 50–150% of the nominal
// delay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// DefaultPolicy matches the provider-fetch schedule: five attempts starting
// at one second, doubling, capped at 30 seconds.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Multiplier:  2.0,
		MaxDelay:    30 * time.Second,
	}
}

// Do runs fn until it succeeds, returns a permanent error, or the attempt
// budget is exhausted. The backoff wait is context-aware; cancellation during
// a wait returns ctx.Err().
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	delay := p.BaseDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		// Jitter: 50% to 150% of the nominal delay.
		wait := delay/2 + time.Duration(rand.Int63n(int64(delay)+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return fmt.Errorf("retry: %d attempts exhausted: %w", p.MaxAttempts, lastErr)
}

// isRetryable walks the error chain looking for a Retryable. Unknown errors
// (plain network failures, timeouts) are assumed transient.
func isRetryable(err error) bool {
	var r Retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return true
}
