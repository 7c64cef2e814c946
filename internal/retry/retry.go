// Package retry provides a small retry policy value object for calls to
// occasionally-failing upstreams: bounded attempts, a hard per-attempt
// timeout, and exponential backoff between retriable failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// AttemptTimeout bounds each individual attempt. Exceeding it is
	// terminal: a hung upstream must not cause further attempts.
	AttemptTimeout time.Duration

	// BaseDelay is the backoff before the second attempt; it doubles for
	// each subsequent retry (1s, 2s, 4s, ...). No jitter.
	BaseDelay time.Duration
}

// DefaultPolicy matches the upstream envelope in the chat pipeline:
// 3 attempts, 30s per attempt, 1s base backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		AttemptTimeout: 30 * time.Second,
		BaseDelay:      time.Second,
	}
}

// ExhaustedError is returned when every attempt failed. It carries the
// last underlying error for diagnostics.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// sleep is a test hook.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs op under the policy. Each attempt receives a context bounded by
// AttemptTimeout; an attempt that exceeds its deadline stops the loop
// immediately, any other failure is retried after backoff. The parent ctx
// cancels the whole loop. Returns nil on the first success, otherwise an
// *ExhaustedError wrapping the last failure.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			if err := sleep(ctx, delay); err != nil {
				return &ExhaustedError{Attempts: attempt, Err: err}
			}
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if p.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
		}
		err := op(attemptCtx)
		timedOut := attemptCtx.Err() != nil && ctx.Err() == nil
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		// Attempt deadline exceeded: the upstream is hung, not flapping.
		if timedOut && errors.Is(err, context.DeadlineExceeded) {
			return &ExhaustedError{Attempts: attempt + 1, Err: err}
		}
		if ctx.Err() != nil {
			return &ExhaustedError{Attempts: attempt + 1, Err: err}
		}
	}
	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}
