package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	orig := sleep
	sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	t.Cleanup(func() { sleep = orig })
	return &delays
}

func testPolicy() Policy {
	return Policy{MaxAttempts: 3, AttemptTimeout: time.Second, BaseDelay: time.Second}
}

func TestDo_FirstAttemptSucceeds(t *testing.T) {
	delays := recordSleeps(t)
	calls := 0
	err := testPolicy().Do(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
	require.Empty(t, *delays)
}

func TestDo_FailTwiceThenSucceed_BacksOffBaseThenDouble(t *testing.T) {
	delays := recordSleeps(t)
	calls := 0
	err := testPolicy().Do(context.Background(), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *delays)
}

func TestDo_AllAttemptsFail_ReturnsExhaustedWithLastError(t *testing.T) {
	recordSleeps(t)
	calls := 0
	lastErr := errors.New("still down")
	err := testPolicy().Do(context.Background(), func(_ context.Context) error {
		calls++
		if calls == 3 {
			return lastErr
		}
		return errors.New("down")
	})
	require.Equal(t, 3, calls)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Attempts)
	require.ErrorIs(t, err, lastErr)
}

func TestDo_AttemptTimeoutIsTerminal(t *testing.T) {
	delays := recordSleeps(t)
	p := Policy{MaxAttempts: 3, AttemptTimeout: 10 * time.Millisecond, BaseDelay: time.Second}
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 1, exhausted.Attempts)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, calls, "a hung upstream must not be retried")
	require.Empty(t, *delays)
}

func TestDo_ParentCancellationStopsLoop(t *testing.T) {
	recordSleeps(t)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := testPolicy().Do(ctx, func(_ context.Context) error {
		calls++
		cancel()
		return errors.New("failed during shutdown")
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 1, calls)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, 3, p.MaxAttempts)
	require.Equal(t, 30*time.Second, p.AttemptTimeout)
	require.Equal(t, time.Second, p.BaseDelay)
}
