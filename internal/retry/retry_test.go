package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Exponential(3, time.Millisecond), func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_Exhausted(t *testing.T) {
	var waits []time.Duration
	p := Exponential(3, time.Millisecond)
	p.OnRetry = func(attempt int, wait time.Duration, err error) {
		assert.Equal(t, len(waits)+1, attempt)
		assert.ErrorIs(t, err, errTransient)
		waits = append(waits, wait)
	}

	calls := 0
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return errTransient
	})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 4, calls, "first attempt plus three retries")
	assert.Equal(t, []time.Duration{2 * time.Millisecond, 4 * time.Millisecond, 8 * time.Millisecond}, waits)
}

func TestDo_ZeroRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Exponential(0, time.Millisecond), func(context.Context) error {
		calls++
		return errTransient
	})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDo_NonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	p := Exponential(5, time.Millisecond)
	p.Retryable = func(err error) bool { return !errors.Is(err, fatal) }

	calls := 0
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Exponential(5, time.Hour)
	p.OnRetry = func(int, time.Duration, error) { cancel() }

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, func(context.Context) error { return errTransient })
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not stop on cancellation")
	}
}

func TestDo_OperationSeesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Exponential(5, time.Millisecond), func(ctx context.Context) error {
		calls++
		cancel()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPolicy_TotalWait(t *testing.T) {
	assert.Equal(t, 14*time.Second, Exponential(3, time.Second).TotalWait())
	assert.Equal(t, 62*time.Second, Exponential(5, time.Second).TotalWait())
	assert.Equal(t, time.Duration(0), Exponential(0, time.Second).TotalWait())
}
