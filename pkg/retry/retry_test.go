package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "tisescraper/pkg/errors"
)

func zeroDelayConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: 0},
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, zeroDelayConfig(3))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeNetwork, 0, "transient")
		}
		return nil
	}, zeroDelayConfig(5))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsBudget(t *testing.T) {
	calls := 0
	inner := errs.New(errs.ErrorTypeServerError, 503, "still down")
	err := Do(func() error {
		calls++
		return inner
	}, zeroDelayConfig(3))
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	// The wrapped error still unwraps to the last attempt's failure.
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	notFound := errs.New(errs.ErrorTypeNotFound, 404, "gone")
	err := Do(func() error {
		calls++
		return notFound
	}, zeroDelayConfig(5))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, notFound, err)
}

func TestDoHonorsCustomRetryIf(t *testing.T) {
	cfg := zeroDelayConfig(3)
	cfg.RetryIf = func(err error) bool { return true }

	calls := 0
	err := Do(func() error {
		calls++
		return errs.New(errs.ErrorTypeNotFound, 404, "gone")
	}, cfg)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Minute},
		RetryIf:     DefaultRetryIf,
		Context:     ctx,
	}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(func() error {
			calls++
			return errs.New(errs.ErrorTypeNetwork, 0, "transient")
		}, cfg)
	}()

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("retry loop did not observe cancellation")
	}
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(context.DeadlineExceeded))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeNetwork, 0, "x")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeRateLimit, 429, "x")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeServerError, 500, "x")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeNotFound, 404, "x")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeMalformed, 0, "x")))
	// Untyped errors get the benefit of the doubt.
	assert.True(t, DefaultRetryIf(errors.New("who knows")))
}

func TestExponentialBackoffProgression(t *testing.T) {
	eb := DefaultExponentialBackoff()
	assert.Equal(t, time.Second, eb.NextDelay(1))
	assert.Equal(t, 2*time.Second, eb.NextDelay(2))
	assert.Equal(t, 4*time.Second, eb.NextDelay(3))
}

func TestExponentialBackoffCap(t *testing.T) {
	eb := &ExponentialBackoff{BaseDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2.0}
	assert.Equal(t, 4*time.Second, eb.NextDelay(3))
	assert.Equal(t, 5*time.Second, eb.NextDelay(4))
	assert.Equal(t, 5*time.Second, eb.NextDelay(10))
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 100 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, cb.NextDelay(1))
	assert.Equal(t, 100*time.Millisecond, cb.NextDelay(7))
}
