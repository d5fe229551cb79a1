package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBackoff(attempts int) Backoff {
	return NewBackoff(attempts, time.Millisecond, nil)
}

func TestBackoff_Success(t *testing.T) {
	calls := 0
	err := testBackoff(3).Do(context.Background(), "op", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff_EventualSuccess(t *testing.T) {
	calls := 0
	err := testBackoff(5).Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoff_AllAttemptsFail(t *testing.T) {
	calls := 0
	want := errors.New("service unavailable")
	err := testBackoff(3).Do(context.Background(), "op", func() error {
		calls++
		return want
	})
	assert.Equal(t, want, err, "last error is returned unwrapped")
	assert.Equal(t, 3, calls)
}

func TestBackoff_StopsOnNonRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"permanent", Permanent(errors.New("401 unauthorized"))},
		{"wrapped permanent", fmt.Errorf("embed: %w", Permanent(errors.New("bad deployment")))},
		{"malformed response", fmt.Errorf("%w: unexpected token", ErrMalformedResponse)},
		{"vector count", fmt.Errorf("%w: sent 2 texts, got 1 vectors", ErrEmbeddingCount)},
		{"canceled", context.Canceled},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := testBackoff(5).Do(context.Background(), "op", func() error {
				calls++
				return tt.err
			})
			assert.Equal(t, tt.err, err)
			assert.Equal(t, 1, calls)
			assert.False(t, Retryable(err))
		})
	}
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, Permanent(nil))

	base := errors.New("forbidden")
	err := Permanent(base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "forbidden", err.Error())
	assert.True(t, Retryable(base))
	assert.False(t, Retryable(nil))
}

func TestBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := NewBackoff(10, 10*time.Millisecond, nil).Do(ctx, "op", func() error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("temporary")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestBackoff_ContextTimeoutDuringWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	err := NewBackoff(10, time.Second, nil).Do(ctx, "op", func() error {
		calls++
		return errors.New("temporary")
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls, "deadline expires during the first wait")
}

func TestBackoff_DelayDoubles(t *testing.T) {
	var stamps []time.Time
	err := NewBackoff(4, 10*time.Millisecond, nil).Do(context.Background(), "op", func() error {
		stamps = append(stamps, time.Now())
		return errors.New("temporary")
	})
	require.Error(t, err)
	require.Len(t, stamps, 4)

	for i, want := range []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond} {
		assert.GreaterOrEqual(t, stamps[i+1].Sub(stamps[i]), want, "wait %d", i+1)
	}
}

func TestBackoff_InvalidAttempts(t *testing.T) {
	for _, attempts := range []int{0, -1} {
		called := false
		err := testBackoff(attempts).Do(context.Background(), "op", func() error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
		assert.False(t, called)
	}
}

func TestBackoff_LogsRetries(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).
		With("component", "test-embedder")

	calls := 0
	err := NewBackoff(3, time.Millisecond, logger).Do(context.Background(), "embed texts", func() error {
		calls++
		if calls == 1 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "component=test-embedder")
	assert.Contains(t, out, `op="embed texts"`)
	assert.Contains(t, out, "attempt=1")
	assert.Contains(t, out, "max_attempts=3")
	assert.Contains(t, out, "model service call recovered")
}

func TestConfig_Backoff(t *testing.T) {
	cfg := NewConfig(WithRetry(4, 5*time.Millisecond))
	assert.Equal(t, 4, cfg.Backoff(nil).Attempts())
}
