package dataflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(n int) *RetryConfig {
	return &RetryConfig{MaxRetries: n, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestWithRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	base := errors.New("bad request")
	err := WithRetry(context.Background(), fastRetry(5), func() error {
		calls++
		return permanent(base)
	})
	assert.ErrorIs(t, err, base)
	assert.Equal(t, 1, calls)
}

func TestWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := WithRetry(ctx, &RetryConfig{MaxRetries: 3, BaseDelay: time.Hour}, func() error {
		calls++
		return errors.New("down")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCacheManagerRoundTrip(t *testing.T) {
	cm := NewCacheManager(t.TempDir(), time.Hour, true)
	require.NoError(t, cm.Set("polygon", "details", "AAPL", map[string]string{"name": "Apple"}))

	var got map[string]string
	require.True(t, cm.Get("polygon", "details", "AAPL", &got))
	assert.Equal(t, "Apple", got["name"])

	assert.False(t, cm.Get("polygon", "details", "MSFT", &got))

	disabled := NewCacheManager(t.TempDir(), time.Hour, false)
	require.NoError(t, disabled.Set("x", "y", 1, 2))
	var n int
	assert.False(t, disabled.Get("x", "y", 1, &n))
}

func TestCallWithContextReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	block := make(chan struct{})
	defer close(block)

	_, err := callWithContext(ctx, func() (int, error) {
		<-block
		return 1, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
