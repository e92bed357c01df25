package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pilab-dev/homefin-auth/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowLimiter_Allow(t *testing.T) {
	store := cache.NewMemoryCounterStore()
	defer store.Close()
	limiter := NewFixedWindowLimiter(store, "test")
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := limiter.Allow(ctx, "keepalive:u1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, int64(i), d.Count)
	}

	d, err := limiter.Allow(ctx, "keepalive:u1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.False(t, d.ResetAt.IsZero())

	d, err = limiter.Allow(ctx, "keepalive:u2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestFixedWindowLimiter_Disabled(t *testing.T) {
	counters := new(MockCounterStore)
	limiter := NewFixedWindowLimiter(counters, "test")

	d, err := limiter.Allow(context.Background(), "k", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	counters.AssertNotCalled(t, "Incr", mock.Anything, mock.Anything, mock.Anything)
}

func TestFixedWindowLimiter_FailsOpen(t *testing.T) {
	counters := new(MockCounterStore)
	limiter := NewFixedWindowLimiter(counters, "test")
	ctx := context.Background()

	counters.On("Incr", ctx, "test:login:alice@example.com", time.Minute).
		Return(int64(0), time.Time{}, errors.New("redis: connection refused")).Once()

	d, err := limiter.Allow(ctx, "login:alice@example.com", 5, time.Minute)
	assert.Error(t, err)
	assert.True(t, d.Allowed)
	counters.AssertExpectations(t)
}
