package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionStore_Lifecycle(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, "homefin", time.Hour)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateSession(ctx, &domain.Session{
		ID:           "s1",
		UserID:       "u1",
		LastActivity: domain.FormatActivity(start),
		IPAddress:    "10.0.0.1",
		UserAgent:    "test",
		CreatedAt:    start,
	}))
	assert.Equal(t, time.Hour, mr.TTL("homefin:session:s1"))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "10.0.0.1", got.IPAddress)
	assert.True(t, start.Equal(got.CreatedAt))

	require.NoError(t, store.TouchSession(ctx, "s1", start.Add(2*time.Minute)))
	require.NoError(t, store.TouchSession(ctx, "s1", start.Add(time.Minute)))

	got, err = store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.FormatActivity(start.Add(2*time.Minute)), got.LastActivity, "older touches never win")

	require.NoError(t, store.DeleteSession(ctx, "s1"))
	_, err = store.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, store.TouchSession(ctx, "s1", start), domain.ErrSessionNotFound)
	assert.ErrorIs(t, store.DeleteSession(ctx, "s1"), domain.ErrSessionNotFound)
}

func TestSessionStore_TouchRepairsCorruptValue(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, "homefin", 0)
	ctx := context.Background()

	mr.HSet("homefin:session:s1", "user_id", "u1", "last_activity", "not-a-time")

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.TouchSession(ctx, "s1", at))
	assert.Equal(t, domain.FormatActivity(at), mr.HGet("homefin:session:s1", "last_activity"))
}

func TestCounterStore_FixedWindow(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewCounterStore(client, "homefin")
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		n, reset, err := store.Incr(ctx, "ip:10.0.0.1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
		assert.True(t, now.Add(time.Minute).Equal(reset))
	}

	mr.FastForward(time.Minute + time.Second)

	n, _, err := store.Incr(ctx, "ip:10.0.0.1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCounterStore_Unavailable(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewCounterStore(client, "homefin")
	mr.Close()

	_, _, err := store.Incr(context.Background(), "ip:10.0.0.1", time.Minute)
	assert.Error(t, err)
}
