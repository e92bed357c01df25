package boltdb

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func TestUserRepository(t *testing.T) {
	repo := setupTestStore(t).Users()
	ctx := context.Background()

	u := &domain.User{Email: "Alice@Example.com", PasswordHash: "$2a$hash"}
	require.NoError(t, repo.CreateUser(ctx, u))
	assert.NotEmpty(t, u.ID)
	assert.ErrorIs(t, repo.CreateUser(ctx, &domain.User{Email: "alice@example.com"}), domain.ErrUserExists)

	got, err := repo.GetUserByEmail(ctx, "ALICE@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "$2a$hash", got.PasswordHash, "the hash survives the round trip")
	assert.Equal(t, domain.UserStatusActive, got.Status)

	_, err = repo.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestMFADeviceRepository(t *testing.T) {
	repo := setupTestStore(t).MFADevices()
	ctx := context.Background()

	d, err := repo.GetOrCreateDevice(ctx, "u1", func() (string, error) { return "FIRST", nil })
	require.NoError(t, err)
	assert.Equal(t, "FIRST", d.Secret)
	d, err = repo.GetOrCreateDevice(ctx, "u1", func() (string, error) { return "SECOND", nil })
	require.NoError(t, err)
	assert.Equal(t, "FIRST", d.Secret)

	enabled, err := repo.EnableDevice(ctx, "u1", []string{"a", "b", "c"}, time.Now())
	require.NoError(t, err)
	require.True(t, enabled)
	enabled, err = repo.EnableDevice(ctx, "u1", []string{"x"}, time.Now())
	require.NoError(t, err)
	assert.False(t, enabled, "a second enable leaves the first code set in place")

	ok, err := repo.ConsumeBackupCode(ctx, "u1", func(h string) bool { return h == "b" }, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.ConsumeBackupCode(ctx, "u1", func(h string) bool { return h == "b" }, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	d, err = repo.GetDevice(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, d.Enabled)
	assert.Equal(t, []string{"a", "c"}, d.BackupCodes)
	assert.NotNil(t, d.LastUsedAt)

	ok, err = repo.RecordTOTPUse(ctx, "u1", 7, time.Now(), true)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.RecordTOTPUse(ctx, "u1", 7, time.Now(), true)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.DeleteDevice(ctx, "u1"))
	_, err = repo.GetDevice(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrDeviceNotFound)
	_, err = repo.ConsumeBackupCode(ctx, "u1", func(string) bool { return true }, time.Now())
	assert.ErrorIs(t, err, domain.ErrDeviceNotFound)
}

func TestMFADeviceRepository_ConcurrentConsume(t *testing.T) {
	repo := setupTestStore(t).MFADevices()
	ctx := context.Background()

	_, err := repo.GetOrCreateDevice(ctx, "u1", func() (string, error) { return "S", nil })
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceBackupCodes(ctx, "u1", []string{"a", "b"}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ConsumeBackupCode(ctx, "u1", func(h string) bool { return h == "a" }, time.Now())
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestLoginAttemptRepository(t *testing.T) {
	repo := setupTestStore(t).LoginAttempts()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	record := func(identity, ip string, offset time.Duration, success bool) {
		require.NoError(t, repo.RecordAttempt(ctx, &domain.LoginAttempt{
			Identity:    identity,
			IPAddress:   ip,
			AttemptedAt: base.Add(offset),
			Success:     success,
		}))
	}
	record("alice@example.com", "10.0.0.1", 0, false)
	record("alice@example.com", "10.0.0.1", time.Minute, true)
	record("alice@example.com", "10.0.0.1", 2*time.Minute, false)
	record("alice@example.com.au", "10.0.0.2", 3*time.Minute, false)
	record("bob@example.com", "10.0.0.1", 4*time.Minute, false)

	list, err := repo.ListAttemptsByIdentity(ctx, "alice@example.com", base.Add(30*time.Second))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, base.Add(2*time.Minute).Equal(list[0].AttemptedAt), "newest first")
	assert.True(t, list[1].Success)

	n, err := repo.CountFailuresByIP(ctx, "10.0.0.1", base)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	deleted, err := repo.DeleteAttemptsByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted, "a longer identity sharing the prefix is untouched")

	n, err = repo.CountFailuresByIP(ctx, "10.0.0.1", base)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
