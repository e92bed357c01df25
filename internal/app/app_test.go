package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pilab-dev/homefin-auth/config"
	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/pilab-dev/homefin-auth/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.ServerConfig {
	return &config.ServerConfig{
		StorageDriver:         config.StorageMemory,
		JWTSecretKey:          "app-test-secret-0123456789abcdefgh",
		JWTIssuer:             "homefin-auth",
		AccessTokenTTLMin:     15,
		RefreshTokenTTLHour:   24,
		PasswordHashCost:      bcrypt.MinCost,
		SessionTimeout:        5 * time.Minute,
		SessionGrace:          time.Minute,
		LockoutThreshold:      3,
		LockoutWindow:         15 * time.Minute,
		LockoutCoolOff:        15 * time.Minute,
		LoginAttemptRetention: time.Hour,
		TOTPIssuer:            "HomeFin",
		TOTPSkew:              1,
		BackupCodeCount:       10,
		BackupCodeCost:        bcrypt.MinCost,
		RedisKeyPrefix:        "homefin-test",
	}
}

// exerciseLogin creates a user and signs in through the wired services.
func exerciseLogin(t *testing.T, stores *Stores, cfg *config.ServerConfig) {
	t.Helper()
	ctx := context.Background()
	svc := NewServices(cfg, stores, nil)

	hash, err := svc.Hasher.Hash("s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, stores.Users.CreateUser(ctx, &domain.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}))

	pair, err := svc.Auth.Login(ctx, services.LoginRequest{Identity: "alice@example.com", Password: "s3cret-pass", IPAddress: "10.0.0.1"})
	require.NoError(t, err)

	claims, err := svc.Tokens.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	session, err := stores.Sessions.GetSession(ctx, claims.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)

	decision, err := svc.Limiter.Allow(ctx, "login:alice@example.com", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestOpenStores_Memory(t *testing.T) {
	cfg := testConfig()
	stores, err := OpenStores(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, stores.Close(context.Background())) }()

	assert.Empty(t, stores.HealthChecks)
	exerciseLogin(t, stores, cfg)
}

func TestOpenStores_BoltWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.StorageDriver = config.StorageBolt
	cfg.BoltPath = filepath.Join(t.TempDir(), "auth.db")
	cfg.RedisAddr = mr.Addr()

	stores, err := OpenStores(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, stores.Close(context.Background())) }()

	require.Len(t, stores.HealthChecks, 1)
	assert.NoError(t, stores.HealthChecks[0](context.Background()))
	exerciseLogin(t, stores, cfg)
	assert.NotEmpty(t, mr.Keys(), "sessions and counters live in redis")
}

func TestOpenStores_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.StorageDriver = "sqlite"
	_, err := OpenStores(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.RedisAddr = "127.0.0.1:1"
	_, err = OpenStores(context.Background(), cfg)
	assert.Error(t, err)
}
