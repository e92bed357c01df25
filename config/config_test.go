package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	return file
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, StorageMongo, cfg.StorageDriver)
	assert.Equal(t, 15*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 2*time.Minute, cfg.SessionGrace)
	assert.Equal(t, 24*time.Hour+17*time.Minute, cfg.SessionRetention())
	assert.Equal(t, 30, cfg.KeepAliveRateLimit)
	assert.Equal(t, 5, cfg.LockoutThreshold)
	assert.Equal(t, 1, cfg.TOTPSkew)
	assert.False(t, cfg.TOTPRejectReplay)
	assert.Equal(t, 10, cfg.BackupCodeCount)
	assert.Contains(t, cfg.SessionExemptPaths, "/healthz")
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	file := writeConfig(t, `
STORAGE_DRIVER: bolt
BOLT_PATH: /var/lib/homefin/auth.db
SESSION_TIMEOUT: 5m
SESSION_GRACE: 60s
`)
	t.Setenv("LOCKOUT_IP_THRESHOLD", "50")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, StorageBolt, cfg.StorageDriver)
	assert.Equal(t, "/var/lib/homefin/auth.db", cfg.BoltPath)
	assert.Equal(t, 300*time.Second, cfg.SessionTimeout)
	assert.Equal(t, 60*time.Second, cfg.SessionGrace)
	assert.Equal(t, 50, cfg.LockoutIPThreshold)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadConfig_RejectsInvalidFile(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "SESSION_GRACE: -1m\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_GRACE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"defaults", func(*ServerConfig) {}, ""},
		{"idle tracking off", func(c *ServerConfig) { c.SessionTimeout = 0 }, ""},
		{"negative grace", func(c *ServerConfig) { c.SessionGrace = -time.Second }, "SESSION_GRACE"},
		{"zero lockout threshold", func(c *ServerConfig) { c.LockoutThreshold = 0 }, "LOCKOUT_THRESHOLD"},
		{"cool-off beyond window", func(c *ServerConfig) { c.LockoutCoolOff = time.Hour }, "LOCKOUT_COOLOFF"},
		{"zero keep-alive limit", func(c *ServerConfig) { c.KeepAliveRateLimit = 0 }, "KEEPALIVE_RATE_LIMIT"},
		{"unknown driver", func(c *ServerConfig) { c.StorageDriver = "sqlite" }, "STORAGE_DRIVER"},
		{"short jwt secret", func(c *ServerConfig) { c.JWTSecretKey = "short" }, "JWT_SECRET_KEY"},
		{"bcrypt cost too low", func(c *ServerConfig) { c.BackupCodeCost = 1 }, "BACKUP_CODE_COST"},
		{"negative skew", func(c *ServerConfig) { c.TOTPSkew = -1 }, "TOTP_SKEW"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, ""))
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSessionRetention_OutlivesHardExpiry(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want time.Duration
	}{
		{"tracking", ServerConfig{SessionTimeout: 5 * time.Minute, SessionGrace: time.Minute, RefreshTokenTTLHour: 1}, time.Hour + 6*time.Minute},
		{"negative grace", ServerConfig{SessionTimeout: 5 * time.Minute, SessionGrace: -time.Minute, RefreshTokenTTLHour: 1}, time.Hour + 5*time.Minute},
		{"tracking disabled", ServerConfig{RefreshTokenTTLHour: 2}, 2 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.SessionRetention())
			if tt.cfg.SessionTimeout > 0 {
				assert.Greater(t, tt.cfg.SessionRetention(), tt.cfg.SessionTimeout+max(tt.cfg.SessionGrace, 0))
			}
		})
	}
}
