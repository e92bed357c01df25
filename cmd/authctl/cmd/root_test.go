package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pilab-dev/homefin-auth/boltdb"
	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/pilab-dev/homefin-auth/internal/auth/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeBoltConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "auth.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"STORAGE_DRIVER: bolt\nBOLT_PATH: "+dbPath+"\nPASSWORD_HASH_COST: 4\nBACKUP_CODE_COST: 4\n",
	), 0o600))
	return cfgPath, dbPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUserAddAndMFAStatus(t *testing.T) {
	cfgPath, _ := writeBoltConfig(t)

	out, err := runCLI(t, "--config", cfgPath, "user", "add", "--email", "Alice@Example.com", "--password", "long-enough")
	require.NoError(t, err)
	var created map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &created))
	assert.Equal(t, "alice@example.com", created["email"])
	require.NotEmpty(t, created["id"])

	out, err = runCLI(t, "--config", cfgPath, "mfa", "status", created["id"])
	require.NoError(t, err)
	assert.Contains(t, out, "enabled: false")
	assert.Contains(t, out, "backup_codes_remaining: 0")

	out, err = runCLI(t, "--config", cfgPath, "mfa", "reset", created["id"])
	require.NoError(t, err)
	assert.Contains(t, out, "MFA reset for")

	_, err = runCLI(t, "--config", cfgPath, "user", "add", "--email", "bob@example.com", "--password", "short")
	assert.Error(t, err)
}

func TestLockoutStatusAndClear(t *testing.T) {
	cfgPath, dbPath := writeBoltConfig(t)

	store, err := boltdb.Open(dbPath)
	require.NoError(t, err)
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.LoginAttempts().RecordAttempt(context.Background(), &domain.LoginAttempt{
			ID:            "a" + string(rune('0'+i)),
			Identity:      "alice@example.com",
			IPAddress:     "10.0.0.1",
			AttemptedAt:   now.Add(time.Duration(i-5) * time.Second),
			FailureReason: "invalid_credentials",
		}))
	}
	require.NoError(t, store.Close())

	out, err := runCLI(t, "--config", cfgPath, "lockout", "status", "ALICE@example.com")
	require.NoError(t, err)
	var state domain.LockoutState
	require.NoError(t, yaml.Unmarshal([]byte(out), &state))
	assert.Equal(t, 5, state.ConsecutiveFailures)
	assert.True(t, state.Locked)

	out, err = runCLI(t, "--config", cfgPath, "lockout", "clear", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 5 attempts")

	out, err = runCLI(t, "--config", cfgPath, "lockout", "status", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "locked: false")
}

func TestTOTPCode(t *testing.T) {
	key, _, err := totp.GenerateTOTPSecret("HomeFin", "alice@example.com")
	require.NoError(t, err)
	at := time.Unix(1_767_225_615, 0)
	want, err := totp.GenerateCode(key.Secret(), at)
	require.NoError(t, err)

	out, err := runCLI(t, "totp", "code", "--secret", key.Secret(), "--at", "1767225615")
	require.NoError(t, err)
	assert.Equal(t, want, strings.TrimSpace(out))

	_, err = runCLI(t, "totp", "code")
	assert.Error(t, err)
}
