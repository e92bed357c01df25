package services

import (
	"context"
	"sync"
	"testing"

	serrors "github.com/pilab-dev/homefin-auth/errors"
	"github.com/pilab-dev/homefin-auth/internal/auth/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoFactorService_BeginSetup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "alice@example.com", "pw")

	first, err := f.twoFactor.BeginSetup(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, first.ProvisioningURI, "otpauth://totp/HomeFin:alice@example.com")

	second, err := f.twoFactor.BeginSetup(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.Secret, second.Secret, "setup is idempotent until confirmed")

	png, err := f.twoFactor.SetupQRCode(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	_, err = f.twoFactor.BeginSetup(ctx, "ghost")
	assert.Error(t, err)
}

func TestTwoFactorService_ConfirmSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("not started", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.twoFactor.ConfirmSetup(ctx, "u1", "123456")
		assert.ErrorIs(t, err, serrors.ErrMfaSetupMissing)
	})

	t.Run("invalid code leaves device disabled", func(t *testing.T) {
		f := newFixture(t)
		f.addUser(t, "u1", "alice@example.com", "pw")
		_, err := f.twoFactor.BeginSetup(ctx, "u1")
		require.NoError(t, err)

		_, err = f.twoFactor.ConfirmSetup(ctx, "u1", "000000")
		assert.ErrorIs(t, err, serrors.ErrInvalidMfa)

		status, err := f.twoFactor.Status(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, status.Enabled)
		assert.Zero(t, status.BackupCodesRemaining)
	})

	t.Run("valid code enables and issues backup codes", func(t *testing.T) {
		f := newFixture(t)
		f.addUser(t, "u1", "alice@example.com", "pw")
		info, err := f.twoFactor.BeginSetup(ctx, "u1")
		require.NoError(t, err)
		code, err := totp.GenerateCode(info.Secret, f.clock.Now())
		require.NoError(t, err)

		codes, err := f.twoFactor.ConfirmSetup(ctx, "u1", code)
		require.NoError(t, err)
		assert.Len(t, codes, 10)

		status, err := f.twoFactor.Status(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, status.Enabled)
		assert.Equal(t, 10, status.BackupCodesRemaining)
		assert.NotNil(t, status.EnabledAt)

		_, err = f.twoFactor.BeginSetup(ctx, "u1")
		assert.ErrorIs(t, err, serrors.ErrMfaAlreadyEnabled)
		_, err = f.twoFactor.ConfirmSetup(ctx, "u1", code)
		assert.ErrorIs(t, err, serrors.ErrMfaAlreadyEnabled)
	})
}

func TestTwoFactorService_BackupCodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "alice@example.com", "pw")

	err := f.twoFactor.VerifyBackupCode(ctx, "u1", "abcde-12345")
	assert.ErrorIs(t, err, serrors.ErrMfaNotEnabled)

	secret, codes := f.enableMFA(t, "u1")

	require.NoError(t, f.twoFactor.VerifyBackupCode(ctx, "u1", codes[0]))
	assert.ErrorIs(t, f.twoFactor.VerifyBackupCode(ctx, "u1", codes[0]), serrors.ErrInvalidMfa)

	_, err = f.twoFactor.RegenerateBackupCodes(ctx, "u1", "000000")
	assert.ErrorIs(t, err, serrors.ErrInvalidMfa)

	otp, err := totp.GenerateCode(secret, f.clock.Now())
	require.NoError(t, err)
	fresh, err := f.twoFactor.RegenerateBackupCodes(ctx, "u1", otp)
	require.NoError(t, err)
	assert.Len(t, fresh, 10)

	assert.ErrorIs(t, f.twoFactor.VerifyBackupCode(ctx, "u1", codes[1]), serrors.ErrInvalidMfa, "old set is gone")
	require.NoError(t, f.twoFactor.VerifyBackupCode(ctx, "u1", fresh[1]))
}

func TestTwoFactorService_Reset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "alice@example.com", "pw")
	f.enableMFA(t, "u1")

	require.NoError(t, f.twoFactor.Reset(ctx, "u1"))

	status, err := f.twoFactor.Status(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, status.Enabled)
}

func TestTwoFactorService_ConcurrentConfirmSetup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "alice@example.com", "pw")
	info, err := f.twoFactor.BeginSetup(ctx, "u1")
	require.NoError(t, err)
	code, err := totp.GenerateCode(info.Secret, f.clock.Now())
	require.NoError(t, err)

	const callers = 8
	results := make([][]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.twoFactor.ConfirmSetup(ctx, "u1", code)
		}(i)
	}
	wg.Wait()

	var winner []string
	for i := range errs {
		if errs[i] == nil {
			require.Nil(t, winner, "only one confirmation may succeed")
			winner = results[i]
			continue
		}
		assert.ErrorIs(t, errs[i], serrors.ErrMfaAlreadyEnabled)
	}
	require.Len(t, winner, 10)

	// Every code handed out is one that is actually stored.
	for _, c := range winner {
		require.NoError(t, f.twoFactor.VerifyBackupCode(ctx, "u1", c))
	}
}
