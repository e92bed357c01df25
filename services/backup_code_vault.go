package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/pilab-dev/homefin-auth/internal/auth/totp"
	"github.com/pilab-dev/homefin-auth/internal/metrics"
)

// BackupCodeVault issues and consumes one-time backup codes. Only bcrypt
// hashes are persisted; raw codes leave the vault exactly once.
type BackupCodeVault struct {
	devices domain.MFADeviceRepository
	count   int
	cost    int
	clock   Clock
}

// NewBackupCodeVault creates a vault. count and cost fall back to the
// package defaults when non-positive.
func NewBackupCodeVault(devices domain.MFADeviceRepository, count, cost int, clock Clock) *BackupCodeVault {
	if count <= 0 {
		count = totp.DefaultNumRecoveryCodes
	}
	return &BackupCodeVault{
		devices: devices,
		count:   count,
		cost:    cost,
		clock:   clock,
	}
}

// Generate replaces the user's backup codes with count fresh ones and returns
// them in plaintext. A non-positive count uses the vault default.
func (v *BackupCodeVault) Generate(ctx context.Context, userID string, count int) ([]string, error) {
	plain, hashed, err := v.Mint(count)
	if err != nil {
		return nil, err
	}
	if err := v.devices.ReplaceBackupCodes(ctx, userID, hashed); err != nil {
		return nil, fmt.Errorf("failed to store backup codes: %w", err)
	}
	return plain, nil
}

// Mint creates count codes without storing them, for callers that persist
// the hashes as part of a larger update.
func (v *BackupCodeVault) Mint(count int) (plain, hashed []string, err error) {
	if count <= 0 {
		count = v.count
	}
	plain, hashed, err = totp.GenerateRecoveryCodes(count, v.cost)
	if err != nil {
		return nil, nil, fmt.Errorf("could not generate backup codes: %w", err)
	}
	return plain, hashed, nil
}

// VerifyAndConsume checks code against the stored set and, on a match,
// removes it. A code can succeed at most once, even under concurrent calls.
func (v *BackupCodeVault) VerifyAndConsume(ctx context.Context, userID, code string) (bool, error) {
	if totp.NormalizeRecoveryCode(code) == "" {
		return false, nil
	}
	consumed, err := v.devices.ConsumeBackupCode(ctx, userID, func(hash string) bool {
		return totp.VerifyRecoveryCode(hash, code)
	}, v.clock.now())
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to consume backup code: %w", err)
	}
	if consumed {
		metrics.BackupCodesConsumedTotal.Inc()
	}
	return consumed, nil
}

// Remaining returns how many unused codes the user has.
func (v *BackupCodeVault) Remaining(ctx context.Context, userID string) (int, error) {
	device, err := v.devices.GetDevice(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return len(device.BackupCodes), nil
}
