package services

import (
	"context"
	"fmt"

	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/pilab-dev/homefin-auth/internal/auth/totp"
	"github.com/rs/zerolog/log"
)

// TOTPOptions configures the TOTP engine.
type TOTPOptions struct {
	// Issuer is shown by authenticator apps next to the account label.
	Issuer string
	// Skew is the number of 30s steps accepted either side of now.
	Skew int
	// RejectReplay refuses a code whose step is not newer than the last
	// accepted step for the device.
	RejectReplay bool
}

// TOTPEngine generates device secrets and verifies time-based codes.
type TOTPEngine struct {
	devices domain.MFADeviceRepository
	opts    TOTPOptions
	clock   Clock
}

// NewTOTPEngine creates a new TOTPEngine.
func NewTOTPEngine(devices domain.MFADeviceRepository, opts TOTPOptions, clock Clock) *TOTPEngine {
	if opts.Skew < 0 {
		opts.Skew = totp.DefaultSkew
	}
	return &TOTPEngine{
		devices: devices,
		opts:    opts,
		clock:   clock,
	}
}

// GenerateSecret returns a fresh base32 secret.
func (e *TOTPEngine) GenerateSecret(accountName string) (string, error) {
	key, _, err := totp.GenerateTOTPSecret(e.opts.Issuer, accountName)
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// EnsureDevice returns the user's device, creating it with a new secret on
// first use. The secret of an existing device is never regenerated.
func (e *TOTPEngine) EnsureDevice(ctx context.Context, userID, accountName string) (*domain.MFADevice, error) {
	device, err := e.devices.GetOrCreateDevice(ctx, userID, func() (string, error) {
		return e.GenerateSecret(accountName)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create mfa device: %w", err)
	}
	return device, nil
}

// ProvisioningURI returns the otpauth:// URI for importing secret.
func (e *TOTPEngine) ProvisioningURI(accountName, secret string) (string, error) {
	return totp.ProvisioningURI(e.opts.Issuer, accountName, secret)
}

// Verify checks code against device and stamps LastUsedAt on success.
func (e *TOTPEngine) Verify(ctx context.Context, device *domain.MFADevice, code string) (bool, error) {
	now := e.clock.now()
	step, ok, err := totp.ValidateTOTPCode(device.Secret, code, now, e.opts.Skew)
	if err != nil {
		return false, fmt.Errorf("error validating TOTP code: %w", err)
	}
	if !ok {
		return false, nil
	}

	recorded, err := e.devices.RecordTOTPUse(ctx, device.UserID, step, now, e.opts.RejectReplay)
	if err != nil {
		return false, fmt.Errorf("failed to record TOTP use: %w", err)
	}
	if !recorded {
		log.Warn().Str("userID", device.UserID).Int64("step", step).Msg("TOTP code replayed within its window")
		return false, nil
	}
	return true, nil
}
