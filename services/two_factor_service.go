package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/homefin-auth/domain"
	serrors "github.com/pilab-dev/homefin-auth/errors"
	"github.com/pilab-dev/homefin-auth/internal/audit"
	"github.com/pilab-dev/homefin-auth/internal/auth/totp"
	"github.com/rs/zerolog/log"
)

// SetupInfo is returned when MFA setup begins.
type SetupInfo struct {
	ProvisioningURI string `json:"provisioning_uri"`
	Secret          string `json:"secret"`
}

// MFAStatus summarises a user's second factor.
type MFAStatus struct {
	Enabled              bool       `json:"enabled" yaml:"enabled"`
	BackupCodesRemaining int        `json:"backup_codes_remaining" yaml:"backup_codes_remaining"`
	LastUsedAt           *time.Time `json:"last_used_at,omitempty" yaml:"last_used_at,omitempty"`
	EnabledAt            *time.Time `json:"enabled_at,omitempty" yaml:"enabled_at,omitempty"`
}

// TwoFactorService manages the MFA device of an authenticated user.
type TwoFactorService struct {
	userRepo   domain.UserRepository
	deviceRepo domain.MFADeviceRepository
	totpEngine *TOTPEngine
	vault      *BackupCodeVault
	clock      Clock
}

// NewTwoFactorService creates a new TwoFactorService.
func NewTwoFactorService(
	userRepo domain.UserRepository,
	deviceRepo domain.MFADeviceRepository,
	totpEngine *TOTPEngine,
	vault *BackupCodeVault,
	clock Clock,
) *TwoFactorService {
	return &TwoFactorService{
		userRepo:   userRepo,
		deviceRepo: deviceRepo,
		totpEngine: totpEngine,
		vault:      vault,
		clock:      clock,
	}
}

// BeginSetup returns the provisioning URI of the user's device, creating the
// device on first call. Repeated calls return the same secret until the
// device is confirmed.
func (s *TwoFactorService) BeginSetup(ctx context.Context, userID string) (*SetupInfo, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("BeginSetup: user lookup failed")
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	device, err := s.totpEngine.EnsureDevice(ctx, userID, user.Email)
	if err != nil {
		return nil, err
	}
	if device.Enabled {
		return nil, serrors.ErrMfaAlreadyEnabled
	}

	uri, err := s.totpEngine.ProvisioningURI(user.Email, device.Secret)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("BeginSetup: failed to build provisioning uri")
		return nil, err
	}

	audit.Log("TwoFactorService", "BeginSetup", userID, "", "TOTP setup initiated", true, nil)
	return &SetupInfo{
		ProvisioningURI: uri,
		Secret:          device.Secret,
	}, nil
}

// SetupQRCode renders the provisioning URI of a pending setup as a PNG.
func (s *TwoFactorService) SetupQRCode(ctx context.Context, userID string) ([]byte, error) {
	info, err := s.BeginSetup(ctx, userID)
	if err != nil {
		return nil, err
	}
	return totp.GenerateTOTPQRCodeBytes(info.ProvisioningURI)
}

// ConfirmSetup verifies the first code from the authenticator app, enables
// the device and returns a fresh set of backup codes. On an invalid code the
// device stays disabled.
func (s *TwoFactorService) ConfirmSetup(ctx context.Context, userID, code string) ([]string, error) {
	device, err := s.deviceRepo.GetDevice(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return nil, serrors.ErrMfaSetupMissing
		}
		return nil, fmt.Errorf("failed to load mfa device: %w", err)
	}
	if device.Enabled {
		return nil, serrors.ErrMfaAlreadyEnabled
	}

	ok, err := s.totpEngine.Verify(ctx, device, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		audit.Log("TwoFactorService", "ConfirmSetup", userID, "", "Invalid TOTP code", false, serrors.ErrInvalidMfa)
		return nil, serrors.ErrInvalidMfa
	}

	codes, hashed, err := s.vault.Mint(0)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("ConfirmSetup: failed to generate backup codes")
		return nil, err
	}
	enabled, err := s.deviceRepo.EnableDevice(ctx, userID, hashed, s.clock.now())
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("ConfirmSetup: failed to enable device")
		return nil, fmt.Errorf("failed to enable mfa device: %w", err)
	}
	if !enabled {
		// Another confirmation won the race; its codes are the live set.
		return nil, serrors.ErrMfaAlreadyEnabled
	}

	audit.Log("TwoFactorService", "ConfirmSetup", userID, "", "TOTP enabled", true, nil)
	return codes, nil
}

// VerifyBackupCode consumes one backup code of an enabled device.
func (s *TwoFactorService) VerifyBackupCode(ctx context.Context, userID, code string) error {
	if _, err := s.enabledDevice(ctx, userID); err != nil {
		return err
	}

	ok, err := s.vault.VerifyAndConsume(ctx, userID, code)
	if err != nil {
		return err
	}
	if !ok {
		audit.Log("TwoFactorService", "VerifyBackupCode", userID, "", "Invalid backup code", false, serrors.ErrInvalidMfa)
		return serrors.ErrInvalidMfa
	}
	audit.Log("TwoFactorService", "VerifyBackupCode", userID, "", "Backup code consumed", true, nil)
	return nil
}

// RegenerateBackupCodes replaces every backup code after re-checking the
// current TOTP code.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	device, err := s.enabledDevice(ctx, userID)
	if err != nil {
		return nil, err
	}

	ok, err := s.totpEngine.Verify(ctx, device, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		audit.Log("TwoFactorService", "RegenerateBackupCodes", userID, "", "Invalid TOTP code", false, serrors.ErrInvalidMfa)
		return nil, serrors.ErrInvalidMfa
	}

	codes, err := s.vault.Generate(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	audit.Log("TwoFactorService", "RegenerateBackupCodes", userID, "", "Backup codes regenerated", true, nil)
	return codes, nil
}

// Status reports the user's MFA state. A user without a device is reported
// as not enabled.
func (s *TwoFactorService) Status(ctx context.Context, userID string) (*MFAStatus, error) {
	device, err := s.deviceRepo.GetDevice(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return &MFAStatus{}, nil
		}
		return nil, fmt.Errorf("failed to load mfa device: %w", err)
	}
	return &MFAStatus{
		Enabled:              device.Enabled,
		BackupCodesRemaining: len(device.BackupCodes),
		LastUsedAt:           device.LastUsedAt,
		EnabledAt:            device.EnabledAt,
	}, nil
}

// Reset deletes the user's device so MFA can be set up from scratch. It is an
// administrative action.
func (s *TwoFactorService) Reset(ctx context.Context, userID string) error {
	if err := s.deviceRepo.DeleteDevice(ctx, userID); err != nil {
		return err
	}
	audit.Log("TwoFactorService", "Reset", userID, "", "MFA device deleted", true, nil)
	return nil
}

func (s *TwoFactorService) enabledDevice(ctx context.Context, userID string) (*domain.MFADevice, error) {
	device, err := s.deviceRepo.GetDevice(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrDeviceNotFound) {
			return nil, serrors.ErrMfaNotEnabled
		}
		return nil, fmt.Errorf("failed to load mfa device: %w", err)
	}
	if !device.Enabled {
		return nil, serrors.ErrMfaNotEnabled
	}
	return device, nil
}
