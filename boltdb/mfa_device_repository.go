package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/homefin-auth/domain"
	"go.etcd.io/bbolt"
)

// MFADeviceRepository implements domain.MFADeviceRepository on bbolt. Each
// mutation is a read-modify-write inside one db.Update transaction.
type MFADeviceRepository struct {
	db *bbolt.DB
}

func getDevice(tx *bbolt.Tx, userID string) (*domain.MFADevice, error) {
	data := tx.Bucket(devicesBucket).Get([]byte(userID))
	if data == nil {
		return nil, domain.ErrDeviceNotFound
	}
	var device domain.MFADevice
	if err := json.Unmarshal(data, &device); err != nil {
		return nil, fmt.Errorf("failed to decode mfa device %s: %w", userID, err)
	}
	return &device, nil
}

func putDevice(tx *bbolt.Tx, device *domain.MFADevice) error {
	data, err := json.Marshal(device)
	if err != nil {
		return err
	}
	return tx.Bucket(devicesBucket).Put([]byte(device.UserID), data)
}

func (r *MFADeviceRepository) GetDevice(_ context.Context, userID string) (*domain.MFADevice, error) {
	var device *domain.MFADevice
	err := r.db.View(func(tx *bbolt.Tx) error {
		var err error
		device, err = getDevice(tx, userID)
		return err
	})
	return device, err
}

func (r *MFADeviceRepository) GetOrCreateDevice(_ context.Context, userID string, newSecret func() (string, error)) (*domain.MFADevice, error) {
	var device *domain.MFADevice
	err := r.db.Update(func(tx *bbolt.Tx) error {
		existing, err := getDevice(tx, userID)
		if err == nil {
			device = existing
			return nil
		}
		if !errors.Is(err, domain.ErrDeviceNotFound) {
			return err
		}
		secret, err := newSecret()
		if err != nil {
			return err
		}
		device = &domain.MFADevice{
			UserID:      userID,
			Secret:      secret,
			BackupCodes: []string{},
			CreatedAt:   time.Now().UTC(),
		}
		return putDevice(tx, device)
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

// modify loads the device, applies fn and stores the result when fn reports a
// change, all within one transaction.
func (r *MFADeviceRepository) modify(userID string, fn func(d *domain.MFADevice) (bool, error)) (bool, error) {
	var changed bool
	err := r.db.Update(func(tx *bbolt.Tx) error {
		device, err := getDevice(tx, userID)
		if err != nil {
			return err
		}
		changed, err = fn(device)
		if err != nil || !changed {
			return err
		}
		return putDevice(tx, device)
	})
	return changed, err
}

func (r *MFADeviceRepository) EnableDevice(_ context.Context, userID string, hashes []string, at time.Time) (bool, error) {
	return r.modify(userID, func(d *domain.MFADevice) (bool, error) {
		if d.Enabled {
			return false, nil
		}
		at := at.UTC()
		d.Enabled = true
		d.EnabledAt = &at
		d.BackupCodes = append([]string{}, hashes...)
		return true, nil
	})
}

func (r *MFADeviceRepository) ReplaceBackupCodes(_ context.Context, userID string, hashes []string) error {
	_, err := r.modify(userID, func(d *domain.MFADevice) (bool, error) {
		d.BackupCodes = append([]string{}, hashes...)
		return true, nil
	})
	return err
}

func (r *MFADeviceRepository) ConsumeBackupCode(_ context.Context, userID string, match domain.BackupCodeMatcher, at time.Time) (bool, error) {
	return r.modify(userID, func(d *domain.MFADevice) (bool, error) {
		i := domain.MatchBackupCode(d.BackupCodes, match)
		if i < 0 {
			return false, nil
		}
		at := at.UTC()
		d.BackupCodes = domain.WithoutIndex(d.BackupCodes, i)
		d.LastUsedAt = &at
		return true, nil
	})
}

func (r *MFADeviceRepository) RecordTOTPUse(_ context.Context, userID string, step int64, at time.Time, rejectReplay bool) (bool, error) {
	return r.modify(userID, func(d *domain.MFADevice) (bool, error) {
		if rejectReplay && step <= d.LastTOTPStep {
			return false, nil
		}
		at := at.UTC()
		d.LastUsedAt = &at
		d.LastTOTPStep = max(d.LastTOTPStep, step)
		return true, nil
	})
}

func (r *MFADeviceRepository) DeleteDevice(_ context.Context, userID string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(devicesBucket)
		if b.Get([]byte(userID)) == nil {
			return domain.ErrDeviceNotFound
		}
		return b.Delete([]byte(userID))
	})
}

var _ domain.MFADeviceRepository = (*MFADeviceRepository)(nil)
