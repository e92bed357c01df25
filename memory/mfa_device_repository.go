package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pilab-dev/homefin-auth/domain"
)

// MFADeviceRepository is an in-memory domain.MFADeviceRepository. A single
// mutex serialises every mutation, which makes backup code consumption
// at-most-once.
type MFADeviceRepository struct {
	mu      sync.Mutex
	devices map[string]*domain.MFADevice
	now     func() time.Time
}

// NewMFADeviceRepository creates an empty MFADeviceRepository.
func NewMFADeviceRepository() *MFADeviceRepository {
	return &MFADeviceRepository{
		devices: make(map[string]*domain.MFADevice),
		now:     time.Now,
	}
}

func cloneDevice(d *domain.MFADevice) *domain.MFADevice {
	cp := *d
	cp.BackupCodes = append([]string(nil), d.BackupCodes...)
	if d.LastUsedAt != nil {
		t := *d.LastUsedAt
		cp.LastUsedAt = &t
	}
	if d.EnabledAt != nil {
		t := *d.EnabledAt
		cp.EnabledAt = &t
	}
	return &cp
}

func (r *MFADeviceRepository) GetDevice(_ context.Context, userID string) (*domain.MFADevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[userID]
	if !ok {
		return nil, domain.ErrDeviceNotFound
	}
	return cloneDevice(d), nil
}

func (r *MFADeviceRepository) GetOrCreateDevice(_ context.Context, userID string, newSecret func() (string, error)) (*domain.MFADevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.devices[userID]; ok {
		return cloneDevice(d), nil
	}
	secret, err := newSecret()
	if err != nil {
		return nil, err
	}
	d := &domain.MFADevice{
		UserID:    userID,
		Secret:    secret,
		CreatedAt: r.now().UTC(),
	}
	r.devices[userID] = d
	return cloneDevice(d), nil
}

func (r *MFADeviceRepository) EnableDevice(_ context.Context, userID string, hashes []string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[userID]
	if !ok {
		return false, domain.ErrDeviceNotFound
	}
	if d.Enabled {
		return false, nil
	}
	at = at.UTC()
	d.Enabled = true
	d.EnabledAt = &at
	d.BackupCodes = append([]string(nil), hashes...)
	return true, nil
}

func (r *MFADeviceRepository) ReplaceBackupCodes(_ context.Context, userID string, hashes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[userID]
	if !ok {
		return domain.ErrDeviceNotFound
	}
	d.BackupCodes = append([]string(nil), hashes...)
	return nil
}

func (r *MFADeviceRepository) ConsumeBackupCode(_ context.Context, userID string, match domain.BackupCodeMatcher, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[userID]
	if !ok {
		return false, domain.ErrDeviceNotFound
	}
	i := domain.MatchBackupCode(d.BackupCodes, match)
	if i < 0 {
		return false, nil
	}
	at = at.UTC()
	d.BackupCodes = domain.WithoutIndex(d.BackupCodes, i)
	d.LastUsedAt = &at
	return true, nil
}

func (r *MFADeviceRepository) RecordTOTPUse(_ context.Context, userID string, step int64, at time.Time, rejectReplay bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[userID]
	if !ok {
		return false, domain.ErrDeviceNotFound
	}
	if rejectReplay && step <= d.LastTOTPStep {
		return false, nil
	}
	at = at.UTC()
	d.LastUsedAt = &at
	if step > d.LastTOTPStep {
		d.LastTOTPStep = step
	}
	return true, nil
}

func (r *MFADeviceRepository) DeleteDevice(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[userID]; !ok {
		return domain.ErrDeviceNotFound
	}
	delete(r.devices, userID)
	return nil
}

var _ domain.MFADeviceRepository = (*MFADeviceRepository)(nil)
