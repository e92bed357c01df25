//go:generate go run go.uber.org/mock/mockgen@latest -source=$GOFILE -destination=mocks/mock_$GOFILE -package=mock_domain UserRepository,MFADeviceRepository,LoginAttemptRepository

package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrDeviceNotFound  = errors.New("mfa device not found")
	ErrSessionNotFound = errors.New("session not found")
)

// UserRepository gives read access to primary credentials. Account CRUD is
// owned by the finance application; CreateUser exists for seeding.
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
}

// MFADeviceRepository persists MFA devices. Every mutating method is a single
// atomic operation in the backing store.
type MFADeviceRepository interface {
	GetDevice(ctx context.Context, userID string) (*MFADevice, error)
	// GetOrCreateDevice returns the existing device or inserts one with the
	// secret produced by newSecret. An existing secret is never replaced.
	GetOrCreateDevice(ctx context.Context, userID string, newSecret func() (string, error)) (*MFADevice, error)
	// EnableDevice enables a disabled device and stores its first backup code
	// set in the same operation. It reports false, changing nothing, when the
	// device is already enabled.
	EnableDevice(ctx context.Context, userID string, hashes []string, at time.Time) (bool, error)
	// ReplaceBackupCodes swaps the whole stored hash set.
	ReplaceBackupCodes(ctx context.Context, userID string, hashes []string) error
	// ConsumeBackupCode finds the first hash accepted by match, removes it and
	// stamps LastUsedAt, all as one unit. Exactly one concurrent caller can
	// consume a given code.
	ConsumeBackupCode(ctx context.Context, userID string, match BackupCodeMatcher, at time.Time) (bool, error)
	// RecordTOTPUse stamps LastUsedAt and LastTOTPStep. With rejectReplay it
	// only succeeds when step is newer than the stored step.
	RecordTOTPUse(ctx context.Context, userID string, step int64, at time.Time, rejectReplay bool) (bool, error)
	DeleteDevice(ctx context.Context, userID string) error
}

// LoginAttemptRepository is the append-only attempt log.
type LoginAttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt *LoginAttempt) error
	// ListAttemptsByIdentity returns attempts at or after since, newest first.
	ListAttemptsByIdentity(ctx context.Context, identity string, since time.Time) ([]*LoginAttempt, error)
	// CountFailuresByIP counts failed attempts from ip at or after since.
	CountFailuresByIP(ctx context.Context, ip string, since time.Time) (int, error)
	DeleteAttemptsByIdentity(ctx context.Context, identity string) (int64, error)
}

// SessionStore is a key/value store of live sessions. It enforces no TTL of
// its own beyond optional retention; expiry is decided by the tracker.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	// TouchSession moves LastActivity forward to at. Older values never
	// overwrite newer ones; a corrupt stored value is overwritten.
	TouchSession(ctx context.Context, id string, at time.Time) error
	DeleteSession(ctx context.Context, id string) error
}

// CounterStore holds fixed-window counters.
type CounterStore interface {
	// Incr atomically increments key, starting a window of the given length
	// on the first increment. It returns the new count and when the window
	// resets.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)
}
