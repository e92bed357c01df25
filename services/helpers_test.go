package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pilab-dev/homefin-auth/cache"
	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/pilab-dev/homefin-auth/internal/auth/totp"
	"github.com/pilab-dev/homefin-auth/memory"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeClock is a settable clock shared by every service in a test.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	// Middle of a TOTP step.
	return &fakeClock{t: time.Unix(1_767_225_615, 0).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Clock() Clock { return c.Now }

// plainHasher keeps tests fast; bcrypt itself is covered in internal/auth.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Verify(hashedPassword, password string) error {
	if hashedPassword == "" || hashedPassword != "plain:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type MockCounterStore struct {
	mock.Mock
}

func (m *MockCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Get(1).(time.Time), args.Error(2)
}

// fixture wires every service over in-memory stores.
type fixture struct {
	clock     *fakeClock
	users     *memory.UserRepository
	devices   *memory.MFADeviceRepository
	attempts  *memory.LoginAttemptRepository
	sessions  *cache.MemorySessionStore
	totp      *TOTPEngine
	vault     *BackupCodeVault
	lockout   *LockoutGuard
	tracker   *SessionActivityTracker
	tokens    *TokenService
	auth      *AuthService
	twoFactor *TwoFactorService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:    newFakeClock(),
		users:    memory.NewUserRepository(),
		devices:  memory.NewMFADeviceRepository(),
		attempts: memory.NewLoginAttemptRepository(),
		sessions: cache.NewMemorySessionStore(0),
	}
	t.Cleanup(f.sessions.Close)

	clock := f.clock.Clock()
	f.totp = NewTOTPEngine(f.devices, TOTPOptions{Issuer: "HomeFin", Skew: totp.DefaultSkew}, clock)
	f.vault = NewBackupCodeVault(f.devices, 10, bcrypt.MinCost, clock)
	f.lockout = NewLockoutGuard(f.attempts, LockoutPolicy{
		Threshold: 5,
		Window:    15 * time.Minute,
		CoolOff:   15 * time.Minute,
	}, clock)
	f.tracker = NewSessionActivityTracker(f.sessions, SessionPolicy{Timeout: 300 * time.Second, Grace: 60 * time.Second}, clock)
	f.tokens = NewTokenService("test-secret-test-secret-test-secret", "homefin-auth", 15*time.Minute, 24*time.Hour, clock)
	f.auth = NewAuthService(f.users, f.devices, plainHasher{}, f.totp, f.vault, f.lockout, f.tracker, f.tokens)
	f.twoFactor = NewTwoFactorService(f.users, f.devices, f.totp, f.vault, clock)
	return f
}

func (f *fixture) addUser(t *testing.T, id, email, password string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: "plain:" + password,
		Status:       domain.UserStatusActive,
		CreatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.users.CreateUser(context.Background(), u))
	return u
}

// enableMFA runs the setup flow and returns the device secret and backup codes.
func (f *fixture) enableMFA(t *testing.T, userID string) (string, []string) {
	t.Helper()
	ctx := context.Background()
	info, err := f.twoFactor.BeginSetup(ctx, userID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(info.Secret, f.clock.Now())
	require.NoError(t, err)
	codes, err := f.twoFactor.ConfirmSetup(ctx, userID, code)
	require.NoError(t, err)
	return info.Secret, codes
}
