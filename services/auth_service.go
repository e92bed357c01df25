package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pilab-dev/homefin-auth/domain"
	serrors "github.com/pilab-dev/homefin-auth/errors"
	"github.com/pilab-dev/homefin-auth/internal/audit"
	"github.com/pilab-dev/homefin-auth/internal/metrics"
	"github.com/pilab-dev/homefin-auth/internal/telemetry"
	"github.com/rs/zerolog/log"
)

// LoginRequest carries a primary credential plus an optional second factor.
type LoginRequest struct {
	Identity   string
	Password   string
	OTP        string
	BackupCode string
	IPAddress  string
	UserAgent  string
}

// AuthService orchestrates login: lockout gate, primary credential, second
// factor, then session and token issuance.
type AuthService struct {
	userRepo       domain.UserRepository
	deviceRepo     domain.MFADeviceRepository
	passwordHasher PasswordHasher
	totpEngine     *TOTPEngine
	vault          *BackupCodeVault
	lockout        *LockoutGuard
	sessions       *SessionActivityTracker
	tokenService   *TokenService
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo domain.UserRepository,
	deviceRepo domain.MFADeviceRepository,
	passwordHasher PasswordHasher,
	totpEngine *TOTPEngine,
	vault *BackupCodeVault,
	lockout *LockoutGuard,
	sessions *SessionActivityTracker,
	tokenService *TokenService,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		deviceRepo:     deviceRepo,
		passwordHasher: passwordHasher,
		totpEngine:     totpEngine,
		vault:          vault,
		lockout:        lockout,
		sessions:       sessions,
		tokenService:   tokenService,
	}
}

// NormalizeIdentity is the canonical form of a login identity, used for user
// lookup, the attempt log and rate limit keys.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// Login authenticates req and, on success, starts a session and returns its
// tokens. Failures are reported as AuthErrors that reveal only their category.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	start := time.Now()
	pair, err := s.login(ctx, req)
	outcome := "success"
	if err != nil {
		outcome = serrors.AsAuthError(err).Code
	}
	telemetry.RecordLoginDuration(ctx, time.Since(start), outcome)
	return pair, err
}

func (s *AuthService) login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	identity := NormalizeIdentity(req.Identity)
	log.Debug().Str("identity", identity).Msg("Login attempt")

	if err := s.lockout.Check(ctx, identity, req.IPAddress); err != nil {
		if errors.Is(err, serrors.ErrAccountLocked) {
			metrics.LoginFailureTotal.WithLabelValues(serrors.AccountLocked).Inc()
			return nil, err
		}
		log.Error().Err(err).Str("identity", identity).Msg("Login: lockout check failed")
		return nil, err
	}

	user, err := s.userRepo.GetUserByEmail(ctx, identity)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			log.Error().Err(err).Str("identity", identity).Msg("Login: user lookup failed")
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		// Burn a hash comparison so unknown identities cost the same.
		_ = s.passwordHasher.Verify("", req.Password)
		return nil, s.fail(ctx, req, identity, "", serrors.ErrInvalidCredentials, "Unknown identity")
	}

	if err := s.passwordHasher.Verify(user.PasswordHash, req.Password); err != nil {
		return nil, s.fail(ctx, req, identity, user.ID, serrors.ErrInvalidCredentials, "Incorrect password")
	}
	if user.Status != domain.UserStatusActive {
		return nil, s.fail(ctx, req, identity, user.ID, serrors.ErrInvalidCredentials, "Account not active")
	}

	device, err := s.deviceRepo.GetDevice(ctx, user.ID)
	if err != nil && !errors.Is(err, domain.ErrDeviceNotFound) {
		log.Error().Err(err).Str("userID", user.ID).Msg("Login: MFA device lookup failed")
		return nil, fmt.Errorf("failed to load mfa device: %w", err)
	}

	if device != nil && device.Enabled {
		if err := s.verifySecondFactor(ctx, req, identity, device); err != nil {
			return nil, err
		}
	}

	return s.completeLogin(ctx, req, identity, user)
}

// verifySecondFactor dispatches to the TOTP engine or the backup code vault.
// An OTP takes precedence when both are supplied.
func (s *AuthService) verifySecondFactor(ctx context.Context, req LoginRequest, identity string, device *domain.MFADevice) error {
	var (
		ok     bool
		err    error
		method string
	)
	switch {
	case strings.TrimSpace(req.OTP) != "":
		method = "otp"
		ok, err = s.totpEngine.Verify(ctx, device, req.OTP)
	case strings.TrimSpace(req.BackupCode) != "":
		method = "backup_code"
		ok, err = s.vault.VerifyAndConsume(ctx, device.UserID, req.BackupCode)
	default:
		metrics.LoginFailureTotal.WithLabelValues(serrors.MfaRequired).Inc()
		audit.Log("AuthService", "Login", identity, req.IPAddress, "Second factor required", false, serrors.ErrMfaRequired)
		return serrors.ErrMfaRequired
	}
	if err != nil {
		log.Error().Err(err).Str("userID", device.UserID).Str("method", method).Msg("Login: second factor verification failed")
		return err
	}
	if !ok {
		return s.fail(ctx, req, identity, device.UserID, serrors.ErrInvalidMfa, "Invalid second factor ("+method+")")
	}
	return nil
}

func (s *AuthService) completeLogin(ctx context.Context, req LoginRequest, identity string, user *domain.User) (*TokenPair, error) {
	if err := s.lockout.RecordSuccess(ctx, identity, req.IPAddress, req.UserAgent); err != nil {
		log.Warn().Err(err).Str("userID", user.ID).Msg("completeLogin: failed to record successful attempt")
	}

	session, err := s.sessions.StartSession(ctx, user.ID, req.IPAddress, req.UserAgent)
	if err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("completeLogin: failed to start session")
		audit.Log("AuthService", "LoginComplete", user.ID, req.IPAddress, "Failed to start session", false, err)
		return nil, err
	}

	pair, err := s.tokenService.IssueTokenPair(user.ID, session.ID)
	if err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("completeLogin: failed to issue tokens")
		_ = s.sessions.Terminate(ctx, session, "token_error")
		return nil, err
	}

	metrics.LoginSuccessTotal.Inc()
	audit.Log("AuthService", "LoginComplete", user.ID, req.IPAddress, "Login successful, session "+session.ID, true, nil)
	return pair, nil
}

// fail records a failed attempt for the lockout guard and audits it. The
// returned error is authErr.
func (s *AuthService) fail(ctx context.Context, req LoginRequest, identity, userID string, authErr *serrors.AuthError, details string) error {
	if err := s.lockout.RecordFailure(ctx, identity, req.IPAddress, req.UserAgent, authErr.Code); err != nil {
		log.Error().Err(err).Str("identity", identity).Msg("Login: failed to record failed attempt")
	}
	log.Warn().Str("identity", identity).Str("userID", userID).Str("reason", authErr.Code).Msg("Login failed")
	metrics.LoginFailureTotal.WithLabelValues(authErr.Code).Inc()
	audit.Log("AuthService", "Login", identity, req.IPAddress, details, false, authErr)
	return authErr
}

// Refresh issues a new token pair for a live session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenService.ValidateRefreshToken(refreshToken)
	if err != nil {
		log.Debug().Err(err).Msg("Refresh: invalid refresh token")
		return nil, serrors.ErrUnauthenticated
	}

	session, err := s.sessions.LoadSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, serrors.ErrSessionExpired
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != claims.Subject {
		log.Warn().Str("sessionID", session.ID).Str("subject", claims.Subject).Msg("Refresh: token subject does not own session")
		return nil, serrors.ErrUnauthenticated
	}

	decision, err := s.sessions.Inspect(ctx, session)
	if err != nil {
		return nil, err
	}
	if decision.State == StateExpired {
		return nil, serrors.ErrSessionExpired
	}

	pair, err := s.tokenService.IssueTokenPair(session.UserID, session.ID)
	if err != nil {
		return nil, err
	}
	audit.Log("AuthService", "Refresh", session.UserID, session.IPAddress, "Tokens refreshed", true, nil)
	return pair, nil
}

// Logout terminates the caller's session.
func (s *AuthService) Logout(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return serrors.ErrUnauthenticated
	}
	return s.sessions.Terminate(ctx, session, "logout")
}
