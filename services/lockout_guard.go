package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pilab-dev/homefin-auth/domain"
	serrors "github.com/pilab-dev/homefin-auth/errors"
	"github.com/pilab-dev/homefin-auth/internal/audit"
	"github.com/pilab-dev/homefin-auth/internal/metrics"
	"github.com/rs/zerolog/log"
)

// LockoutPolicy configures the lockout guard. A non-positive Threshold turns
// identity lockout off; a non-positive IPThreshold turns IP lockout off.
type LockoutPolicy struct {
	Threshold   int
	Window      time.Duration
	CoolOff     time.Duration
	IPThreshold int
}

// LockoutGuard blocks authentication for an identity after repeated failures.
// Its state is derived from the append-only attempt log.
type LockoutGuard struct {
	attempts domain.LoginAttemptRepository
	policy   LockoutPolicy
	clock    Clock
}

// NewLockoutGuard creates a new LockoutGuard.
func NewLockoutGuard(attempts domain.LoginAttemptRepository, policy LockoutPolicy, clock Clock) *LockoutGuard {
	return &LockoutGuard{
		attempts: attempts,
		policy:   policy,
		clock:    clock,
	}
}

// State derives the lockout state of identity (and ip, when IP lockout is on).
func (g *LockoutGuard) State(ctx context.Context, identity, ip string) (*domain.LockoutState, error) {
	now := g.clock.now()
	since := now.Add(-g.policy.Window)
	state := &domain.LockoutState{Identity: identity}

	if g.policy.Threshold > 0 {
		attempts, err := g.attempts.ListAttemptsByIdentity(ctx, identity, since)
		if err != nil {
			return nil, fmt.Errorf("failed to list login attempts: %w", err)
		}

		var newestFailure time.Time
		for _, a := range attempts {
			if a.Success {
				break
			}
			if state.ConsecutiveFailures == 0 {
				newestFailure = a.AttemptedAt
			}
			state.ConsecutiveFailures++
		}

		if state.ConsecutiveFailures >= g.policy.Threshold {
			until := newestFailure.Add(g.policy.CoolOff)
			if now.Before(until) {
				state.Locked = true
				state.LockedUntil = &until
			}
		}
	}

	if g.policy.IPThreshold > 0 && ip != "" {
		n, err := g.attempts.CountFailuresByIP(ctx, ip, since)
		if err != nil {
			return nil, fmt.Errorf("failed to count failures by ip: %w", err)
		}
		state.IPFailures = n
		if n >= g.policy.IPThreshold {
			state.Locked = true
		}
	}
	return state, nil
}

// Check is the pre-verification gate. It returns ErrAccountLocked while the
// identity or source IP is locked out.
func (g *LockoutGuard) Check(ctx context.Context, identity, ip string) error {
	state, err := g.State(ctx, identity, ip)
	if err != nil {
		return err
	}
	if state.Locked {
		metrics.LockoutRejectionsTotal.Inc()
		audit.Log("LockoutGuard", "Check", identity, ip,
			fmt.Sprintf("Rejected: %d consecutive failures, %d from ip", state.ConsecutiveFailures, state.IPFailures),
			false, serrors.ErrAccountLocked)
		return serrors.ErrAccountLocked
	}
	return nil
}

// RecordFailure appends a failed attempt.
func (g *LockoutGuard) RecordFailure(ctx context.Context, identity, ip, userAgent, reason string) error {
	return g.record(ctx, identity, ip, userAgent, false, reason)
}

// RecordSuccess appends a successful attempt, which ends the failure run.
func (g *LockoutGuard) RecordSuccess(ctx context.Context, identity, ip, userAgent string) error {
	return g.record(ctx, identity, ip, userAgent, true, "")
}

// Clear deletes the attempt history of identity, lifting any lock.
func (g *LockoutGuard) Clear(ctx context.Context, identity string) (int64, error) {
	n, err := g.attempts.DeleteAttemptsByIdentity(ctx, identity)
	if err != nil {
		return 0, fmt.Errorf("failed to clear login attempts: %w", err)
	}
	log.Info().Str("identity", identity).Int64("deleted", n).Msg("Login attempts cleared")
	return n, nil
}

func (g *LockoutGuard) record(ctx context.Context, identity, ip, userAgent string, success bool, reason string) error {
	attempt := &domain.LoginAttempt{
		ID:            uuid.NewString(),
		Identity:      identity,
		IPAddress:     ip,
		UserAgent:     userAgent,
		AttemptedAt:   g.clock.now().UTC(),
		Success:       success,
		FailureReason: reason,
	}
	if err := g.attempts.RecordAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}
