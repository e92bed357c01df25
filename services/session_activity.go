package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/pilab-dev/homefin-auth/internal/audit"
	"github.com/pilab-dev/homefin-auth/internal/metrics"
	"github.com/rs/zerolog/log"
)

// ActivityState is the outcome of evaluating a session against its idle policy.
type ActivityState int

const (
	StateActive ActivityState = iota
	StateGraceHold
	StateExpired
)

func (s ActivityState) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateGraceHold:
		return "GRACE_HOLD"
	case StateExpired:
		return "EXPIRED"
	default:
		return fmt.Sprintf("ActivityState(%d)", int(s))
	}
}

// SessionPolicy holds the idle timeout T and grace G. A non-positive timeout
// disables activity tracking.
type SessionPolicy struct {
	Timeout time.Duration
	Grace   time.Duration
}

// Enabled reports whether the policy is active.
func (p SessionPolicy) Enabled() bool { return p.Timeout > 0 }

// HardExpiry is the idle period after which a session is terminated.
func (p SessionPolicy) HardExpiry() time.Duration {
	if p.Grace < 0 {
		return p.Timeout
	}
	return p.Timeout + p.Grace
}

// ActivityDecision describes what the tracker decided for one request.
type ActivityDecision struct {
	State ActivityState
	// LastActivity is the value the session holds after the decision.
	LastActivity time.Time
	// IdleRemaining is never negative.
	IdleRemaining time.Duration
	// Touch is set when LastActivity must be written back.
	Touch bool
	// Reseeded is set when the stored value was absent or unparsable.
	Reseeded bool
}

// EvaluateActivity runs the idle/grace/expiry state machine. It never fails:
// an absent or corrupt stored value is treated as a first touch.
func EvaluateActivity(now time.Time, rawLastActivity string, policy SessionPolicy, keepAlive bool) ActivityDecision {
	last, ok := domain.ParseActivity(rawLastActivity)
	if !ok {
		return ActivityDecision{
			State:         StateActive,
			LastActivity:  now,
			IdleRemaining: policy.Timeout,
			Touch:         true,
			Reseeded:      true,
		}
	}

	elapsed := now.Sub(last)
	if elapsed < 0 {
		elapsed = 0
	}
	hard := policy.HardExpiry()

	switch {
	case elapsed > hard:
		return ActivityDecision{State: StateExpired, LastActivity: last}
	case elapsed > policy.Timeout:
		if keepAlive {
			return ActivityDecision{
				State:         StateGraceHold,
				LastActivity:  now,
				IdleRemaining: policy.Timeout,
				Touch:         true,
			}
		}
		return ActivityDecision{
			State:         StateGraceHold,
			LastActivity:  last,
			IdleRemaining: hard - elapsed,
		}
	default:
		return ActivityDecision{
			State:         StateActive,
			LastActivity:  now,
			IdleRemaining: policy.Timeout - elapsed,
			Touch:         true,
		}
	}
}

// SessionActivityTracker owns the lifecycle of server-side sessions: creation
// at login, per-request extension, and termination on hard expiry or logout.
type SessionActivityTracker struct {
	store  domain.SessionStore
	policy SessionPolicy
	clock  Clock
}

// NewSessionActivityTracker creates a tracker over store.
func NewSessionActivityTracker(store domain.SessionStore, policy SessionPolicy, clock Clock) *SessionActivityTracker {
	return &SessionActivityTracker{
		store:  store,
		policy: policy,
		clock:  clock,
	}
}

// Policy returns the configured idle policy.
func (t *SessionActivityTracker) Policy() SessionPolicy { return t.policy }

// StartSession creates a session with LastActivity set to now.
func (t *SessionActivityTracker) StartSession(ctx context.Context, userID, ip, userAgent string) (*domain.Session, error) {
	now := t.clock.now()
	session := &domain.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		LastActivity: domain.FormatActivity(now),
		IPAddress:    ip,
		UserAgent:    userAgent,
		CreatedAt:    now.UTC(),
	}
	if err := t.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	metrics.ActiveSessionsGauge.Inc()
	return session, nil
}

// LoadSession fetches a live session. domain.ErrSessionNotFound means the
// session was terminated or never existed.
func (t *SessionActivityTracker) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	return t.store.GetSession(ctx, id)
}

// Track evaluates session for the current request and applies the outcome:
// it extends LastActivity when the state machine asks for it and terminates
// the session on hard expiry. session.LastActivity is updated in place.
func (t *SessionActivityTracker) Track(ctx context.Context, session *domain.Session, keepAlive bool) (ActivityDecision, error) {
	if !t.policy.Enabled() {
		return ActivityDecision{State: StateActive}, nil
	}

	decision := EvaluateActivity(t.clock.now(), session.LastActivity, t.policy, keepAlive)
	switch {
	case decision.State == StateExpired:
		if err := t.Terminate(ctx, session, "idle_timeout"); err != nil {
			return decision, err
		}
	case decision.Touch:
		if decision.Reseeded {
			log.Warn().Str("sessionID", session.ID).Msg("Session last activity missing or unparsable, reseeding")
		}
		if err := t.store.TouchSession(ctx, session.ID, decision.LastActivity); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				// Terminated concurrently, e.g. logout in another tab.
				decision = ActivityDecision{State: StateExpired, LastActivity: decision.LastActivity}
				return decision, nil
			}
			return decision, fmt.Errorf("failed to extend session: %w", err)
		}
		session.LastActivity = domain.FormatActivity(decision.LastActivity)
	}
	return decision, nil
}

// Inspect evaluates session without extending it. A hard-expired session is
// still terminated.
func (t *SessionActivityTracker) Inspect(ctx context.Context, session *domain.Session) (ActivityDecision, error) {
	if !t.policy.Enabled() {
		return ActivityDecision{State: StateActive}, nil
	}
	decision := EvaluateActivity(t.clock.now(), session.LastActivity, t.policy, false)
	if decision.State == StateExpired {
		return decision, t.Terminate(ctx, session, "idle_timeout")
	}
	return decision, nil
}

// Terminate destroys session server-side.
func (t *SessionActivityTracker) Terminate(ctx context.Context, session *domain.Session, cause string) error {
	err := t.store.DeleteSession(ctx, session.ID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		log.Error().Err(err).Str("sessionID", session.ID).Msg("Failed to delete session")
		return fmt.Errorf("failed to terminate session: %w", err)
	}
	if err == nil {
		metrics.ActiveSessionsGauge.Dec()
		metrics.SessionTerminationsTotal.WithLabelValues(cause).Inc()
		audit.Log("SessionTracker", "Terminate", session.UserID, session.IPAddress, "Session terminated: "+cause, true, nil)
	}
	return nil
}
