package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/rs/zerolog/log"
)

// RateDecision is the outcome of one rate limiter check.
type RateDecision struct {
	Allowed bool
	Count   int64
	Limit   int
	ResetAt time.Time
}

// RateLimiter throttles raw request volume per key, regardless of whether the
// requests carry valid credentials.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateDecision, error)
}

// FixedWindowLimiter counts requests per key in fixed windows. Each check is a
// single increment-with-expiry on the counter store.
type FixedWindowLimiter struct {
	counters domain.CounterStore
	prefix   string
}

// NewFixedWindowLimiter creates a limiter whose keys are namespaced by prefix.
func NewFixedWindowLimiter(counters domain.CounterStore, prefix string) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		counters: counters,
		prefix:   prefix,
	}
}

// Allow counts one request for key. A non-positive limit disables the check.
// Counter store failures fail open and are returned alongside an allowing
// decision.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateDecision, error) {
	if limit <= 0 || window <= 0 {
		return RateDecision{Allowed: true, Limit: limit}, nil
	}

	count, resetAt, err := l.counters.Incr(ctx, l.prefix+":"+key, window)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Rate limit counter unavailable, allowing request")
		return RateDecision{Allowed: true, Limit: limit}, fmt.Errorf("rate limit counter: %w", err)
	}

	return RateDecision{
		Allowed: count <= int64(limit),
		Count:   count,
		Limit:   limit,
		ResetAt: resetAt,
	}, nil
}

var _ RateLimiter = (*FixedWindowLimiter)(nil)
