package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/pilab-dev/homefin-auth/domain"
)

// LoginAttemptRepository is an in-memory append-only attempt log.
type LoginAttemptRepository struct {
	mu       sync.RWMutex
	attempts []*domain.LoginAttempt
}

// NewLoginAttemptRepository creates an empty LoginAttemptRepository.
func NewLoginAttemptRepository() *LoginAttemptRepository {
	return &LoginAttemptRepository{}
}

func (r *LoginAttemptRepository) RecordAttempt(_ context.Context, attempt *domain.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := *attempt
	r.attempts = append(r.attempts, &a)
	return nil
}

func (r *LoginAttemptRepository) ListAttemptsByIdentity(_ context.Context, identity string, since time.Time) ([]*domain.LoginAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.LoginAttempt
	for i := len(r.attempts) - 1; i >= 0; i-- {
		a := r.attempts[i]
		if a.Identity != identity || a.AttemptedAt.Before(since) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	slices.SortStableFunc(out, func(a, b *domain.LoginAttempt) int {
		return b.AttemptedAt.Compare(a.AttemptedAt)
	})
	return out, nil
}

func (r *LoginAttemptRepository) CountFailuresByIP(_ context.Context, ip string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, a := range r.attempts {
		if a.IPAddress == ip && !a.Success && !a.AttemptedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *LoginAttemptRepository) DeleteAttemptsByIdentity(_ context.Context, identity string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.attempts[:0]
	var deleted int64
	for _, a := range r.attempts {
		if a.Identity == identity {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	r.attempts = kept
	return deleted, nil
}

var _ domain.LoginAttemptRepository = (*LoginAttemptRepository)(nil)
