package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/pilab-dev/homefin-auth/domain"
)

// UserRepository is an in-memory domain.UserRepository.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) CreateUser(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, ok := r.byID[user.ID]; ok {
		return domain.ErrUserExists
	}
	if _, ok := r.byEmail[email]; ok {
		return domain.ErrUserExists
	}
	u := *user
	r.byID[user.ID] = &u
	r.byEmail[email] = user.ID
	return nil
}

func (r *UserRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[strings.ToLower(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.GetUserByID(ctx, id)
}

var _ domain.UserRepository = (*UserRepository)(nil)
