package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pilab-dev/homefin-auth/domain"
)

// MemorySessionStore implements domain.SessionStore using ttlcache. The
// retention TTL only reclaims abandoned entries; idle expiry is decided by
// the session tracker.
type MemorySessionStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, domain.Session]
}

// NewMemorySessionStore creates a new in-memory session store. A
// non-positive retention keeps sessions until they are deleted.
func NewMemorySessionStore(retention time.Duration) *MemorySessionStore {
	ttl := retention
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, domain.Session](ttl),
		ttlcache.WithDisableTouchOnHit[string, domain.Session](),
	)

	go cache.Start()

	return &MemorySessionStore{
		cache: cache,
	}
}

// CreateSession implements domain.SessionStore.
func (s *MemorySessionStore) CreateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set(session.ID, *session, ttlcache.DefaultTTL)
	return nil
}

// GetSession implements domain.SessionStore.
func (s *MemorySessionStore) GetSession(_ context.Context, id string) (*domain.Session, error) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, domain.ErrSessionNotFound
	}
	session := item.Value()
	return &session, nil
}

// TouchSession implements domain.SessionStore.
func (s *MemorySessionStore) TouchSession(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(id)
	if item == nil {
		return domain.ErrSessionNotFound
	}
	session := item.Value()
	if current, ok := domain.ParseActivity(session.LastActivity); ok && !at.After(current) {
		return nil
	}
	session.LastActivity = domain.FormatActivity(at)
	s.cache.Set(id, session, ttlcache.DefaultTTL)
	return nil
}

// DeleteSession implements domain.SessionStore.
func (s *MemorySessionStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cache.Has(id) {
		return domain.ErrSessionNotFound
	}
	s.cache.Delete(id)
	return nil
}

// Count returns the number of stored sessions.
func (s *MemorySessionStore) Count() int {
	return s.cache.Len()
}

// Close stops the background cleanup.
func (s *MemorySessionStore) Close() {
	s.cache.Stop()
}

var _ domain.SessionStore = (*MemorySessionStore)(nil)
