package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pilab-dev/homefin-auth/domain"
)

type windowCounter struct {
	count   int64
	resetAt time.Time
}

// MemoryCounterStore implements domain.CounterStore using ttlcache. Each
// counter lives exactly as long as its window.
type MemoryCounterStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, windowCounter]
	now   func() time.Time
}

// NewMemoryCounterStore creates a new in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, windowCounter](),
	)

	go cache.Start()

	return &MemoryCounterStore{
		cache: cache,
		now:   time.Now,
	}
}

// Incr implements domain.CounterStore.
func (s *MemoryCounterStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	item := s.cache.Get(key)
	if item == nil || !now.Before(item.Value().resetAt) {
		c := windowCounter{count: 1, resetAt: now.Add(window)}
		s.cache.Set(key, c, window)
		return c.count, c.resetAt, nil
	}

	c := item.Value()
	c.count++
	s.cache.Set(key, c, c.resetAt.Sub(now))
	return c.count, c.resetAt, nil
}

// Close stops the background cleanup.
func (s *MemoryCounterStore) Close() {
	s.cache.Stop()
}

var _ domain.CounterStore = (*MemoryCounterStore)(nil)
