package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/redis/go-redis/v9"
)

// incrScript increments a counter and starts its window on the first hit.
// A key that somehow lost its expiry gets a fresh window.
var incrScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// CounterStore implements domain.CounterStore with Redis INCR/PEXPIRE.
type CounterStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewCounterStore creates a new [CounterStore] instance.
func NewCounterStore(client redis.UniversalClient, prefix string) *CounterStore {
	return &CounterStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Incr implements domain.CounterStore.
func (s *CounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	res, err := incrScript.Run(ctx, s.client,
		[]string{fmt.Sprintf("%s:rate:%s", s.prefix, key)},
		window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to increment counter in Redis: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected counter script reply: %v", res)
	}
	return res[0], s.now().Add(time.Duration(res[1]) * time.Millisecond), nil
}

var _ domain.CounterStore = (*CounterStore)(nil)
