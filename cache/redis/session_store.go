package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/redis/go-redis/v9"
)

// touchScript moves last_activity forward only. activity_us mirrors it as
// microseconds so the comparison can run inside Redis.
var touchScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
local cur = tonumber(redis.call('HGET', KEYS[1], 'activity_us'))
local raw = redis.call('HGET', KEYS[1], 'last_activity')
if cur ~= nil and raw and raw ~= '' and cur >= tonumber(ARGV[2]) then
  return 1
end
redis.call('HSET', KEYS[1], 'last_activity', ARGV[1], 'activity_us', ARGV[2])
if tonumber(ARGV[3]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// SessionStore implements domain.SessionStore on Redis hashes.
type SessionStore struct {
	client    redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewSessionStore creates a new [SessionStore] instance. retention is the key
// TTL refreshed on every touch; zero keeps keys until deleted.
func NewSessionStore(client redis.UniversalClient, prefix string, retention time.Duration) *SessionStore {
	return &SessionStore{
		client:    client,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *SessionStore) redisKey(id string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, id)
}

// CreateSession stores a new session hash.
func (s *SessionStore) CreateSession(ctx context.Context, session *domain.Session) error {
	key := s.redisKey(session.ID)
	fields := map[string]interface{}{
		"user_id":       session.UserID,
		"last_activity": session.LastActivity,
		"ip_address":    session.IPAddress,
		"user_agent":    session.UserAgent,
		"created_at":    session.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if t, ok := domain.ParseActivity(session.LastActivity); ok {
		fields["activity_us"] = t.UnixMicro()
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if s.retention > 0 {
		pipe.PExpire(ctx, key, s.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session in Redis: %w", err)
	}
	return nil
}

// GetSession loads a session hash.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	fields, err := s.client.HGetAll(ctx, s.redisKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	session := &domain.Session{
		ID:           id,
		UserID:       fields["user_id"],
		LastActivity: fields["last_activity"],
		IPAddress:    fields["ip_address"],
		UserAgent:    fields["user_agent"],
	}
	if raw := fields["created_at"]; raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			session.CreatedAt = t
		}
	}
	return session, nil
}

// TouchSession moves last_activity forward atomically.
func (s *SessionStore) TouchSession(ctx context.Context, id string, at time.Time) error {
	res, err := touchScript.Run(ctx, s.client,
		[]string{s.redisKey(id)},
		domain.FormatActivity(at),
		strconv.FormatInt(at.UnixMicro(), 10),
		strconv.FormatInt(s.retention.Milliseconds(), 10),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to touch session in Redis: %w", err)
	}
	if res == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session hash.
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.redisKey(id)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

var _ domain.SessionStore = (*SessionStore)(nil)
