package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pilab-dev/homefin-auth/domain"
	"go.etcd.io/bbolt"
)

// LoginAttemptRepository implements domain.LoginAttemptRepository on bbolt.
// Attempts are keyed identity|time|id; a second bucket keyed ip|time|id marks
// failures for per-IP counting.
type LoginAttemptRepository struct {
	db *bbolt.DB
}

func (r *LoginAttemptRepository) RecordAttempt(_ context.Context, attempt *domain.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(attemptsBucket).Put(indexKey(attempt.Identity, attempt.AttemptedAt, attempt.ID), data); err != nil {
			return err
		}
		if attempt.Success || attempt.IPAddress == "" {
			return nil
		}
		return tx.Bucket(attemptsByIPBucket).Put(indexKey(attempt.IPAddress, attempt.AttemptedAt, attempt.ID), []byte(attempt.Identity))
	})
}

func (r *LoginAttemptRepository) ListAttemptsByIdentity(_ context.Context, identity string, since time.Time) ([]*domain.LoginAttempt, error) {
	var out []*domain.LoginAttempt
	prefix := prefixKey(identity)

	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(attemptsBucket).Cursor()
		for k, v := c.Seek(indexKey(identity, since, "")); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var a domain.LoginAttempt
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			out = append(out, &a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

func (r *LoginAttemptRepository) CountFailuresByIP(_ context.Context, ip string, since time.Time) (int, error) {
	n := 0
	prefix := prefixKey(ip)
	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(attemptsByIPBucket).Cursor()
		for k, _ := c.Seek(indexKey(ip, since, "")); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (r *LoginAttemptRepository) DeleteAttemptsByIdentity(_ context.Context, identity string) (int64, error) {
	var deleted int64
	prefix := prefixKey(identity)

	err := r.db.Update(func(tx *bbolt.Tx) error {
		attempts := tx.Bucket(attemptsBucket)
		byIP := tx.Bucket(attemptsByIPBucket)

		var keys [][]byte
		c := attempts.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var a domain.LoginAttempt
			if err := json.Unmarshal(v, &a); err == nil && !a.Success && a.IPAddress != "" {
				if err := byIP.Delete(indexKey(a.IPAddress, a.AttemptedAt, a.ID)); err != nil {
					return err
				}
			}
			keys = append(keys, slices.Clone(k))
		}
		for _, k := range keys {
			if err := attempts.Delete(k); err != nil {
				return err
			}
		}
		deleted = int64(len(keys))
		return nil
	})
	return deleted, err
}

var _ domain.LoginAttemptRepository = (*LoginAttemptRepository)(nil)
