package boltdb

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
)

var (
	usersBucket        = []byte("users")
	usersByEmailBucket = []byte("users_by_email")
	devicesBucket      = []byte("mfa_devices")
	attemptsBucket     = []byte("login_attempts")
	attemptsByIPBucket = []byte("login_attempts_by_ip")
)

// Store owns an embedded bbolt database shared by the repositories in this
// package. bbolt serialises writers, so every db.Update is a transaction.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the database file at dbPath and its buckets.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}

	log.Info().Str("path", dbPath).Msg("Opening bbolt database")
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db at %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{usersBucket, usersByEmailBucket, devicesBucket, attemptsBucket, attemptsByIPBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Users returns the user repository backed by s.
func (s *Store) Users() *UserRepository { return &UserRepository{db: s.db} }

// MFADevices returns the MFA device repository backed by s.
func (s *Store) MFADevices() *MFADeviceRepository { return &MFADeviceRepository{db: s.db} }

// LoginAttempts returns the login attempt repository backed by s.
func (s *Store) LoginAttempts() *LoginAttemptRepository { return &LoginAttemptRepository{db: s.db} }

// indexKey builds prefix 0x00 big-endian(nanos) [0x00 suffix], which sorts by
// time within a prefix.
func indexKey(prefix string, t time.Time, suffix string) []byte {
	k := make([]byte, 0, len(prefix)+1+8+1+len(suffix))
	k = append(k, prefix...)
	k = append(k, 0)
	k = binary.BigEndian.AppendUint64(k, uint64(t.UnixNano()))
	if suffix != "" {
		k = append(k, 0)
		k = append(k, suffix...)
	}
	return k
}

func prefixKey(prefix string) []byte {
	return append([]byte(prefix), 0)
}
