package boltdb

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pilab-dev/homefin-auth/domain"
	"go.etcd.io/bbolt"
)

// userRecord is the stored form of a user. domain.User hides the password
// hash from JSON, so it is carried alongside.
type userRecord struct {
	domain.User
	PasswordHash string `json:"password_hash"`
}

// UserRepository implements domain.UserRepository on bbolt.
type UserRepository struct {
	db *bbolt.DB
}

func (r *UserRepository) CreateUser(_ context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Status == "" {
		user.Status = domain.UserStatusActive
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(usersBucket)
		byEmail := tx.Bucket(usersByEmailBucket)
		if users.Get([]byte(user.ID)) != nil || byEmail.Get([]byte(user.Email)) != nil {
			return domain.ErrUserExists
		}
		data, err := json.Marshal(userRecord{User: *user, PasswordHash: user.PasswordHash})
		if err != nil {
			return err
		}
		if err := users.Put([]byte(user.ID), data); err != nil {
			return err
		}
		return byEmail.Put([]byte(user.Email), []byte(user.ID))
	})
}

func (r *UserRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	var user *domain.User
	err := r.db.View(func(tx *bbolt.Tx) error {
		var err error
		user, err = loadUser(tx, id)
		return err
	})
	return user, err
}

func (r *UserRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	var user *domain.User
	err := r.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(usersByEmailBucket).Get([]byte(strings.ToLower(email)))
		if id == nil {
			return domain.ErrUserNotFound
		}
		var err error
		user, err = loadUser(tx, string(id))
		return err
	})
	return user, err
}

func loadUser(tx *bbolt.Tx, id string) (*domain.User, error) {
	data := tx.Bucket(usersBucket).Get([]byte(id))
	if data == nil {
		return nil, domain.ErrUserNotFound
	}
	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	user := rec.User
	user.PasswordHash = rec.PasswordHash
	return &user, nil
}

var _ domain.UserRepository = (*UserRepository)(nil)
