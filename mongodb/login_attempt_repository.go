package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// LoginAttemptRepository implements domain.LoginAttemptRepository.
type LoginAttemptRepository struct {
	attempts *mongo.Collection
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository. Attempts
// older than retention are removed by a TTL index; zero disables it.
func NewLoginAttemptRepository(ctx context.Context, db *mongo.Database, retention time.Duration) (*LoginAttemptRepository, error) {
	repo := &LoginAttemptRepository{
		attempts: db.Collection(LoginAttemptsCollection),
	}

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "identity", Value: 1}, {Key: "attempted_at", Value: -1}}},
		{Keys: bson.D{{Key: "ip_address", Value: 1}, {Key: "success", Value: 1}, {Key: "attempted_at", Value: -1}}},
	}
	if retention > 0 {
		indexModels = append(indexModels, mongo.IndexModel{
			Keys:    bson.D{{Key: "attempted_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
		})
	}

	if _, err := repo.attempts.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for login_attempts collection")
	} else {
		log.Info().Msg("Indexes for login_attempts collection ensured.")
	}
	return repo, nil
}

func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *domain.LoginAttempt) error {
	if attempt.ID == "" {
		attempt.ID = NewObjectID()
	}
	if _, err := r.attempts.InsertOne(ctx, attempt); err != nil {
		log.Error().Err(err).Str("identity", attempt.Identity).Msg("Error storing login attempt in MongoDB")
		return err
	}
	return nil
}

func (r *LoginAttemptRepository) ListAttemptsByIdentity(ctx context.Context, identity string, since time.Time) ([]*domain.LoginAttempt, error) {
	filter := bson.M{
		"identity":     identity,
		"attempted_at": bson.M{"$gte": since.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "attempted_at", Value: -1}})

	cursor, err := r.attempts.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}
	defer cursor.Close(ctx)

	var attempts []*domain.LoginAttempt
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, fmt.Errorf("failed to decode login attempts: %w", err)
	}
	return attempts, nil
}

func (r *LoginAttemptRepository) CountFailuresByIP(ctx context.Context, ip string, since time.Time) (int, error) {
	n, err := r.attempts.CountDocuments(ctx, bson.M{
		"ip_address":   ip,
		"success":      false,
		"attempted_at": bson.M{"$gte": since.UTC()},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count login attempts: %w", err)
	}
	return int(n), nil
}

func (r *LoginAttemptRepository) DeleteAttemptsByIdentity(ctx context.Context, identity string) (int64, error) {
	res, err := r.attempts.DeleteMany(ctx, bson.M{"identity": identity})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

var _ domain.LoginAttemptRepository = (*LoginAttemptRepository)(nil)
