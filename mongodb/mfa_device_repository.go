package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MFADeviceRepository implements domain.MFADeviceRepository. Devices are
// keyed by user ID, so every operation touches a single document and relies
// on MongoDB's per-document atomicity.
type MFADeviceRepository struct {
	devices *mongo.Collection
}

// NewMFADeviceRepository creates a new MFADeviceRepository.
func NewMFADeviceRepository(db *mongo.Database) *MFADeviceRepository {
	return &MFADeviceRepository{
		devices: db.Collection(MFADevicesCollection),
	}
}

func (r *MFADeviceRepository) GetDevice(ctx context.Context, userID string) (*domain.MFADevice, error) {
	var device domain.MFADevice
	if err := r.devices.FindOne(ctx, bson.M{"_id": userID}).Decode(&device); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrDeviceNotFound
		}
		log.Error().Err(err).Str("userID", userID).Msg("Error getting MFA device from MongoDB")
		return nil, err
	}
	return &device, nil
}

// GetOrCreateDevice upserts with $setOnInsert, so an existing secret is never
// overwritten. A candidate secret is generated on every call and discarded
// when the device already exists.
func (r *MFADeviceRepository) GetOrCreateDevice(ctx context.Context, userID string, newSecret func() (string, error)) (*domain.MFADevice, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, err
	}

	update := bson.M{"$setOnInsert": bson.M{
		"secret":         secret,
		"enabled":        false,
		"backup_codes":   bson.A{},
		"last_totp_step": int64(0),
		"created_at":     time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var device domain.MFADevice
	err = r.devices.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&device)
	if err != nil {
		// Two concurrent upserts on the same _id: the loser reads the winner's document.
		if mongo.IsDuplicateKeyError(err) {
			return r.GetDevice(ctx, userID)
		}
		log.Error().Err(err).Str("userID", userID).Msg("Error upserting MFA device in MongoDB")
		return nil, err
	}
	return &device, nil
}

// EnableDevice filters on enabled=false, so of several concurrent callers
// only one flips the flag and stores its codes.
func (r *MFADeviceRepository) EnableDevice(ctx context.Context, userID string, hashes []string, at time.Time) (bool, error) {
	if hashes == nil {
		hashes = []string{}
	}
	res, err := r.devices.UpdateOne(ctx,
		bson.M{"_id": userID, "enabled": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{
			"enabled":      true,
			"enabled_at":   at.UTC(),
			"backup_codes": hashes,
		}},
	)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Error enabling MFA device in MongoDB")
		return false, fmt.Errorf("failed to enable mfa device: %w", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	if _, err := r.GetDevice(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *MFADeviceRepository) ReplaceBackupCodes(ctx context.Context, userID string, hashes []string) error {
	if hashes == nil {
		hashes = []string{}
	}
	return r.updateExisting(ctx, userID, bson.M{"$set": bson.M{"backup_codes": hashes}})
}

// ConsumeBackupCode matches against a snapshot of the stored hashes, then
// removes the matched hash with a conditional $pull. The filter requires the
// hash to still be present, so of several concurrent callers presenting the
// same code exactly one modifies the document.
func (r *MFADeviceRepository) ConsumeBackupCode(ctx context.Context, userID string, match domain.BackupCodeMatcher, at time.Time) (bool, error) {
	device, err := r.GetDevice(ctx, userID)
	if err != nil {
		return false, err
	}

	i := domain.MatchBackupCode(device.BackupCodes, match)
	if i < 0 {
		return false, nil
	}
	hash := device.BackupCodes[i]

	res, err := r.devices.UpdateOne(ctx,
		bson.M{"_id": userID, "backup_codes": hash},
		bson.M{
			"$pull": bson.M{"backup_codes": hash},
			"$set":  bson.M{"last_used_at": at.UTC()},
		},
	)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Error consuming backup code in MongoDB")
		return false, fmt.Errorf("failed to consume backup code: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MFADeviceRepository) RecordTOTPUse(ctx context.Context, userID string, step int64, at time.Time, rejectReplay bool) (bool, error) {
	filter := bson.M{"_id": userID}
	if rejectReplay {
		filter["last_totp_step"] = bson.M{"$lt": step}
	}
	res, err := r.devices.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"last_used_at": at.UTC()},
		"$max": bson.M{"last_totp_step": step},
	})
	if err != nil {
		return false, fmt.Errorf("failed to record TOTP use: %w", err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}

	n, err := r.devices.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, domain.ErrDeviceNotFound
	}
	return false, nil
}

func (r *MFADeviceRepository) DeleteDevice(ctx context.Context, userID string) error {
	res, err := r.devices.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}

func (r *MFADeviceRepository) updateExisting(ctx context.Context, userID string, update bson.M) error {
	res, err := r.devices.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		log.Error().Err(err).Str("userID", userID).Msg("Error updating MFA device in MongoDB")
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrDeviceNotFound
	}
	return nil
}

var _ domain.MFADeviceRepository = (*MFADeviceRepository)(nil)
