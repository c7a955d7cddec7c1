package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sheet-management-service/internal/apperrors"
	"sheet-management-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type LockRepository struct {
	collection *mongo.Collection
}

func NewLockRepository(db *mongo.Database) *LockRepository {
	return &LockRepository{
		collection: db.Collection("row_locks"),
	}
}

// Acquire takes or refreshes the exclusive edit lock on a row as a single
// conditional upsert. The filter matches only when the existing lock is owned
// by the same holder or already expired; otherwise the upsert trips the
// unique (sheetId, rowId) index and the duplicate-key error becomes a
// LockHeldError. Two actors can never both observe "unlocked" and both write.
func (r *LockRepository) Acquire(ctx context.Context, sheetID, rowID bson.ObjectID, holder *models.Actor, timeout time.Duration) (*models.RowLock, error) {
	now := time.Now()

	filter := bson.M{
		"sheetId": sheetID,
		"rowId":   rowID,
		"$or": []bson.M{
			{"holderId": holder.ID},
			{"expiresAt": bson.M{"$lte": now}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"holderId":   holder.ID,
			"holderName": holder.Name,
			"lockType":   models.LockTypeEdit,
			"acquiredAt": now,
			"expiresAt":  now.Add(timeout),
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var lock models.RowLock
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&lock)
	if err == nil {
		return &lock, nil
	}

	if mongo.IsDuplicateKeyError(err) {
		existing, getErr := r.Get(ctx, sheetID, rowID)
		if getErr == nil && existing != nil {
			return nil, &apperrors.LockHeldError{
				HolderID:   existing.HolderID,
				HolderName: existing.HolderName,
				AcquiredAt: existing.AcquiredAt,
				ExpiresAt:  existing.ExpiresAt,
			}
		}
		return nil, fmt.Errorf("%w", apperrors.ErrLockHeld)
	}
	return nil, fmt.Errorf("failed to acquire lock: %w", err)
}

// Release deletes the lock only if owned by the actor. Best-effort: a missing
// lock is not an error.
func (r *LockRepository) Release(ctx context.Context, sheetID, rowID bson.ObjectID, holderID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{
		"sheetId":  sheetID,
		"rowId":    rowID,
		"holderId": holderID,
	})
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// ForceRelease removes the lock regardless of holder, for admin unlock.
func (r *LockRepository) ForceRelease(ctx context.Context, sheetID, rowID bson.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"sheetId": sheetID, "rowId": rowID})
	if err != nil {
		return fmt.Errorf("failed to force release lock: %w", err)
	}
	return nil
}

// Get returns the active lock on a row, or nil when unlocked. The TTL monitor
// only purges about once a minute, so an expired document is reported as
// absent here rather than trusted to be gone.
func (r *LockRepository) Get(ctx context.Context, sheetID, rowID bson.ObjectID) (*models.RowLock, error) {
	var lock models.RowLock
	err := r.collection.FindOne(ctx, bson.M{"sheetId": sheetID, "rowId": rowID}).Decode(&lock)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lock: %w", err)
	}
	if lock.Expired(time.Now()) {
		return nil, nil
	}
	return &lock, nil
}

// PurgeExpired physically removes expired locks, backing up the TTL index.
func (r *LockRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": time.Now()}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired locks: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *LockRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "sheetId", Value: 1},
				{Key: "rowId", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "holderId", Value: 1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create lock indexes: %w", err)
	}
	return nil
}
