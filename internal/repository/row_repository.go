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

type RowRepository struct {
	collection *mongo.Collection
}

func NewRowRepository(db *mongo.Database) *RowRepository {
	return &RowRepository{
		collection: db.Collection("sheet_rows"),
	}
}

func (r *RowRepository) New(ctx context.Context, row *models.Row) (*models.Row, error) {
	if row.ID.IsZero() {
		row.ID = bson.NewObjectID()
	}
	if row.Version == 0 {
		row.Version = 1
	}

	currentTime := time.Now().Unix()
	if row.Metadata.CreatedAt == 0 {
		row.Metadata.CreatedAt = currentTime
	}
	row.Metadata.UpdatedAt = currentTime

	_, err := r.collection.InsertOne(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert row: %w", err)
	}
	return row, nil
}

func (r *RowRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Row, error) {
	var row models.Row
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "isDeleted": false}).Decode(&row)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("row %s: %w", id.Hex(), apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &row, nil
}

// List returns the sheet's rows under the mandatory security predicate. A nil
// predicate means unrestricted visibility; anything else is ANDed in so the
// caller-supplied paging and status filter can never widen it.
func (r *RowRepository) List(ctx context.Context, sheetID bson.ObjectID, security bson.M, query *models.RowListQuery) ([]*models.Row, int64, error) {
	filter := bson.M{
		"sheetId":   sheetID,
		"isDeleted": false,
	}
	if query.Status != "" {
		filter["status"] = query.Status
	}
	if security != nil {
		filter = bson.M{"$and": []bson.M{filter, security}}
	}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count rows: %w", err)
	}

	opts := options.Find()
	opts.SetSort(bson.M{"metadata.createdAt": -1})
	opts.SetSkip(int64((query.Page - 1) * query.PageSize))
	opts.SetLimit(int64(query.PageSize))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rows: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []*models.Row
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, 0, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, totalCount, nil
}

// UpdateData applies a partial data update, bumping the version counter. The
// version is a change counter, not an optimistic-concurrency token; write
// serialization comes from the lock manager.
func (r *RowRepository) UpdateData(ctx context.Context, id bson.ObjectID, data map[string]any, newStatus models.RowStatus) (*models.Row, error) {
	set := bson.M{"metadata.updatedAt": time.Now().Unix()}
	for key, value := range data {
		set["data."+key] = value
	}
	if newStatus != "" {
		set["status"] = newStatus
	}

	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Row
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "isDeleted": false}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("row %s: %w", id.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update row: %w", err)
	}
	return &updated, nil
}

// Transition conditionally moves the row out of fromStatus. The status filter
// makes the state-machine step atomic: a concurrent transition that got there
// first leaves nothing to match.
func (r *RowRepository) Transition(ctx context.Context, id bson.ObjectID, fromStatus models.RowStatus, set bson.M, unset bson.M) (*models.Row, error) {
	set["metadata.updatedAt"] = time.Now().Unix()
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Row
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": fromStatus, "isDeleted": false}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, findErr := r.FindByID(ctx, id); findErr != nil {
				return nil, findErr
			}
			return nil, fmt.Errorf("%w: row left %s concurrently", apperrors.ErrInvalidTransition, fromStatus)
		}
		return nil, fmt.Errorf("failed to transition row: %w", err)
	}
	return &updated, nil
}

func (r *RowRepository) SetAssignees(ctx context.Context, id bson.ObjectID, primaryAssignee string, assignedTo []string) (*models.Row, error) {
	update := bson.M{"$set": bson.M{
		"primaryAssignee":    primaryAssignee,
		"assignedTo":         assignedTo,
		"metadata.updatedAt": time.Now().Unix(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Row
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "isDeleted": false}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("row %s: %w", id.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to set assignees: %w", err)
	}
	return &updated, nil
}

// SoftDelete sets the tombstone. Row documents are never physically removed.
func (r *RowRepository) SoftDelete(ctx context.Context, id bson.ObjectID, actorID string) error {
	update := bson.M{"$set": bson.M{
		"isDeleted":          true,
		"deletedBy":          actorID,
		"deletedAt":          time.Now().Unix(),
		"metadata.updatedAt": time.Now().Unix(),
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "isDeleted": false}, update)
	if err != nil {
		return fmt.Errorf("failed to soft delete row: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("row %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return nil
}

func (r *RowRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "sheetId", Value: 1}, {Key: "isDeleted", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "sheetId", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "primaryAssignee", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "assignedTo", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "createdBy", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "metadata.createdAt", Value: -1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create row indexes: %w", err)
	}
	return nil
}
