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

type AssignmentRepository struct {
	collection *mongo.Collection
}

func NewAssignmentRepository(db *mongo.Database) *AssignmentRepository {
	return &AssignmentRepository{
		collection: db.Collection("sheet_assignments"),
	}
}

func (r *AssignmentRepository) New(ctx context.Context, assignment *models.Assignment) (*models.Assignment, error) {
	if assignment.ID.IsZero() {
		assignment.ID = bson.NewObjectID()
	}

	currentTime := time.Now().Unix()
	if assignment.Metadata.CreatedAt == 0 {
		assignment.Metadata.CreatedAt = currentTime
	}
	assignment.Metadata.UpdatedAt = currentTime

	_, err := r.collection.InsertOne(ctx, assignment)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: actor %s already assigned to sheet", apperrors.ErrValidation, assignment.ActorID)
		}
		return nil, fmt.Errorf("failed to insert assignment: %w", err)
	}
	return assignment, nil
}

func (r *AssignmentRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("assignment %s: %w", id.Hex(), apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &assignment, nil
}

// FindActive returns the actor's assignment on a sheet only when it currently
// grants access: status active and not expired.
func (r *AssignmentRepository) FindActive(ctx context.Context, actorID string, sheetID bson.ObjectID) (*models.Assignment, error) {
	filter := bson.M{
		"actorId": actorID,
		"sheetId": sheetID,
		"status":  models.AssignmentStatusActive,
		"$or": []bson.M{
			{"expiresAt": bson.M{"$exists": false}},
			{"expiresAt": 0},
			{"expiresAt": bson.M{"$gt": time.Now().Unix()}},
		},
	}

	var assignment models.Assignment
	err := r.collection.FindOne(ctx, filter).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNoAssignment
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentRepository) FindBySheet(ctx context.Context, sheetID bson.ObjectID) ([]*models.Assignment, error) {
	opts := options.Find().SetSort(bson.M{"metadata.createdAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{"sheetId": sheetID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheet assignments: %w", err)
	}
	defer cursor.Close(ctx)

	var assignments []*models.Assignment
	if err := cursor.All(ctx, &assignments); err != nil {
		return nil, fmt.Errorf("failed to decode assignments: %w", err)
	}
	return assignments, nil
}

// FindActiveByActor returns every assignment currently granting the actor
// access, across sheets.
func (r *AssignmentRepository) FindActiveByActor(ctx context.Context, actorID string) ([]*models.Assignment, error) {
	filter := bson.M{
		"actorId": actorID,
		"status":  models.AssignmentStatusActive,
		"$or": []bson.M{
			{"expiresAt": bson.M{"$exists": false}},
			{"expiresAt": 0},
			{"expiresAt": bson.M{"$gt": time.Now().Unix()}},
		},
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list actor assignments: %w", err)
	}
	defer cursor.Close(ctx)

	var assignments []*models.Assignment
	if err := cursor.All(ctx, &assignments); err != nil {
		return nil, fmt.Errorf("failed to decode assignments: %w", err)
	}
	return assignments, nil
}

func (r *AssignmentRepository) Update(ctx context.Context, id bson.ObjectID, assignment *models.Assignment) (*models.Assignment, error) {
	assignment.Metadata.UpdatedAt = time.Now().Unix()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Assignment
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": assignment}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("assignment %s: %w", id.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	return &updated, nil
}

// Revoke marks the assignment revoked. Assignments are never hard-deleted so
// grants stay reconstructible next to the audit trail.
func (r *AssignmentRepository) Revoke(ctx context.Context, id bson.ObjectID) (*models.Assignment, error) {
	update := bson.M{"$set": bson.M{
		"status":             models.AssignmentStatusRevoked,
		"metadata.updatedAt": time.Now().Unix(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var revoked models.Assignment
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&revoked)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("assignment %s: %w", id.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to revoke assignment: %w", err)
	}
	return &revoked, nil
}

// SuspendByActor suspends every active assignment of an actor, used when the
// account service reports a suspension.
func (r *AssignmentRepository) SuspendByActor(ctx context.Context, actorID string) (int64, error) {
	filter := bson.M{"actorId": actorID, "status": models.AssignmentStatusActive}
	update := bson.M{"$set": bson.M{
		"status":             models.AssignmentStatusSuspended,
		"metadata.updatedAt": time.Now().Unix(),
	}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to suspend assignments for %s: %w", actorID, err)
	}
	return result.ModifiedCount, nil
}

func (r *AssignmentRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "actorId", Value: 1},
				{Key: "sheetId", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "sheetId", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "actorId", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "expiresAt", Value: 1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create assignment indexes: %w", err)
	}
	return nil
}
