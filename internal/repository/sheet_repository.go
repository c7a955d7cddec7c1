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

type SheetRepository struct {
	collection *mongo.Collection
}

func NewSheetRepository(db *mongo.Database) *SheetRepository {
	return &SheetRepository{
		collection: db.Collection("sheet_definitions"),
	}
}

func (r *SheetRepository) New(ctx context.Context, sheet *models.SheetDefinition) (*models.SheetDefinition, error) {
	if sheet.ID.IsZero() {
		sheet.ID = bson.NewObjectID()
	}

	currentTime := time.Now().Unix()
	if sheet.Metadata.CreatedAt == 0 {
		sheet.Metadata.CreatedAt = currentTime
	}
	sheet.Metadata.UpdatedAt = currentTime

	_, err := r.collection.InsertOne(ctx, sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sheet definition: %w", err)
	}
	return sheet, nil
}

func (r *SheetRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.SheetDefinition, error) {
	var sheet models.SheetDefinition
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&sheet)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("sheet %s: %w", id.Hex(), apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &sheet, nil
}

func (r *SheetRepository) FindAll(ctx context.Context, activeOnly bool) ([]*models.SheetDefinition, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}

	opts := options.Find().SetSort(bson.M{"metadata.createdAt": -1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheet definitions: %w", err)
	}
	defer cursor.Close(ctx)

	var sheets []*models.SheetDefinition
	if err := cursor.All(ctx, &sheets); err != nil {
		return nil, fmt.Errorf("failed to decode sheet definitions: %w", err)
	}
	return sheets, nil
}

func (r *SheetRepository) FindByCategory(ctx context.Context, category string) ([]*models.SheetDefinition, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"category": category, "isActive": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets by category: %w", err)
	}
	defer cursor.Close(ctx)

	var sheets []*models.SheetDefinition
	if err := cursor.All(ctx, &sheets); err != nil {
		return nil, fmt.Errorf("failed to decode sheet definitions: %w", err)
	}
	return sheets, nil
}

func (r *SheetRepository) Update(ctx context.Context, id bson.ObjectID, sheet *models.SheetDefinition) (*models.SheetDefinition, error) {
	sheet.Metadata.UpdatedAt = time.Now().Unix()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.SheetDefinition
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": sheet}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("sheet %s: %w", id.Hex(), apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update sheet definition: %w", err)
	}
	return &updated, nil
}

func (r *SheetRepository) SetActive(ctx context.Context, id bson.ObjectID, active bool) error {
	update := bson.M{"$set": bson.M{
		"isActive":           active,
		"metadata.updatedAt": time.Now().Unix(),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to toggle sheet: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("sheet %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	return nil
}

func (r *SheetRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "category", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "isActive", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "metadata.createdAt", Value: -1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create sheet definition indexes: %w", err)
	}
	return nil
}
