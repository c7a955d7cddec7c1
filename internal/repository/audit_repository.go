package repository

import (
	"context"
	"fmt"
	"time"

	"sheet-management-service/internal/apperrors"
	"sheet-management-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// AuditRepository is append-only. Append is the single write path; the update
// and delete methods exist to fail loudly so no caller can slip a mutation
// through the repository layer.
type AuditRepository struct {
	collection *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		collection: db.Collection("audit_entries"),
	}
}

func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) (*models.AuditEntry, error) {
	if entry.ID.IsZero() {
		entry.ID = bson.NewObjectID()
	}
	if entry.Timestamp == 0 {
		entry.Timestamp = time.Now().Unix()
	}

	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", err)
	}
	return entry, nil
}

// Update always fails: audit entries are immutable once written.
func (r *AuditRepository) Update(ctx context.Context, id bson.ObjectID, entry *models.AuditEntry) error {
	return fmt.Errorf("audit entry %s: %w", id.Hex(), apperrors.ErrImmutableRecord)
}

// Delete always fails: audit entries are immutable once written.
func (r *AuditRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	return fmt.Errorf("audit entry %s: %w", id.Hex(), apperrors.ErrImmutableRecord)
}

func (r *AuditRepository) FindByRow(ctx context.Context, rowID bson.ObjectID) ([]*models.AuditEntry, error) {
	opts := options.Find().SetSort(bson.M{"timestamp": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"rowId": rowID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load row history: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.AuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, nil
}

func (r *AuditRepository) FindByActor(ctx context.Context, actorID string, query *models.AuditListQuery) ([]*models.AuditEntry, int64, error) {
	filter := bson.M{"actor.id": actorID}
	applyAuditQuery(filter, query)
	return r.find(ctx, filter, query)
}

func (r *AuditRepository) FindBySheet(ctx context.Context, sheetID bson.ObjectID, query *models.AuditListQuery) ([]*models.AuditEntry, int64, error) {
	filter := bson.M{"sheetId": sheetID}
	applyAuditQuery(filter, query)
	return r.find(ctx, filter, query)
}

func applyAuditQuery(filter bson.M, query *models.AuditListQuery) {
	if query.Action != "" {
		filter["action"] = query.Action
	}
	timeRange := bson.M{}
	if query.From > 0 {
		timeRange["$gte"] = query.From
	}
	if query.To > 0 {
		timeRange["$lte"] = query.To
	}
	if len(timeRange) > 0 {
		filter["timestamp"] = timeRange
	}
}

func (r *AuditRepository) find(ctx context.Context, filter bson.M, query *models.AuditListQuery) ([]*models.AuditEntry, int64, error) {
	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	opts := options.Find()
	opts.SetSort(bson.M{"timestamp": -1})
	opts.SetSkip(int64((query.Page - 1) * query.PageSize))
	opts.SetLimit(int64(query.PageSize))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*models.AuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, totalCount, nil
}

// Report aggregates a sheet's audit activity: totals, per-action and
// per-actor counts, each with a failure breakdown.
func (r *AuditRepository) Report(ctx context.Context, sheetID bson.ObjectID, from, to int64) (*models.AuditReport, error) {
	match := bson.M{"sheetId": sheetID}
	timeRange := bson.M{}
	if from > 0 {
		timeRange["$gte"] = from
	}
	if to > 0 {
		timeRange["$lte"] = to
	}
	if len(timeRange) > 0 {
		match["timestamp"] = timeRange
	}

	failureSum := bson.M{"$sum": bson.M{
		"$cond": []any{
			bson.M{"$eq": []any{"$result", models.AuditResultFailure}},
			1,
			0,
		},
	}}

	pipeline := []bson.M{
		{"$match": match},
		{
			"$facet": bson.M{
				"totals": []bson.M{
					{"$group": bson.M{
						"_id":      nil,
						"count":    bson.M{"$sum": 1},
						"failures": failureSum,
					}},
				},
				"byAction": []bson.M{
					{"$group": bson.M{
						"_id":      "$action",
						"count":    bson.M{"$sum": 1},
						"failures": failureSum,
					}},
					{"$sort": bson.M{"count": -1}},
				},
				"byActor": []bson.M{
					{"$group": bson.M{
						"_id":      "$actor.id",
						"count":    bson.M{"$sum": 1},
						"failures": failureSum,
					}},
					{"$sort": bson.M{"count": -1}},
				},
			},
		},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to build audit report: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Totals []struct {
			Count    int64 `bson:"count"`
			Failures int64 `bson:"failures"`
		} `bson:"totals"`
		ByAction []models.AuditActionCount `bson:"byAction"`
		ByActor  []models.AuditActorCount  `bson:"byActor"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode audit report: %w", err)
	}

	report := &models.AuditReport{SheetID: sheetID}
	if len(results) > 0 {
		result := results[0]
		if len(result.Totals) > 0 {
			report.TotalEntries = result.Totals[0].Count
			report.Failures = result.Totals[0].Failures
			report.Successes = report.TotalEntries - report.Failures
		}
		report.ByAction = result.ByAction
		report.ByActor = result.ByActor
	}
	return report, nil
}

func (r *AuditRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "eventId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "rowId", Value: 1}, {Key: "timestamp", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "actor.id", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "sheetId", Value: 1}, {Key: "action", Value: 1}, {Key: "timestamp", Value: -1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}
