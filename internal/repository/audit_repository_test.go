package repository

import (
	"context"
	"errors"
	"testing"

	"sheet-management-service/internal/apperrors"
	"sheet-management-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// The mutation methods reject before touching the collection, so a zero-value
// repository is enough to pin the append-only contract.
func TestAuditRepositoryIsAppendOnly(t *testing.T) {
	repo := &AuditRepository{}
	id := bson.NewObjectID()

	if err := repo.Update(context.Background(), id, &models.AuditEntry{}); !errors.Is(err, apperrors.ErrImmutableRecord) {
		t.Errorf("Update should refuse with ErrImmutableRecord, got %v", err)
	}
	if err := repo.Delete(context.Background(), id); !errors.Is(err, apperrors.ErrImmutableRecord) {
		t.Errorf("Delete should refuse with ErrImmutableRecord, got %v", err)
	}
}
