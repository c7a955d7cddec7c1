package services

import (
	"context"
	"log"
	"time"

	"sheet-management-service/internal/event"
	"sheet-management-service/internal/models"
	"sheet-management-service/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type AuditService struct {
	auditRepo      *repository.AuditRepository
	eventPublisher event.Publisher
	logReadActions bool
}

func NewAuditService(auditRepo *repository.AuditRepository, eventPublisher event.Publisher, logReadActions bool) *AuditService {
	return &AuditService{
		auditRepo:      auditRepo,
		eventPublisher: eventPublisher,
		logReadActions: logReadActions,
	}
}

// Record appends an audit entry best-effort. Ledger failures are logged and
// swallowed so they never block the business mutation that produced them.
// Successful reads are suppressed unless read-logging is enabled; denied
// reads are always recorded.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditEntry) {
	if entry.Action == models.AuditActionRead && entry.Result == models.AuditResultSuccess && !s.logReadActions {
		return
	}

	if entry.EventID == "" {
		entry.EventID = uuid.NewString()
	}
	if entry.Timestamp == 0 {
		entry.Timestamp = time.Now().Unix()
	}
	if entry.Result == "" {
		entry.Result = models.AuditResultSuccess
	}

	if _, err := s.auditRepo.Append(ctx, entry); err != nil {
		log.Printf("Failed to append audit entry %s (%s): %v", entry.EventID, entry.Action, err)
		return
	}

	if s.eventPublisher != nil {
		auditEvent := &event.AuditEvent{
			EventType: event.EventAuditRecorded,
			EventID:   entry.EventID,
			Action:    string(entry.Action),
			SheetID:   entry.SheetID.Hex(),
			ActorID:   entry.Actor.ID,
			Result:    string(entry.Result),
			Timestamp: time.Unix(entry.Timestamp, 0).Format(time.RFC3339),
		}
		if !entry.RowID.IsZero() {
			auditEvent.RowID = entry.RowID.Hex()
		}
		if err := s.eventPublisher.PublishAuditEvent(auditEvent); err != nil {
			log.Printf("Failed to publish audit event %s: %v", entry.EventID, err)
		}
	}
}

func (s *AuditService) RowHistory(ctx context.Context, rowID bson.ObjectID) ([]*models.AuditEntry, error) {
	return s.auditRepo.FindByRow(ctx, rowID)
}

func (s *AuditService) ActorActivity(ctx context.Context, actorID string, query *models.AuditListQuery) ([]*models.AuditEntry, int64, error) {
	return s.auditRepo.FindByActor(ctx, actorID, query)
}

func (s *AuditService) SheetActivity(ctx context.Context, sheetID bson.ObjectID, query *models.AuditListQuery) ([]*models.AuditEntry, int64, error) {
	return s.auditRepo.FindBySheet(ctx, sheetID, query)
}

func (s *AuditService) SheetReport(ctx context.Context, sheetID bson.ObjectID, from, to int64) (*models.AuditReport, error) {
	return s.auditRepo.Report(ctx, sheetID, from, to)
}
