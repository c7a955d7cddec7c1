package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"sheet-management-service/internal/apperrors"
	"sheet-management-service/internal/event"
	"sheet-management-service/internal/models"
	"sheet-management-service/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type AssignmentService struct {
	assignmentRepo *repository.AssignmentRepository
	sheetRepo      *repository.SheetRepository
	accessService  *AccessService
	auditService   *AuditService
	eventPublisher event.Publisher
}

func NewAssignmentService(assignmentRepo *repository.AssignmentRepository, sheetRepo *repository.SheetRepository, accessService *AccessService, auditService *AuditService, eventPublisher event.Publisher) *AssignmentService {
	return &AssignmentService{
		assignmentRepo: assignmentRepo,
		sheetRepo:      sheetRepo,
		accessService:  accessService,
		auditService:   auditService,
		eventPublisher: eventPublisher,
	}
}

// Grant creates an assignment on a sheet. Granting requires the assignRows
// permission (or super-admin). Permissions default to the sheet's configured
// default set.
func (s *AssignmentService) Grant(ctx context.Context, actor *models.Actor, sheetID bson.ObjectID, req *models.GrantAssignmentRequest, meta models.RequestMeta) (*models.Assignment, error) {
	if _, err := s.accessService.ResolveAccess(ctx, actor, sheetID, models.PermissionAssignRows); err != nil {
		return nil, err
	}
	if req.ActorID == "" {
		return nil, fmt.Errorf("%w: actorId is required", apperrors.ErrValidation)
	}

	sheet, err := s.sheetRepo.FindByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}

	permissions := sheet.DefaultPermissions
	if req.Permissions != nil {
		permissions = *req.Permissions
	}
	scope := req.Scope
	if scope == "" {
		scope = models.ScopeAssignedRows
	}

	assignment := &models.Assignment{
		SheetID:           sheetID,
		ActorID:           req.ActorID,
		Permissions:       permissions,
		Scope:             scope,
		RestrictedColumns: req.RestrictedColumns,
		Status:            models.AssignmentStatusActive,
		ExpiresAt:         req.ExpiresAt,
		GrantedBy:         actor.ID,
	}

	created, err := s.assignmentRepo.New(ctx, assignment)
	if err != nil {
		return nil, err
	}

	s.accessService.Invalidate(ctx, req.ActorID, sheetID)
	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionAssignmentGrant,
		SheetID: sheetID,
		Actor:   actor.Snapshot(),
		Request: meta,
		Result:  models.AuditResultSuccess,
		Context: models.AuditContext{Detail: fmt.Sprintf("granted %s scope=%s", req.ActorID, scope)},
	})
	s.publishAssignmentEvent(event.EventAssignmentGranted, created, actor.ID)

	return created, nil
}

func (s *AssignmentService) Update(ctx context.Context, actor *models.Actor, sheetID bson.ObjectID, assignmentID bson.ObjectID, req *models.UpdateAssignmentRequest, meta models.RequestMeta) (*models.Assignment, error) {
	if _, err := s.accessService.ResolveAccess(ctx, actor, sheetID, models.PermissionAssignRows); err != nil {
		return nil, err
	}

	assignment, err := s.assignmentRepo.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.SheetID != sheetID {
		return nil, fmt.Errorf("assignment %s: %w", assignmentID.Hex(), apperrors.ErrNotFound)
	}

	if req.Permissions != nil {
		assignment.Permissions = *req.Permissions
	}
	if req.Scope != "" {
		assignment.Scope = req.Scope
	}
	if req.RestrictedColumns != nil {
		assignment.RestrictedColumns = req.RestrictedColumns
	}
	if req.Status != "" {
		assignment.Status = req.Status
	}
	if req.ExpiresAt != nil {
		assignment.ExpiresAt = *req.ExpiresAt
	}

	updated, err := s.assignmentRepo.Update(ctx, assignmentID, assignment)
	if err != nil {
		return nil, err
	}

	s.accessService.Invalidate(ctx, updated.ActorID, sheetID)
	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionAssignmentUpdate,
		SheetID: sheetID,
		Actor:   actor.Snapshot(),
		Request: meta,
		Result:  models.AuditResultSuccess,
		Context: models.AuditContext{Detail: fmt.Sprintf("updated assignment of %s", updated.ActorID)},
	})
	s.publishAssignmentEvent(event.EventAssignmentUpdated, updated, actor.ID)

	return updated, nil
}

// Revoke marks the assignment revoked; the record itself is retained.
func (s *AssignmentService) Revoke(ctx context.Context, actor *models.Actor, sheetID bson.ObjectID, assignmentID bson.ObjectID, meta models.RequestMeta) error {
	if _, err := s.accessService.ResolveAccess(ctx, actor, sheetID, models.PermissionAssignRows); err != nil {
		return err
	}

	assignment, err := s.assignmentRepo.FindByID(ctx, assignmentID)
	if err != nil {
		return err
	}
	if assignment.SheetID != sheetID {
		return fmt.Errorf("assignment %s: %w", assignmentID.Hex(), apperrors.ErrNotFound)
	}

	revoked, err := s.assignmentRepo.Revoke(ctx, assignmentID)
	if err != nil {
		return err
	}

	s.accessService.Invalidate(ctx, revoked.ActorID, sheetID)
	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionAssignmentRevoke,
		SheetID: sheetID,
		Actor:   actor.Snapshot(),
		Request: meta,
		Result:  models.AuditResultSuccess,
		Context: models.AuditContext{Detail: fmt.Sprintf("revoked assignment of %s", revoked.ActorID)},
	})
	s.publishAssignmentEvent(event.EventAssignmentRevoked, revoked, actor.ID)

	return nil
}

func (s *AssignmentService) ListBySheet(ctx context.Context, actor *models.Actor, sheetID bson.ObjectID) ([]*models.Assignment, error) {
	if _, err := s.accessService.ResolveAccess(ctx, actor, sheetID, models.PermissionAssignRows); err != nil {
		return nil, err
	}
	return s.assignmentRepo.FindBySheet(ctx, sheetID)
}

// HandleActorSuspended suspends every active assignment of an actor. Wired to
// the account event consumer.
func (s *AssignmentService) HandleActorSuspended(ctx context.Context, actorID string) error {
	suspended, err := s.assignmentRepo.SuspendByActor(ctx, actorID)
	if err != nil {
		return err
	}
	s.accessService.InvalidateActor(ctx, actorID)
	if suspended > 0 {
		log.Printf("Suspended %d assignments for actor %s", suspended, actorID)
	}
	return nil
}

func (s *AssignmentService) publishAssignmentEvent(eventType string, assignment *models.Assignment, grantedBy string) {
	if s.eventPublisher == nil {
		return
	}
	assignmentEvent := &event.AssignmentEvent{
		EventType: eventType,
		SheetID:   assignment.SheetID.Hex(),
		ActorID:   assignment.ActorID,
		GrantedBy: grantedBy,
		Status:    string(assignment.Status),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if err := s.eventPublisher.PublishAssignmentEvent(assignmentEvent); err != nil {
		log.Printf("Failed to publish %s for %s: %v", eventType, assignment.ActorID, err)
	}
}
