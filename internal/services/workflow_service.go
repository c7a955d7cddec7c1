package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sheet-management-service/internal/apperrors"
	"sheet-management-service/internal/event"
	"sheet-management-service/internal/models"
	"sheet-management-service/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// WorkflowService runs the review state machine on rows. Every successful
// transition writes exactly one audit entry; denied attempts are logged with
// result=failure, illegal transitions are surfaced without an engine-side
// audit entry.
type WorkflowService struct {
	rowRepo        *repository.RowRepository
	sheetRepo      *repository.SheetRepository
	lockRepo       *repository.LockRepository
	accessService  *AccessService
	auditService   *AuditService
	eventPublisher event.Publisher
}

func NewWorkflowService(rowRepo *repository.RowRepository, sheetRepo *repository.SheetRepository, lockRepo *repository.LockRepository, accessService *AccessService, auditService *AuditService, eventPublisher event.Publisher) *WorkflowService {
	return &WorkflowService{
		rowRepo:        rowRepo,
		sheetRepo:      sheetRepo,
		lockRepo:       lockRepo,
		accessService:  accessService,
		auditService:   auditService,
		eventPublisher: eventPublisher,
	}
}

var workflowAuditActions = map[models.WorkflowAction]models.AuditAction{
	models.ActionSubmit:      models.AuditActionSubmit,
	models.ActionApprove:     models.AuditActionApprove,
	models.ActionReject:      models.AuditActionReject,
	models.ActionReturn:      models.AuditActionReturn,
	models.ActionAdminLock:   models.AuditActionAdminLock,
	models.ActionAdminUnlock: models.AuditActionAdminUnlock,
}

var workflowEventTypes = map[models.WorkflowAction]string{
	models.ActionSubmit:      event.EventWorkflowSubmitted,
	models.ActionApprove:     event.EventWorkflowApproved,
	models.ActionReject:      event.EventWorkflowRejected,
	models.ActionReturn:      event.EventWorkflowReturned,
	models.ActionAdminLock:   event.EventWorkflowAdminLocked,
	models.ActionAdminUnlock: event.EventWorkflowUnlocked,
}

// validateWorkflowRequest applies the pure transition rules: legality of the
// step, the self-approval prohibition (which binds super-admins too), and the
// non-empty rejection reason.
func validateWorkflowRequest(action models.WorkflowAction, row *models.Row, actor *models.Actor, req *models.WorkflowRequest) (models.RowStatus, error) {
	nextStatus, err := models.NextStatus(row.Status, action, req.TargetStatus)
	if err != nil {
		return "", err
	}

	switch action {
	case models.ActionApprove, models.ActionReject:
		if row.SubmittedBy != "" && row.SubmittedBy == actor.ID {
			return "", apperrors.ErrSelfApproval
		}
		if action == models.ActionReject && req.Reason == "" {
			return "", fmt.Errorf("%w: rejection needs a reason", apperrors.ErrValidation)
		}
	}
	return nextStatus, nil
}

func (s *WorkflowService) Transition(ctx context.Context, actor *models.Actor, sheetID, rowID bson.ObjectID, action models.WorkflowAction, req *models.WorkflowRequest, meta models.RequestMeta) (*models.Row, error) {
	auditAction, ok := workflowAuditActions[action]
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", apperrors.ErrInvalidTransition, action)
	}

	access, err := s.resolveWorkflowAccess(ctx, actor, sheetID, action)
	if err != nil {
		s.recordDenial(ctx, actor, sheetID, rowID, auditAction, meta, err)
		return nil, err
	}

	sheet, err := s.sheetRepo.FindByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if _, needsAssignment := action.RequiredPermission(); needsAssignment && !sheet.Workflow.ApprovalEnabled {
		return nil, fmt.Errorf("%w: approval workflow is disabled for this sheet", apperrors.ErrValidation)
	}

	row, err := s.rowRepo.FindByID(ctx, rowID)
	if err != nil {
		return nil, err
	}
	if !row.VisibleTo(access) {
		err := fmt.Errorf("row outside actor scope: %w", apperrors.ErrAccessDenied)
		s.recordDenial(ctx, actor, sheetID, rowID, auditAction, meta, err)
		return nil, err
	}

	nextStatus, err := validateWorkflowRequest(action, row, actor, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrSelfApproval) {
			s.recordDenial(ctx, actor, sheetID, rowID, auditAction, meta, err)
		}
		return nil, err
	}

	set, unset := transitionFields(action, actor, req, row, nextStatus)
	updated, err := s.rowRepo.Transition(ctx, rowID, row.Status, set, unset)
	if err != nil {
		return nil, err
	}

	s.releaseLocks(ctx, actor, sheetID, rowID, action)

	notes := req.Notes
	if action == models.ActionReject {
		notes = req.Reason
	}
	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  auditAction,
		SheetID: sheetID,
		RowID:   rowID,
		Actor:   actor.Snapshot(),
		Request: meta,
		Result:  models.AuditResultSuccess,
		Context: models.AuditContext{
			Notes:          notes,
			Reason:         req.Reason,
			PreviousStatus: row.Status,
			NewStatus:      updated.Status,
		},
	})
	s.publishWorkflowEvent(action, row.Status, updated, actor, notes)

	return updated, nil
}

// resolveWorkflowAccess maps the action to its required permission. Admin
// lock and unlock have no assignment-level permission and are super-admin
// only.
func (s *WorkflowService) resolveWorkflowAccess(ctx context.Context, actor *models.Actor, sheetID bson.ObjectID, action models.WorkflowAction) (*models.ResolvedAccess, error) {
	permission, needsAssignment := action.RequiredPermission()
	if !needsAssignment {
		if !actor.IsSuperAdmin() {
			return nil, fmt.Errorf("%s is restricted to administrators: %w", action, apperrors.ErrAccessDenied)
		}
		return models.SuperAdminAccess(sheetID, actor.ID), nil
	}
	return s.accessService.ResolveAccess(ctx, actor, sheetID, permission)
}

// transitionFields builds the conditional update for each action. Submit
// clears the prior review trail; return leaves everything but the status.
func transitionFields(action models.WorkflowAction, actor *models.Actor, req *models.WorkflowRequest, row *models.Row, nextStatus models.RowStatus) (bson.M, bson.M) {
	now := time.Now().Unix()
	set := bson.M{"status": nextStatus}
	unset := bson.M{}

	switch action {
	case models.ActionSubmit:
		set["submittedBy"] = actor.ID
		set["submittedAt"] = now
		unset["reviewNotes"] = ""
		unset["reviewedBy"] = ""
		unset["reviewedAt"] = ""
	case models.ActionApprove:
		set["reviewedBy"] = actor.ID
		set["reviewedAt"] = now
		if req.Notes != "" {
			set["reviewNotes"] = req.Notes
		}
	case models.ActionReject:
		set["reviewedBy"] = actor.ID
		set["reviewedAt"] = now
		set["reviewNotes"] = req.Reason
	case models.ActionReturn:
		set["reviewedBy"] = actor.ID
		set["reviewedAt"] = now
		if req.Notes != "" {
			set["reviewNotes"] = req.Notes
		}
	case models.ActionAdminLock:
		set["preLockStatus"] = row.Status
	case models.ActionAdminUnlock:
		unset["preLockStatus"] = ""
	}
	return set, unset
}

func (s *WorkflowService) releaseLocks(ctx context.Context, actor *models.Actor, sheetID, rowID bson.ObjectID, action models.WorkflowAction) {
	switch {
	case action.ReleasesLock():
		if err := s.lockRepo.Release(ctx, sheetID, rowID, actor.ID); err != nil {
			log.Printf("Failed to release lock on row %s after %s: %v", rowID.Hex(), action, err)
		}
	case action == models.ActionAdminLock, action == models.ActionAdminUnlock:
		if err := s.lockRepo.ForceRelease(ctx, sheetID, rowID); err != nil {
			log.Printf("Failed to force release lock on row %s after %s: %v", rowID.Hex(), action, err)
		}
	}
}

func (s *WorkflowService) recordDenial(ctx context.Context, actor *models.Actor, sheetID, rowID bson.ObjectID, attempted models.AuditAction, meta models.RequestMeta, cause error) {
	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionAccessDenied,
		SheetID: sheetID,
		RowID:   rowID,
		Actor:   actor.Snapshot(),
		Request: meta,
		Result:  models.AuditResultFailure,
		Context: models.AuditContext{Detail: fmt.Sprintf("%s: %v", attempted, cause)},
	})
}

func (s *WorkflowService) publishWorkflowEvent(action models.WorkflowAction, previousStatus models.RowStatus, row *models.Row, actor *models.Actor, notes string) {
	if s.eventPublisher == nil {
		return
	}
	workflowEvent := &event.WorkflowEvent{
		EventType:      workflowEventTypes[action],
		SheetID:        row.SheetID.Hex(),
		RowID:          row.ID.Hex(),
		ActorID:        actor.ID,
		PreviousStatus: string(previousStatus),
		NewStatus:      string(row.Status),
		Notes:          notes,
		Timestamp:      time.Now().Format(time.RFC3339),
	}
	if err := s.eventPublisher.PublishWorkflowEvent(workflowEvent); err != nil {
		log.Printf("Failed to publish %s for row %s: %v", workflowEvent.EventType, row.ID.Hex(), err)
	}
}
