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

type RowService struct {
	rowRepo        *repository.RowRepository
	sheetRepo      *repository.SheetRepository
	lockRepo       *repository.LockRepository
	accessService  *AccessService
	auditService   *AuditService
	eventPublisher event.Publisher
	defaultTimeout time.Duration
}

func NewRowService(rowRepo *repository.RowRepository, sheetRepo *repository.SheetRepository, lockRepo *repository.LockRepository, accessService *AccessService, auditService *AuditService, eventPublisher event.Publisher, defaultTimeout time.Duration) *RowService {
	return &RowService{
		rowRepo:        rowRepo,
		sheetRepo:      sheetRepo,
		lockRepo:       lockRepo,
		accessService:  accessService,
		auditService:   auditService,
		eventPublisher: eventPublisher,
		defaultTimeout: defaultTimeout,
	}
}

func (s *RowService) Create(ctx context.Context, actor *models.Actor, sheetID bson.ObjectID, req *models.CreateRowRequest, meta models.RequestMeta) (*models.Row, error) {
	access, err := s.accessService.ResolveAccess(ctx, actor, sheetID, models.PermissionCreate)
	if err != nil {
		s.recordDenial(ctx, actor, sheetID, bson.ObjectID{}, models.AuditActionCreate, meta, err)
		return nil, err
	}

	sheet, err := s.sheetRepo.FindByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if !sheet.IsActive {
		return nil, fmt.Errorf("sheet %s is inactive: %w", sheetID.Hex(), apperrors.ErrNotFound)
	}

	if err := s.checkRestrictedColumns(access, req.Data); err != nil {
		s.recordDenial(ctx, actor, sheetID, bson.ObjectID{}, models.AuditActionCreate, meta, err)
		return nil, err
	}
	if err := sheet.ValidateRowData(req.Data, false); err != nil {
		return nil, err
	}

	row := &models.Row{
		SheetID:   sheetID,
		Data:      req.Data,
		Status:    sheet.DefaultRowStatus(),
		Version:   1,
		CreatedBy: actor.ID,
	}
	if sheet.RowAssignment.AutoAssignOnCreate {
		row.PrimaryAssignee = actor.ID
		row.AssignedTo = []string{actor.ID}
	}

	created, err := s.rowRepo.New(ctx, row)
	if err != nil {
		return nil, err
	}

	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionCreate,
		SheetID: sheetID,
		RowID:   created.ID,
		Actor:   actor.Snapshot(),
		Changes: models.DiffRowData(nil, created.Data),
		Request: meta,
		Result:  models.AuditResultSuccess,
		Context: models.AuditContext{NewStatus: created.Status},
	})
	s.publishRowEvent(event.EventRowCreated, created, actor)

	return created.Redacted(access), nil
}

// Update applies a partial data update. When the sheet has locking enabled
// the edit lock is acquired (or refreshed) first, so a conflicting editor
// fails with LockHeld before any validation work. Editing an approved row
// demotes it back to draft when the sheet requires re-approval after edits.
func (s *RowService) Update(ctx context.Context, actor *models.Actor, sheetID, rowID bson.ObjectID, req *models.UpdateRowRequest, meta models.RequestMeta) (*models.Row, error) {
	access, err := s.accessService.ResolveAccess(ctx, actor, sheetID, models.PermissionEdit)
	if err != nil {
		s.recordDenial(ctx, actor, sheetID, rowID, models.AuditActionUpdate, meta, err)
		return nil, err
	}

	sheet, err := s.sheetRepo.FindByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	row, err := s.rowRepo.FindByID(ctx, rowID)
	if err != nil {
		return nil, err
	}

	var lock *models.RowLock
	if sheet.Concurrency.LockingEnabled {
		lock, err = s.lockRepo.Acquire(ctx, sheetID, rowID, actor, sheet.LockTimeout(s.defaultTimeout))
		if err != nil {
			return nil, err
		}
	}

	// A failed edit must not leave the failed editor holding the lock.
	releaseOnFailure := func() {
		if lock != nil {
			if err := s.lockRepo.Release(ctx, sheetID, rowID, actor.ID); err != nil {
				log.Printf("Failed to release lock after rejected edit of row %s: %v", rowID.Hex(), err)
			}
		}
	}

	if err := CheckRowOwnership(access, row, models.PermissionEdit, lock, sheet.Workflow.RequireApprovalForEdit); err != nil {
		if errors.Is(err, apperrors.ErrAccessDenied) {
			s.recordDenial(ctx, actor, sheetID, rowID, models.AuditActionUpdate, meta, err)
		}
		releaseOnFailure()
		return nil, err
	}

	if err := s.checkRestrictedColumns(access, req.Data); err != nil {
		s.recordDenial(ctx, actor, sheetID, rowID, models.AuditActionUpdate, meta, err)
		releaseOnFailure()
		return nil, err
	}
	if err := sheet.ValidateRowData(req.Data, true); err != nil {
		releaseOnFailure()
		return nil, err
	}

	changes := models.DiffRowData(row.Data, req.Data)
	if len(changes) == 0 {
		return row.Redacted(access), nil
	}

	var newStatus models.RowStatus
	if row.Status == models.RowStatusApproved && sheet.Workflow.RequireApprovalForEdit {
		newStatus = models.RowStatusDraft
	}

	updated, err := s.rowRepo.UpdateData(ctx, rowID, req.Data, newStatus)
	if err != nil {
		return nil, err
	}

	auditContext := models.AuditContext{PreviousStatus: row.Status, NewStatus: updated.Status}
	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionUpdate,
		SheetID: sheetID,
		RowID:   rowID,
		Actor:   actor.Snapshot(),
		Changes: changes,
		Request: meta,
		Result:  models.AuditResultSuccess,
		Context: auditContext,
	})
	s.publishRowEvent(event.EventRowUpdated, updated, actor)

	return updated.Redacted(access), nil
}

// SoftDelete tombstones the row and releases any lock the actor held on it.
func (s *RowService) SoftDelete(ctx context.Context, actor *models.Actor, sheetID, rowID bson.ObjectID, meta models.RequestMeta) error {
	access, err := s.accessService.ResolveAccess(ctx, actor, sheetID, models.PermissionDelete)
	if err != nil {
		s.recordDenial(ctx, actor, sheetID, rowID, models.AuditActionDelete, meta, err)
		return err
	}

	row, err := s.rowRepo.FindByID(ctx, rowID)
	if err != nil {
		return err
	}
	lock, err := s.lockRepo.Get(ctx, sheetID, rowID)
	if err != nil {
		return err
	}

	if err := CheckRowOwnership(access, row, models.PermissionDelete, lock, false); err != nil {
		if errors.Is(err, apperrors.ErrAccessDenied) {
			s.recordDenial(ctx, actor, sheetID, rowID, models.AuditActionDelete, meta, err)
		}
		return err
	}

	if err := s.rowRepo.SoftDelete(ctx, rowID, actor.ID); err != nil {
		return err
	}
	if err := s.lockRepo.Release(ctx, sheetID, rowID, actor.ID); err != nil {
		log.Printf("Failed to release lock after delete of row %s: %v", rowID.Hex(), err)
	}

	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionDelete,
		SheetID: sheetID,
		RowID:   rowID,
		Actor:   actor.Snapshot(),
		Request: meta,
		Result:  models.AuditResultSuccess,
		Context: models.AuditContext{PreviousStatus: row.Status},
	})
	s.publishRowEvent(event.EventRowDeleted, row, actor)

	return nil
}

func (s *RowService) Get(ctx context.Context, actor *models.Actor, sheetID, rowID bson.ObjectID, meta models.RequestMeta) (*models.Row, error) {
	access, err := s.accessService.ResolveAccess(ctx, actor, sheetID, models.PermissionView)
	if err != nil {
		s.recordDenial(ctx, actor, sheetID, rowID, models.AuditActionRead, meta, err)
		return nil, err
	}

	row, err := s.rowRepo.FindByID(ctx, rowID)
	if err != nil {
		return nil, err
	}
	if !row.VisibleTo(access) {
		err := fmt.Errorf("row outside actor scope: %w", apperrors.ErrAccessDenied)
		s.recordDenial(ctx, actor, sheetID, rowID, models.AuditActionRead, meta, err)
		return nil, err
	}

	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionRead,
		SheetID: sheetID,
		RowID:   rowID,
		Actor:   actor.Snapshot(),
		Request: meta,
		Result:  models.AuditResultSuccess,
	})
	return row.Redacted(access), nil
}

// List returns the sheet's rows under the actor's mandatory security
// predicate. The predicate is computed here and cannot be widened by the
// request layer.
func (s *RowService) List(ctx context.Context, actor *models.Actor, sheetID bson.ObjectID, query *models.RowListQuery, meta models.RequestMeta) ([]*models.Row, int64, error) {
	access, err := s.accessService.ResolveAccess(ctx, actor, sheetID, models.PermissionView)
	if err != nil {
		s.recordDenial(ctx, actor, sheetID, bson.ObjectID{}, models.AuditActionRead, meta, err)
		return nil, 0, err
	}

	securityFilter := models.RowSecurityFilter(access)
	rows, totalCount, err := s.rowRepo.List(ctx, sheetID, securityFilter, query)
	if err != nil {
		return nil, 0, err
	}

	redacted := make([]*models.Row, 0, len(rows))
	for _, row := range rows {
		redacted = append(redacted, row.Redacted(access))
	}
	return redacted, totalCount, nil
}

// Assign sets the row's primary assignee and assignee set. Replacing an
// existing primary assignee requires the reassign permission; first
// assignment only needs assignRows.
func (s *RowService) Assign(ctx context.Context, actor *models.Actor, sheetID, rowID bson.ObjectID, req *models.AssignRowRequest, meta models.RequestMeta) (*models.Row, error) {
	row, err := s.rowRepo.FindByID(ctx, rowID)
	if err != nil {
		return nil, err
	}

	requiredPermission := models.PermissionAssignRows
	if row.PrimaryAssignee != "" && row.PrimaryAssignee != req.PrimaryAssignee {
		requiredPermission = models.PermissionReassign
	}

	access, err := s.accessService.ResolveAccess(ctx, actor, sheetID, requiredPermission)
	if err != nil {
		s.recordDenial(ctx, actor, sheetID, rowID, models.AuditActionAssignRow, meta, err)
		return nil, err
	}

	sheet, err := s.sheetRepo.FindByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}

	assignedTo := req.AssignedTo
	if len(assignedTo) == 0 && req.PrimaryAssignee != "" {
		assignedTo = []string{req.PrimaryAssignee}
	}
	if len(assignedTo) > 1 && !sheet.RowAssignment.AllowMultipleAssignees {
		return nil, fmt.Errorf("%w: sheet does not allow multiple assignees", apperrors.ErrValidation)
	}

	updated, err := s.rowRepo.SetAssignees(ctx, rowID, req.PrimaryAssignee, assignedTo)
	if err != nil {
		return nil, err
	}

	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionAssignRow,
		SheetID: sheetID,
		RowID:   rowID,
		Actor:   actor.Snapshot(),
		Changes: []models.FieldChange{
			{Field: "primaryAssignee", OldValue: row.PrimaryAssignee, NewValue: updated.PrimaryAssignee},
		},
		Request: meta,
		Result:  models.AuditResultSuccess,
	})
	s.publishRowEvent(event.EventRowAssigned, updated, actor)

	return updated.Redacted(access), nil
}

func (s *RowService) checkRestrictedColumns(access *models.ResolvedAccess, data map[string]any) error {
	for key := range data {
		if access.ColumnRestricted(key) {
			return fmt.Errorf("column %q is restricted: %w", key, apperrors.ErrAccessDenied)
		}
	}
	return nil
}

func (s *RowService) recordDenial(ctx context.Context, actor *models.Actor, sheetID, rowID bson.ObjectID, attempted models.AuditAction, meta models.RequestMeta, cause error) {
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

func (s *RowService) publishRowEvent(eventType string, row *models.Row, actor *models.Actor) {
	if s.eventPublisher == nil {
		return
	}
	rowEvent := &event.RowEvent{
		EventType: eventType,
		SheetID:   row.SheetID.Hex(),
		RowID:     row.ID.Hex(),
		ActorID:   actor.ID,
		Status:    string(row.Status),
		Version:   row.Version,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if err := s.eventPublisher.PublishRowEvent(rowEvent); err != nil {
		log.Printf("Failed to publish %s for row %s: %v", eventType, row.ID.Hex(), err)
	}
}
