package services

import (
	"context"
	"fmt"

	"sheet-management-service/internal/apperrors"
	"sheet-management-service/internal/models"
	"sheet-management-service/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// SheetService manages sheet definitions. Definitions are read-mostly;
// create/update are administrator operations.
type SheetService struct {
	sheetRepo     *repository.SheetRepository
	accessService *AccessService
	auditService  *AuditService
}

func NewSheetService(sheetRepo *repository.SheetRepository, accessService *AccessService, auditService *AuditService) *SheetService {
	return &SheetService{
		sheetRepo:     sheetRepo,
		accessService: accessService,
		auditService:  auditService,
	}
}

func (s *SheetService) Create(ctx context.Context, actor *models.Actor, req *models.CreateSheetRequest, meta models.RequestMeta) (*models.SheetDefinition, error) {
	if !actor.IsSuperAdmin() {
		return nil, fmt.Errorf("sheet creation is restricted to administrators: %w", apperrors.ErrAccessDenied)
	}
	if req.Name == "" {
		return nil, fmt.Errorf("%w: sheet name is required", apperrors.ErrValidation)
	}

	sheet := &models.SheetDefinition{
		Name:               req.Name,
		Category:           req.Category,
		Columns:            req.Columns,
		Workflow:           req.Workflow,
		Concurrency:        req.Concurrency,
		RowAssignment:      req.RowAssignment,
		DefaultPermissions: req.DefaultPermissions,
		IsActive:           true,
		CreatedBy:          actor.ID,
	}
	if err := sheet.ValidateColumns(); err != nil {
		return nil, err
	}
	if sheet.Workflow.DefaultStatus == "" {
		sheet.Workflow.DefaultStatus = models.RowStatusDraft
	}

	created, err := s.sheetRepo.New(ctx, sheet)
	if err != nil {
		return nil, err
	}

	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionCreate,
		SheetID: created.ID,
		Actor:   actor.Snapshot(),
		Request: meta,
		Result:  models.AuditResultSuccess,
		Context: models.AuditContext{Detail: fmt.Sprintf("created sheet %q", created.Name)},
	})
	return created, nil
}

func (s *SheetService) Update(ctx context.Context, actor *models.Actor, sheetID bson.ObjectID, req *models.UpdateSheetRequest, meta models.RequestMeta) (*models.SheetDefinition, error) {
	if !actor.IsSuperAdmin() {
		return nil, fmt.Errorf("sheet changes are restricted to administrators: %w", apperrors.ErrAccessDenied)
	}

	sheet, err := s.sheetRepo.FindByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		sheet.Name = req.Name
	}
	if req.Category != "" {
		sheet.Category = req.Category
	}
	if req.Columns != nil {
		sheet.Columns = req.Columns
	}
	if req.Workflow != nil {
		sheet.Workflow = *req.Workflow
	}
	if req.Concurrency != nil {
		sheet.Concurrency = *req.Concurrency
	}
	if req.RowAssignment != nil {
		sheet.RowAssignment = *req.RowAssignment
	}
	if req.DefaultPermissions != nil {
		sheet.DefaultPermissions = *req.DefaultPermissions
	}
	if req.IsActive != nil {
		sheet.IsActive = *req.IsActive
	}
	if err := sheet.ValidateColumns(); err != nil {
		return nil, err
	}

	updated, err := s.sheetRepo.Update(ctx, sheetID, sheet)
	if err != nil {
		return nil, err
	}

	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionUpdate,
		SheetID: sheetID,
		Actor:   actor.Snapshot(),
		Request: meta,
		Result:  models.AuditResultSuccess,
		Context: models.AuditContext{Detail: fmt.Sprintf("updated sheet %q", updated.Name)},
	})
	return updated, nil
}

// Get returns the definition for any actor holding view access. Restricted
// and hidden columns are filtered out of the returned column list.
func (s *SheetService) Get(ctx context.Context, actor *models.Actor, sheetID bson.ObjectID) (*models.SheetDefinition, *models.ResolvedAccess, error) {
	access, err := s.accessService.ResolveAccess(ctx, actor, sheetID, models.PermissionView)
	if err != nil {
		return nil, nil, err
	}

	sheet, err := s.sheetRepo.FindByID(ctx, sheetID)
	if err != nil {
		return nil, nil, err
	}
	if !sheet.IsActive && access.Enforced {
		return nil, nil, fmt.Errorf("sheet %s is inactive: %w", sheetID.Hex(), apperrors.ErrNotFound)
	}

	if access.Enforced {
		visible := make([]models.ColumnSpec, 0, len(sheet.Columns))
		for _, col := range sheet.Columns {
			if col.Hidden || access.ColumnRestricted(col.Key) {
				continue
			}
			visible = append(visible, col)
		}
		filtered := *sheet
		filtered.Columns = visible
		return &filtered, access, nil
	}
	return sheet, access, nil
}

func (s *SheetService) ListAllowed(ctx context.Context, actor *models.Actor) ([]*models.AllowedSheet, error) {
	return s.accessService.ListAllowedSheets(ctx, actor)
}

func (s *SheetService) ListByCategory(ctx context.Context, actor *models.Actor, category string) ([]*models.SheetDefinition, error) {
	if !actor.IsSuperAdmin() {
		return nil, fmt.Errorf("category listing is restricted to administrators: %w", apperrors.ErrAccessDenied)
	}
	return s.sheetRepo.FindByCategory(ctx, category)
}

func (s *SheetService) SetActive(ctx context.Context, actor *models.Actor, sheetID bson.ObjectID, active bool, meta models.RequestMeta) error {
	if !actor.IsSuperAdmin() {
		return fmt.Errorf("sheet changes are restricted to administrators: %w", apperrors.ErrAccessDenied)
	}
	if err := s.sheetRepo.SetActive(ctx, sheetID, active); err != nil {
		return err
	}

	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionUpdate,
		SheetID: sheetID,
		Actor:   actor.Snapshot(),
		Request: meta,
		Result:  models.AuditResultSuccess,
		Context: models.AuditContext{Detail: fmt.Sprintf("isActive=%t", active)},
	})
	return nil
}
