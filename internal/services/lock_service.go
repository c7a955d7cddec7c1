package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"sheet-management-service/internal/apperrors"
	"sheet-management-service/internal/models"
	"sheet-management-service/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type LockService struct {
	lockRepo       *repository.LockRepository
	sheetRepo      *repository.SheetRepository
	rowRepo        *repository.RowRepository
	accessService  *AccessService
	auditService   *AuditService
	defaultTimeout time.Duration
	reaperInterval time.Duration
}

func NewLockService(lockRepo *repository.LockRepository, sheetRepo *repository.SheetRepository, rowRepo *repository.RowRepository, accessService *AccessService, auditService *AuditService, defaultTimeout, reaperInterval time.Duration) *LockService {
	return &LockService{
		lockRepo:       lockRepo,
		sheetRepo:      sheetRepo,
		rowRepo:        rowRepo,
		accessService:  accessService,
		auditService:   auditService,
		defaultTimeout: defaultTimeout,
		reaperInterval: reaperInterval,
	}
}

// Acquire claims the edit lock on a row. Re-acquisition by the current holder
// refreshes the expiry; a conflicting holder gets a LockHeldError with the
// holder metadata.
func (s *LockService) Acquire(ctx context.Context, actor *models.Actor, sheetID, rowID bson.ObjectID, timeoutMinutes int, meta models.RequestMeta) (*models.RowLock, error) {
	access, err := s.accessService.ResolveAccess(ctx, actor, sheetID, models.PermissionEdit)
	if err != nil {
		return nil, err
	}

	sheet, err := s.sheetRepo.FindByID(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if !sheet.Concurrency.LockingEnabled {
		return nil, fmt.Errorf("%w: locking is disabled for this sheet", apperrors.ErrValidation)
	}

	row, err := s.rowRepo.FindByID(ctx, rowID)
	if err != nil {
		return nil, err
	}
	if !row.VisibleTo(access) {
		return nil, fmt.Errorf("row outside actor scope: %w", apperrors.ErrAccessDenied)
	}

	timeout := sheet.LockTimeout(s.defaultTimeout)
	if timeoutMinutes > 0 {
		timeout = time.Duration(timeoutMinutes) * time.Minute
	}

	lock, err := s.lockRepo.Acquire(ctx, sheetID, rowID, actor, timeout)
	if err != nil {
		return nil, err
	}

	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionLockAcquire,
		SheetID: sheetID,
		RowID:   rowID,
		Actor:   actor.Snapshot(),
		Request: meta,
		Result:  models.AuditResultSuccess,
	})
	return lock, nil
}

// Release gives the lock back. Best-effort: releasing a lock that is absent
// or held by someone else is not an error.
func (s *LockService) Release(ctx context.Context, actor *models.Actor, sheetID, rowID bson.ObjectID, meta models.RequestMeta) error {
	if err := s.lockRepo.Release(ctx, sheetID, rowID, actor.ID); err != nil {
		return err
	}

	s.auditService.Record(ctx, &models.AuditEntry{
		Action:  models.AuditActionLockRelease,
		SheetID: sheetID,
		RowID:   rowID,
		Actor:   actor.Snapshot(),
		Request: meta,
		Result:  models.AuditResultSuccess,
	})
	return nil
}

// GetInfo returns the active lock on a row, or nil when unlocked. Read-only,
// used for UI display.
func (s *LockService) GetInfo(ctx context.Context, actor *models.Actor, sheetID, rowID bson.ObjectID) (*models.RowLock, error) {
	if _, err := s.accessService.ResolveAccess(ctx, actor, sheetID, models.PermissionView); err != nil {
		return nil, err
	}
	return s.lockRepo.Get(ctx, sheetID, rowID)
}

// StartReaper periodically purges expired lock documents behind the TTL
// index until the context is cancelled.
func (s *LockService) StartReaper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.reaperInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purgeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				purged, err := s.lockRepo.PurgeExpired(purgeCtx)
				cancel()
				if err != nil {
					log.Printf("Lock reaper failed: %v", err)
					continue
				}
				if purged > 0 {
					log.Printf("Lock reaper purged %d expired locks", purged)
				}
			}
		}
	}()
}
