package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"sheet-management-service/internal/apperrors"
	"sheet-management-service/internal/models"
	"sheet-management-service/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// AccessService is the assignment registry plus the row-level security
// filter. Every request resolves its capability here first; super-admins get
// a grant-all result so no downstream component needs role awareness.
type AccessService struct {
	assignmentRepo *repository.AssignmentRepository
	sheetRepo      *repository.SheetRepository
	cache          *redis.Client
	cacheTTL       time.Duration
}

func NewAccessService(assignmentRepo *repository.AssignmentRepository, sheetRepo *repository.SheetRepository, cache *redis.Client, cacheTTL time.Duration) *AccessService {
	return &AccessService{
		assignmentRepo: assignmentRepo,
		sheetRepo:      sheetRepo,
		cache:          cache,
		cacheTTL:       cacheTTL,
	}
}

func accessCacheKey(actorID string, sheetID bson.ObjectID) string {
	return fmt.Sprintf("sheet-access:%s:%s", actorID, sheetID.Hex())
}

// ResolveAccess loads the actor's effective access on a sheet and, when
// requiredPermission is non-empty, checks that single permission flag.
func (s *AccessService) ResolveAccess(ctx context.Context, actor *models.Actor, sheetID bson.ObjectID, requiredPermission string) (*models.ResolvedAccess, error) {
	if actor.IsSuperAdmin() {
		return models.SuperAdminAccess(sheetID, actor.ID), nil
	}

	access, err := s.loadAccess(ctx, actor.ID, sheetID)
	if err != nil {
		return nil, err
	}

	if requiredPermission != "" && !access.Permissions.Has(requiredPermission) {
		return nil, fmt.Errorf("%s: %w", requiredPermission, apperrors.ErrAccessDenied)
	}
	return access, nil
}

func (s *AccessService) loadAccess(ctx context.Context, actorID string, sheetID bson.ObjectID) (*models.ResolvedAccess, error) {
	cacheKey := accessCacheKey(actorID, sheetID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var access models.ResolvedAccess
			if err := json.Unmarshal(cached, &access); err == nil {
				return &access, nil
			}
		}
	}

	assignment, err := s.assignmentRepo.FindActive(ctx, actorID, sheetID)
	if err != nil {
		return nil, err
	}

	access := &models.ResolvedAccess{
		SheetID:           sheetID,
		ActorID:           actorID,
		Permissions:       assignment.Permissions,
		Scope:             models.EffectiveScope(assignment.Scope, false),
		RestrictedColumns: assignment.RestrictedColumns,
		Enforced:          true,
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(access); err == nil {
			if err := s.cache.Set(ctx, cacheKey, encoded, s.cacheTTL).Err(); err != nil {
				log.Printf("Failed to cache access for %s: %v", cacheKey, err)
			}
		}
	}
	return access, nil
}

// Invalidate drops the cached access after an assignment mutation.
func (s *AccessService) Invalidate(ctx context.Context, actorID string, sheetID bson.ObjectID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, accessCacheKey(actorID, sheetID)).Err(); err != nil {
		log.Printf("Failed to invalidate access cache for %s: %v", actorID, err)
	}
}

// InvalidateActor drops every cached access of an actor, used on suspension.
func (s *AccessService) InvalidateActor(ctx context.Context, actorID string) {
	if s.cache == nil {
		return
	}
	keys, err := s.cache.Keys(ctx, fmt.Sprintf("sheet-access:%s:*", actorID)).Result()
	if err != nil {
		log.Printf("Failed to scan access cache for %s: %v", actorID, err)
		return
	}
	if len(keys) > 0 {
		if err := s.cache.Del(ctx, keys...).Err(); err != nil {
			log.Printf("Failed to invalidate access cache for %s: %v", actorID, err)
		}
	}
}

// ListAllowedSheets returns every sheet the actor may view together with the
// effective permission set, for the navigation layer upstream.
func (s *AccessService) ListAllowedSheets(ctx context.Context, actor *models.Actor) ([]*models.AllowedSheet, error) {
	if actor.IsSuperAdmin() {
		sheets, err := s.sheetRepo.FindAll(ctx, true)
		if err != nil {
			return nil, err
		}
		allowed := make([]*models.AllowedSheet, 0, len(sheets))
		for _, sheet := range sheets {
			allowed = append(allowed, &models.AllowedSheet{
				Sheet:  sheet,
				Access: models.SuperAdminAccess(sheet.ID, actor.ID),
			})
		}
		return allowed, nil
	}

	assignments, err := s.assignmentRepo.FindActiveByActor(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	var allowed []*models.AllowedSheet
	for _, assignment := range assignments {
		if !assignment.Permissions.CanView {
			continue
		}
		sheet, err := s.sheetRepo.FindByID(ctx, assignment.SheetID)
		if err != nil {
			log.Printf("Skipping assignment %s: %v", assignment.ID.Hex(), err)
			continue
		}
		if !sheet.IsActive {
			continue
		}
		allowed = append(allowed, &models.AllowedSheet{
			Sheet: sheet,
			Access: &models.ResolvedAccess{
				SheetID:           sheet.ID,
				ActorID:           actor.ID,
				Permissions:       assignment.Permissions,
				Scope:             models.EffectiveScope(assignment.Scope, false),
				RestrictedColumns: assignment.RestrictedColumns,
				Enforced:          true,
			},
		})
	}
	return allowed, nil
}

// CheckRowOwnership applies the single-row security decision: the mandatory
// scope predicate, the named permission, the lock owner, and the approved
// read-only rule. demoteApprovedOnEdit mirrors the sheet's
// requireApprovalForEdit setting: on such sheets an edit by a canEdit actor
// is allowed and the caller demotes the row back to draft; without it an
// approved row stays read-only for everyone but approvers.
func CheckRowOwnership(access *models.ResolvedAccess, row *models.Row, requiredPermission string, lock *models.RowLock, demoteApprovedOnEdit bool) error {
	if !row.VisibleTo(access) {
		return fmt.Errorf("row outside actor scope: %w", apperrors.ErrAccessDenied)
	}
	if !access.Permissions.Has(requiredPermission) {
		return fmt.Errorf("%s: %w", requiredPermission, apperrors.ErrAccessDenied)
	}
	if lock != nil && lock.HolderID != access.ActorID && !lock.Expired(time.Now()) {
		return &apperrors.LockHeldError{
			HolderID:   lock.HolderID,
			HolderName: lock.HolderName,
			AcquiredAt: lock.AcquiredAt,
			ExpiresAt:  lock.ExpiresAt,
		}
	}
	mutating := requiredPermission == models.PermissionEdit || requiredPermission == models.PermissionDelete
	if mutating && row.Status == models.RowStatusApproved && !access.Permissions.CanApprove {
		editDemotes := demoteApprovedOnEdit && requiredPermission == models.PermissionEdit
		if !editDemotes {
			return apperrors.ErrApprovedReadOnly
		}
	}
	if row.Status == models.RowStatusLocked && mutating && access.Enforced {
		return fmt.Errorf("row is administratively locked: %w", apperrors.ErrAccessDenied)
	}
	return nil
}
