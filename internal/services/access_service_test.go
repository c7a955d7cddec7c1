package services

import (
	"errors"
	"testing"
	"time"

	"sheet-management-service/internal/apperrors"
	"sheet-management-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func assignedAccess(actorID string, perms models.PermissionSet) *models.ResolvedAccess {
	return &models.ResolvedAccess{
		ActorID:     actorID,
		Permissions: perms,
		Scope:       models.ScopeAssignedRows,
		Enforced:    true,
	}
}

func TestCheckRowOwnership_ScopeAndPermission(t *testing.T) {
	row := &models.Row{Status: models.RowStatusDraft, PrimaryAssignee: "bob"}

	// Outside scope.
	err := CheckRowOwnership(assignedAccess("dave", models.FullPermissions()), row, models.PermissionEdit, nil, false)
	if !errors.Is(err, apperrors.ErrAccessDenied) {
		t.Errorf("Out-of-scope row should be denied, got %v", err)
	}

	// In scope but missing the permission.
	viewOnly := models.PermissionSet{CanView: true}
	err = CheckRowOwnership(assignedAccess("bob", viewOnly), row, models.PermissionEdit, nil, false)
	if !errors.Is(err, apperrors.ErrAccessDenied) {
		t.Errorf("Missing edit permission should be denied, got %v", err)
	}

	// In scope with the permission.
	if err := CheckRowOwnership(assignedAccess("bob", models.FullPermissions()), row, models.PermissionEdit, nil, false); err != nil {
		t.Errorf("Assigned editor should pass, got %v", err)
	}
}

func TestCheckRowOwnership_LockConflict(t *testing.T) {
	row := &models.Row{Status: models.RowStatusDraft, PrimaryAssignee: "bob"}
	lock := &models.RowLock{
		HolderID:   "carol",
		HolderName: "Carol",
		ExpiresAt:  time.Now().Add(time.Minute),
	}

	err := CheckRowOwnership(assignedAccess("bob", models.FullPermissions()), row, models.PermissionEdit, lock, false)
	if !errors.Is(err, apperrors.ErrLockHeld) {
		t.Fatalf("Lock held by another actor should conflict, got %v", err)
	}

	var lockErr *apperrors.LockHeldError
	if !errors.As(err, &lockErr) {
		t.Fatal("Lock conflict should carry the holder metadata")
	}
	if lockErr.HolderID != "carol" {
		t.Errorf("Holder = %s, want carol", lockErr.HolderID)
	}

	// The holder edits through their own lock.
	lock.HolderID = "bob"
	if err := CheckRowOwnership(assignedAccess("bob", models.FullPermissions()), row, models.PermissionEdit, lock, false); err != nil {
		t.Errorf("Lock holder should pass, got %v", err)
	}

	// An expired lock blocks nobody.
	lock.HolderID = "carol"
	lock.ExpiresAt = time.Now().Add(-time.Minute)
	if err := CheckRowOwnership(assignedAccess("bob", models.FullPermissions()), row, models.PermissionEdit, lock, false); err != nil {
		t.Errorf("Expired lock should not block, got %v", err)
	}
}

func TestCheckRowOwnership_ApprovedReadOnly(t *testing.T) {
	row := &models.Row{Status: models.RowStatusApproved, PrimaryAssignee: "bob"}

	editor := models.PermissionSet{CanView: true, CanEdit: true, CanDelete: true}
	err := CheckRowOwnership(assignedAccess("bob", editor), row, models.PermissionEdit, nil, false)
	if !errors.Is(err, apperrors.ErrApprovedReadOnly) {
		t.Errorf("Approved row should be read-only for non-approvers, got %v", err)
	}
	err = CheckRowOwnership(assignedAccess("bob", editor), row, models.PermissionDelete, nil, false)
	if !errors.Is(err, apperrors.ErrApprovedReadOnly) {
		t.Errorf("Approved row delete should be read-only for non-approvers, got %v", err)
	}

	// Reading an approved row is fine.
	if err := CheckRowOwnership(assignedAccess("bob", editor), row, models.PermissionView, nil, false); err != nil {
		t.Errorf("Viewing an approved row should pass, got %v", err)
	}

	// Approvers may still edit.
	if err := CheckRowOwnership(assignedAccess("bob", models.FullPermissions()), row, models.PermissionEdit, nil, false); err != nil {
		t.Errorf("Approver should edit an approved row, got %v", err)
	}
}

// On sheets that require re-approval after edits, an approved row stays
// editable for canEdit actors; the edit path demotes it back to draft instead
// of refusing. Deletion is not part of the demotion rule.
func TestCheckRowOwnership_ApprovedEditDemotion(t *testing.T) {
	row := &models.Row{Status: models.RowStatusApproved, PrimaryAssignee: "bob"}
	editor := models.PermissionSet{CanView: true, CanEdit: true, CanSubmit: true, CanDelete: true}

	if err := CheckRowOwnership(assignedAccess("bob", editor), row, models.PermissionEdit, nil, true); err != nil {
		t.Errorf("Editor on a re-approval sheet should edit an approved row, got %v", err)
	}

	err := CheckRowOwnership(assignedAccess("bob", editor), row, models.PermissionDelete, nil, true)
	if !errors.Is(err, apperrors.ErrApprovedReadOnly) {
		t.Errorf("Deleting an approved row still needs canApprove, got %v", err)
	}

	// Scope and lock rules are unaffected by the demotion setting.
	err = CheckRowOwnership(assignedAccess("dave", editor), row, models.PermissionEdit, nil, true)
	if !errors.Is(err, apperrors.ErrAccessDenied) {
		t.Errorf("Out-of-scope actor should stay denied, got %v", err)
	}
}

func TestCheckRowOwnership_AdminLockedRow(t *testing.T) {
	row := &models.Row{Status: models.RowStatusLocked, PrimaryAssignee: "bob"}

	err := CheckRowOwnership(assignedAccess("bob", models.FullPermissions()), row, models.PermissionEdit, nil, false)
	if !errors.Is(err, apperrors.ErrAccessDenied) {
		t.Errorf("Administratively locked row should deny edits, got %v", err)
	}

	// Super-admins bypass the freeze.
	superAdmin := models.SuperAdminAccess(bson.ObjectID{}, "root")
	if err := CheckRowOwnership(superAdmin, row, models.PermissionEdit, nil, false); err != nil {
		t.Errorf("Super-admin should bypass the admin lock, got %v", err)
	}
}
