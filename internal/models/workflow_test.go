package models

import (
	"errors"
	"testing"

	"sheet-management-service/internal/apperrors"
)

func TestNextStatus_LegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current RowStatus
		action  WorkflowAction
		target  RowStatus
		want    RowStatus
	}{
		{"submit draft", RowStatusDraft, ActionSubmit, "", RowStatusPendingReview},
		{"submit returned", RowStatusReturned, ActionSubmit, "", RowStatusPendingReview},
		{"approve pending", RowStatusPendingReview, ActionApprove, "", RowStatusApproved},
		{"reject pending", RowStatusPendingReview, ActionReject, "", RowStatusRejected},
		{"return pending", RowStatusPendingReview, ActionReturn, "", RowStatusReturned},
		{"admin lock draft", RowStatusDraft, ActionAdminLock, "", RowStatusLocked},
		{"admin lock approved", RowStatusApproved, ActionAdminLock, "", RowStatusLocked},
		{"admin unlock to draft", RowStatusLocked, ActionAdminUnlock, RowStatusDraft, RowStatusDraft},
		{"admin unlock to approved", RowStatusLocked, ActionAdminUnlock, RowStatusApproved, RowStatusApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStatus(tt.current, tt.action, tt.target)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NextStatus(%s, %s) = %s, want %s", tt.current, tt.action, got, tt.want)
			}
		})
	}
}

func TestNextStatus_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current RowStatus
		action  WorkflowAction
		target  RowStatus
	}{
		{"approve draft", RowStatusDraft, ActionApprove, ""},
		{"approve approved", RowStatusApproved, ActionApprove, ""},
		{"submit pending", RowStatusPendingReview, ActionSubmit, ""},
		{"submit approved", RowStatusApproved, ActionSubmit, ""},
		{"reject draft", RowStatusDraft, ActionReject, ""},
		{"return rejected", RowStatusRejected, ActionReturn, ""},
		{"double admin lock", RowStatusLocked, ActionAdminLock, ""},
		{"admin unlock unlocked row", RowStatusDraft, ActionAdminUnlock, RowStatusDraft},
		{"admin unlock without target", RowStatusLocked, ActionAdminUnlock, ""},
		{"admin unlock to locked", RowStatusLocked, ActionAdminUnlock, RowStatusLocked},
		{"unknown action", RowStatusDraft, WorkflowAction("promote"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NextStatus(tt.current, tt.action, tt.target)
			if !errors.Is(err, apperrors.ErrInvalidTransition) {
				t.Errorf("NextStatus(%s, %s) error = %v, want ErrInvalidTransition", tt.current, tt.action, err)
			}
		})
	}
}

func TestRequiredPermission(t *testing.T) {
	if perm, ok := ActionSubmit.RequiredPermission(); !ok || perm != PermissionSubmit {
		t.Errorf("submit permission = %q, %t", perm, ok)
	}
	for _, action := range []WorkflowAction{ActionApprove, ActionReject, ActionReturn} {
		if perm, ok := action.RequiredPermission(); !ok || perm != PermissionApprove {
			t.Errorf("%s permission = %q, %t, want approve", action, perm, ok)
		}
	}
	for _, action := range []WorkflowAction{ActionAdminLock, ActionAdminUnlock} {
		if _, ok := action.RequiredPermission(); ok {
			t.Errorf("%s should not map to an assignment permission", action)
		}
	}
}

func TestReleasesLock(t *testing.T) {
	releasing := []WorkflowAction{ActionSubmit, ActionApprove, ActionReject}
	for _, action := range releasing {
		if !action.ReleasesLock() {
			t.Errorf("%s should release the editor lock", action)
		}
	}
	for _, action := range []WorkflowAction{ActionReturn, ActionAdminLock, ActionAdminUnlock} {
		if action.ReleasesLock() {
			t.Errorf("%s should not release the editor lock", action)
		}
	}
}
