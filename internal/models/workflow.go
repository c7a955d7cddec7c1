package models

import (
	"fmt"

	"sheet-management-service/internal/apperrors"
)

type WorkflowAction string

const (
	ActionSubmit      WorkflowAction = "submit"
	ActionApprove     WorkflowAction = "approve"
	ActionReject      WorkflowAction = "reject"
	ActionReturn      WorkflowAction = "return"
	ActionAdminLock   WorkflowAction = "admin_lock"
	ActionAdminUnlock WorkflowAction = "admin_unlock"
)

// transitions lists the statuses each action may start from. admin_lock is
// special-cased (any status) and admin_unlock targets an explicit status.
var transitions = map[WorkflowAction][]RowStatus{
	ActionSubmit:      {RowStatusDraft, RowStatusReturned},
	ActionApprove:     {RowStatusPendingReview},
	ActionReject:      {RowStatusPendingReview},
	ActionReturn:      {RowStatusPendingReview},
	ActionAdminUnlock: {RowStatusLocked},
}

var actionTargets = map[WorkflowAction]RowStatus{
	ActionSubmit:    RowStatusPendingReview,
	ActionApprove:   RowStatusApproved,
	ActionReject:    RowStatusRejected,
	ActionReturn:    RowStatusReturned,
	ActionAdminLock: RowStatusLocked,
}

// RequiredPermission maps a workflow action to the assignment permission that
// authorizes it. Admin lock/unlock are super-admin only and have no
// assignment-level permission.
func (a WorkflowAction) RequiredPermission() (string, bool) {
	switch a {
	case ActionSubmit:
		return PermissionSubmit, true
	case ActionApprove, ActionReject, ActionReturn:
		return PermissionApprove, true
	}
	return "", false
}

// NextStatus validates the transition and returns the resulting status.
// target is only consulted for admin_unlock, which restores an explicit
// status chosen by the administrator.
func NextStatus(current RowStatus, action WorkflowAction, target RowStatus) (RowStatus, error) {
	if action == ActionAdminLock {
		if current == RowStatusLocked {
			return "", fmt.Errorf("%w: row already locked", apperrors.ErrInvalidTransition)
		}
		return RowStatusLocked, nil
	}

	allowed, ok := transitions[action]
	if !ok {
		return "", fmt.Errorf("%w: unknown action %q", apperrors.ErrInvalidTransition, action)
	}
	legal := false
	for _, status := range allowed {
		if status == current {
			legal = true
			break
		}
	}
	if !legal {
		return "", fmt.Errorf("%w: cannot %s a %s row", apperrors.ErrInvalidTransition, action, current)
	}

	if action == ActionAdminUnlock {
		switch target {
		case RowStatusDraft, RowStatusPendingReview, RowStatusApproved, RowStatusRejected, RowStatusReturned:
			return target, nil
		default:
			return "", fmt.Errorf("%w: unlock needs an explicit target status", apperrors.ErrInvalidTransition)
		}
	}
	return actionTargets[action], nil
}

// ReleasesLock reports whether a successful transition releases the editor's
// row lock.
func (a WorkflowAction) ReleasesLock() bool {
	switch a {
	case ActionSubmit, ActionApprove, ActionReject:
		return true
	}
	return false
}
