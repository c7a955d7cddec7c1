package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type AccessScope string

const (
	ScopeAll          AccessScope = "all"
	ScopeAssignedRows AccessScope = "assigned_rows"
	ScopeOwnRows      AccessScope = "own_rows"
)

type AssignmentStatus string

const (
	AssignmentStatusActive    AssignmentStatus = "active"
	AssignmentStatusSuspended AssignmentStatus = "suspended"
	AssignmentStatusRevoked   AssignmentStatus = "revoked"
)

// Permission names, as used in requests and audit context.
const (
	PermissionView       = "view"
	PermissionEdit       = "edit"
	PermissionCreate     = "create"
	PermissionDelete     = "delete"
	PermissionSubmit     = "submit"
	PermissionApprove    = "approve"
	PermissionAssignRows = "assignRows"
	PermissionReassign   = "reassign"
	PermissionExport     = "export"
	PermissionViewAudit  = "viewAudit"
)

type PermissionSet struct {
	CanView       bool `json:"canView" bson:"canView"`
	CanEdit       bool `json:"canEdit" bson:"canEdit"`
	CanCreate     bool `json:"canCreate" bson:"canCreate"`
	CanDelete     bool `json:"canDelete" bson:"canDelete"`
	CanSubmit     bool `json:"canSubmit" bson:"canSubmit"`
	CanApprove    bool `json:"canApprove" bson:"canApprove"`
	CanAssignRows bool `json:"canAssignRows" bson:"canAssignRows"`
	CanReassign   bool `json:"canReassign" bson:"canReassign"`
	CanExport     bool `json:"canExport" bson:"canExport"`
	CanViewAudit  bool `json:"canViewAudit" bson:"canViewAudit"`
}

func FullPermissions() PermissionSet {
	return PermissionSet{
		CanView:       true,
		CanEdit:       true,
		CanCreate:     true,
		CanDelete:     true,
		CanSubmit:     true,
		CanApprove:    true,
		CanAssignRows: true,
		CanReassign:   true,
		CanExport:     true,
		CanViewAudit:  true,
	}
}

func (p PermissionSet) Has(permission string) bool {
	switch permission {
	case PermissionView:
		return p.CanView
	case PermissionEdit:
		return p.CanEdit
	case PermissionCreate:
		return p.CanCreate
	case PermissionDelete:
		return p.CanDelete
	case PermissionSubmit:
		return p.CanSubmit
	case PermissionApprove:
		return p.CanApprove
	case PermissionAssignRows:
		return p.CanAssignRows
	case PermissionReassign:
		return p.CanReassign
	case PermissionExport:
		return p.CanExport
	case PermissionViewAudit:
		return p.CanViewAudit
	}
	return false
}

type Assignment struct {
	ID                bson.ObjectID    `json:"id,omitempty" bson:"_id,omitempty"`
	SheetID           bson.ObjectID    `json:"sheetId" bson:"sheetId"`
	ActorID           string           `json:"actorId" bson:"actorId"`
	Permissions       PermissionSet    `json:"permissions" bson:"permissions"`
	Scope             AccessScope      `json:"scope" bson:"scope"`
	RestrictedColumns []string         `json:"restrictedColumns,omitempty" bson:"restrictedColumns,omitempty"`
	Status            AssignmentStatus `json:"status" bson:"status"`
	ExpiresAt         int64            `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	GrantedBy         string           `json:"grantedBy" bson:"grantedBy"`
	Metadata          Metadata         `json:"metadata" bson:"metadata"`
}

// IsActive reports whether the assignment currently grants anything. An
// expired or non-active assignment grants no access.
func (a *Assignment) IsActive(now time.Time) bool {
	if a.Status != AssignmentStatusActive {
		return false
	}
	if a.ExpiresAt > 0 && a.ExpiresAt <= now.Unix() {
		return false
	}
	return true
}

// EffectiveScope is the named visibility policy: scope "all" never widens
// visibility for a non-super-admin and resolves to assigned_rows. Only the
// super-admin bypass (handled in access resolution) sees everything.
func EffectiveScope(scope AccessScope, superAdmin bool) AccessScope {
	if superAdmin {
		return ScopeAll
	}
	switch scope {
	case ScopeOwnRows:
		return ScopeOwnRows
	case ScopeAll, ScopeAssignedRows:
		return ScopeAssignedRows
	default:
		return ScopeAssignedRows
	}
}

// ResolvedAccess is the single capability object handed to every downstream
// component. Super-admins get a grant-all result with Enforced=false, so no
// component past access resolution needs role awareness.
type ResolvedAccess struct {
	SheetID           bson.ObjectID `json:"sheetId"`
	ActorID           string        `json:"actorId"`
	Permissions       PermissionSet `json:"permissions"`
	Scope             AccessScope   `json:"scope"`
	RestrictedColumns []string      `json:"restrictedColumns,omitempty"`
	Enforced          bool          `json:"enforced"`
}

func SuperAdminAccess(sheetID bson.ObjectID, actorID string) *ResolvedAccess {
	return &ResolvedAccess{
		SheetID:     sheetID,
		ActorID:     actorID,
		Permissions: FullPermissions(),
		Scope:       ScopeAll,
		Enforced:    false,
	}
}

func (ra *ResolvedAccess) ColumnRestricted(key string) bool {
	for _, restricted := range ra.RestrictedColumns {
		if restricted == key {
			return true
		}
	}
	return false
}
