package models

import (
	"testing"
	"time"
)

func TestAssignmentIsActive(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		assignment Assignment
		want       bool
	}{
		{"active without expiry", Assignment{Status: AssignmentStatusActive}, true},
		{"active future expiry", Assignment{Status: AssignmentStatusActive, ExpiresAt: now.Add(time.Hour).Unix()}, true},
		{"active past expiry", Assignment{Status: AssignmentStatusActive, ExpiresAt: now.Add(-time.Hour).Unix()}, false},
		{"suspended", Assignment{Status: AssignmentStatusSuspended}, false},
		{"revoked", Assignment{Status: AssignmentStatusRevoked}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.assignment.IsActive(now); got != tt.want {
				t.Errorf("IsActive() = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestEffectiveScope(t *testing.T) {
	tests := []struct {
		name       string
		scope      AccessScope
		superAdmin bool
		want       AccessScope
	}{
		{"all narrows for regular actor", ScopeAll, false, ScopeAssignedRows},
		{"assigned stays assigned", ScopeAssignedRows, false, ScopeAssignedRows},
		{"own stays own", ScopeOwnRows, false, ScopeOwnRows},
		{"unknown defaults to assigned", AccessScope("everything"), false, ScopeAssignedRows},
		{"super admin keeps all", ScopeOwnRows, true, ScopeAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveScope(tt.scope, tt.superAdmin); got != tt.want {
				t.Errorf("EffectiveScope(%s, %t) = %s, want %s", tt.scope, tt.superAdmin, got, tt.want)
			}
		})
	}
}

func TestPermissionSetHas(t *testing.T) {
	perms := PermissionSet{CanView: true, CanSubmit: true}

	if !perms.Has(PermissionView) || !perms.Has(PermissionSubmit) {
		t.Error("Granted permissions should be reported")
	}
	for _, name := range []string{PermissionEdit, PermissionDelete, PermissionApprove, PermissionViewAudit} {
		if perms.Has(name) {
			t.Errorf("Permission %q should not be granted", name)
		}
	}
	if perms.Has("fly") {
		t.Error("Unknown permission names must never pass")
	}

	full := FullPermissions()
	for _, name := range []string{
		PermissionView, PermissionEdit, PermissionCreate, PermissionDelete, PermissionSubmit,
		PermissionApprove, PermissionAssignRows, PermissionReassign, PermissionExport, PermissionViewAudit,
	} {
		if !full.Has(name) {
			t.Errorf("FullPermissions should include %q", name)
		}
	}
}

func TestColumnRestricted(t *testing.T) {
	access := &ResolvedAccess{RestrictedColumns: []string{"salary", "ssn"}}

	if !access.ColumnRestricted("salary") {
		t.Error("salary should be restricted")
	}
	if access.ColumnRestricted("name") {
		t.Error("name should not be restricted")
	}
}
