package models

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func enforcedAccess(actorID string, scope AccessScope) *ResolvedAccess {
	return &ResolvedAccess{
		ActorID:     actorID,
		Permissions: FullPermissions(),
		Scope:       scope,
		Enforced:    true,
	}
}

func TestVisibleTo(t *testing.T) {
	row := &Row{
		CreatedBy:       "alice",
		PrimaryAssignee: "bob",
		AssignedTo:      []string{"carol"},
	}

	tests := []struct {
		name   string
		access *ResolvedAccess
		want   bool
	}{
		{"super admin sees everything", SuperAdminAccess(bson.ObjectID{}, "root"), true},
		{"primary assignee", enforcedAccess("bob", ScopeAssignedRows), true},
		{"secondary assignee", enforcedAccess("carol", ScopeAssignedRows), true},
		{"unassigned actor", enforcedAccess("dave", ScopeAssignedRows), false},
		{"creator not assignee under assigned scope", enforcedAccess("alice", ScopeAssignedRows), false},
		{"creator under own scope", enforcedAccess("alice", ScopeOwnRows), true},
		{"assignee under own scope", enforcedAccess("bob", ScopeOwnRows), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := row.VisibleTo(tt.access); got != tt.want {
				t.Errorf("VisibleTo() = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	row := &Row{
		Data: map[string]any{
			"loan_amount": 15000,
			"ssn":         "123-45-6789",
			"status":      "open",
		},
	}

	access := enforcedAccess("bob", ScopeAssignedRows)
	access.RestrictedColumns = []string{"ssn"}

	redacted := row.Redacted(access)
	if _, present := redacted.Data["ssn"]; present {
		t.Error("Restricted column should be stripped from the returned row")
	}
	if redacted.Data["loan_amount"] != 15000 {
		t.Error("Unrestricted columns should survive redaction")
	}
	if _, present := row.Data["ssn"]; !present {
		t.Error("Redaction must not mutate the source row")
	}

	unrestricted := enforcedAccess("bob", ScopeAssignedRows)
	if got := row.Redacted(unrestricted); got != row {
		t.Error("No restrictions should return the row unchanged")
	}
}

func TestDiffRowData(t *testing.T) {
	current := map[string]any{
		"amount": 100,
		"name":   "widget",
		"color":  "red",
	}
	incoming := map[string]any{
		"amount": 250,
		"name":   "widget",
		"origin": "import",
	}

	changes := DiffRowData(current, incoming)
	want := []FieldChange{
		{Field: "amount", OldValue: 100, NewValue: 250},
		{Field: "origin", OldValue: nil, NewValue: "import"},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Errorf("DiffRowData() = %+v, want %+v", changes, want)
	}

	if got := DiffRowData(current, map[string]any{"name": "widget"}); got != nil {
		t.Errorf("Identical values should yield no changes, got %+v", got)
	}
}

func TestRowSecurityFilter(t *testing.T) {
	superAdmin := SuperAdminAccess(bson.ObjectID{}, "root")
	if filter := RowSecurityFilter(superAdmin); filter != nil {
		t.Errorf("Super-admin filter should be nil, got %v", filter)
	}

	own := RowSecurityFilter(enforcedAccess("alice", ScopeOwnRows))
	if !reflect.DeepEqual(own, bson.M{"createdBy": "alice"}) {
		t.Errorf("Own-rows filter = %v", own)
	}

	assigned := RowSecurityFilter(enforcedAccess("bob", ScopeAssignedRows))
	want := bson.M{"$or": []bson.M{
		{"primaryAssignee": "bob"},
		{"assignedTo": "bob"},
	}}
	if !reflect.DeepEqual(assigned, want) {
		t.Errorf("Assigned-rows filter = %v, want %v", assigned, want)
	}
}
