package models

import (
	"reflect"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type RowStatus string

const (
	RowStatusDraft         RowStatus = "draft"
	RowStatusPendingReview RowStatus = "pending_review"
	RowStatusApproved      RowStatus = "approved"
	RowStatusRejected      RowStatus = "rejected"
	RowStatusReturned      RowStatus = "returned"
	RowStatusLocked        RowStatus = "locked"
)

type Row struct {
	ID              bson.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	SheetID         bson.ObjectID  `json:"sheetId" bson:"sheetId"`
	Data            map[string]any `json:"data" bson:"data"`
	Status          RowStatus      `json:"status" bson:"status"`
	Version         int64          `json:"version" bson:"version"`
	PrimaryAssignee string         `json:"primaryAssignee,omitempty" bson:"primaryAssignee,omitempty"`
	AssignedTo      []string       `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	CreatedBy       string         `json:"createdBy" bson:"createdBy"`
	SubmittedBy     string         `json:"submittedBy,omitempty" bson:"submittedBy,omitempty"`
	SubmittedAt     int64          `json:"submittedAt,omitempty" bson:"submittedAt,omitempty"`
	ReviewedBy      string         `json:"reviewedBy,omitempty" bson:"reviewedBy,omitempty"`
	ReviewedAt      int64          `json:"reviewedAt,omitempty" bson:"reviewedAt,omitempty"`
	ReviewNotes     string         `json:"reviewNotes,omitempty" bson:"reviewNotes,omitempty"`
	PreLockStatus   RowStatus      `json:"preLockStatus,omitempty" bson:"preLockStatus,omitempty"`
	IsDeleted       bool           `json:"isDeleted" bson:"isDeleted"`
	DeletedBy       string         `json:"deletedBy,omitempty" bson:"deletedBy,omitempty"`
	DeletedAt       int64          `json:"deletedAt,omitempty" bson:"deletedAt,omitempty"`
	Metadata        Metadata       `json:"metadata" bson:"metadata"`
}

// IsAssignedTo reports whether the actor is the primary assignee or a member
// of the assignee set.
func (r *Row) IsAssignedTo(actorID string) bool {
	if r.PrimaryAssignee == actorID {
		return true
	}
	for _, id := range r.AssignedTo {
		if id == actorID {
			return true
		}
	}
	return false
}

// VisibleTo applies the row-level security predicate to a single row.
func (r *Row) VisibleTo(access *ResolvedAccess) bool {
	if !access.Enforced {
		return true
	}
	switch access.Scope {
	case ScopeOwnRows:
		return r.CreatedBy == access.ActorID
	default:
		return r.IsAssignedTo(access.ActorID)
	}
}

// Redacted returns a copy of the row with restricted columns stripped from
// the data map. The stored document is untouched.
func (r *Row) Redacted(access *ResolvedAccess) *Row {
	if len(access.RestrictedColumns) == 0 {
		return r
	}
	clone := *r
	clone.Data = make(map[string]any, len(r.Data))
	for key, value := range r.Data {
		if access.ColumnRestricted(key) {
			continue
		}
		clone.Data[key] = value
	}
	return &clone
}

type FieldChange struct {
	Field    string `json:"field" bson:"field"`
	OldValue any    `json:"oldValue,omitempty" bson:"oldValue,omitempty"`
	NewValue any    `json:"newValue,omitempty" bson:"newValue,omitempty"`
}

// DiffRowData computes the field-level changes an update applies, for the
// audit entry. Keys absent from incoming are untouched, not removals.
func DiffRowData(current, incoming map[string]any) []FieldChange {
	keys := make([]string, 0, len(incoming))
	for key := range incoming {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var changes []FieldChange
	for _, key := range keys {
		newValue := incoming[key]
		oldValue, existed := current[key]
		if existed && reflect.DeepEqual(oldValue, newValue) {
			continue
		}
		changes = append(changes, FieldChange{
			Field:    key,
			OldValue: oldValue,
			NewValue: newValue,
		})
	}
	return changes
}

// RowSecurityFilter builds the mandatory Mongo predicate for row-returning
// queries. A nil result means unrestricted (super-admin only); the request
// layer must never widen the returned filter.
func RowSecurityFilter(access *ResolvedAccess) bson.M {
	if !access.Enforced {
		return nil
	}
	switch access.Scope {
	case ScopeOwnRows:
		return bson.M{"createdBy": access.ActorID}
	default:
		return bson.M{"$or": []bson.M{
			{"primaryAssignee": access.ActorID},
			{"assignedTo": access.ActorID},
		}}
	}
}
