package models

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

type AuditAction string

const (
	AuditActionCreate           AuditAction = "create"
	AuditActionUpdate           AuditAction = "update"
	AuditActionDelete           AuditAction = "delete"
	AuditActionRead             AuditAction = "read"
	AuditActionExport           AuditAction = "export"
	AuditActionSubmit           AuditAction = "submit"
	AuditActionApprove          AuditAction = "approve"
	AuditActionReject           AuditAction = "reject"
	AuditActionReturn           AuditAction = "return"
	AuditActionAdminLock        AuditAction = "admin_lock"
	AuditActionAdminUnlock      AuditAction = "admin_unlock"
	AuditActionLockAcquire      AuditAction = "lock_acquire"
	AuditActionLockRelease      AuditAction = "lock_release"
	AuditActionAssignRow        AuditAction = "assign_row"
	AuditActionAssignmentGrant  AuditAction = "assignment_grant"
	AuditActionAssignmentUpdate AuditAction = "assignment_update"
	AuditActionAssignmentRevoke AuditAction = "assignment_revoke"
	AuditActionAccessDenied     AuditAction = "access_denied"
)

type AuditResult string

const (
	AuditResultSuccess AuditResult = "success"
	AuditResultFailure AuditResult = "failure"
	AuditResultPartial AuditResult = "partial"
)

// ActorSnapshot is the denormalized actor identity kept with each entry so
// history survives actor deletion.
type ActorSnapshot struct {
	ID    string `json:"id" bson:"id"`
	Name  string `json:"name,omitempty" bson:"name,omitempty"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
	Role  string `json:"role,omitempty" bson:"role,omitempty"`
}

type RequestMeta struct {
	IP        string `json:"ip,omitempty" bson:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
}

type AuditContext struct {
	Reason         string    `json:"reason,omitempty" bson:"reason,omitempty"`
	Notes          string    `json:"notes,omitempty" bson:"notes,omitempty"`
	PreviousStatus RowStatus `json:"previousStatus,omitempty" bson:"previousStatus,omitempty"`
	NewStatus      RowStatus `json:"newStatus,omitempty" bson:"newStatus,omitempty"`
	Detail         string    `json:"detail,omitempty" bson:"detail,omitempty"`
}

type AuditEntry struct {
	ID        bson.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	EventID   string        `json:"eventId" bson:"eventId"`
	Action    AuditAction   `json:"action" bson:"action"`
	SheetID   bson.ObjectID `json:"sheetId" bson:"sheetId"`
	RowID     bson.ObjectID `json:"rowId,omitempty" bson:"rowId,omitempty"`
	Actor     ActorSnapshot `json:"actor" bson:"actor"`
	Changes   []FieldChange `json:"changes,omitempty" bson:"changes,omitempty"`
	Request   RequestMeta   `json:"request,omitempty" bson:"request,omitempty"`
	Result    AuditResult   `json:"result" bson:"result"`
	Context   AuditContext  `json:"context,omitempty" bson:"context,omitempty"`
	Timestamp int64         `json:"timestamp" bson:"timestamp"`
}

// Report shapes for the aggregate audit queries.

type AuditActionCount struct {
	Action   AuditAction `json:"action" bson:"_id"`
	Count    int64       `json:"count" bson:"count"`
	Failures int64       `json:"failures" bson:"failures"`
}

type AuditActorCount struct {
	ActorID  string `json:"actorId" bson:"_id"`
	Count    int64  `json:"count" bson:"count"`
	Failures int64  `json:"failures" bson:"failures"`
}

type AuditReport struct {
	SheetID      bson.ObjectID      `json:"sheetId"`
	TotalEntries int64              `json:"totalEntries"`
	Successes    int64              `json:"successes"`
	Failures     int64              `json:"failures"`
	ByAction     []AuditActionCount `json:"byAction"`
	ByActor      []AuditActorCount  `json:"byActor"`
}
