package event

// Routing keys published to the sheet.events topic exchange.
const (
	EventRowCreated  = "row.created"
	EventRowUpdated  = "row.updated"
	EventRowDeleted  = "row.deleted"
	EventRowAssigned = "row.assigned"

	EventWorkflowSubmitted   = "workflow.submitted"
	EventWorkflowApproved    = "workflow.approved"
	EventWorkflowRejected    = "workflow.rejected"
	EventWorkflowReturned    = "workflow.returned"
	EventWorkflowAdminLocked = "workflow.admin_locked"
	EventWorkflowUnlocked    = "workflow.admin_unlocked"

	EventAssignmentGranted = "assignment.granted"
	EventAssignmentUpdated = "assignment.updated"
	EventAssignmentRevoked = "assignment.revoked"

	EventAuditRecorded = "audit.recorded"
)

// Routing keys consumed from the account.events exchange.
const (
	EventUserSuspended = "user.suspended"
	EventUserDeleted   = "user.deleted"
)

type RowEvent struct {
	EventType string `json:"eventType"`
	SheetID   string `json:"sheetId"`
	RowID     string `json:"rowId"`
	ActorID   string `json:"actorId"`
	Status    string `json:"status,omitempty"`
	Version   int64  `json:"version,omitempty"`
	Timestamp string `json:"timestamp"`
}

type WorkflowEvent struct {
	EventType      string `json:"eventType"`
	SheetID        string `json:"sheetId"`
	RowID          string `json:"rowId"`
	ActorID        string `json:"actorId"`
	PreviousStatus string `json:"previousStatus"`
	NewStatus      string `json:"newStatus"`
	Notes          string `json:"notes,omitempty"`
	Timestamp      string `json:"timestamp"`
}

type AssignmentEvent struct {
	EventType string `json:"eventType"`
	SheetID   string `json:"sheetId"`
	ActorID   string `json:"actorId"`
	GrantedBy string `json:"grantedBy,omitempty"`
	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp"`
}

type AuditEvent struct {
	EventType string `json:"eventType"`
	EventID   string `json:"eventId"`
	Action    string `json:"action"`
	SheetID   string `json:"sheetId"`
	RowID     string `json:"rowId,omitempty"`
	ActorID   string `json:"actorId"`
	Result    string `json:"result"`
	Timestamp string `json:"timestamp"`
}

type AccountEventData struct {
	Type      string `json:"type"`
	UserID    string `json:"userId"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}
