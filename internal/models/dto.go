package models

// Requests bound from route handlers.

type CreateSheetRequest struct {
	Name               string              `json:"name"`
	Category           string              `json:"category"`
	Columns            []ColumnSpec        `json:"columns"`
	Workflow           WorkflowConfig      `json:"workflow"`
	Concurrency        ConcurrencyConfig   `json:"concurrency"`
	RowAssignment      RowAssignmentConfig `json:"rowAssignment"`
	DefaultPermissions PermissionSet       `json:"defaultPermissions"`
}

type UpdateSheetRequest struct {
	Name               string               `json:"name"`
	Category           string               `json:"category"`
	Columns            []ColumnSpec         `json:"columns"`
	Workflow           *WorkflowConfig      `json:"workflow"`
	Concurrency        *ConcurrencyConfig   `json:"concurrency"`
	RowAssignment      *RowAssignmentConfig `json:"rowAssignment"`
	DefaultPermissions *PermissionSet       `json:"defaultPermissions"`
	IsActive           *bool                `json:"isActive"`
}

type GrantAssignmentRequest struct {
	ActorID           string         `json:"actorId"`
	Permissions       *PermissionSet `json:"permissions"`
	Scope             AccessScope    `json:"scope"`
	RestrictedColumns []string       `json:"restrictedColumns"`
	ExpiresAt         int64          `json:"expiresAt"`
}

type UpdateAssignmentRequest struct {
	Permissions       *PermissionSet   `json:"permissions"`
	Scope             AccessScope      `json:"scope"`
	RestrictedColumns []string         `json:"restrictedColumns"`
	Status            AssignmentStatus `json:"status"`
	ExpiresAt         *int64           `json:"expiresAt"`
}

type CreateRowRequest struct {
	Data map[string]any `json:"data"`
}

type UpdateRowRequest struct {
	Data map[string]any `json:"data"`
}

type AssignRowRequest struct {
	PrimaryAssignee string   `json:"primaryAssignee"`
	AssignedTo      []string `json:"assignedTo"`
}

type WorkflowRequest struct {
	Notes        string    `json:"notes"`
	Reason       string    `json:"reason"`
	TargetStatus RowStatus `json:"targetStatus"`
}

type AcquireLockRequest struct {
	TimeoutMinutes int `json:"timeoutMinutes"`
}

type RowListQuery struct {
	Status   RowStatus
	Page     int
	PageSize int
}

// Clamp normalizes client paging: page at least 1, pageSize within
// [1, maxPageSize]. Mongo rejects a negative skip, so this runs before the
// query is built.
func (q *RowListQuery) Clamp(maxPageSize int) {
	q.Page, q.PageSize = clampPaging(q.Page, q.PageSize, maxPageSize)
}

type AuditListQuery struct {
	Action   AuditAction
	From     int64
	To       int64
	Page     int
	PageSize int
}

func (q *AuditListQuery) Clamp(maxPageSize int) {
	q.Page, q.PageSize = clampPaging(q.Page, q.PageSize, maxPageSize)
}

func clampPaging(page, pageSize, maxPageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if maxPageSize > 0 && pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// AllowedSheet pairs a sheet with the actor's effective access, for
// navigation menus upstream.
type AllowedSheet struct {
	Sheet  *SheetDefinition `json:"sheet"`
	Access *ResolvedAccess  `json:"access"`
}
