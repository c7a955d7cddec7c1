package models

import (
	"fmt"
	"regexp"
	"time"

	"sheet-management-service/internal/apperrors"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type ColumnType string

const (
	ColumnTypeText    ColumnType = "text"
	ColumnTypeNumber  ColumnType = "number"
	ColumnTypeDate    ColumnType = "date"
	ColumnTypeBoolean ColumnType = "boolean"
	ColumnTypeEnum    ColumnType = "enum"
)

type ColumnSpec struct {
	Key      string     `json:"key" bson:"key"`
	Label    string     `json:"label" bson:"label"`
	Type     ColumnType `json:"type" bson:"type"`
	Required bool       `json:"required" bson:"required"`
	Unique   bool       `json:"unique,omitempty" bson:"unique,omitempty"`
	ReadOnly bool       `json:"readOnly,omitempty" bson:"readOnly,omitempty"`
	Hidden   bool       `json:"hidden,omitempty" bson:"hidden,omitempty"`
	Options  []string   `json:"options,omitempty" bson:"options,omitempty"`
	Pattern  string     `json:"pattern,omitempty" bson:"pattern,omitempty"`
}

type WorkflowConfig struct {
	ApprovalEnabled        bool        `json:"approvalEnabled" bson:"approvalEnabled"`
	RequireApprovalForEdit bool        `json:"requireApprovalForEdit" bson:"requireApprovalForEdit"`
	AllowedStatuses        []RowStatus `json:"allowedStatuses,omitempty" bson:"allowedStatuses,omitempty"`
	DefaultStatus          RowStatus   `json:"defaultStatus" bson:"defaultStatus"`
}

type ConcurrencyConfig struct {
	LockingEnabled     bool `json:"lockingEnabled" bson:"lockingEnabled"`
	LockTimeoutMinutes int  `json:"lockTimeoutMinutes,omitempty" bson:"lockTimeoutMinutes,omitempty"`
}

type RowAssignmentConfig struct {
	AutoAssignOnCreate     bool `json:"autoAssignOnCreate" bson:"autoAssignOnCreate"`
	AllowMultipleAssignees bool `json:"allowMultipleAssignees" bson:"allowMultipleAssignees"`
}

type SheetDefinition struct {
	ID                 bson.ObjectID       `json:"id,omitempty" bson:"_id,omitempty"`
	Name               string              `json:"name" bson:"name"`
	Category           string              `json:"category,omitempty" bson:"category,omitempty"`
	Columns            []ColumnSpec        `json:"columns" bson:"columns"`
	Workflow           WorkflowConfig      `json:"workflow" bson:"workflow"`
	Concurrency        ConcurrencyConfig   `json:"concurrency" bson:"concurrency"`
	RowAssignment      RowAssignmentConfig `json:"rowAssignment" bson:"rowAssignment"`
	DefaultPermissions PermissionSet       `json:"defaultPermissions" bson:"defaultPermissions"`
	IsActive           bool                `json:"isActive" bson:"isActive"`
	CreatedBy          string              `json:"createdBy" bson:"createdBy"`
	Metadata           Metadata            `json:"metadata" bson:"metadata"`
}

type Metadata struct {
	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

func (s *SheetDefinition) ColumnByKey(key string) *ColumnSpec {
	for i := range s.Columns {
		if s.Columns[i].Key == key {
			return &s.Columns[i]
		}
	}
	return nil
}

// ValidateColumns enforces unique column keys and sane specs.
func (s *SheetDefinition) ValidateColumns() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("%w: sheet needs at least one column", apperrors.ErrValidation)
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		if col.Key == "" {
			return fmt.Errorf("%w: column key must not be empty", apperrors.ErrValidation)
		}
		if seen[col.Key] {
			return fmt.Errorf("%w: duplicate column key %q", apperrors.ErrValidation, col.Key)
		}
		seen[col.Key] = true
		switch col.Type {
		case ColumnTypeText, ColumnTypeNumber, ColumnTypeDate, ColumnTypeBoolean:
		case ColumnTypeEnum:
			if len(col.Options) == 0 {
				return fmt.Errorf("%w: enum column %q needs options", apperrors.ErrValidation, col.Key)
			}
		default:
			return fmt.Errorf("%w: unknown column type %q", apperrors.ErrValidation, col.Type)
		}
		if col.Pattern != "" {
			if _, err := regexp.Compile(col.Pattern); err != nil {
				return fmt.Errorf("%w: column %q pattern: %v", apperrors.ErrValidation, col.Key, err)
			}
		}
	}
	return nil
}

func (s *SheetDefinition) DefaultRowStatus() RowStatus {
	if s.Workflow.DefaultStatus != "" {
		return s.Workflow.DefaultStatus
	}
	return RowStatusDraft
}

// LockTimeout resolves the per-sheet lock timeout, falling back to the
// service-wide default.
func (s *SheetDefinition) LockTimeout(fallback time.Duration) time.Duration {
	if s.Concurrency.LockTimeoutMinutes > 0 {
		return time.Duration(s.Concurrency.LockTimeoutMinutes) * time.Minute
	}
	return fallback
}

// ValidateRowData checks row data against the column specs. A full validation
// (partial=false) additionally requires every required column to be present
// and non-empty; partial validation covers updates where only changed columns
// arrive.
func (s *SheetDefinition) ValidateRowData(data map[string]any, partial bool) error {
	for key, value := range data {
		col := s.ColumnByKey(key)
		if col == nil {
			return fmt.Errorf("%w: unknown column %q", apperrors.ErrValidation, key)
		}
		if partial && col.ReadOnly {
			return fmt.Errorf("%w: column %q is read-only", apperrors.ErrValidation, key)
		}
		if value == nil {
			continue
		}
		if err := validateCellValue(col, value); err != nil {
			return err
		}
	}
	if partial {
		return nil
	}
	var missing []string
	for _, col := range s.Columns {
		if !col.Required {
			continue
		}
		value, ok := data[col.Key]
		if !ok || value == nil || value == "" {
			missing = append(missing, col.Key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", apperrors.ErrMissingRequiredFields, missing)
	}
	return nil
}

func validateCellValue(col *ColumnSpec, value any) error {
	switch col.Type {
	case ColumnTypeText:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: column %q expects text", apperrors.ErrValidation, col.Key)
		}
		if col.Pattern != "" {
			matched, err := regexp.MatchString(col.Pattern, str)
			if err != nil || !matched {
				return fmt.Errorf("%w: column %q does not match pattern", apperrors.ErrValidation, col.Key)
			}
		}
	case ColumnTypeNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Errorf("%w: column %q expects a number", apperrors.ErrValidation, col.Key)
		}
	case ColumnTypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%w: column %q expects a boolean", apperrors.ErrValidation, col.Key)
		}
	case ColumnTypeDate:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: column %q expects a date string", apperrors.ErrValidation, col.Key)
		}
		if _, err := time.Parse(time.RFC3339, str); err != nil {
			if _, err := time.Parse("2006-01-02", str); err != nil {
				return fmt.Errorf("%w: column %q expects RFC3339 or YYYY-MM-DD", apperrors.ErrValidation, col.Key)
			}
		}
	case ColumnTypeEnum:
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: column %q expects one of %v", apperrors.ErrValidation, col.Key, col.Options)
		}
		for _, opt := range col.Options {
			if opt == str {
				return nil
			}
		}
		return fmt.Errorf("%w: column %q expects one of %v", apperrors.ErrValidation, col.Key, col.Options)
	}
	return nil
}
