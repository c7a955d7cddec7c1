package models

import (
	"errors"
	"testing"
	"time"

	"sheet-management-service/internal/apperrors"
)

func loanSheet() *SheetDefinition {
	return &SheetDefinition{
		Name: "Loan Applications Q1",
		Columns: []ColumnSpec{
			{Key: "applicant", Type: ColumnTypeText, Required: true},
			{Key: "amount", Type: ColumnTypeNumber, Required: true},
			{Key: "approved_on", Type: ColumnTypeDate},
			{Key: "priority", Type: ColumnTypeEnum, Options: []string{"low", "high"}},
			{Key: "reference", Type: ColumnTypeText, ReadOnly: true},
			{Key: "active", Type: ColumnTypeBoolean},
		},
	}
}

func TestValidateColumns(t *testing.T) {
	tests := []struct {
		name    string
		columns []ColumnSpec
		wantErr bool
	}{
		{"valid sheet", loanSheet().Columns, false},
		{"no columns", nil, true},
		{"empty key", []ColumnSpec{{Key: "", Type: ColumnTypeText}}, true},
		{"duplicate key", []ColumnSpec{
			{Key: "a", Type: ColumnTypeText},
			{Key: "a", Type: ColumnTypeNumber},
		}, true},
		{"enum without options", []ColumnSpec{{Key: "a", Type: ColumnTypeEnum}}, true},
		{"unknown type", []ColumnSpec{{Key: "a", Type: ColumnType("json")}}, true},
		{"bad pattern", []ColumnSpec{{Key: "a", Type: ColumnTypeText, Pattern: "["}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := &SheetDefinition{Name: "x", Columns: tt.columns}
			err := sheet.ValidateColumns()
			if tt.wantErr && !errors.Is(err, apperrors.ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestValidateRowData_Full(t *testing.T) {
	sheet := loanSheet()

	valid := map[string]any{
		"applicant":   "ACME Corp",
		"amount":      15000,
		"approved_on": "2026-01-15",
		"priority":    "high",
		"active":      true,
	}
	if err := sheet.ValidateRowData(valid, false); err != nil {
		t.Fatalf("Unexpected error for valid data: %v", err)
	}

	missing := map[string]any{"applicant": "ACME Corp"}
	if err := sheet.ValidateRowData(missing, false); !errors.Is(err, apperrors.ErrMissingRequiredFields) {
		t.Errorf("Missing required column should fail, got %v", err)
	}

	empty := map[string]any{"applicant": "", "amount": 1}
	if err := sheet.ValidateRowData(empty, false); !errors.Is(err, apperrors.ErrMissingRequiredFields) {
		t.Errorf("Empty required column should fail, got %v", err)
	}
}

func TestValidateRowData_Partial(t *testing.T) {
	sheet := loanSheet()

	tests := []struct {
		name    string
		data    map[string]any
		wantErr bool
	}{
		{"subset of columns", map[string]any{"amount": 2000}, false},
		{"unknown column", map[string]any{"balance": 5}, true},
		{"read-only column", map[string]any{"reference": "R-1"}, true},
		{"wrong number type", map[string]any{"amount": "ten"}, true},
		{"wrong boolean type", map[string]any{"active": "yes"}, true},
		{"bad enum value", map[string]any{"priority": "urgent"}, true},
		{"bad date", map[string]any{"approved_on": "15/01/2026"}, true},
		{"rfc3339 date", map[string]any{"approved_on": "2026-01-15T10:00:00Z"}, false},
		{"nil clears value", map[string]any{"priority": nil}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sheet.ValidateRowData(tt.data, true)
			if tt.wantErr && !errors.Is(err, apperrors.ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestLockTimeout(t *testing.T) {
	sheet := &SheetDefinition{}
	if got := sheet.LockTimeout(15 * time.Minute); got != 15*time.Minute {
		t.Errorf("Fallback timeout = %v", got)
	}

	sheet.Concurrency.LockTimeoutMinutes = 30
	if got := sheet.LockTimeout(15 * time.Minute); got != 30*time.Minute {
		t.Errorf("Configured timeout = %v, want 30m", got)
	}
}

func TestDefaultRowStatus(t *testing.T) {
	sheet := &SheetDefinition{}
	if got := sheet.DefaultRowStatus(); got != RowStatusDraft {
		t.Errorf("Default status = %s, want draft", got)
	}

	sheet.Workflow.DefaultStatus = RowStatusReturned
	if got := sheet.DefaultRowStatus(); got != RowStatusReturned {
		t.Errorf("Configured status = %s, want returned", got)
	}
}
