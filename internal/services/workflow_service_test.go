package services

import (
	"errors"
	"testing"

	"sheet-management-service/internal/apperrors"
	"sheet-management-service/internal/models"
)

func TestValidateWorkflowRequest_SelfApproval(t *testing.T) {
	row := &models.Row{Status: models.RowStatusPendingReview, SubmittedBy: "alice"}

	tests := []struct {
		name   string
		action models.WorkflowAction
		actor  *models.Actor
	}{
		{"approve own submission", models.ActionApprove, &models.Actor{ID: "alice"}},
		{"reject own submission", models.ActionReject, &models.Actor{ID: "alice"}},
		{"super admin approves own submission", models.ActionApprove, &models.Actor{ID: "alice", Role: models.RoleSuperAdmin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &models.WorkflowRequest{Reason: "because"}
			_, err := validateWorkflowRequest(tt.action, row, tt.actor, req)
			if !errors.Is(err, apperrors.ErrSelfApproval) {
				t.Errorf("Expected self-approval error, got %v", err)
			}
		})
	}

	// A different reviewer is fine.
	req := &models.WorkflowRequest{}
	next, err := validateWorkflowRequest(models.ActionApprove, row, &models.Actor{ID: "bob"}, req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if next != models.RowStatusApproved {
		t.Errorf("Next status = %s, want approved", next)
	}
}

func TestValidateWorkflowRequest_RejectNeedsReason(t *testing.T) {
	row := &models.Row{Status: models.RowStatusPendingReview, SubmittedBy: "alice"}
	actor := &models.Actor{ID: "bob"}

	_, err := validateWorkflowRequest(models.ActionReject, row, actor, &models.WorkflowRequest{})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("Reject without reason should fail validation, got %v", err)
	}

	next, err := validateWorkflowRequest(models.ActionReject, row, actor, &models.WorkflowRequest{Reason: "incomplete data"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if next != models.RowStatusRejected {
		t.Errorf("Next status = %s, want rejected", next)
	}
}

// Walks a full review cycle on a re-approval sheet: submit, approve by a
// second reviewer, then an edit by the original editor that is allowed and
// demotes the row back to draft.
func TestReviewCycleWithEditAfterApproval(t *testing.T) {
	sheet := &models.SheetDefinition{
		Name: "loans-q1",
		Columns: []models.ColumnSpec{
			{Key: "amount", Type: models.ColumnTypeNumber, Required: true},
		},
		Workflow: models.WorkflowConfig{
			ApprovalEnabled:        true,
			RequireApprovalForEdit: true,
			DefaultStatus:          models.RowStatusDraft,
		},
	}
	editorU := &models.Actor{ID: "u"}
	reviewerV := &models.Actor{ID: "v"}
	accessU := &models.ResolvedAccess{
		ActorID:     "u",
		Permissions: models.PermissionSet{CanView: true, CanEdit: true, CanSubmit: true},
		Scope:       models.ScopeAssignedRows,
		Enforced:    true,
	}

	row := &models.Row{
		Status:          sheet.DefaultRowStatus(),
		Version:         1,
		Data:            map[string]any{"amount": 1000},
		CreatedBy:       "u",
		PrimaryAssignee: "u",
	}

	// u submits the draft.
	next, err := validateWorkflowRequest(models.ActionSubmit, row, editorU, &models.WorkflowRequest{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	row.Status = next
	row.SubmittedBy = "u"
	if row.Status != models.RowStatusPendingReview {
		t.Fatalf("Status after submit = %s, want pending_review", row.Status)
	}

	// u cannot review the own submission; v can.
	if _, err := validateWorkflowRequest(models.ActionApprove, row, editorU, &models.WorkflowRequest{}); !errors.Is(err, apperrors.ErrSelfApproval) {
		t.Fatalf("Submitter review should be blocked, got %v", err)
	}
	next, err = validateWorkflowRequest(models.ActionApprove, row, reviewerV, &models.WorkflowRequest{})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	row.Status = next

	// u edits the approved row: allowed, and the edit demotes it to draft.
	if err := CheckRowOwnership(accessU, row, models.PermissionEdit, nil, sheet.Workflow.RequireApprovalForEdit); err != nil {
		t.Fatalf("Edit of approved row on a re-approval sheet should pass, got %v", err)
	}
	incoming := map[string]any{"amount": 2000}
	changes := models.DiffRowData(row.Data, incoming)
	if len(changes) != 1 || changes[0].Field != "amount" {
		t.Fatalf("Edit diff = %+v, want a single amount change", changes)
	}
	if row.Status == models.RowStatusApproved && sheet.Workflow.RequireApprovalForEdit {
		row.Status = models.RowStatusDraft
	}
	row.Version++
	if row.Status != models.RowStatusDraft || row.Version != 2 {
		t.Errorf("After edit status=%s version=%d, want draft version 2", row.Status, row.Version)
	}
}

func TestValidateWorkflowRequest_IllegalStep(t *testing.T) {
	row := &models.Row{Status: models.RowStatusDraft}
	actor := &models.Actor{ID: "bob"}

	_, err := validateWorkflowRequest(models.ActionApprove, row, actor, &models.WorkflowRequest{})
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("Approving a draft should be an invalid transition, got %v", err)
	}
	if errors.Is(err, apperrors.ErrSelfApproval) {
		t.Error("Transition legality is checked before the self-approval rule")
	}
}
