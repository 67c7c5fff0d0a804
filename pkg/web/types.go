// Package web provides HTTP request and response types for the workflow API.
package web

import "github.com/darinjswilliams/kindrahealth/pkg/models"

// ExecuteWorkflowRequest represents the request body for submitting a
// clinical action plan for execution.
type ExecuteWorkflowRequest struct {
	PatientID      string              `json:"patient_id"      validate:"required"`
	PatientName    string              `json:"patient_name"    validate:"required"`
	ChiefComplaint string              `json:"chief_complaint"`
	Diagnoses      []string            `json:"diagnoses"`
	Actions        []PlanActionRequest `json:"actions"         validate:"required,min=1,dive"`
	AutoApprove    bool                `json:"auto_approve"`
}

// PlanActionRequest represents a single planned action within a submission.
type PlanActionRequest struct {
	ActionType  models.ActionType `json:"action_type" validate:"required,oneof=lab imaging referral medication follow-up"`
	Description string            `json:"description" validate:"required"`
	Priority    string            `json:"priority"    validate:"required,oneof=high medium low"`
	Timeline    string            `json:"timeline"`
}

// ApproveWorkflowRequest represents the request body for approving a
// workflow held at the approval gate. Modifications are keyed by action id
// and applied before execution resumes.
type ApproveWorkflowRequest struct {
	ApproverID    string                               `json:"approver_id" validate:"required"`
	Modifications map[string]models.ActionModification `json:"modifications,omitempty"`
}

// RejectWorkflowRequest represents the request body for rejecting a
// workflow held at the approval gate.
type RejectWorkflowRequest struct {
	RejectedBy string `json:"rejected_by" validate:"required"`
	Reason     string `json:"reason"      validate:"required"`
}

// Plan converts the request into the engine's plan model.
func (r *ExecuteWorkflowRequest) Plan() *models.Plan {
	plan := &models.Plan{
		PatientID:      r.PatientID,
		PatientName:    r.PatientName,
		ChiefComplaint: r.ChiefComplaint,
		Diagnoses:      r.Diagnoses,
	}

	for _, action := range r.Actions {
		plan.Actions = append(plan.Actions, models.PlanAction{
			ActionType:  action.ActionType,
			Description: action.Description,
			Priority:    action.Priority,
			Timeline:    action.Timeline,
		})
	}

	return plan
}

// AlertsResponse represents the alert listing for a single workflow.
type AlertsResponse struct {
	WorkflowID string         `json:"workflow_id"`
	Alerts     []models.Alert `json:"alerts"`
	Count      int            `json:"count"`
}
