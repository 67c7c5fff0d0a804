package models

import "time"

// ApprovalAction describes one action awaiting physician sign-off inside an
// approval request, with a human-readable reason.
type ApprovalAction struct {
	ActionID    string     `json:"action_id"`
	ActionType  ActionType `json:"action_type"`
	Description string     `json:"description"`
	Timeline    string     `json:"timeline,omitempty"`
	Reason      string     `json:"reason_for_approval"`
}

// ApprovalRequest is the transient snapshot handed to the approval gate and
// outward to a physician dashboard. It is never persisted on its own; the
// pending-approval registry keeps the workflow itself.
type ApprovalRequest struct {
	WorkflowID     string           `json:"workflow_id"`
	PatientID      string           `json:"patient_id"`
	PatientName    string           `json:"patient_name"`
	ConsultationID string           `json:"consultation_id"`
	Diagnoses      []string         `json:"diagnoses,omitempty"`
	Actions        []ApprovalAction `json:"actions_requiring_approval"`
	TotalActions   int              `json:"total_actions"`
	Priority       AlertPriority    `json:"priority"`
	RequestedAt    time.Time        `json:"requested_at"`
}

// ActionModification carries a physician's edit to a single action, applied
// while approving a workflow.
type ActionModification struct {
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}
