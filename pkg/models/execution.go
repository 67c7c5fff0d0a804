// Package models defines the core domain records for clinical workflow
// execution and monitoring.
package models

import (
	"sync"
	"time"
)

// ExecutionStatus represents the lifecycle state of a workflow or action.
type ExecutionStatus string

const (
	StatusPending          ExecutionStatus = "pending"
	StatusInProgress       ExecutionStatus = "in_progress"
	StatusRequiresApproval ExecutionStatus = "requires_approval"
	StatusCompleted        ExecutionStatus = "completed"
	StatusFailed           ExecutionStatus = "failed"
)

// ActionType identifies the external system an action is executed against.
type ActionType string

const (
	ActionTypeLab        ActionType = "lab"
	ActionTypeImaging    ActionType = "imaging"
	ActionTypeReferral   ActionType = "referral"
	ActionTypeMedication ActionType = "medication"
	ActionTypeFollowUp   ActionType = "follow-up"
)

// AlertPriority ranks physician alerts.
type AlertPriority string

const (
	PriorityHigh   AlertPriority = "high"
	PriorityMedium AlertPriority = "medium"
	PriorityLow    AlertPriority = "low"
)

// Alert is a timestamped notification raised by a monitoring routine or the
// engine. Alerts are append-only and never mutated after creation.
type Alert struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Priority  AlertPriority  `json:"priority"`
	Timestamp time.Time      `json:"timestamp"`
	ActionID  string         `json:"action_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// ActionExecution tracks one unit of planned clinical work from creation
// through execution and monitoring. At most one goroutine writes the record
// at a time (the executor, then the one routine monitoring this action), but
// snapshots for the API and the file store may read it concurrently, so all
// mutation goes through the guarded methods below.
type ActionExecution struct {
	ID               string          `json:"action_id"    validate:"required"`
	Type             ActionType      `json:"action_type"  validate:"required,oneof=lab imaging referral medication follow-up"`
	Description      string          `json:"description"  validate:"required"`
	Priority         string          `json:"priority,omitempty"`
	Timeline         string          `json:"timeline,omitempty"`
	Status           ExecutionStatus `json:"status"`
	RequiresApproval bool            `json:"requires_physician_approval"`
	ExecutedAt       *time.Time      `json:"executed_time,omitempty"`
	Result           map[string]any  `json:"result,omitempty"`
	Error            string          `json:"error,omitempty"`
	ApprovedBy       string          `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time      `json:"approved_at,omitempty"`

	mu sync.Mutex
}

// Complete records a successful provider call with its result payload.
func (a *ActionExecution) Complete(at time.Time, result map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Status = StatusCompleted
	a.ExecutedAt = &at
	a.Result = result
	a.Error = ""
}

// Fail records a provider failure; the result payload is left untouched.
func (a *ActionExecution) Fail(at time.Time, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Status = StatusFailed
	a.ExecutedAt = &at
	a.Error = message
}

// Reset returns a failed action to pending so it can be executed again.
func (a *ActionExecution) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Status = StatusPending
	a.Error = ""
	a.Result = nil
}

// StoreResult records one monitoring outcome on the action. Safe to call
// while a snapshot of the owning workflow is being marshaled.
func (a *ActionExecution) StoreResult(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Result == nil {
		a.Result = make(map[string]any)
	}

	a.Result[key] = value
}

// ResultString returns the named result value when it is a string.
func (a *ActionExecution) ResultString(key string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	value, _ := a.Result[key].(string)

	return value
}

// CurrentStatus reads the action status under the record lock.
func (a *ActionExecution) CurrentStatus() ExecutionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.Status
}

// ApplyModification applies a physician's edit to the action.
func (a *ActionExecution) ApplyModification(mod ActionModification) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if mod.Description != "" {
		a.Description = mod.Description
	}

	if mod.Priority != "" {
		a.Priority = mod.Priority
	}
}

// StampApproval records who approved the action and when.
func (a *ActionExecution) StampApproval(approverID string, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ApprovedBy = approverID
	a.ApprovedAt = &at
}

// Snapshot returns a copy safe to marshal while the executor or the
// monitoring routine keeps writing the original. The result map is copied;
// stored values are never mutated after storage.
func (a *ActionExecution) Snapshot() *ActionExecution {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := &ActionExecution{
		ID:               a.ID,
		Type:             a.Type,
		Description:      a.Description,
		Priority:         a.Priority,
		Timeline:         a.Timeline,
		Status:           a.Status,
		RequiresApproval: a.RequiresApproval,
		ExecutedAt:       a.ExecutedAt,
		Error:            a.Error,
		ApprovedBy:       a.ApprovedBy,
		ApprovedAt:       a.ApprovedAt,
	}

	if a.Result != nil {
		snapshot.Result = make(map[string]any, len(a.Result))
		for key, value := range a.Result {
			snapshot.Result[key] = value
		}
	}

	return snapshot
}

// WorkflowExecution tracks one clinical episode's execution record. Actions
// are owned exclusively by this workflow, in plan order. The alert list is
// the only field written concurrently (by monitoring routines) and is
// guarded by the embedded mutex; all appends must go through AppendAlert.
type WorkflowExecution struct {
	ID                string             `json:"workflow_id"     validate:"required"`
	PatientID         string             `json:"patient_id"      validate:"required"`
	PatientName       string             `json:"patient_name"    validate:"required"`
	ConsultationID    string             `json:"consultation_id"`
	ClinicalSummaryID string             `json:"clinical_summary_id,omitempty"`
	Status            ExecutionStatus    `json:"status"`
	StartedAt         time.Time          `json:"started_at"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
	Actions           []*ActionExecution `json:"actions"`
	PatientNotified   bool               `json:"patient_notified"`
	Alerts            []Alert            `json:"alerts"`

	mu sync.Mutex
}

// AppendAlert adds an alert to the workflow. Safe for concurrent use by
// multiple monitoring routines.
func (w *WorkflowExecution) AppendAlert(alert Alert) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.Alerts = append(w.Alerts, alert)
}

// AlertsSnapshot returns a copy of the alert list in append order.
func (w *WorkflowExecution) AlertsSnapshot() []Alert {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Alert, len(w.Alerts))
	copy(out, w.Alerts)

	return out
}

// AlertCount returns the current number of alerts.
func (w *WorkflowExecution) AlertCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.Alerts)
}

// ActionByID returns the action with the given id, or nil.
func (w *WorkflowExecution) ActionByID(actionID string) *ActionExecution {
	for _, action := range w.Actions {
		if action.ID == actionID {
			return action
		}
	}

	return nil
}

// CompletedActions counts actions whose execution succeeded.
func (w *WorkflowExecution) CompletedActions() int {
	count := 0

	for _, action := range w.Actions {
		if action.CurrentStatus() == StatusCompleted {
			count++
		}
	}

	return count
}

// RequiresApproval reports whether any action needs physician sign-off.
func (w *WorkflowExecution) RequiresApproval() bool {
	for _, action := range w.Actions {
		if action.RequiresApproval {
			return true
		}
	}

	return false
}

// MarkCompleted transitions the workflow to its terminal COMPLETED state and
// stamps completed-at. Completed-at is set exactly when the status turns
// terminal.
func (w *WorkflowExecution) MarkCompleted(at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.Status = StatusCompleted
	w.CompletedAt = &at
}

// MarkFailed transitions the workflow to its terminal FAILED state.
func (w *WorkflowExecution) MarkFailed(at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.Status = StatusFailed
	w.CompletedAt = &at
}

// SetStatus updates the workflow status.
func (w *WorkflowExecution) SetStatus(status ExecutionStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.Status = status
}

// CurrentStatus reads the workflow status under the lock.
func (w *WorkflowExecution) CurrentStatus() ExecutionStatus {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.Status
}

// MarkNotified records that the patient outcome summary was delivered.
func (w *WorkflowExecution) MarkNotified() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.PatientNotified = true
}

// Terminal reports whether the workflow reached COMPLETED or FAILED.
func (w *WorkflowExecution) Terminal() bool {
	status := w.CurrentStatus()

	return status == StatusCompleted || status == StatusFailed
}

// Snapshot returns a copy safe to marshal while monitoring routines keep
// appending alerts and storing action results on the original. Action
// records are copied, not shared.
func (w *WorkflowExecution) Snapshot() *WorkflowExecution {
	w.mu.Lock()

	snapshot := &WorkflowExecution{
		ID:                w.ID,
		PatientID:         w.PatientID,
		PatientName:       w.PatientName,
		ConsultationID:    w.ConsultationID,
		ClinicalSummaryID: w.ClinicalSummaryID,
		Status:            w.Status,
		StartedAt:         w.StartedAt,
		CompletedAt:       w.CompletedAt,
		PatientNotified:   w.PatientNotified,
		Alerts:            make([]Alert, len(w.Alerts)),
	}
	copy(snapshot.Alerts, w.Alerts)

	actions := w.Actions

	w.mu.Unlock()

	snapshot.Actions = make([]*ActionExecution, len(actions))
	for i, action := range actions {
		snapshot.Actions[i] = action.Snapshot()
	}

	return snapshot
}
