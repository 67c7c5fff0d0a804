// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
	"github.com/google/uuid"
)

// CreateTestPlan creates a test plan with default values that can be
// overridden.
func CreateTestPlan(overrides ...func(*models.Plan)) *models.Plan {
	plan := &models.Plan{
		PatientID:      "PAT-" + uuid.New().String()[:8],
		PatientName:    "Test Patient",
		ChiefComplaint: "Persistent fatigue",
		Diagnoses:      []string{"Iron deficiency anemia"},
		Actions: []models.PlanAction{
			{
				ActionType:  models.ActionTypeLab,
				Description: "CBC with differential",
				Priority:    "medium",
				Timeline:    "within 3 days",
			},
		},
	}

	for _, override := range overrides {
		override(plan)
	}

	return plan
}

// WithActions replaces the plan's action list.
func WithActions(actions ...models.PlanAction) func(*models.Plan) {
	return func(p *models.Plan) {
		p.Actions = actions
	}
}

// WithDiagnoses replaces the plan's diagnosis list.
func WithDiagnoses(diagnoses ...string) func(*models.Plan) {
	return func(p *models.Plan) {
		p.Diagnoses = diagnoses
	}
}

// PlanAction creates a test plan action with the given type and priority.
func PlanAction(actionType models.ActionType, priority string) models.PlanAction {
	return models.PlanAction{
		ActionType:  actionType,
		Description: "Test " + string(actionType) + " action",
		Priority:    priority,
	}
}

// CreateTestWorkflow creates a workflow execution with default values that
// can be overridden.
func CreateTestWorkflow(overrides ...func(*models.WorkflowExecution)) *models.WorkflowExecution {
	workflowID := "WF-" + uuid.New().String()[:8]

	workflow := &models.WorkflowExecution{
		ID:          workflowID,
		PatientID:   "PAT-" + uuid.New().String()[:8],
		PatientName: "Test Patient",
		Status:      models.StatusInProgress,
		StartedAt:   time.Now(),
		Actions: []*models.ActionExecution{
			{
				ID:          "ACT-" + workflowID + "-0",
				Type:        models.ActionTypeLab,
				Description: "CBC with differential",
				Priority:    "medium",
				Status:      models.StatusPending,
			},
		},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithWorkflowActions replaces the workflow's actions.
func WithWorkflowActions(actions ...*models.ActionExecution) func(*models.WorkflowExecution) {
	return func(w *models.WorkflowExecution) {
		w.Actions = actions
	}
}

// WithStatus sets the workflow status.
func WithStatus(status models.ExecutionStatus) func(*models.WorkflowExecution) {
	return func(w *models.WorkflowExecution) {
		w.Status = status
	}
}

// CompletedAction creates an action already executed by the given type,
// useful for monitoring tests.
func CompletedAction(id string, actionType models.ActionType, result map[string]any) *models.ActionExecution {
	now := time.Now()

	return &models.ActionExecution{
		ID:          id,
		Type:        actionType,
		Description: "Test " + string(actionType) + " action",
		Priority:    "medium",
		Status:      models.StatusCompleted,
		ExecutedAt:  &now,
		Result:      result,
	}
}
