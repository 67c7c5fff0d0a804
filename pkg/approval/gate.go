// Package approval implements the physician approval gate: workflows whose
// plan contains high-priority actions pause here until a physician signs
// off or rejects them.
package approval

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
)

var (
	// ErrAlreadyPending is returned when a workflow is already awaiting
	// approval.
	ErrAlreadyPending = errors.New("workflow already awaiting approval")
	// ErrWorkflowCompleted is returned when approval is requested on a
	// workflow in a terminal state.
	ErrWorkflowCompleted = errors.New("workflow already completed")
	// ErrNoApprovalNeeded is returned when no action in the workflow
	// requires physician sign-off.
	ErrNoApprovalNeeded = errors.New("no actions require approval")
)

// Gate holds workflows paused for physician approval. The pending registry
// contains a workflow exactly while its status is REQUIRES_APPROVAL.
type Gate struct {
	mu      sync.Mutex
	pending map[string]*models.WorkflowExecution
	logger  *slog.Logger
}

func NewGate(logger *slog.Logger) *Gate {
	return &Gate{
		pending: make(map[string]*models.WorkflowExecution),
		logger:  logger.With("module", "approval_gate"),
	}
}

// RequestApproval registers the workflow in the pending registry and builds
// the approval payload for the physician dashboard. The workflow's status
// and alert list are only touched after registration succeeds, so a
// rejected request leaves no partial mutation behind.
func (g *Gate) RequestApproval(workflow *models.WorkflowExecution, diagnoses []string) (*models.ApprovalRequest, error) {
	if workflow.CurrentStatus() == models.StatusRequiresApproval {
		return nil, ErrAlreadyPending
	}

	if workflow.Terminal() {
		return nil, ErrWorkflowCompleted
	}

	actions := actionsNeedingApproval(workflow)
	if len(actions) == 0 {
		return nil, ErrNoApprovalNeeded
	}

	priority := requestPriority(actions, diagnoses)

	g.mu.Lock()

	if _, exists := g.pending[workflow.ID]; exists {
		g.mu.Unlock()

		return nil, ErrAlreadyPending
	}

	g.pending[workflow.ID] = workflow
	g.mu.Unlock()

	workflow.SetStatus(models.StatusRequiresApproval)
	workflow.AppendAlert(models.Alert{
		Type:      "Approval Required",
		Message:   approvalAlertMessage(len(actions)),
		Priority:  priority,
		Timestamp: time.Now(),
	})

	request := &models.ApprovalRequest{
		WorkflowID:     workflow.ID,
		PatientID:      workflow.PatientID,
		PatientName:    workflow.PatientName,
		ConsultationID: workflow.ConsultationID,
		Diagnoses:      diagnoses,
		Actions:        actions,
		TotalActions:   len(workflow.Actions),
		Priority:       priority,
		RequestedAt:    time.Now(),
	}

	g.logger.Info("Workflow paused for physician approval",
		"workflow_id", workflow.ID,
		"patient_id", workflow.PatientID,
		"actions_awaiting_approval", len(actions),
		"priority", priority,
	)

	return request, nil
}

// Approve stamps every approval-requiring action with the approver identity
// and removes the workflow from the pending registry. It reports false when
// the workflow is not pending; it never panics or errors on an unknown id.
// Modifications, keyed by action id, are applied before stamping. On
// success the pending workflow record is returned so the caller resumes
// execution on the same record the gate was holding.
func (g *Gate) Approve(workflowID, approverID string, modifications map[string]models.ActionModification) (*models.WorkflowExecution, bool) {
	g.mu.Lock()
	workflow, ok := g.pending[workflowID]
	if ok {
		delete(g.pending, workflowID)
	}
	g.mu.Unlock()

	if !ok {
		return nil, false
	}

	now := time.Now()

	for _, action := range workflow.Actions {
		if mod, found := modifications[action.ID]; found {
			action.ApplyModification(mod)
		}

		if action.RequiresApproval {
			action.StampApproval(approverID, now)
		}
	}

	g.logger.Info("Workflow approved",
		"workflow_id", workflowID,
		"approved_by", approverID,
		"modifications", len(modifications),
	)

	return workflow, true
}

// Remove drops a workflow from the pending registry without approving its
// actions. Used by the engine for physician rejection. It returns the
// pending record and whether the workflow was pending.
func (g *Gate) Remove(workflowID string) (*models.WorkflowExecution, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	workflow, ok := g.pending[workflowID]
	delete(g.pending, workflowID)

	return workflow, ok
}

// IsPending reports whether the workflow is awaiting approval.
func (g *Gate) IsPending(workflowID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.pending[workflowID]

	return ok
}

// Pending returns the workflows currently awaiting approval.
func (g *Gate) Pending() []*models.WorkflowExecution {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]*models.WorkflowExecution, 0, len(g.pending))
	for _, workflow := range g.pending {
		out = append(out, workflow)
	}

	return out
}

// PendingCount returns the size of the pending registry.
func (g *Gate) PendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.pending)
}

func actionsNeedingApproval(workflow *models.WorkflowExecution) []models.ApprovalAction {
	var actions []models.ApprovalAction

	for _, action := range workflow.Actions {
		if !action.RequiresApproval {
			continue
		}

		actions = append(actions, models.ApprovalAction{
			ActionID:    action.ID,
			ActionType:  action.Type,
			Description: action.Description,
			Timeline:    action.Timeline,
			Reason:      approvalReason(action),
		})
	}

	return actions
}
