package approval

import (
	"testing"
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/log"
	"github.com/darinjswilliams/kindrahealth/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingWorkflow() *models.WorkflowExecution {
	return &models.WorkflowExecution{
		ID:          "WF-1",
		PatientID:   "PAT-1",
		PatientName: "Sarah Chen",
		Status:      models.StatusInProgress,
		StartedAt:   time.Now(),
		Actions: []*models.ActionExecution{
			{
				ID:               "ACT-WF-1-0",
				Type:             models.ActionTypeMedication,
				Description:      "Warfarin 5mg daily",
				Priority:         "high",
				Status:           models.StatusPending,
				RequiresApproval: true,
			},
			{
				ID:          "ACT-WF-1-1",
				Type:        models.ActionTypeLab,
				Description: "INR baseline",
				Priority:    "medium",
				Status:      models.StatusPending,
			},
		},
	}
}

func TestGate_RequestApproval(t *testing.T) {
	gate := NewGate(log.WithModule("test"))
	workflow := pendingWorkflow()

	request, err := gate.RequestApproval(workflow, []string{"Atrial fibrillation"})
	require.NoError(t, err)

	assert.Equal(t, "WF-1", request.WorkflowID)
	assert.Equal(t, 2, request.TotalActions)
	require.Len(t, request.Actions, 1)
	assert.Equal(t, "ACT-WF-1-0", request.Actions[0].ActionID)
	assert.Equal(t, "High-dose or controlled substance", request.Actions[0].Reason)

	assert.Equal(t, models.StatusRequiresApproval, workflow.Status)
	assert.True(t, gate.IsPending("WF-1"))
	assert.Equal(t, 1, gate.PendingCount())

	alerts := workflow.AlertsSnapshot()
	require.Len(t, alerts, 1)
	assert.Equal(t, "Approval Required", alerts[0].Type)
	assert.Equal(t, "1 action requires physician approval", alerts[0].Message)
}

func TestGate_RequestApprovalRejections(t *testing.T) {
	gate := NewGate(log.WithModule("test"))

	t.Run("already pending", func(t *testing.T) {
		workflow := pendingWorkflow()

		_, err := gate.RequestApproval(workflow, nil)
		require.NoError(t, err)

		_, err = gate.RequestApproval(workflow, nil)
		assert.ErrorIs(t, err, ErrAlreadyPending)
	})

	t.Run("terminal workflow", func(t *testing.T) {
		workflow := pendingWorkflow()
		workflow.ID = "WF-2"
		workflow.MarkCompleted(time.Now())

		_, err := gate.RequestApproval(workflow, nil)
		assert.ErrorIs(t, err, ErrWorkflowCompleted)
	})

	t.Run("no approval needed", func(t *testing.T) {
		workflow := pendingWorkflow()
		workflow.ID = "WF-3"
		workflow.Actions[0].RequiresApproval = false

		_, err := gate.RequestApproval(workflow, nil)
		assert.ErrorIs(t, err, ErrNoApprovalNeeded)

		// A rejected request leaves no trace on the workflow.
		assert.Equal(t, models.StatusInProgress, workflow.Status)
		assert.Equal(t, 0, workflow.AlertCount())
	})
}

func TestGate_Approve(t *testing.T) {
	gate := NewGate(log.WithModule("test"))
	workflow := pendingWorkflow()

	_, err := gate.RequestApproval(workflow, nil)
	require.NoError(t, err)

	approved, ok := gate.Approve("WF-1", "DR-SMITH", map[string]models.ActionModification{
		"ACT-WF-1-0": {Description: "Warfarin 2.5mg daily", Priority: "medium"},
	})
	require.True(t, ok)
	assert.Same(t, workflow, approved)
	assert.False(t, gate.IsPending("WF-1"))

	modified := workflow.ActionByID("ACT-WF-1-0")
	assert.Equal(t, "Warfarin 2.5mg daily", modified.Description)
	assert.Equal(t, "medium", modified.Priority)
	assert.Equal(t, "DR-SMITH", modified.ApprovedBy)
	require.NotNil(t, modified.ApprovedAt)

	// Actions that never needed approval are not stamped.
	untouched := workflow.ActionByID("ACT-WF-1-1")
	assert.Empty(t, untouched.ApprovedBy)
	assert.Nil(t, untouched.ApprovedAt)
}

func TestGate_ApproveUnknownWorkflow(t *testing.T) {
	gate := NewGate(log.WithModule("test"))

	workflow, ok := gate.Approve("WF-404", "DR-SMITH", nil)
	assert.False(t, ok)
	assert.Nil(t, workflow)
}

func TestGate_ApproveIsIdempotentlyRefused(t *testing.T) {
	gate := NewGate(log.WithModule("test"))
	workflow := pendingWorkflow()

	_, err := gate.RequestApproval(workflow, nil)
	require.NoError(t, err)

	_, ok := gate.Approve("WF-1", "DR-SMITH", nil)
	require.True(t, ok)

	_, ok = gate.Approve("WF-1", "DR-JONES", nil)
	assert.False(t, ok)

	assert.Equal(t, "DR-SMITH", workflow.ActionByID("ACT-WF-1-0").ApprovedBy)
}

func TestGate_Remove(t *testing.T) {
	gate := NewGate(log.WithModule("test"))
	workflow := pendingWorkflow()

	_, err := gate.RequestApproval(workflow, nil)
	require.NoError(t, err)

	removed, ok := gate.Remove("WF-1")
	require.True(t, ok)
	assert.Same(t, workflow, removed)
	assert.Equal(t, 0, gate.PendingCount())

	// Removal does not stamp approval on anything.
	assert.Empty(t, workflow.ActionByID("ACT-WF-1-0").ApprovedBy)

	_, ok = gate.Remove("WF-1")
	assert.False(t, ok)
}

func TestGate_Pending(t *testing.T) {
	gate := NewGate(log.WithModule("test"))

	first := pendingWorkflow()
	second := pendingWorkflow()
	second.ID = "WF-2"

	_, err := gate.RequestApproval(first, nil)
	require.NoError(t, err)
	_, err = gate.RequestApproval(second, nil)
	require.NoError(t, err)

	pending := gate.Pending()
	assert.Len(t, pending, 2)
}
