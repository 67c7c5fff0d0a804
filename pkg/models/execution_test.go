package models

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowExecution_AppendAlertConcurrent(t *testing.T) {
	workflow := &WorkflowExecution{ID: "WF-1"}

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			workflow.AppendAlert(Alert{Type: "Abnormal Lab Results", Priority: PriorityHigh})
		}()
	}

	wg.Wait()

	assert.Equal(t, 50, workflow.AlertCount())
}

func TestWorkflowExecution_AlertsSnapshotIsACopy(t *testing.T) {
	workflow := &WorkflowExecution{ID: "WF-1"}
	workflow.AppendAlert(Alert{Type: "Missed Appointment", Priority: PriorityHigh})

	snapshot := workflow.AlertsSnapshot()
	require.Len(t, snapshot, 1)

	snapshot[0].Type = "mutated"

	assert.Equal(t, "Missed Appointment", workflow.AlertsSnapshot()[0].Type)
}

func TestWorkflowExecution_ActionByID(t *testing.T) {
	workflow := &WorkflowExecution{
		Actions: []*ActionExecution{
			{ID: "ACT-1", Type: ActionTypeLab},
			{ID: "ACT-2", Type: ActionTypeImaging},
		},
	}

	found := workflow.ActionByID("ACT-2")
	require.NotNil(t, found)
	assert.Equal(t, ActionTypeImaging, found.Type)

	assert.Nil(t, workflow.ActionByID("ACT-99"))
}

func TestWorkflowExecution_CompletedActions(t *testing.T) {
	workflow := &WorkflowExecution{
		Actions: []*ActionExecution{
			{ID: "ACT-1", Status: StatusCompleted},
			{ID: "ACT-2", Status: StatusFailed},
			{ID: "ACT-3", Status: StatusCompleted},
		},
	}

	assert.Equal(t, 2, workflow.CompletedActions())
}

func TestWorkflowExecution_RequiresApproval(t *testing.T) {
	tests := []struct {
		name     string
		actions  []*ActionExecution
		expected bool
	}{
		{
			name: "high priority action needs approval",
			actions: []*ActionExecution{
				{ID: "ACT-1", RequiresApproval: false},
				{ID: "ACT-2", RequiresApproval: true},
			},
			expected: true,
		},
		{
			name: "no approval needed",
			actions: []*ActionExecution{
				{ID: "ACT-1", RequiresApproval: false},
			},
			expected: false,
		},
		{
			name:     "empty workflow",
			actions:  nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := &WorkflowExecution{Actions: tt.actions}

			assert.Equal(t, tt.expected, workflow.RequiresApproval())
		})
	}
}

func TestWorkflowExecution_TerminalTransitions(t *testing.T) {
	now := time.Now()

	completed := &WorkflowExecution{Status: StatusInProgress}
	completed.MarkCompleted(now)

	assert.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, now, *completed.CompletedAt)
	assert.True(t, completed.Terminal())

	failed := &WorkflowExecution{Status: StatusRequiresApproval}
	failed.MarkFailed(now)

	assert.Equal(t, StatusFailed, failed.Status)
	assert.True(t, failed.Terminal())

	inProgress := &WorkflowExecution{Status: StatusInProgress}
	assert.False(t, inProgress.Terminal())
}

func TestWorkflowExecution_Snapshot(t *testing.T) {
	workflow := &WorkflowExecution{
		ID:          "WF-1",
		PatientID:   "PAT-1",
		PatientName: "Sarah Chen",
		Status:      StatusCompleted,
		Actions:     []*ActionExecution{{ID: "ACT-1", Status: StatusCompleted}},
	}
	workflow.AppendAlert(Alert{Type: "Imaging Results Available", Priority: PriorityLow})

	snapshot := workflow.Snapshot()

	assert.Equal(t, workflow.ID, snapshot.ID)
	assert.Equal(t, workflow.Status, snapshot.Status)
	require.Len(t, snapshot.Alerts, 1)

	// Alerts appended after the snapshot must not show up in it.
	workflow.AppendAlert(Alert{Type: "Missed Appointment", Priority: PriorityHigh})

	assert.Len(t, snapshot.Alerts, 1)
	assert.Equal(t, 2, workflow.AlertCount())
}

func TestWorkflowExecution_SnapshotCopiesActionRecords(t *testing.T) {
	action := &ActionExecution{
		ID:     "ACT-1",
		Type:   ActionTypeLab,
		Status: StatusCompleted,
		Result: map[string]any{"order_id": "LAB-1"},
	}
	workflow := &WorkflowExecution{ID: "WF-1", Actions: []*ActionExecution{action}}

	snapshot := workflow.Snapshot()

	require.Len(t, snapshot.Actions, 1)
	assert.NotSame(t, action, snapshot.Actions[0])
	assert.Equal(t, "LAB-1", snapshot.Actions[0].Result["order_id"])

	// Results stored after the snapshot must not show up in it.
	action.StoreResult("picked_up", true)

	assert.NotContains(t, snapshot.Actions[0].Result, "picked_up")
}

func TestWorkflowExecution_SnapshotMarshalsWhileResultsAreStored(t *testing.T) {
	action := &ActionExecution{
		ID:     "ACT-1",
		Type:   ActionTypeLab,
		Status: StatusCompleted,
		Result: map[string]any{"order_id": "LAB-1"},
	}
	workflow := &WorkflowExecution{ID: "WF-1", Actions: []*ActionExecution{action}}

	done := make(chan struct{})

	go func() {
		defer close(done)

		for i := 0; i < 500; i++ {
			action.StoreResult("lab_results", i)
			action.StoreResult("results_received_at", time.Now().Format(time.RFC3339))
		}
	}()

	for i := 0; i < 500; i++ {
		_, err := json.Marshal(workflow.Snapshot())
		require.NoError(t, err)
	}

	<-done

	assert.Equal(t, 499, action.Result["lab_results"])
}

func TestActionExecution_LifecycleMutators(t *testing.T) {
	now := time.Now()

	action := &ActionExecution{ID: "ACT-1", Type: ActionTypeMedication, Status: StatusPending}
	action.Complete(now, map[string]any{"prescription_id": "RX-1"})

	assert.Equal(t, StatusCompleted, action.Status)
	require.NotNil(t, action.ExecutedAt)
	assert.Equal(t, "RX-1", action.ResultString("prescription_id"))

	action.Fail(now, "pharmacy unreachable")

	assert.Equal(t, StatusFailed, action.CurrentStatus())
	assert.Equal(t, "pharmacy unreachable", action.Error)

	action.Reset()

	assert.Equal(t, StatusPending, action.Status)
	assert.Empty(t, action.Error)
	assert.Nil(t, action.Result)
}
