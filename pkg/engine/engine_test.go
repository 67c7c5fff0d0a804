package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/approval"
	"github.com/darinjswilliams/kindrahealth/pkg/executor"
	"github.com/darinjswilliams/kindrahealth/pkg/log"
	"github.com/darinjswilliams/kindrahealth/pkg/mocks"
	"github.com/darinjswilliams/kindrahealth/pkg/models"
	"github.com/darinjswilliams/kindrahealth/pkg/monitor"
	"github.com/darinjswilliams/kindrahealth/pkg/notify"
	"github.com/darinjswilliams/kindrahealth/pkg/persistence/memory"
	"github.com/darinjswilliams/kindrahealth/pkg/providers"
	"github.com/darinjswilliams/kindrahealth/pkg/providers/simulated"
	"github.com/darinjswilliams/kindrahealth/pkg/testutil"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testHarness struct {
	engine     *Engine
	repo       *memory.Repository
	gate       *approval.Gate
	supervisor *monitor.Supervisor
	set        *providers.Set
}

func newTestHarness(notifier notify.Notifier) *testHarness {
	logger := log.WithModule("test")
	repo := memory.NewRepository()
	gate := approval.NewGate(logger)
	set := simulated.NewSet()
	supervisor := monitor.NewSupervisor(set, clockwork.NewFakeClock(), monitor.DefaultConfig(), nil, logger)

	workflowEngine := NewEngine(
		repo,
		executor.NewExecutor(set, logger),
		gate,
		supervisor,
		nil,
		notifier,
		nil,
		logger,
	)

	return &testHarness{
		engine:     workflowEngine,
		repo:       repo,
		gate:       gate,
		supervisor: supervisor,
		set:        set,
	}
}

func routinePlan() *models.Plan {
	return testutil.CreateTestPlan(testutil.WithActions(
		testutil.PlanAction(models.ActionTypeLab, "medium"),
		testutil.PlanAction(models.ActionTypeMedication, "low"),
	))
}

func highPriorityPlan() *models.Plan {
	return testutil.CreateTestPlan(testutil.WithActions(
		testutil.PlanAction(models.ActionTypeMedication, "high"),
		testutil.PlanAction(models.ActionTypeLab, "medium"),
	))
}

func TestEngine_ExecuteWorkflowRoutinePlan(t *testing.T) {
	h := newTestHarness(notify.Noop{})

	workflow, err := h.engine.ExecuteWorkflow(context.Background(), routinePlan(), false)
	require.NoError(t, err)

	h.supervisor.Wait()

	assert.Equal(t, models.StatusCompleted, workflow.Status)
	require.NotNil(t, workflow.CompletedAt)
	assert.Equal(t, 2, workflow.CompletedActions())
	assert.True(t, workflow.PatientNotified)
	assert.Equal(t, 0, h.gate.PendingCount())

	for _, action := range workflow.Actions {
		assert.Equal(t, models.StatusCompleted, action.Status)
		assert.NotNil(t, action.ExecutedAt)
		assert.NotEmpty(t, action.Result)
		assert.False(t, action.RequiresApproval)
	}

	stored, err := h.repo.ByID(context.Background(), workflow.ID)
	require.NoError(t, err)
	assert.Same(t, workflow, stored)
}

func TestEngine_MonitoringOutlivesRequestContext(t *testing.T) {
	logger := log.WithModule("test")
	repo := memory.NewRepository()
	gate := approval.NewGate(logger)

	set := simulated.NewSet()
	lab := &simulated.Lab{} // results never arrive
	set.Lab = lab

	clock := clockwork.NewFakeClock()
	config := monitor.DefaultConfig()
	config.LabPollInterval = 5 * time.Minute
	config.LabTimeout = 5 * time.Minute

	supervisor := monitor.NewSupervisor(set, clock, config, nil, logger)

	workflowEngine := NewEngine(
		repo,
		executor.NewExecutor(set, logger),
		gate,
		supervisor,
		nil,
		notify.Noop{},
		nil,
		logger,
	)

	plan := testutil.CreateTestPlan(testutil.WithActions(
		testutil.PlanAction(models.ActionTypeLab, "medium"),
	))

	ctx, cancel := context.WithCancel(context.Background())

	workflow, err := workflowEngine.ExecuteWorkflow(ctx, plan, false)
	require.NoError(t, err)

	// One poll timer plus the duration cap timer.
	clock.BlockUntil(2)

	// The request that started the workflow ends here; the routines keep
	// polling until their own timeout.
	cancel()

	clock.Advance(6 * time.Minute)
	supervisor.Wait()

	alerts := workflow.AlertsSnapshot()
	require.Len(t, alerts, 1)
	assert.Equal(t, "Lab Results Delayed", alerts[0].Type)
}

func TestEngine_ExecuteWorkflowEmptyPlan(t *testing.T) {
	h := newTestHarness(notify.Noop{})

	plan := testutil.CreateTestPlan()
	plan.Actions = nil

	_, err := h.engine.ExecuteWorkflow(context.Background(), plan, false)
	assert.ErrorIs(t, err, ErrEmptyPlan)
}

func TestEngine_ExecuteWorkflowPausesForApproval(t *testing.T) {
	h := newTestHarness(notify.Noop{})

	workflow, err := h.engine.ExecuteWorkflow(context.Background(), highPriorityPlan(), false)
	require.NoError(t, err)

	assert.Equal(t, models.StatusRequiresApproval, workflow.Status)
	assert.True(t, h.gate.IsPending(workflow.ID))
	assert.Nil(t, workflow.CompletedAt)
	assert.False(t, workflow.PatientNotified)

	// Nothing executes while the gate holds the workflow.
	for _, action := range workflow.Actions {
		assert.Equal(t, models.StatusPending, action.Status)
		assert.Nil(t, action.ExecutedAt)
	}

	alerts := workflow.AlertsSnapshot()
	require.Len(t, alerts, 1)
	assert.Equal(t, "Approval Required", alerts[0].Type)

	// The high-priority medication is flagged, the routine lab is not.
	assert.True(t, workflow.Actions[0].RequiresApproval)
	assert.False(t, workflow.Actions[1].RequiresApproval)
}

func TestEngine_ExecuteWorkflowAutoApprove(t *testing.T) {
	h := newTestHarness(notify.Noop{})

	workflow, err := h.engine.ExecuteWorkflow(context.Background(), highPriorityPlan(), true)
	require.NoError(t, err)

	h.supervisor.Wait()

	assert.Equal(t, models.StatusCompleted, workflow.Status)
	assert.Equal(t, 0, h.gate.PendingCount())
	assert.Equal(t, 2, workflow.CompletedActions())
}

func TestEngine_ResumeAfterApproval(t *testing.T) {
	h := newTestHarness(notify.Noop{})
	ctx := context.Background()

	paused, err := h.engine.ExecuteWorkflow(ctx, highPriorityPlan(), false)
	require.NoError(t, err)

	resumed, err := h.engine.ResumeAfterApproval(ctx, paused.ID, "DR-SMITH", nil)
	require.NoError(t, err)

	h.supervisor.Wait()

	assert.Same(t, paused, resumed)
	assert.Equal(t, models.StatusCompleted, resumed.Status)
	assert.Equal(t, 2, resumed.CompletedActions())
	assert.True(t, resumed.PatientNotified)
	assert.False(t, h.gate.IsPending(paused.ID))

	approved := resumed.Actions[0]
	assert.Equal(t, "DR-SMITH", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
}

func TestEngine_ResumeAfterApprovalWithModifications(t *testing.T) {
	h := newTestHarness(notify.Noop{})
	ctx := context.Background()

	paused, err := h.engine.ExecuteWorkflow(ctx, highPriorityPlan(), false)
	require.NoError(t, err)

	actionID := paused.Actions[0].ID

	resumed, err := h.engine.ResumeAfterApproval(ctx, paused.ID, "DR-SMITH", map[string]models.ActionModification{
		actionID: {Description: "Reduced dose: Warfarin 2.5mg daily"},
	})
	require.NoError(t, err)

	h.supervisor.Wait()

	assert.Equal(t, "Reduced dose: Warfarin 2.5mg daily", resumed.ActionByID(actionID).Description)
	assert.Equal(t, models.StatusCompleted, resumed.Status)
}

func TestEngine_ResumeAfterApprovalNotPending(t *testing.T) {
	h := newTestHarness(notify.Noop{})

	_, err := h.engine.ResumeAfterApproval(context.Background(), "WF-404", "DR-SMITH", nil)
	assert.ErrorIs(t, err, ErrNotPendingApproval)
}

func TestEngine_RejectWorkflow(t *testing.T) {
	h := newTestHarness(notify.Noop{})
	ctx := context.Background()

	paused, err := h.engine.ExecuteWorkflow(ctx, highPriorityPlan(), false)
	require.NoError(t, err)

	rejected, err := h.engine.RejectWorkflow(ctx, paused.ID, "DR-SMITH", "Contraindicated with current anticoagulant")
	require.NoError(t, err)

	assert.Same(t, paused, rejected)
	assert.Equal(t, models.StatusFailed, rejected.Status)
	require.NotNil(t, rejected.CompletedAt)
	assert.False(t, h.gate.IsPending(paused.ID))

	// Held actions never execute after rejection.
	for _, action := range rejected.Actions {
		assert.Equal(t, models.StatusPending, action.Status)
	}

	alerts := rejected.AlertsSnapshot()
	require.Len(t, alerts, 2)
	assert.Equal(t, "Workflow Rejected", alerts[1].Type)
	assert.Contains(t, alerts[1].Message, "Contraindicated")
}

func TestEngine_RejectWorkflowNotPending(t *testing.T) {
	h := newTestHarness(notify.Noop{})

	_, err := h.engine.RejectWorkflow(context.Background(), "WF-404", "DR-SMITH", "reason")
	assert.ErrorIs(t, err, ErrNotPendingApproval)
}

func TestEngine_ActionFailureDoesNotAbortWorkflow(t *testing.T) {
	h := newTestHarness(notify.Noop{})

	h.set.Lab = &simulated.Lab{Err: errors.New("lab system unreachable")}

	workflow, err := h.engine.ExecuteWorkflow(context.Background(), routinePlan(), false)
	require.NoError(t, err)

	h.supervisor.Wait()

	assert.Equal(t, models.StatusCompleted, workflow.Status)
	assert.Equal(t, 1, workflow.CompletedActions())

	failed := workflow.Actions[0]
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Equal(t, "lab system unreachable", failed.Error)

	assert.Equal(t, models.StatusCompleted, workflow.Actions[1].Status)
}

func TestEngine_RetryAction(t *testing.T) {
	h := newTestHarness(notify.Noop{})
	ctx := context.Background()

	h.set.Lab = &simulated.Lab{Err: errors.New("lab system unreachable")}

	workflow, err := h.engine.ExecuteWorkflow(ctx, routinePlan(), false)
	require.NoError(t, err)

	h.supervisor.Wait()

	failedID := workflow.Actions[0].ID
	require.Equal(t, models.StatusFailed, workflow.Actions[0].Status)

	// Lab system comes back.
	h.set.Lab = &simulated.Lab{Results: &providers.LabResults{Status: "completed"}}

	action, err := h.engine.RetryAction(ctx, workflow.ID, failedID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, action.Status)
	assert.Empty(t, action.Error)
	assert.NotEmpty(t, action.Result)
	assert.Equal(t, 2, workflow.CompletedActions())
}

func TestEngine_RetryActionErrors(t *testing.T) {
	h := newTestHarness(notify.Noop{})
	ctx := context.Background()

	workflow, err := h.engine.ExecuteWorkflow(ctx, routinePlan(), false)
	require.NoError(t, err)

	h.supervisor.Wait()

	t.Run("unknown workflow", func(t *testing.T) {
		_, err := h.engine.RetryAction(ctx, "WF-404", "ACT-1")
		assert.Error(t, err)
	})

	t.Run("unknown action", func(t *testing.T) {
		_, err := h.engine.RetryAction(ctx, workflow.ID, "ACT-404")
		assert.ErrorIs(t, err, ErrActionNotFound)
	})

	t.Run("action not failed", func(t *testing.T) {
		_, err := h.engine.RetryAction(ctx, workflow.ID, workflow.Actions[0].ID)
		assert.ErrorIs(t, err, ErrActionNotFailed)
	})
}

func TestEngine_NotificationFailureDoesNotBlockCompletion(t *testing.T) {
	notifier := &mocks.MockNotifier{}
	notifier.On("DeliverOutcome", mock.Anything, mock.Anything).Return(errors.New("queue unavailable"))

	h := newTestHarness(notifier)

	workflow, err := h.engine.ExecuteWorkflow(context.Background(), routinePlan(), false)
	require.NoError(t, err)

	h.supervisor.Wait()

	assert.Equal(t, models.StatusCompleted, workflow.Status)
	assert.False(t, workflow.PatientNotified)
	notifier.AssertCalled(t, "DeliverOutcome", mock.Anything, workflow)
}

func TestEngine_EventsArePublishedBestEffort(t *testing.T) {
	eventBus := &mocks.MockEventBus{}
	eventBus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	logger := log.WithModule("test")
	repo := memory.NewRepository()
	set := simulated.NewSet()
	supervisor := monitor.NewSupervisor(set, clockwork.NewFakeClock(), monitor.DefaultConfig(), nil, logger)

	workflowEngine := NewEngine(
		repo,
		executor.NewExecutor(set, logger),
		approval.NewGate(logger),
		supervisor,
		eventBus,
		notify.Noop{},
		nil,
		logger,
	)

	workflow, err := workflowEngine.ExecuteWorkflow(context.Background(), routinePlan(), false)
	require.NoError(t, err)

	supervisor.Wait()

	// Publish failures never affect the execution outcome.
	assert.Equal(t, models.StatusCompleted, workflow.Status)
	eventBus.AssertCalled(t, "Publish", mock.Anything, workflow.ID, mock.Anything)
}

func TestEngine_Dashboard(t *testing.T) {
	h := newTestHarness(notify.Noop{})
	ctx := context.Background()

	completed, err := h.engine.ExecuteWorkflow(ctx, routinePlan(), false)
	require.NoError(t, err)

	paused, err := h.engine.ExecuteWorkflow(ctx, highPriorityPlan(), false)
	require.NoError(t, err)

	h.supervisor.Wait()

	completed.AppendAlert(models.Alert{
		Type:     "Missed Appointment",
		Priority: models.PriorityHigh,
	})

	dashboard, err := h.engine.Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, dashboard.ActiveWorkflows)
	assert.Equal(t, 1, dashboard.PendingApprovals)
	assert.Equal(t, 2, dashboard.TotalAlerts)
	assert.Equal(t, 1, dashboard.HighPriorityAlerts)

	require.Len(t, dashboard.Workflows, 1)
	assert.Equal(t, paused.ID, dashboard.Workflows[0].WorkflowID)
	assert.Equal(t, models.StatusRequiresApproval, dashboard.Workflows[0].Status)

	require.Len(t, dashboard.AwaitingApproval, 1)
	assert.Equal(t, paused.ID, dashboard.AwaitingApproval[0].WorkflowID)

	require.Len(t, dashboard.RecentAlerts, 2)

	// Building the dashboard twice must not change any workflow state.
	again, err := h.engine.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, dashboard.TotalAlerts, again.TotalAlerts)
	assert.Equal(t, dashboard.ActiveWorkflows, again.ActiveWorkflows)
}

func TestEngine_RecentAlertsCappedAtTen(t *testing.T) {
	h := newTestHarness(notify.Noop{})
	ctx := context.Background()

	workflow, err := h.engine.ExecuteWorkflow(ctx, routinePlan(), false)
	require.NoError(t, err)

	h.supervisor.Wait()

	for i := 0; i < 15; i++ {
		workflow.AppendAlert(models.Alert{Type: "Referral Not Completed", Priority: models.PriorityMedium})
	}

	dashboard, err := h.engine.Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, 15, dashboard.TotalAlerts)
	assert.Len(t, dashboard.RecentAlerts, 10)
}
