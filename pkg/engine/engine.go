// Package engine orchestrates the clinical workflow lifecycle: building
// execution records from a plan, gating on physician approval, dispatching
// actions to the executor and handing completed actions to the monitoring
// supervisor.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/approval"
	"github.com/darinjswilliams/kindrahealth/pkg/eventbus"
	"github.com/darinjswilliams/kindrahealth/pkg/events"
	"github.com/darinjswilliams/kindrahealth/pkg/executor"
	"github.com/darinjswilliams/kindrahealth/pkg/models"
	"github.com/darinjswilliams/kindrahealth/pkg/monitor"
	"github.com/darinjswilliams/kindrahealth/pkg/notify"
	"github.com/darinjswilliams/kindrahealth/pkg/otelhelper"
	"github.com/darinjswilliams/kindrahealth/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	// ErrEmptyPlan is returned when a plan carries no actions.
	ErrEmptyPlan = errors.New("plan has no actions")
	// ErrNotPendingApproval is returned when an approval decision targets a
	// workflow that is not awaiting approval.
	ErrNotPendingApproval = errors.New("workflow is not pending approval")
	// ErrActionNotFound is returned when a retry targets an unknown action.
	ErrActionNotFound = errors.New("action not found")
	// ErrActionNotFailed is returned when a retry targets an action that
	// did not fail.
	ErrActionNotFailed = errors.New("action is not in failed state")
)

// Engine composes the executor, the approval gate and the monitoring
// supervisor into the end-to-end workflow lifecycle. All collaborators are
// injected; the workflow registry is the single source of truth for known
// workflows.
type Engine struct {
	repo       persistence.WorkflowRepository
	executor   *executor.Executor
	gate       *approval.Gate
	supervisor *monitor.Supervisor
	eventBus   eventbus.EventPublisher
	notifier   notify.Notifier
	tracer     trace.Tracer
	logger     *slog.Logger
}

func NewEngine(
	repo persistence.WorkflowRepository,
	actionExecutor *executor.Executor,
	gate *approval.Gate,
	supervisor *monitor.Supervisor,
	eventBus eventbus.EventPublisher,
	notifier notify.Notifier,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Engine {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("engine")
	}

	return &Engine{
		repo:       repo,
		executor:   actionExecutor,
		gate:       gate,
		supervisor: supervisor,
		eventBus:   eventBus,
		notifier:   notifier,
		tracer:     tracer,
		logger:     logger.With("module", "execution_engine"),
	}
}

// ExecuteWorkflow builds a workflow execution from the plan and drives it as
// far as it can go in one call: to REQUIRES_APPROVAL when any action needs
// physician sign-off and autoApprove is false, otherwise through execution,
// patient notification and monitoring to COMPLETED.
func (e *Engine) ExecuteWorkflow(ctx context.Context, plan *models.Plan, autoApprove bool) (*models.WorkflowExecution, error) {
	if len(plan.Actions) == 0 {
		return nil, ErrEmptyPlan
	}

	workflow := buildWorkflow(plan)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.PatientIDKey, workflow.PatientID),
	)
	defer span.End()

	logger := e.logger.With("workflow_id", workflow.ID, "patient_id", workflow.PatientID)
	logger.InfoContext(ctx, "Starting workflow execution", "actions", len(workflow.Actions))

	if err := e.repo.Save(ctx, workflow); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to register workflow %s: %w", workflow.ID, err)
	}

	e.publish(ctx, workflow.ID, events.ExecutionStarted{
		BaseEvent:      events.NewBaseEvent(events.ExecutionStartedEvent, workflow.ID, workflow.PatientID),
		ConsultationID: workflow.ConsultationID,
		TotalActions:   len(workflow.Actions),
	})

	if workflow.RequiresApproval() && !autoApprove {
		request, err := e.gate.RequestApproval(workflow, plan.Diagnoses)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, fmt.Errorf("failed to request approval for workflow %s: %w", workflow.ID, err)
		}

		if err := e.repo.Save(ctx, workflow); err != nil {
			logger.ErrorContext(ctx, "Failed to flush workflow after approval request", "error", err)
		}

		e.publish(ctx, workflow.ID, events.ExecutionRequiresApproval{
			BaseEvent:               events.NewBaseEvent(events.ExecutionRequiresApprovalEvent, workflow.ID, workflow.PatientID),
			ActionsAwaitingApproval: len(request.Actions),
			Priority:                request.Priority,
		})

		logger.InfoContext(ctx, "Workflow paused for approval", "priority", request.Priority)

		return workflow, nil
	}

	e.runToCompletion(ctx, workflow)

	return workflow, nil
}

// ResumeAfterApproval applies a physician's approval and executes the
// actions the gate was holding back, then proceeds exactly as the tail of
// ExecuteWorkflow.
func (e *Engine) ResumeAfterApproval(
	ctx context.Context,
	workflowID, approverID string,
	modifications map[string]models.ActionModification,
) (*models.WorkflowExecution, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.resume_after_approval",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.ApproverIDKey, approverID),
	)
	defer span.End()

	workflow, ok := e.gate.Approve(workflowID, approverID, modifications)
	if !ok {
		e.logger.WarnContext(ctx, "Cannot approve workflow: not pending", "workflow_id", workflowID)
		otelhelper.SetError(span, ErrNotPendingApproval)

		return nil, ErrNotPendingApproval
	}

	workflow.SetStatus(models.StatusInProgress)

	e.publish(ctx, workflow.ID, events.ApprovalGranted{
		BaseEvent:       events.NewBaseEvent(events.ApprovalGrantedEvent, workflow.ID, workflow.PatientID),
		ApprovedBy:      approverID,
		ActionsApproved: len(workflow.Actions),
	})

	e.logger.InfoContext(ctx, "Resuming workflow after approval",
		"workflow_id", workflow.ID, "approved_by", approverID)

	e.runToCompletion(ctx, workflow)

	return workflow, nil
}

// RejectWorkflow records a physician's rejection of a pending workflow: the
// workflow fails terminally with an alert carrying the rejection reason. A
// workflow already past the gate cannot be rejected.
func (e *Engine) RejectWorkflow(ctx context.Context, workflowID, rejectedBy, reason string) (*models.WorkflowExecution, error) {
	workflow, ok := e.gate.Remove(workflowID)
	if !ok {
		e.logger.WarnContext(ctx, "Cannot reject workflow: not pending", "workflow_id", workflowID)

		return nil, ErrNotPendingApproval
	}

	workflow.MarkFailed(time.Now())
	workflow.AppendAlert(models.Alert{
		Type:      "Workflow Rejected",
		Message:   fmt.Sprintf("Workflow rejected by %s: %s", rejectedBy, reason),
		Priority:  models.PriorityMedium,
		Timestamp: time.Now(),
	})

	if err := e.repo.Save(ctx, workflow); err != nil {
		e.logger.ErrorContext(ctx, "Failed to flush rejected workflow", "error", err)
	}

	e.publish(ctx, workflow.ID, events.ApprovalRejected{
		BaseEvent:  events.NewBaseEvent(events.ApprovalRejectedEvent, workflow.ID, workflow.PatientID),
		RejectedBy: rejectedBy,
		Reason:     reason,
	})
	e.publish(ctx, workflow.ID, events.ExecutionFailed{
		BaseEvent: events.NewBaseEvent(events.ExecutionFailedEvent, workflow.ID, workflow.PatientID),
		Reason:    reason,
	})

	e.logger.InfoContext(ctx, "Workflow rejected", "workflow_id", workflow.ID, "rejected_by", rejectedBy)

	return workflow, nil
}

// RetryAction resets a failed action and runs it through the executor
// again. Sibling actions are untouched.
func (e *Engine) RetryAction(ctx context.Context, workflowID, actionID string) (*models.ActionExecution, error) {
	workflow, err := e.repo.ByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	action := workflow.ActionByID(actionID)
	if action == nil {
		return nil, ErrActionNotFound
	}

	if action.Status != models.StatusFailed {
		return nil, ErrActionNotFailed
	}

	action.Reset()

	e.logger.InfoContext(ctx, "Retrying action", "workflow_id", workflowID, "action_id", actionID)

	e.executor.Execute(ctx, action)

	if err := e.repo.Save(ctx, workflow); err != nil {
		e.logger.ErrorContext(ctx, "Failed to flush workflow after retry", "error", err)
	}

	return action, nil
}

// runToCompletion executes every still-pending action in plan order,
// notifies the patient, starts monitoring and stamps the workflow
// completed. Individual action failures never abort the workflow;
// "completed with failed sub-actions" is a valid terminal state.
func (e *Engine) runToCompletion(ctx context.Context, workflow *models.WorkflowExecution) {
	logger := e.logger.With("workflow_id", workflow.ID)

	for _, action := range workflow.Actions {
		if action.Status != models.StatusPending {
			continue
		}

		e.executeAction(ctx, workflow, action)

		if action.Status == models.StatusFailed {
			logger.WarnContext(ctx, "Action failed, continuing with remaining actions",
				"action_id", action.ID, "error", action.Error)
		}
	}

	e.notifyPatient(ctx, workflow)

	// Monitoring outlives the request that started the workflow. Detach the
	// routines from the caller's context (request contexts are pooled and
	// cancelled on return) so only the duration cap ends them.
	monitored := e.supervisor.Watch(context.WithoutCancel(ctx), workflow)
	e.publish(ctx, workflow.ID, events.MonitoringStarted{
		BaseEvent:        events.NewBaseEvent(events.MonitoringStartedEvent, workflow.ID, workflow.PatientID),
		ActionsMonitored: monitored,
	})

	workflow.MarkCompleted(time.Now())

	if err := e.repo.Save(ctx, workflow); err != nil {
		logger.ErrorContext(ctx, "Failed to flush completed workflow", "error", err)
	}

	completed := workflow.CompletedActions()

	e.publish(ctx, workflow.ID, events.ExecutionCompleted{
		BaseEvent:        events.NewBaseEvent(events.ExecutionCompletedEvent, workflow.ID, workflow.PatientID),
		ActionsCompleted: completed,
		ActionsFailed:    len(workflow.Actions) - completed,
		Duration:         workflow.CompletedAt.Sub(workflow.StartedAt),
	})

	logger.InfoContext(ctx, "Workflow completed",
		"actions_completed", completed,
		"actions_total", len(workflow.Actions),
		"monitoring_routines", monitored,
	)
}

func (e *Engine) executeAction(ctx context.Context, workflow *models.WorkflowExecution, action *models.ActionExecution) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "action.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.ActionIDKey, action.ID),
		attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
	)
	defer span.End()

	e.executor.Execute(ctx, action)

	if action.Status == models.StatusFailed {
		otelhelper.SetError(span, errors.New(action.Error))
	}
}

// notifyPatient delivers the outcome summary once per completed workflow.
// Failure is logged and never blocks monitoring.
func (e *Engine) notifyPatient(ctx context.Context, workflow *models.WorkflowExecution) {
	if e.notifier == nil {
		return
	}

	if err := e.notifier.DeliverOutcome(ctx, workflow); err != nil {
		e.logger.ErrorContext(ctx, "Failed to deliver patient notification",
			"workflow_id", workflow.ID, "error", err)

		return
	}

	workflow.MarkNotified()

	e.publish(ctx, workflow.ID, events.PatientNotified{
		BaseEvent: events.NewBaseEvent(events.PatientNotifiedEvent, workflow.ID, workflow.PatientID),
		Channel:   "queue",
	})
}

// publish is best-effort: event delivery failures are logged, never
// surfaced to the caller.
func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

func buildWorkflow(plan *models.Plan) *models.WorkflowExecution {
	workflowID := "WF-" + uuid.New().String()[:8]

	workflow := &models.WorkflowExecution{
		ID:             workflowID,
		PatientID:      plan.PatientID,
		PatientName:    plan.PatientName,
		ConsultationID: "CONS-" + uuid.New().String()[:8],
		Status:         models.StatusInProgress,
		StartedAt:      time.Now(),
	}

	if plan.ChiefComplaint != "" || len(plan.Diagnoses) > 0 {
		workflow.ClinicalSummaryID = "CS-" + uuid.New().String()[:8]
	}

	for idx, step := range plan.Actions {
		workflow.Actions = append(workflow.Actions, &models.ActionExecution{
			ID:               fmt.Sprintf("ACT-%s-%d", workflowID, idx),
			Type:             step.ActionType,
			Description:      step.Description,
			Priority:         step.Priority,
			Timeline:         step.Timeline,
			Status:           models.StatusPending,
			RequiresApproval: step.Priority == "high",
		})
	}

	return workflow
}
