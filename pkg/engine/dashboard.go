package engine

import (
	"context"
	"sort"
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
)

// Dashboard is a point-in-time, read-only view of every known workflow.
// Building it never mutates workflow state.
type Dashboard struct {
	ActiveWorkflows    int               `json:"active_workflows"`
	PendingApprovals   int               `json:"pending_approvals"`
	TotalAlerts        int               `json:"total_alerts"`
	HighPriorityAlerts int               `json:"high_priority_alerts"`
	Workflows          []WorkflowSummary `json:"workflows"`
	RecentAlerts       []DashboardAlert  `json:"recent_alerts"`
	AwaitingApproval   []ApprovalSummary `json:"awaiting_approval"`
	GeneratedAt        time.Time         `json:"generated_at"`
}

type WorkflowSummary struct {
	WorkflowID       string                 `json:"workflow_id"`
	PatientName      string                 `json:"patient_name"`
	Status           models.ExecutionStatus `json:"status"`
	StartedAt        time.Time              `json:"started_at"`
	ActionsCompleted int                    `json:"actions_completed"`
	TotalActions     int                    `json:"total_actions"`
	Alerts           int                    `json:"alerts"`
}

type DashboardAlert struct {
	models.Alert

	WorkflowID  string `json:"workflow_id"`
	PatientName string `json:"patient_name"`
}

type ApprovalSummary struct {
	WorkflowID   string    `json:"workflow_id"`
	PatientName  string    `json:"patient_name"`
	TotalActions int       `json:"total_actions"`
	StartedAt    time.Time `json:"started_at"`
}

const recentAlertLimit = 10

// Dashboard aggregates the current state of all workflows: active counts,
// pending approvals, alert totals and the most recent alerts across the
// whole system, newest first.
func (e *Engine) Dashboard(ctx context.Context) (*Dashboard, error) {
	workflows, err := e.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{
		PendingApprovals: e.gate.PendingCount(),
		GeneratedAt:      time.Now(),
	}

	var alerts []DashboardAlert

	for _, workflow := range workflows {
		snapshot := workflow.AlertsSnapshot()

		dashboard.TotalAlerts += len(snapshot)

		for _, alert := range snapshot {
			if alert.Priority == models.PriorityHigh {
				dashboard.HighPriorityAlerts++
			}

			alerts = append(alerts, DashboardAlert{
				Alert:       alert,
				WorkflowID:  workflow.ID,
				PatientName: workflow.PatientName,
			})
		}

		status := workflow.CurrentStatus()
		if status == models.StatusCompleted {
			continue
		}

		dashboard.ActiveWorkflows++
		dashboard.Workflows = append(dashboard.Workflows, WorkflowSummary{
			WorkflowID:       workflow.ID,
			PatientName:      workflow.PatientName,
			Status:           status,
			StartedAt:        workflow.StartedAt,
			ActionsCompleted: workflow.CompletedActions(),
			TotalActions:     len(workflow.Actions),
			Alerts:           len(snapshot),
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})

	if len(alerts) > recentAlertLimit {
		alerts = alerts[:recentAlertLimit]
	}

	dashboard.RecentAlerts = alerts

	for _, workflow := range e.gate.Pending() {
		dashboard.AwaitingApproval = append(dashboard.AwaitingApproval, ApprovalSummary{
			WorkflowID:   workflow.ID,
			PatientName:  workflow.PatientName,
			TotalActions: len(workflow.Actions),
			StartedAt:    workflow.StartedAt,
		})
	}

	return dashboard, nil
}
