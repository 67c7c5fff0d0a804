// Package events defines the event types published over the workflow
// lifecycle: execution transitions, approval decisions, monitoring alerts
// and patient notifications.
package events

import (
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
)

type EventType string

// Topic is the single event stream all workflow events are published on.
const Topic = "kindrahealth.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent          EventType = "workflow.execution.started"
	ExecutionRequiresApprovalEvent EventType = "workflow.execution.requires_approval"
	ExecutionCompletedEvent        EventType = "workflow.execution.completed"
	ExecutionFailedEvent           EventType = "workflow.execution.failed"

	ApprovalGrantedEvent  EventType = "workflow.approval.granted"
	ApprovalRejectedEvent EventType = "workflow.approval.rejected"

	AlertRaisedEvent       EventType = "workflow.alert.raised"
	PatientNotifiedEvent   EventType = "patient.notification.sent"
	MonitoringStartedEvent EventType = "workflow.monitoring.started"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
	PatientID  string    `json:"patient_id,omitempty"`
}

// NewBaseEvent builds the common envelope. The event id is filled in by the
// bus at publish time when left empty.
func NewBaseEvent(eventType EventType, workflowID, patientID string) BaseEvent {
	return BaseEvent{
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		PatientID:  patientID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	ConsultationID string `json:"consultation_id"`
	TotalActions   int    `json:"total_actions"`
}

func (e ExecutionStarted) GetType() EventType { return ExecutionStartedEvent }

type ExecutionRequiresApproval struct {
	BaseEvent

	ActionsAwaitingApproval int                  `json:"actions_awaiting_approval"`
	Priority                models.AlertPriority `json:"priority"`
}

func (e ExecutionRequiresApproval) GetType() EventType { return ExecutionRequiresApprovalEvent }

type ExecutionCompleted struct {
	BaseEvent

	ActionsCompleted int           `json:"actions_completed"`
	ActionsFailed    int           `json:"actions_failed"`
	Duration         time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType { return ExecutionCompletedEvent }

type ExecutionFailed struct {
	BaseEvent

	Reason string `json:"reason"`
}

func (e ExecutionFailed) GetType() EventType { return ExecutionFailedEvent }

type ApprovalGranted struct {
	BaseEvent

	ApprovedBy      string `json:"approved_by"`
	ActionsApproved int    `json:"actions_approved"`
}

func (e ApprovalGranted) GetType() EventType { return ApprovalGrantedEvent }

type ApprovalRejected struct {
	BaseEvent

	RejectedBy string `json:"rejected_by"`
	Reason     string `json:"reason"`
}

func (e ApprovalRejected) GetType() EventType { return ApprovalRejectedEvent }

type AlertRaised struct {
	BaseEvent

	Alert models.Alert `json:"alert"`
}

func (e AlertRaised) GetType() EventType { return AlertRaisedEvent }

type PatientNotified struct {
	BaseEvent

	Channel string `json:"channel"`
}

func (e PatientNotified) GetType() EventType { return PatientNotifiedEvent }

type MonitoringStarted struct {
	BaseEvent

	ActionsMonitored int `json:"actions_monitored"`
}

func (e MonitoringStarted) GetType() EventType { return MonitoringStartedEvent }
