// Package monitor supervises completed clinical actions after execution:
// each monitorable action gets its own long-lived routine polling the
// external system for real-world resolution (results, attendance, pickup,
// specialist scheduling) and raising physician alerts on abnormal or
// delayed outcomes.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/eventbus"
	"github.com/darinjswilliams/kindrahealth/pkg/events"
	"github.com/darinjswilliams/kindrahealth/pkg/models"
	"github.com/darinjswilliams/kindrahealth/pkg/providers"
	"github.com/jonboulle/clockwork"
)

// Config holds the per-action-type polling policy and the outer monitoring
// cap.
type Config struct {
	LabPollInterval time.Duration
	LabTimeout      time.Duration

	ImagingPollInterval time.Duration
	ImagingTimeout      time.Duration

	AppointmentGrace time.Duration

	PrescriptionPollInterval time.Duration
	PrescriptionTimeout      time.Duration

	ReferralPollInterval time.Duration
	ReferralTimeout      time.Duration

	// MaxDuration bounds total monitoring wall-clock time per workflow.
	// Routines still running at that point are cancelled.
	MaxDuration time.Duration
}

// DefaultConfig returns the production policy.
func DefaultConfig() Config {
	return Config{
		LabPollInterval:          5 * time.Minute,
		LabTimeout:               3 * 24 * time.Hour,
		ImagingPollInterval:      time.Hour,
		ImagingTimeout:           7 * 24 * time.Hour,
		AppointmentGrace:         time.Hour,
		PrescriptionPollInterval: 30 * time.Minute,
		PrescriptionTimeout:      24 * time.Hour,
		ReferralPollInterval:     24 * time.Hour,
		ReferralTimeout:          30 * 24 * time.Hour,
		MaxDuration:              30 * 24 * time.Hour,
	}
}

// Supervisor spawns and tracks monitoring routines. One routine per
// monitorable action; routines are independent, so one action polling
// forever never delays another action's resolution. The only state shared
// between routines of a workflow is its alert list, serialized inside
// WorkflowExecution.
type Supervisor struct {
	providers *providers.Set
	clock     clockwork.Clock
	config    Config
	publisher eventbus.EventPublisher
	logger    *slog.Logger

	wg sync.WaitGroup
}

// NewSupervisor builds a supervisor. The publisher is optional; when set,
// every raised alert is also published as a workflow.alert.raised event.
func NewSupervisor(
	set *providers.Set,
	clock clockwork.Clock,
	config Config,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *Supervisor {
	return &Supervisor{
		providers: set,
		clock:     clock,
		config:    config,
		publisher: publisher,
		logger:    logger.With("module", "monitoring_supervisor"),
	}
}

// Watch starts monitoring routines for every completed, monitorable action
// of the workflow and returns immediately with the number of routines
// spawned. All routines for the workflow share a single cancellation point:
// the monitoring duration cap, or the caller's context when the caller ties
// monitoring to its own lifetime.
func (s *Supervisor) Watch(ctx context.Context, workflow *models.WorkflowExecution) int {
	logger := s.logger.With("workflow_id", workflow.ID, "patient_id", workflow.PatientID)

	wfCtx, cancel := context.WithCancel(ctx)

	var routines sync.WaitGroup

	spawned := 0

	for _, action := range workflow.Actions {
		if action.Status != models.StatusCompleted {
			continue
		}

		routine := s.routineFor(action.Type)
		if routine == nil {
			continue
		}

		spawned++

		s.wg.Add(1)
		routines.Add(1)

		go func(action *models.ActionExecution) {
			defer s.wg.Done()
			defer routines.Done()

			routine(wfCtx, workflow, action)
		}(action)
	}

	logger.InfoContext(ctx, "Monitoring started", "routines", spawned)

	finished := make(chan struct{})

	go func() {
		routines.Wait()
		close(finished)
	}()

	// The cap is the one cancellation point for the whole workflow's
	// monitoring; cancellation is logged, not alerted (an operational
	// limit, not a clinical signal).
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer cancel()

		select {
		case <-finished:
			logger.Info("Monitoring finished", "workflow_id", workflow.ID)
		case <-s.clock.After(s.config.MaxDuration):
			logger.Warn("Monitoring duration cap reached, cancelling remaining routines",
				"workflow_id", workflow.ID,
				"max_duration", s.config.MaxDuration,
			)
			cancel()
			<-finished
		case <-ctx.Done():
			logger.Info("Monitoring cancelled by caller, stopping remaining routines",
				"workflow_id", workflow.ID,
				"cause", context.Cause(ctx),
			)
			cancel()
			<-finished
		}
	}()

	return spawned
}

// Wait blocks until every routine spawned so far has returned. Used by
// tests and graceful shutdown.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

type routineFunc func(ctx context.Context, workflow *models.WorkflowExecution, action *models.ActionExecution)

func (s *Supervisor) routineFor(actionType models.ActionType) routineFunc {
	switch actionType {
	case models.ActionTypeLab:
		return s.watchLabResults
	case models.ActionTypeImaging:
		return s.watchImagingResults
	case models.ActionTypeFollowUp:
		return s.watchAppointmentAttendance
	case models.ActionTypeMedication:
		return s.watchPrescriptionPickup
	case models.ActionTypeReferral:
		return s.watchReferralCompletion
	default:
		return nil
	}
}

// raiseAlert appends the alert to the workflow and mirrors it onto the
// event stream.
func (s *Supervisor) raiseAlert(ctx context.Context, workflow *models.WorkflowExecution, alert models.Alert) {
	alert.Timestamp = s.clock.Now()
	workflow.AppendAlert(alert)

	s.logger.InfoContext(ctx, "Physician alert raised",
		"workflow_id", workflow.ID,
		"alert_type", alert.Type,
		"priority", alert.Priority,
		"action_id", alert.ActionID,
	)

	if s.publisher == nil {
		return
	}

	event := events.AlertRaised{
		BaseEvent: events.NewBaseEvent(events.AlertRaisedEvent, workflow.ID, workflow.PatientID),
		Alert:     alert,
	}

	if err := s.publisher.Publish(ctx, workflow.ID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish alert event", "error", err)
	}
}

// sleep waits for the given duration on the injected clock, returning false
// when the workflow's monitoring context is cancelled first.
func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-s.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
