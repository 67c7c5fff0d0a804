// Package executor runs individual clinical actions against their external
// providers.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
	"github.com/darinjswilliams/kindrahealth/pkg/providers"
)

// DefaultCallTimeout bounds a single provider call so one slow provider
// cannot stall the rest of the workflow.
const DefaultCallTimeout = 30 * time.Second

// Executor executes one action at a time against the provider matching its
// type. It is stateless; a failed action can be reset to pending by the
// caller and executed again.
type Executor struct {
	providers   *providers.Set
	logger      *slog.Logger
	callTimeout time.Duration
}

func NewExecutor(set *providers.Set, logger *slog.Logger) *Executor {
	return &Executor{
		providers:   set,
		logger:      logger.With("module", "action_executor"),
		callTimeout: DefaultCallTimeout,
	}
}

// Execute runs the action against its provider and records the outcome on
// the action itself. Provider failures are captured into the record as a
// FAILED status and are never returned as an error; the caller can keep
// processing the remaining actions of a workflow.
func (e *Executor) Execute(ctx context.Context, action *models.ActionExecution) *models.ActionExecution {
	logger := e.logger.With("action_id", action.ID, "action_type", action.Type)
	logger.InfoContext(ctx, "Executing action")

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	result, err := e.dispatch(callCtx, action)

	if err != nil {
		action.Fail(time.Now(), err.Error())

		logger.ErrorContext(ctx, "Action failed", "error", err)

		return action
	}

	action.Complete(time.Now(), result)

	logger.InfoContext(ctx, "Action completed")

	return action
}

func (e *Executor) dispatch(ctx context.Context, action *models.ActionExecution) (map[string]any, error) {
	switch action.Type {
	case models.ActionTypeLab:
		return e.providers.Lab.PlaceOrder(ctx, action)
	case models.ActionTypeImaging:
		return e.providers.Imaging.PlaceOrder(ctx, action)
	case models.ActionTypeReferral:
		return e.providers.Referral.CreateReferral(ctx, action)
	case models.ActionTypeMedication:
		return e.providers.Pharmacy.SendPrescription(ctx, action)
	case models.ActionTypeFollowUp:
		return e.providers.Scheduling.ScheduleAppointment(ctx, action)
	default:
		return nil, fmt.Errorf("unknown action type: %s", action.Type)
	}
}
