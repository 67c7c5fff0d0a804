// Package notify delivers workflow outcome summaries to the patient
// messaging pipeline. Delivery is best-effort: a failed notification is
// logged by the caller and never blocks monitoring or fails the workflow.
package notify

import (
	"context"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
)

// Notifier delivers the outcome of a completed workflow to the patient.
type Notifier interface {
	DeliverOutcome(ctx context.Context, workflow *models.WorkflowExecution) error
	Close() error
}

// Noop discards notifications. Used in tests and deployments without a
// messaging pipeline.
type Noop struct{}

func (Noop) DeliverOutcome(_ context.Context, _ *models.WorkflowExecution) error { return nil }

func (Noop) Close() error { return nil }
