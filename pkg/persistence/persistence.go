// Package persistence defines the workflow registry contract. The engine is
// handed an explicitly-constructed repository instead of a process-wide
// singleton, so tests run against an isolated in-memory instance and
// deployments can choose a durable backend.
package persistence

import (
	"context"
	"errors"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
)

// ErrWorkflowNotFound is returned when a workflow id is not in the
// registry.
var ErrWorkflowNotFound = errors.New("workflow not found")

// WorkflowRepository stores workflow execution records by id. Save is an
// upsert; implementations flush a point-in-time snapshot, monitoring
// routines may keep appending alerts to the live record afterwards.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.WorkflowExecution) error
	ByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	All(ctx context.Context) ([]*models.WorkflowExecution, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
