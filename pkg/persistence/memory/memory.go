// Package memory provides the in-memory workflow registry used by tests and
// single-process deployments. Records are live: the stored pointer is the
// same record the engine and monitoring routines mutate.
package memory

import (
	"context"
	"sync"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
	"github.com/darinjswilliams/kindrahealth/pkg/persistence"
)

type Repository struct {
	mu        sync.RWMutex
	workflows map[string]*models.WorkflowExecution
	order     []string
}

func NewRepository() *Repository {
	return &Repository{
		workflows: make(map[string]*models.WorkflowExecution),
	}
}

func (r *Repository) Save(_ context.Context, workflow *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workflows[workflow.ID]; !exists {
		r.order = append(r.order, workflow.ID)
	}

	r.workflows[workflow.ID] = workflow

	return nil
}

func (r *Repository) ByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflow, ok := r.workflows[id]
	if !ok {
		return nil, persistence.ErrWorkflowNotFound
	}

	return workflow, nil
}

// All returns workflows in insertion order.
func (r *Repository) All(_ context.Context) ([]*models.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.WorkflowExecution, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.workflows[id])
	}

	return out, nil
}

func (r *Repository) HealthCheck(_ context.Context) error {
	return nil
}

func (r *Repository) Close(_ context.Context) error {
	return nil
}
