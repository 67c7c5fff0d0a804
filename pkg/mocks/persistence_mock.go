package mocks

import (
	"context"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of
// persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.WorkflowExecution) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) ByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	args := m.Called(ctx, id)

	if workflow := args.Get(0); workflow != nil {
		return workflow.(*models.WorkflowExecution), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockWorkflowRepository) All(ctx context.Context) ([]*models.WorkflowExecution, error) {
	args := m.Called(ctx)

	if workflows := args.Get(0); workflows != nil {
		return workflows.([]*models.WorkflowExecution), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockWorkflowRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
