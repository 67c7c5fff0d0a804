package mocks

import (
	"context"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of notify.Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) DeliverOutcome(ctx context.Context, workflow *models.WorkflowExecution) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockNotifier) Close() error {
	args := m.Called()

	return args.Error(0)
}
