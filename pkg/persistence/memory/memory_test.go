package memory

import (
	"context"
	"testing"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
	"github.com/darinjswilliams/kindrahealth/pkg/persistence"
	"github.com/darinjswilliams/kindrahealth/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_SaveAndByID(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, repo.Save(ctx, workflow))

	found, err := repo.ByID(ctx, workflow.ID)
	require.NoError(t, err)

	// The memory repository hands back the live record, not a copy, so
	// monitoring routines and API reads see the same state.
	assert.Same(t, workflow, found)
}

func TestRepository_ByIDNotFound(t *testing.T) {
	repo := NewRepository()

	_, err := repo.ByID(context.Background(), "WF-404")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestRepository_AllPreservesInsertionOrder(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	first := testutil.CreateTestWorkflow()
	second := testutil.CreateTestWorkflow()
	third := testutil.CreateTestWorkflow()

	for _, workflow := range []*models.WorkflowExecution{first, second, third} {
		require.NoError(t, repo.Save(ctx, workflow))
	}

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
	assert.Equal(t, third.ID, all[2].ID)
}

func TestRepository_SaveIsIdempotentPerID(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, repo.Save(ctx, workflow))
	require.NoError(t, repo.Save(ctx, workflow))

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepository_HealthCheckAndClose(t *testing.T) {
	repo := NewRepository()

	assert.NoError(t, repo.HealthCheck(context.Background()))
	assert.NoError(t, repo.Close(context.Background()))
}
