// Package file provides a file-backed workflow registry: one JSON document
// per workflow under a root directory. It is the simple durable option for
// deployments without a database; writes flush a snapshot of the live
// record.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/darinjswilliams/kindrahealth/pkg/models"
	"github.com/darinjswilliams/kindrahealth/pkg/persistence"
)

type Repository struct {
	root string
}

// NewRepository creates the registry rooted at the given directory,
// accepting both plain paths and file:// URLs.
func NewRepository(root string) (*Repository, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	if err := os.MkdirAll(filepath.Join(cleanRoot, "workflows"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workflow directory: %w", err)
	}

	return &Repository{root: cleanRoot}, nil
}

func (r *Repository) path(id string) string {
	return filepath.Join(r.root, "workflows", id+".json")
}

func (r *Repository) Save(_ context.Context, workflow *models.WorkflowExecution) error {
	data, err := json.MarshalIndent(workflow.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	if err := os.WriteFile(r.path(workflow.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (r *Repository) ByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to read workflow %s: %w", id, err)
	}

	var workflow models.WorkflowExecution
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to parse workflow %s: %w", id, err)
	}

	return &workflow, nil
}

func (r *Repository) All(ctx context.Context) ([]*models.WorkflowExecution, error) {
	entries, err := os.ReadDir(filepath.Join(r.root, "workflows"))
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.WorkflowExecution, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		workflow, err := r.ByID(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (r *Repository) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(r.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (r *Repository) Close(_ context.Context) error {
	return nil
}
