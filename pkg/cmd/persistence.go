// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"fmt"
	"strings"

	"github.com/darinjswilliams/kindrahealth/pkg/persistence"
	"github.com/darinjswilliams/kindrahealth/pkg/persistence/file"
	"github.com/darinjswilliams/kindrahealth/pkg/persistence/memory"
)

// NewWorkflowRepository selects a repository implementation from the
// database URL scheme. "mem://" keeps workflows in process memory,
// anything else is treated as a file path.
func NewWorkflowRepository(databaseURL string) (persistence.WorkflowRepository, error) {
	if strings.HasPrefix(databaseURL, "mem://") {
		return memory.NewRepository(), nil
	}

	repo, err := file.NewRepository(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create file repository: %w", err)
	}

	return repo, nil
}
