package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/vibegraph/vibegraph/internal/task"
)

// Repository is the data access the orchestration core consumes. The
// database package provides the production implementation; tests use
// in-memory fakes.
type Repository interface {
	// ListTasksByProject returns all tasks in a project.
	ListTasksByProject(ctx context.Context, projectID uuid.UUID) ([]task.Task, error)
	// ListDependenciesByProject returns all dependency edges between
	// tasks of a project, ordered by creation time.
	ListDependenciesByProject(ctx context.Context, projectID uuid.UUID) ([]task.Dependency, error)
	// UpdateTaskDAGPosition writes a task's layout coordinates.
	UpdateTaskDAGPosition(ctx context.Context, taskID uuid.UUID, x, y *float64) error
}
