// Package task defines the vibegraph domain model: tasks, dependency
// edges, dependency genres, and task properties.
package task

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// ValidStatuses returns all valid status values.
func ValidStatuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusInReview, StatusDone, StatusCancelled}
}

// IsValidStatus returns true if the status is a valid status value.
func IsValidStatus(s Status) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusInReview, StatusDone, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsDone returns true if the status satisfies a dependency edge.
// A blocker is satisfied only when the upstream task is done.
func IsDone(s Status) bool {
	return s == StatusDone
}

// Task represents a task stored in the database.
type Task struct {
	ID                uuid.UUID  `json:"id"`
	ProjectID         uuid.UUID  `json:"project_id"`
	Title             string     `json:"title"`
	Description       *string    `json:"description,omitempty"`
	Status            Status     `json:"status"`
	ParentWorkspaceID *uuid.UUID `json:"parent_workspace_id,omitempty"`
	SharedTaskID      *uuid.UUID `json:"shared_task_id,omitempty"`
	Position          *int32     `json:"position,omitempty"`
	DAGPositionX      *float64   `json:"dag_position_x,omitempty"`
	DAGPositionY      *float64   `json:"dag_position_y,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CreateTask holds the fields accepted when creating a task.
type CreateTask struct {
	ProjectID         uuid.UUID  `json:"project_id"`
	Title             string     `json:"title"`
	Description       *string    `json:"description,omitempty"`
	Status            *Status    `json:"status,omitempty"`
	ParentWorkspaceID *uuid.UUID `json:"parent_workspace_id,omitempty"`
	SharedTaskID      *uuid.UUID `json:"shared_task_id,omitempty"`
}

// UpdateTask holds the fields accepted when updating a task's basic data.
type UpdateTask struct {
	Title             string     `json:"title"`
	Description       *string    `json:"description,omitempty"`
	Status            Status     `json:"status"`
	ParentWorkspaceID *uuid.UUID `json:"parent_workspace_id,omitempty"`
}
