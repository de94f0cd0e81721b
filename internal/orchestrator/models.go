// Package orchestrator provides dependency-aware task coordination for
// vibegraph: execution planning, transition validation, and per-project
// lifecycle with event fan-out.
package orchestrator

import (
	"github.com/google/uuid"

	"github.com/vibegraph/vibegraph/internal/task"
)

// ReadinessKind discriminates TaskReadiness values.
type ReadinessKind string

const (
	ReadinessReady      ReadinessKind = "ready"
	ReadinessBlocked    ReadinessKind = "blocked"
	ReadinessInProgress ReadinessKind = "in_progress"
	ReadinessCompleted  ReadinessKind = "completed"
	ReadinessCancelled  ReadinessKind = "cancelled"
)

// TaskReadiness is the derived execution state of a task, combining its
// own status with the status of its upstream dependencies.
type TaskReadiness struct {
	Kind ReadinessKind `json:"kind"`
	// BlockingTaskIDs lists the unfinished dependencies when Kind is blocked.
	BlockingTaskIDs []uuid.UUID `json:"blocking_task_ids,omitempty"`
}

// Ready returns a ready readiness value.
func Ready() TaskReadiness { return TaskReadiness{Kind: ReadinessReady} }

// Blocked returns a blocked readiness value with the given blockers.
func Blocked(ids []uuid.UUID) TaskReadiness {
	return TaskReadiness{Kind: ReadinessBlocked, BlockingTaskIDs: ids}
}

// ExecutableTask is a task with its execution metadata.
type ExecutableTask struct {
	TaskID    uuid.UUID     `json:"task_id"`
	Status    task.Status   `json:"status"`
	Readiness TaskReadiness `json:"readiness"`
	// Dependencies lists tasks that must complete before this task can start.
	Dependencies []uuid.UUID `json:"dependencies"`
	// Dependents lists tasks that depend on this task.
	Dependents []uuid.UUID `json:"dependents"`
}

// ExecutionLevel groups tasks at the same depth; tasks in one level can
// run in parallel.
type ExecutionLevel struct {
	Level int              `json:"level"`
	Tasks []ExecutableTask `json:"tasks"`
}

// ExecutionPlan contains all tasks of a project grouped by execution level,
// with aggregate statistics.
type ExecutionPlan struct {
	Levels          []ExecutionLevel `json:"levels"`
	TotalTasks      int              `json:"total_tasks"`
	CompletedTasks  int              `json:"completed_tasks"`
	InProgressTasks int              `json:"in_progress_tasks"`
	InReviewTasks   int              `json:"in_review_tasks"`
	ReadyTasks      int              `json:"ready_tasks"`
	BlockedTasks    int              `json:"blocked_tasks"`
}

// ValidationKind discriminates TransitionValidation values.
type ValidationKind string

const (
	ValidationValid                ValidationKind = "valid"
	ValidationInvalid              ValidationKind = "invalid"
	ValidationRequiresConfirmation ValidationKind = "requires_confirmation"
)

// TransitionValidation is the result of validating a status transition.
type TransitionValidation struct {
	Kind   ValidationKind `json:"type"`
	Reason string         `json:"reason,omitempty"`
	// BlockingTasks lists unfinished dependencies when confirmation is required.
	BlockingTasks []uuid.UUID `json:"blocking_tasks,omitempty"`
}

// Valid returns a valid transition result.
func Valid() TransitionValidation { return TransitionValidation{Kind: ValidationValid} }

// Invalid returns an invalid transition result with a reason.
func Invalid(reason string) TransitionValidation {
	return TransitionValidation{Kind: ValidationInvalid, Reason: reason}
}

// RequiresConfirmation returns a confirmation-required transition result.
func RequiresConfirmation(reason string, blocking []uuid.UUID) TransitionValidation {
	return TransitionValidation{Kind: ValidationRequiresConfirmation, Reason: reason, BlockingTasks: blocking}
}

// State is the lifecycle state of a project orchestrator.
type State string

const (
	// StateIdle means the orchestrator is not running tasks.
	StateIdle State = "idle"
	// StateRunning means the orchestrator is actively scheduling tasks.
	StateRunning State = "running"
	// StatePaused means in-progress tasks finish but no new tasks start.
	StatePaused State = "paused"
	// StateStopping means the orchestrator is winding down.
	StateStopping State = "stopping"
)

// EventType defines the type of orchestrator event.
type EventType string

const (
	EventTaskStarted        EventType = "task_started"
	EventTaskCompleted      EventType = "task_completed"
	EventTaskFailed         EventType = "task_failed"
	EventTaskAwaitingReview EventType = "task_awaiting_review"
	EventStateChanged       EventType = "state_changed"
	EventPlanUpdated        EventType = "plan_updated"
)

// Event is a tagged union emitted by a project orchestrator,
// serialized as {type, data}.
type Event struct {
	Type EventType `json:"type"`
	Data EventData `json:"data"`
}

// EventData carries the payload fields used by the event types.
type EventData struct {
	TaskID *uuid.UUID     `json:"task_id,omitempty"`
	Error  string         `json:"error,omitempty"`
	State  State          `json:"state,omitempty"`
	Plan   *ExecutionPlan `json:"plan,omitempty"`
}

func taskEvent(t EventType, id uuid.UUID) Event {
	return Event{Type: t, Data: EventData{TaskID: &id}}
}

func stateEvent(s State) Event {
	return Event{Type: EventStateChanged, Data: EventData{State: s}}
}

func planEvent(plan *ExecutionPlan) Event {
	return Event{Type: EventPlanUpdated, Data: EventData{Plan: plan}}
}
