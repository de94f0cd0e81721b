package orchestrator

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vibegraph/vibegraph/internal/task"
)

// validTransitions maps each status to the statuses it may move to.
// Same-status transitions are handled separately as no-ops.
var validTransitions = map[task.Status][]task.Status{
	task.StatusTodo:       {task.StatusInProgress, task.StatusCancelled},
	task.StatusInProgress: {task.StatusTodo, task.StatusInReview, task.StatusDone, task.StatusCancelled},
	task.StatusInReview:   {task.StatusInProgress, task.StatusDone, task.StatusCancelled},
	task.StatusDone:       {task.StatusTodo, task.StatusInProgress},
	task.StatusCancelled:  {task.StatusTodo},
}

// IsValidTransition reports whether the state machine allows from→to.
func IsValidTransition(from, to task.Status) bool {
	if from == to {
		return true
	}
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition validates a status transition against the state
// machine and the task's dependencies.
//
// Starting a task with incomplete dependencies is not forbidden, only
// flagged: human operators may force-start, so a dependency violation
// yields requires_confirmation rather than invalid.
func ValidateTransition(t *task.Task, newStatus task.Status, g *TaskGraph) TransitionValidation {
	// Same status is always valid (no-op).
	if t.Status == newStatus {
		return Valid()
	}

	if !IsValidTransition(t.Status, newStatus) {
		return Invalid(fmt.Sprintf("cannot transition from %s to %s", t.Status, newStatus))
	}

	if newStatus == task.StatusInProgress {
		blocking := BlockingTasks(t.ID, g)
		if len(blocking) > 0 {
			return RequiresConfirmation(
				fmt.Sprintf("task has %d incomplete dependencies; starting it may cause issues", len(blocking)),
				blocking,
			)
		}
	}

	return Valid()
}

// BlockingTasks returns the IDs of the task's dependencies that are not
// yet done.
func BlockingTasks(taskID uuid.UUID, g *TaskGraph) []uuid.UUID {
	var blocking []uuid.UUID
	for _, depID := range g.DepsOf(taskID) {
		if dep := g.Task(depID); dep != nil && !task.IsDone(dep.Status) {
			blocking = append(blocking, depID)
		}
	}
	return blocking
}

// CanStartTask reports whether a task is in todo with all dependencies done.
func CanStartTask(t *task.Task, g *TaskGraph) bool {
	if t.Status != task.StatusTodo {
		return false
	}
	return len(BlockingTasks(t.ID, g)) == 0
}
