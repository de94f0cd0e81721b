package orchestrator

import (
	"sort"

	"github.com/google/uuid"

	vgerrors "github.com/vibegraph/vibegraph/internal/errors"
	"github.com/vibegraph/vibegraph/internal/task"
)

// BuildExecutionPlan builds an execution plan from a task graph using a
// leveled topological sort (Kahn's algorithm). It is a pure function of
// the graph's tasks and edges.
//
// Level 0 holds tasks with no dependencies; level N holds tasks whose
// deepest dependency sits at level N-1. Tasks within a level are ordered
// by (created_at asc, id asc) so repeated builds are deterministic.
//
// Stored edges are acyclic by construction; if residual in-degrees remain
// after the sort the persisted graph is corrupt and an error is returned.
func BuildExecutionPlan(g *TaskGraph) (*ExecutionPlan, error) {
	levels, err := topologicalSortLevels(g)
	if err != nil {
		return nil, err
	}

	// Build executable tasks with readiness info.
	executable := make(map[uuid.UUID]ExecutableTask, g.Len())
	for _, t := range g.Tasks() {
		deps := g.DepsOf(t.ID)
		executable[t.ID] = ExecutableTask{
			TaskID:       t.ID,
			Status:       t.Status,
			Readiness:    CalculateReadiness(&t, deps, g),
			Dependencies: deps,
			Dependents:   g.DependentsOf(t.ID),
		}
	}

	plan := &ExecutionPlan{TotalTasks: g.Len()}
	for levelIdx, ids := range levels {
		level := ExecutionLevel{Level: levelIdx, Tasks: make([]ExecutableTask, 0, len(ids))}
		for _, id := range ids {
			level.Tasks = append(level.Tasks, executable[id])
		}
		if len(level.Tasks) == 0 {
			continue
		}
		plan.Levels = append(plan.Levels, level)

		for _, et := range level.Tasks {
			switch et.Readiness.Kind {
			case ReadinessCompleted:
				plan.CompletedTasks++
			case ReadinessInProgress:
				plan.InProgressTasks++
			case ReadinessReady:
				plan.ReadyTasks++
			case ReadinessBlocked:
				plan.BlockedTasks++
			case ReadinessCancelled:
				// Counted in no bucket.
			}
			// in_review is counted by task status, not readiness: a task
			// in review has readiness in_progress.
			if et.Status == task.StatusInReview {
				plan.InReviewTasks++
			}
		}
	}

	return plan, nil
}

// topologicalSortLevels runs Kahn's algorithm with level tracking and
// returns task IDs grouped by level, each level sorted deterministically.
func topologicalSortLevels(g *TaskGraph) ([][]uuid.UUID, error) {
	inDegree := make(map[uuid.UUID]int, g.Len())
	for _, t := range g.Tasks() {
		inDegree[t.ID] = len(g.DepsOf(t.ID))
	}

	var frontier []uuid.UUID
	for id, deg := range inDegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}

	var levels [][]uuid.UUID
	placed := 0
	for len(frontier) > 0 {
		sortTasksForLevel(g, frontier)
		levels = append(levels, frontier)
		placed += len(frontier)

		var next []uuid.UUID
		for _, id := range frontier {
			for _, dependent := range g.DependentsOf(id) {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		frontier = next
	}

	if placed != g.Len() {
		projectID := ""
		if ts := g.Tasks(); len(ts) > 0 {
			projectID = ts[0].ProjectID.String()
		}
		return nil, vgerrors.ErrCorruptGraph(projectID)
	}

	return levels, nil
}

// sortTasksForLevel orders a level's task IDs by (created_at asc, id asc).
func sortTasksForLevel(g *TaskGraph, ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := g.Task(ids[i]), g.Task(ids[j])
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// CalculateReadiness derives the readiness of a task from its own status
// and the status of its dependencies.
func CalculateReadiness(t *task.Task, deps []uuid.UUID, g *TaskGraph) TaskReadiness {
	switch t.Status {
	case task.StatusDone:
		return TaskReadiness{Kind: ReadinessCompleted}
	case task.StatusCancelled:
		return TaskReadiness{Kind: ReadinessCancelled}
	case task.StatusInProgress, task.StatusInReview:
		return TaskReadiness{Kind: ReadinessInProgress}
	}

	var blocking []uuid.UUID
	for _, depID := range deps {
		if dep := g.Task(depID); dep != nil && !task.IsDone(dep.Status) {
			blocking = append(blocking, depID)
		}
	}

	if len(blocking) == 0 {
		return Ready()
	}
	return Blocked(blocking)
}

// GetReadyTasks returns all tasks in the plan whose readiness is ready,
// in level order.
func GetReadyTasks(plan *ExecutionPlan) []ExecutableTask {
	var ready []ExecutableTask
	for _, level := range plan.Levels {
		for _, t := range level.Tasks {
			if t.Readiness.Kind == ReadinessReady {
				ready = append(ready, t)
			}
		}
	}
	return ready
}

// GetInProgressTasks returns all tasks whose readiness is in_progress.
func GetInProgressTasks(plan *ExecutionPlan) []ExecutableTask {
	var running []ExecutableTask
	for _, level := range plan.Levels {
		for _, t := range level.Tasks {
			if t.Readiness.Kind == ReadinessInProgress {
				running = append(running, t)
			}
		}
	}
	return running
}

// GetTasksBlockedBy returns all tasks blocked by the given task.
func GetTasksBlockedBy(plan *ExecutionPlan, taskID uuid.UUID) []ExecutableTask {
	var blocked []ExecutableTask
	for _, level := range plan.Levels {
		for _, t := range level.Tasks {
			if t.Readiness.Kind != ReadinessBlocked {
				continue
			}
			for _, id := range t.Readiness.BlockingTaskIDs {
				if id == taskID {
					blocked = append(blocked, t)
					break
				}
			}
		}
	}
	return blocked
}

// GetTasksUnblockedByCompletion returns IDs of tasks whose only remaining
// blocker is the completing task. This under-approximates "eligible next
// tick" and is used to short-circuit dispatch on completion; rebuilding
// the plan gives the authoritative answer.
func GetTasksUnblockedByCompletion(plan *ExecutionPlan, completedTaskID uuid.UUID) []uuid.UUID {
	var newlyReady []uuid.UUID
	for _, level := range plan.Levels {
		for _, t := range level.Tasks {
			if t.Readiness.Kind != ReadinessBlocked {
				continue
			}
			ids := t.Readiness.BlockingTaskIDs
			if len(ids) == 1 && ids[0] == completedTaskID {
				newlyReady = append(newlyReady, t.TaskID)
			}
		}
	}
	return newlyReady
}
