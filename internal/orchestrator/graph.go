package orchestrator

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vibegraph/vibegraph/internal/task"
)

// TaskGraph is an immutable snapshot of a project's tasks and dependency
// edges with adjacency lookups precomputed. It performs no I/O; callers
// build it from a repository read and discard it after use.
type TaskGraph struct {
	tasks      []task.Task
	edges      []task.Dependency
	byID       map[uuid.UUID]*task.Task
	deps       map[uuid.UUID][]uuid.UUID
	dependents map[uuid.UUID][]uuid.UUID
}

// NewTaskGraph builds a graph snapshot from tasks and edges.
// It panics on duplicate task IDs or tasks from mixed projects: the
// repository guarantees consistency, so either is a programmer error.
func NewTaskGraph(tasks []task.Task, edges []task.Dependency) *TaskGraph {
	g := &TaskGraph{
		tasks:      tasks,
		edges:      edges,
		byID:       make(map[uuid.UUID]*task.Task, len(tasks)),
		deps:       make(map[uuid.UUID][]uuid.UUID),
		dependents: make(map[uuid.UUID][]uuid.UUID),
	}

	var projectID uuid.UUID
	for i := range tasks {
		t := &tasks[i]
		if _, ok := g.byID[t.ID]; ok {
			panic(fmt.Sprintf("orchestrator: duplicate task id %s in graph", t.ID))
		}
		if i == 0 {
			projectID = t.ProjectID
		} else if t.ProjectID != projectID {
			panic(fmt.Sprintf("orchestrator: task %s belongs to project %s, expected %s", t.ID, t.ProjectID, projectID))
		}
		g.byID[t.ID] = t
	}

	for _, e := range edges {
		g.deps[e.TaskID] = append(g.deps[e.TaskID], e.DependsOnTaskID)
		g.dependents[e.DependsOnTaskID] = append(g.dependents[e.DependsOnTaskID], e.TaskID)
	}

	return g
}

// Task returns the task with the given ID, or nil.
func (g *TaskGraph) Task(id uuid.UUID) *task.Task {
	return g.byID[id]
}

// Tasks returns all tasks in the snapshot.
func (g *TaskGraph) Tasks() []task.Task {
	return g.tasks
}

// Edges returns all dependency edges in the snapshot.
func (g *TaskGraph) Edges() []task.Dependency {
	return g.edges
}

// DepsOf returns the IDs of tasks the given task depends on.
func (g *TaskGraph) DepsOf(id uuid.UUID) []uuid.UUID {
	return g.deps[id]
}

// DependentsOf returns the IDs of tasks that depend on the given task.
func (g *TaskGraph) DependentsOf(id uuid.UUID) []uuid.UUID {
	return g.dependents[id]
}

// Len returns the number of tasks in the snapshot.
func (g *TaskGraph) Len() int {
	return len(g.tasks)
}
