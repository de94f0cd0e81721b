package orchestrator

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Layout constants for DAG node placement.
const (
	nodeWidth         = 220.0
	nodeHeight        = 80.0
	horizontalSpacing = 120.0
	verticalSpacing   = 40.0
)

// RecalculateDAGLayout assigns 2D positions to every task that
// participates in at least one dependency edge: x by level, y by rank
// within the level. Isolated tasks keep their prior position. Positions
// are written only when they actually change.
func RecalculateDAGLayout(ctx context.Context, repo Repository, projectID uuid.UUID, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	tasks, err := repo.ListTasksByProject(ctx, projectID)
	if err != nil {
		return err
	}
	deps, err := repo.ListDependenciesByProject(ctx, projectID)
	if err != nil {
		return err
	}
	if len(deps) == 0 {
		return nil
	}

	g := NewTaskGraph(tasks, deps)

	// Only tasks touching an edge are laid out.
	inDAG := make(map[uuid.UUID]bool)
	for _, d := range deps {
		inDAG[d.TaskID] = true
		inDAG[d.DependsOnTaskID] = true
	}

	// BFS over the DAG, pushing each dependent to one past its deepest
	// dependency. In-degrees reach zero exactly once per task because the
	// store rejects cycles at edge creation.
	inDegree := make(map[uuid.UUID]int, len(inDAG))
	for id := range inDAG {
		inDegree[id] = len(g.DepsOf(id))
	}

	levels := make(map[uuid.UUID]int, len(inDAG))
	var queue []uuid.UUID
	for id, deg := range inDegree {
		if deg == 0 {
			levels[id] = 0
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		current := levels[id]

		for _, dependent := range g.DependentsOf(id) {
			if current+1 > levels[dependent] {
				levels[dependent] = current + 1
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	// Group by level, rank deterministically within each level.
	byLevel := make(map[int][]uuid.UUID)
	maxLevel := 0
	for id, level := range levels {
		byLevel[level] = append(byLevel[level], id)
		if level > maxLevel {
			maxLevel = level
		}
	}

	updated := 0
	for level := 0; level <= maxLevel; level++ {
		ids := byLevel[level]
		sortTasksForLevel(g, ids)
		x := float64(level) * (nodeWidth + horizontalSpacing)

		for rank, id := range ids {
			y := float64(rank) * (nodeHeight + verticalSpacing)
			t := g.Task(id)
			if t == nil {
				continue
			}
			if samePosition(t.DAGPositionX, x) && samePosition(t.DAGPositionY, y) {
				continue
			}
			if err := repo.UpdateTaskDAGPosition(ctx, id, &x, &y); err != nil {
				return err
			}
			updated++
		}
	}

	logger.Debug("recalculated DAG layout",
		"project_id", projectID,
		"dag_tasks", len(inDAG),
		"levels", len(byLevel),
		"updated", updated)
	return nil
}

func samePosition(have *float64, want float64) bool {
	return have != nil && *have == want
}
