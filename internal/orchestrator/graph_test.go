package orchestrator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibegraph/vibegraph/internal/task"
)

func TestTaskGraph_Adjacency(t *testing.T) {
	a := newTestTask(t, task.StatusTodo, 0)
	b := newTestTask(t, task.StatusTodo, time.Second)
	c := newTestTask(t, task.StatusTodo, 2*time.Second)

	deps := []task.Dependency{
		newTestDependency(b.ID, a.ID),
		newTestDependency(c.ID, a.ID),
	}

	g := NewTaskGraph([]task.Task{a, b, c}, deps)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, []uuid.UUID{a.ID}, g.DepsOf(b.ID))
	assert.ElementsMatch(t, []uuid.UUID{b.ID, c.ID}, g.DependentsOf(a.ID))
	assert.Empty(t, g.DepsOf(a.ID))

	require.NotNil(t, g.Task(a.ID))
	assert.Equal(t, a.ID, g.Task(a.ID).ID)
	assert.Nil(t, g.Task(uuid.New()))
}

func TestTaskGraph_PanicsOnDuplicateID(t *testing.T) {
	a := newTestTask(t, task.StatusTodo, 0)

	assert.Panics(t, func() {
		NewTaskGraph([]task.Task{a, a}, nil)
	})
}

func TestTaskGraph_PanicsOnMixedProjects(t *testing.T) {
	a := newTestTask(t, task.StatusTodo, 0)
	b := newTestTask(t, task.StatusTodo, time.Second)
	b.ProjectID = uuid.New()

	assert.Panics(t, func() {
		NewTaskGraph([]task.Task{a, b}, nil)
	})
}

func TestTaskGraph_Empty(t *testing.T) {
	g := NewTaskGraph(nil, nil)
	assert.Equal(t, 0, g.Len())

	plan, err := BuildExecutionPlan(g)
	require.NoError(t, err)
	assert.Empty(t, plan.Levels)
	assert.Equal(t, 0, plan.TotalTasks)
}
