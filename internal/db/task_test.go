package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibegraph/vibegraph/internal/task"
)

func TestTask_CreateAndFind(t *testing.T) {
	store := OpenTest(t)
	ctx := context.Background()
	projectID := uuid.New()

	desc := "fix the login flow"
	created, err := store.CreateTask(ctx, &task.CreateTask{
		ProjectID:   projectID,
		Title:       "Login bug",
		Description: &desc,
	})
	require.NoError(t, err)
	assert.Equal(t, task.StatusTodo, created.Status)

	found, err := store.FindTask(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Login bug", found.Title)
	require.NotNil(t, found.Description)
	assert.Equal(t, desc, *found.Description)
	assert.Equal(t, projectID, found.ProjectID)

	missing, err := store.FindTask(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTask_UpdateBasicBumpsUpdatedAt(t *testing.T) {
	store := OpenTest(t)
	ctx := context.Background()

	created := createTestTask(t, store, uuid.New(), "A")

	time.Sleep(10 * time.Millisecond)
	updated, err := store.UpdateTaskBasic(ctx, created.ID, &task.UpdateTask{
		Title:  "A2",
		Status: task.StatusInProgress,
	})
	require.NoError(t, err)

	assert.Equal(t, "A2", updated.Title)
	assert.Equal(t, task.StatusInProgress, updated.Status)
	assert.True(t, !updated.UpdatedAt.Before(created.UpdatedAt), "updated_at is monotonically nondecreasing")
}

func TestTask_ListByProjectOrdersByCreation(t *testing.T) {
	store := OpenTest(t)
	ctx := context.Background()
	projectID := uuid.New()

	first := createTestTask(t, store, projectID, "first")
	second := createTestTask(t, store, projectID, "second")
	createTestTask(t, store, uuid.New(), "other project")

	tasks, err := store.ListTasksByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, first.ID, tasks[0].ID)
	assert.Equal(t, second.ID, tasks[1].ID)
}

func TestTask_Positions(t *testing.T) {
	store := OpenTest(t)
	ctx := context.Background()

	created := createTestTask(t, store, uuid.New(), "A")

	updated, err := store.UpdateTaskPosition(ctx, created.ID, 5)
	require.NoError(t, err)
	require.NotNil(t, updated.Position)
	assert.Equal(t, int32(5), *updated.Position)

	x, y := 340.0, 120.0
	require.NoError(t, store.UpdateTaskDAGPosition(ctx, created.ID, &x, &y))

	found, err := store.FindTask(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found.DAGPositionX)
	assert.Equal(t, x, *found.DAGPositionX)
	require.NotNil(t, found.DAGPositionY)
	assert.Equal(t, y, *found.DAGPositionY)
}

func TestTask_DeleteCascades(t *testing.T) {
	store := OpenTest(t)
	ctx := context.Background()
	projectID := uuid.New()

	a := createTestTask(t, store, projectID, "A")
	b := createTestTask(t, store, projectID, "B")
	createTestDependency(t, store, b.ID, a.ID)

	source := task.SourceVibe
	require.NoError(t, store.UpsertProperty(ctx, &task.UpsertProperty{
		TaskID: b.ID, Name: "branch", Value: "feature/b", Source: &source,
	}))

	n, err := store.DeleteTask(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	deps, err := store.ListDependenciesByProject(ctx, projectID)
	require.NoError(t, err)
	assert.Empty(t, deps)

	props, err := store.ListPropertiesByTask(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestProperty_UpsertKeyedOnTaskAndName(t *testing.T) {
	store := OpenTest(t)
	ctx := context.Background()

	created := createTestTask(t, store, uuid.New(), "A")
	source := task.SourceGithub

	require.NoError(t, store.UpsertProperty(ctx, &task.UpsertProperty{
		TaskID: created.ID, Name: "github_status", Value: "Todo", Source: &source,
	}))
	require.NoError(t, store.UpsertProperty(ctx, &task.UpsertProperty{
		TaskID: created.ID, Name: "github_status", Value: "Done", Source: &source,
	}))

	props, err := store.ListPropertiesByTask(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "Done", props[0].Value)
	assert.Equal(t, task.SourceGithub, props[0].Source)
}
