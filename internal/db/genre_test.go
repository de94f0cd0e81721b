package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vgerrors "github.com/vibegraph/vibegraph/internal/errors"
	"github.com/vibegraph/vibegraph/internal/task"
)

func TestGenre_CreateDefaults(t *testing.T) {
	store := OpenTest(t)
	ctx := context.Background()
	projectID := uuid.New()

	first, err := store.CreateGenre(ctx, &task.CreateGenre{ProjectID: projectID, Name: "backend"})
	require.NoError(t, err)
	assert.Equal(t, task.DefaultGenreColor, first.Color)
	assert.Equal(t, int32(0), first.Position)

	second, err := store.CreateGenre(ctx, &task.CreateGenre{ProjectID: projectID, Name: "frontend"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), second.Position, "position defaults to max+1")
}

func TestGenre_DuplicateName(t *testing.T) {
	store := OpenTest(t)
	ctx := context.Background()
	projectID := uuid.New()

	_, err := store.CreateGenre(ctx, &task.CreateGenre{ProjectID: projectID, Name: "infra"})
	require.NoError(t, err)

	_, err = store.CreateGenre(ctx, &task.CreateGenre{ProjectID: projectID, Name: "infra"})
	require.Error(t, err)
	ve := vgerrors.AsVibeError(err)
	require.NotNil(t, ve)
	assert.Equal(t, vgerrors.CodeDuplicateGenreName, ve.Code)

	// The same name is fine in another project.
	_, err = store.CreateGenre(ctx, &task.CreateGenre{ProjectID: uuid.New(), Name: "infra"})
	require.NoError(t, err)
}

func TestGenre_ListOrdering(t *testing.T) {
	store := OpenTest(t)
	ctx := context.Background()
	projectID := uuid.New()

	pos2 := int32(2)
	pos0 := int32(0)
	pos1 := int32(1)
	_, err := store.CreateGenre(ctx, &task.CreateGenre{ProjectID: projectID, Name: "c", Position: &pos2})
	require.NoError(t, err)
	_, err = store.CreateGenre(ctx, &task.CreateGenre{ProjectID: projectID, Name: "a", Position: &pos0})
	require.NoError(t, err)
	_, err = store.CreateGenre(ctx, &task.CreateGenre{ProjectID: projectID, Name: "b", Position: &pos1})
	require.NoError(t, err)

	genres, err := store.ListGenresByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, genres, 3)
	assert.Equal(t, "a", genres[0].Name)
	assert.Equal(t, "b", genres[1].Name)
	assert.Equal(t, "c", genres[2].Name)
}

func TestGenre_ReorderAssignsDensePositions(t *testing.T) {
	store := OpenTest(t)
	ctx := context.Background()
	projectID := uuid.New()

	var ids []uuid.UUID
	for _, name := range []string{"a", "b", "c"} {
		g, err := store.CreateGenre(ctx, &task.CreateGenre{ProjectID: projectID, Name: name})
		require.NoError(t, err)
		ids = append(ids, g.ID)
	}

	// Reverse the order.
	reversed := []uuid.UUID{ids[2], ids[1], ids[0]}
	genres, err := store.ReorderGenres(ctx, reversed)
	require.NoError(t, err)
	require.Len(t, genres, 3)

	assert.Equal(t, "c", genres[0].Name)
	assert.Equal(t, "b", genres[1].Name)
	assert.Equal(t, "a", genres[2].Name)
	for i, g := range genres {
		assert.Equal(t, int32(i), g.Position, "positions are a permutation of 0..n-1")
	}

	// Reordering is idempotent.
	again, err := store.ReorderGenres(ctx, reversed)
	require.NoError(t, err)
	assert.Equal(t, namesOf(genres), namesOf(again))
	for i, g := range again {
		assert.Equal(t, int32(i), g.Position)
	}
}

func namesOf(genres []task.Genre) []string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return names
}

func TestGenre_ReorderRejectsMixedProjects(t *testing.T) {
	store := OpenTest(t)
	ctx := context.Background()

	g1, err := store.CreateGenre(ctx, &task.CreateGenre{ProjectID: uuid.New(), Name: "a"})
	require.NoError(t, err)
	g2, err := store.CreateGenre(ctx, &task.CreateGenre{ProjectID: uuid.New(), Name: "b"})
	require.NoError(t, err)

	_, err = store.ReorderGenres(ctx, []uuid.UUID{g1.ID, g2.ID})
	require.Error(t, err)
}

func TestGenre_UpdateAndDelete(t *testing.T) {
	store := OpenTest(t)
	ctx := context.Background()
	projectID := uuid.New()

	g, err := store.CreateGenre(ctx, &task.CreateGenre{ProjectID: projectID, Name: "old"})
	require.NoError(t, err)

	name := "new"
	color := "#ff0000"
	updated, err := store.UpdateGenre(ctx, g.ID, &task.UpdateGenre{Name: &name, Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Name)
	assert.Equal(t, "#ff0000", updated.Color)

	found, err := store.FindGenreByName(ctx, projectID, "new")
	require.NoError(t, err)
	require.NotNil(t, found)

	n, err := store.DeleteGenre(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gone, err := store.FindGenre(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
