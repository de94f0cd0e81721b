package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	vgerrors "github.com/vibegraph/vibegraph/internal/errors"
	"github.com/vibegraph/vibegraph/internal/task"
)

const genreColumns = `id, project_id, name, color, position, created_at, updated_at`

func scanGenre(scan func(dest ...any) error) (task.Genre, error) {
	var (
		g                task.Genre
		id, projectID    string
		createdAt, updAt string
	)

	err := scan(&id, &projectID, &g.Name, &g.Color, &g.Position, &createdAt, &updAt)
	if err != nil {
		return g, err
	}

	if err := parseUUIDCol(id, &g.ID); err != nil {
		return g, err
	}
	if err := parseUUIDCol(projectID, &g.ProjectID); err != nil {
		return g, err
	}
	if err := parseTimeCol(createdAt, &g.CreatedAt); err != nil {
		return g, err
	}
	if err := parseTimeCol(updAt, &g.UpdatedAt); err != nil {
		return g, err
	}
	return g, nil
}

// FindGenre retrieves a genre by ID. Returns nil if absent.
func (s *Store) FindGenre(ctx context.Context, id uuid.UUID) (*task.Genre, error) {
	row := s.queryRow(ctx, `SELECT `+genreColumns+` FROM dependency_genres WHERE id = ?`, id.String())
	g, err := scanGenre(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find genre: %w", err)
	}
	return &g, nil
}

// FindGenreByName retrieves a genre by name within a project.
func (s *Store) FindGenreByName(ctx context.Context, projectID uuid.UUID, name string) (*task.Genre, error) {
	row := s.queryRow(ctx,
		`SELECT `+genreColumns+` FROM dependency_genres WHERE project_id = ? AND name = ?`,
		projectID.String(), name)
	g, err := scanGenre(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find genre by name: %w", err)
	}
	return &g, nil
}

// ListGenresByProject returns a project's genres ordered by
// (position asc, created_at asc).
func (s *Store) ListGenresByProject(ctx context.Context, projectID uuid.UUID) ([]task.Genre, error) {
	rows, err := s.query(ctx,
		`SELECT `+genreColumns+` FROM dependency_genres WHERE project_id = ? ORDER BY position ASC, created_at ASC`,
		projectID.String())
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	var genres []task.Genre
	for rows.Next() {
		g, err := scanGenre(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genres: %w", err)
	}
	return genres, nil
}

// nextGenrePosition returns max(position)+1 for a project, 0 when empty.
func (s *Store) nextGenrePosition(ctx context.Context, projectID uuid.UUID) (int32, error) {
	var next int32
	err := s.queryRow(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM dependency_genres WHERE project_id = ?`,
		projectID.String()).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next genre position: %w", err)
	}
	return next, nil
}

// CreateGenre inserts a new genre. Color defaults to the shared grey;
// position defaults to the end of the project's ordering. A duplicate
// name within the project is rejected.
func (s *Store) CreateGenre(ctx context.Context, data *task.CreateGenre) (*task.Genre, error) {
	existing, err := s.FindGenreByName(ctx, data.ProjectID, data.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, vgerrors.ErrDuplicateGenreName(data.Name)
	}

	color := task.DefaultGenreColor
	if data.Color != nil {
		color = *data.Color
	}

	var position int32
	if data.Position != nil {
		position = *data.Position
	} else {
		position, err = s.nextGenrePosition(ctx, data.ProjectID)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	g := task.Genre{
		ID:        uuid.New(),
		ProjectID: data.ProjectID,
		Name:      data.Name,
		Color:     color,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.exec(ctx, `
		INSERT INTO dependency_genres (id, project_id, name, color, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID.String(), g.ProjectID.String(), g.Name, g.Color, g.Position,
		formatTime(g.CreatedAt), formatTime(g.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("create genre: %w", err)
	}
	return &g, nil
}

// UpdateGenre updates a genre's name, color, and position. Nil fields
// keep their current values.
func (s *Store) UpdateGenre(ctx context.Context, id uuid.UUID, data *task.UpdateGenre) (*task.Genre, error) {
	existing, err := s.FindGenre(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, vgerrors.ErrGenreNotFound(id.String())
	}

	name := existing.Name
	if data.Name != nil {
		name = *data.Name
	}
	color := existing.Color
	if data.Color != nil {
		color = *data.Color
	}
	position := existing.Position
	if data.Position != nil {
		position = *data.Position
	}

	if name != existing.Name {
		dup, err := s.FindGenreByName(ctx, existing.ProjectID, name)
		if err != nil {
			return nil, err
		}
		if dup != nil && dup.ID != id {
			return nil, vgerrors.ErrDuplicateGenreName(name)
		}
	}

	now := time.Now().UTC()
	_, err = s.exec(ctx, `
		UPDATE dependency_genres SET name = ?, color = ?, position = ?, updated_at = ? WHERE id = ?`,
		name, color, position, formatTime(now), id.String())
	if err != nil {
		return nil, fmt.Errorf("update genre: %w", err)
	}

	existing.Name = name
	existing.Color = color
	existing.Position = position
	existing.UpdatedAt = now
	return existing, nil
}

// ReorderGenres rewrites positions 0..n-1 following the given order, in
// one transaction. All IDs must belong to the same project; the check is
// repeated here rather than trusted to the route layer.
func (s *Store) ReorderGenres(ctx context.Context, genreIDs []uuid.UUID) ([]task.Genre, error) {
	if len(genreIDs) == 0 {
		return nil, nil
	}

	var projectID uuid.UUID
	for i, id := range genreIDs {
		g, err := s.FindGenre(ctx, id)
		if err != nil {
			return nil, err
		}
		if g == nil {
			return nil, vgerrors.ErrGenreNotFound(id.String())
		}
		if i == 0 {
			projectID = g.ProjectID
		} else if g.ProjectID != projectID {
			return nil, fmt.Errorf("reorder genres: genre %s belongs to a different project", id)
		}
	}

	tx, err := s.drv.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reorder: %w", err)
	}

	now := formatTime(time.Now())
	stmt := s.drv.Rebind(`UPDATE dependency_genres SET position = ?, updated_at = ? WHERE id = ?`)
	for index, id := range genreIDs {
		if _, err := tx.ExecContext(ctx, stmt, int32(index), now, id.String()); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("reorder genre %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reorder: %w", err)
	}

	return s.ListGenresByProject(ctx, projectID)
}

// DeleteGenre removes a genre. Dependencies referencing it keep their
// genre_id; callers clear it when that matters.
func (s *Store) DeleteGenre(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM dependency_genres WHERE id = ?`, id.String())
	if err != nil {
		return 0, fmt.Errorf("delete genre: %w", err)
	}
	return res.RowsAffected()
}
