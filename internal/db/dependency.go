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

const dependencyColumns = `id, task_id, depends_on_task_id, genre_id, created_by, created_at`

func scanDependency(scan func(dest ...any) error) (task.Dependency, error) {
	var (
		d                       task.Dependency
		id, taskID, dependsOnID string
		genreID                 sql.NullString
		createdAt               string
	)

	err := scan(&id, &taskID, &dependsOnID, &genreID, &d.CreatedBy, &createdAt)
	if err != nil {
		return d, err
	}

	if err := parseUUIDCol(id, &d.ID); err != nil {
		return d, err
	}
	if err := parseUUIDCol(taskID, &d.TaskID); err != nil {
		return d, err
	}
	if err := parseUUIDCol(dependsOnID, &d.DependsOnTaskID); err != nil {
		return d, err
	}
	if d.GenreID, err = parseNullUUID(genreID); err != nil {
		return d, err
	}
	if err := parseTimeCol(createdAt, &d.CreatedAt); err != nil {
		return d, err
	}
	return d, nil
}

// FindDependency retrieves a dependency by ID. Returns nil if absent.
func (s *Store) FindDependency(ctx context.Context, id uuid.UUID) (*task.Dependency, error) {
	row := s.queryRow(ctx, `SELECT `+dependencyColumns+` FROM task_dependencies WHERE id = ?`, id.String())
	d, err := scanDependency(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find dependency: %w", err)
	}
	return &d, nil
}

func (s *Store) listDependencies(ctx context.Context, query string, args ...any) ([]task.Dependency, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dependencies: %w", err)
	}
	defer rows.Close()

	var deps []task.Dependency
	for rows.Next() {
		d, err := scanDependency(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dependencies: %w", err)
	}
	return deps, nil
}

// ListDependenciesByTask returns the dependencies of one task (the
// tasks it depends on).
func (s *Store) ListDependenciesByTask(ctx context.Context, taskID uuid.UUID) ([]task.Dependency, error) {
	return s.listDependencies(ctx,
		`SELECT `+dependencyColumns+` FROM task_dependencies WHERE task_id = ? ORDER BY created_at ASC`,
		taskID.String())
}

// ListDependenciesByProject returns all dependency edges between tasks
// of a project.
func (s *Store) ListDependenciesByProject(ctx context.Context, projectID uuid.UUID) ([]task.Dependency, error) {
	return s.listDependencies(ctx, `
		SELECT td.id, td.task_id, td.depends_on_task_id, td.genre_id, td.created_by, td.created_at
		FROM task_dependencies td
		INNER JOIN tasks t ON td.task_id = t.id
		WHERE t.project_id = ?
		ORDER BY td.created_at ASC`,
		projectID.String())
}

// ListDependents returns the edges pointing at a task (the tasks that
// depend on it).
func (s *Store) ListDependents(ctx context.Context, dependsOnTaskID uuid.UUID) ([]task.Dependency, error) {
	return s.listDependencies(ctx,
		`SELECT `+dependencyColumns+` FROM task_dependencies WHERE depends_on_task_id = ? ORDER BY created_at ASC`,
		dependsOnTaskID.String())
}

// DependencyExists reports whether task_id already depends on
// depends_on_task_id.
func (s *Store) DependencyExists(ctx context.Context, taskID, dependsOnTaskID uuid.UUID) (bool, error) {
	var n int
	err := s.queryRow(ctx,
		`SELECT COUNT(1) FROM task_dependencies WHERE task_id = ? AND depends_on_task_id = ?`,
		taskID.String(), dependsOnTaskID.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("dependency exists: %w", err)
	}
	return n > 0, nil
}

// WouldCreateCycle reports whether adding task_id → depends_on_task_id
// would close a cycle, i.e. whether task_id is reachable from
// depends_on_task_id through existing edges. Implemented as a recursive
// CTE so the traversal runs in the store.
func (s *Store) WouldCreateCycle(ctx context.Context, taskID, dependsOnTaskID uuid.UUID) (bool, error) {
	var n int
	err := s.queryRow(ctx, `
		WITH RECURSIVE reachable AS (
			SELECT depends_on_task_id AS target_id
			FROM task_dependencies
			WHERE task_id = ?

			UNION

			SELECT td.depends_on_task_id
			FROM task_dependencies td
			INNER JOIN reachable r ON td.task_id = r.target_id
		)
		SELECT COUNT(1) FROM reachable WHERE target_id = ?`,
		dependsOnTaskID.String(), taskID.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("cycle check: %w", err)
	}
	return n > 0, nil
}

// CreateDependency inserts a new dependency edge and returns it.
func (s *Store) CreateDependency(ctx context.Context, data *task.CreateDependency) (*task.Dependency, error) {
	createdBy := task.CreatorUser
	if data.CreatedBy != nil {
		createdBy = *data.CreatedBy
	}

	d := task.Dependency{
		ID:              uuid.New(),
		TaskID:          data.TaskID,
		DependsOnTaskID: data.DependsOnTaskID,
		GenreID:         data.GenreID,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now().UTC(),
	}

	_, err := s.exec(ctx, `
		INSERT INTO task_dependencies (id, task_id, depends_on_task_id, genre_id, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID.String(), d.TaskID.String(), d.DependsOnTaskID.String(),
		uuidPtrToCol(d.GenreID), string(d.CreatedBy), formatTime(d.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("create dependency: %w", err)
	}
	return &d, nil
}

// UpdateDependency applies a tri-state genre update to a dependency.
func (s *Store) UpdateDependency(ctx context.Context, id uuid.UUID, update task.GenreUpdate) (*task.Dependency, error) {
	existing, err := s.FindDependency(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, vgerrors.ErrDependencyNotFound(id.String())
	}

	genreID := update.Apply(existing.GenreID)
	_, err = s.exec(ctx, `UPDATE task_dependencies SET genre_id = ? WHERE id = ?`,
		uuidPtrToCol(genreID), id.String())
	if err != nil {
		return nil, fmt.Errorf("update dependency: %w", err)
	}

	existing.GenreID = genreID
	return existing, nil
}

// DeleteDependency removes a dependency by ID.
func (s *Store) DeleteDependency(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM task_dependencies WHERE id = ?`, id.String())
	if err != nil {
		return 0, fmt.Errorf("delete dependency: %w", err)
	}
	return res.RowsAffected()
}

// DeleteDependenciesByTask removes all dependencies of a task.
func (s *Store) DeleteDependenciesByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM task_dependencies WHERE task_id = ?`, taskID.String())
	if err != nil {
		return 0, fmt.Errorf("delete dependencies: %w", err)
	}
	return res.RowsAffected()
}

// DeleteDependencyBetween removes the edge task_id → depends_on_task_id.
func (s *Store) DeleteDependencyBetween(ctx context.Context, taskID, dependsOnTaskID uuid.UUID) (int64, error) {
	res, err := s.exec(ctx,
		`DELETE FROM task_dependencies WHERE task_id = ? AND depends_on_task_id = ?`,
		taskID.String(), dependsOnTaskID.String())
	if err != nil {
		return 0, fmt.Errorf("delete dependency: %w", err)
	}
	return res.RowsAffected()
}
