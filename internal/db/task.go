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

const taskColumns = `id, project_id, title, description, status, parent_workspace_id,
	shared_task_id, position, dag_position_x, dag_position_y, created_at, updated_at`

func scanTask(scan func(dest ...any) error) (task.Task, error) {
	var (
		t                 task.Task
		id, projectID     string
		createdAt, updAt  string
		description       sql.NullString
		parentWorkspaceID sql.NullString
		sharedTaskID      sql.NullString
		position          sql.NullInt32
		dagX, dagY        sql.NullFloat64
	)

	err := scan(&id, &projectID, &t.Title, &description, &t.Status, &parentWorkspaceID,
		&sharedTaskID, &position, &dagX, &dagY, &createdAt, &updAt)
	if err != nil {
		return t, err
	}

	if err := parseUUIDCol(id, &t.ID); err != nil {
		return t, err
	}
	if err := parseUUIDCol(projectID, &t.ProjectID); err != nil {
		return t, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	if t.ParentWorkspaceID, err = parseNullUUID(parentWorkspaceID); err != nil {
		return t, err
	}
	if t.SharedTaskID, err = parseNullUUID(sharedTaskID); err != nil {
		return t, err
	}
	if position.Valid {
		t.Position = &position.Int32
	}
	if dagX.Valid {
		t.DAGPositionX = &dagX.Float64
	}
	if dagY.Valid {
		t.DAGPositionY = &dagY.Float64
	}
	if err := parseTimeCol(createdAt, &t.CreatedAt); err != nil {
		return t, err
	}
	if err := parseTimeCol(updAt, &t.UpdatedAt); err != nil {
		return t, err
	}
	return t, nil
}

// FindTask retrieves a task by ID. Returns nil if no task exists.
func (s *Store) FindTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	row := s.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String())
	t, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &t, nil
}

// ListTasksByProject returns all tasks in a project ordered by creation
// time.
func (s *Store) ListTasksByProject(ctx context.Context, projectID uuid.UUID) ([]task.Task, error) {
	rows, err := s.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY created_at ASC, id ASC`, projectID.String())
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// CreateTask inserts a new task and returns it.
func (s *Store) CreateTask(ctx context.Context, data *task.CreateTask) (*task.Task, error) {
	status := task.StatusTodo
	if data.Status != nil {
		status = *data.Status
	}

	now := time.Now().UTC()
	t := task.Task{
		ID:                uuid.New(),
		ProjectID:         data.ProjectID,
		Title:             data.Title,
		Description:       data.Description,
		Status:            status,
		ParentWorkspaceID: data.ParentWorkspaceID,
		SharedTaskID:      data.SharedTaskID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	_, err := s.exec(ctx, `
		INSERT INTO tasks (id, project_id, title, description, status, parent_workspace_id, shared_task_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.ProjectID.String(), t.Title, t.Description, string(t.Status),
		uuidPtrToCol(t.ParentWorkspaceID), uuidPtrToCol(t.SharedTaskID),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &t, nil
}

// UpdateTaskBasic updates a task's title, description, status, and
// parent workspace.
func (s *Store) UpdateTaskBasic(ctx context.Context, id uuid.UUID, data *task.UpdateTask) (*task.Task, error) {
	_, err := s.exec(ctx, `
		UPDATE tasks SET title = ?, description = ?, status = ?, parent_workspace_id = ?, updated_at = ?
		WHERE id = ?`,
		data.Title, data.Description, string(data.Status),
		uuidPtrToCol(data.ParentWorkspaceID), formatTime(time.Now()), id.String())
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	t, err := s.FindTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, vgerrors.ErrTaskNotFound(id.String())
	}
	return t, nil
}

// UpdateTaskPosition updates a task's kanban position.
func (s *Store) UpdateTaskPosition(ctx context.Context, id uuid.UUID, position int32) (*task.Task, error) {
	_, err := s.exec(ctx, `UPDATE tasks SET position = ?, updated_at = ? WHERE id = ?`,
		position, formatTime(time.Now()), id.String())
	if err != nil {
		return nil, fmt.Errorf("update task position: %w", err)
	}

	t, err := s.FindTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, vgerrors.ErrTaskNotFound(id.String())
	}
	return t, nil
}

// UpdateTaskDAGPosition writes a task's DAG layout coordinates.
func (s *Store) UpdateTaskDAGPosition(ctx context.Context, id uuid.UUID, x, y *float64) error {
	_, err := s.exec(ctx, `UPDATE tasks SET dag_position_x = ?, dag_position_y = ?, updated_at = ? WHERE id = ?`,
		x, y, formatTime(time.Now()), id.String())
	if err != nil {
		return fmt.Errorf("update task dag position: %w", err)
	}
	return nil
}

// DeleteTask removes a task. Dependency edges, mappings, and properties
// referencing it cascade.
func (s *Store) DeleteTask(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return 0, fmt.Errorf("delete task: %w", err)
	}
	return res.RowsAffected()
}
