package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vibegraph/vibegraph/internal/task"
)

const propertyColumns = `id, task_id, name, value, source, created_at, updated_at`

func scanProperty(scan func(dest ...any) error) (task.Property, error) {
	var (
		p                task.Property
		id, taskID       string
		createdAt, updAt string
	)

	err := scan(&id, &taskID, &p.Name, &p.Value, &p.Source, &createdAt, &updAt)
	if err != nil {
		return p, err
	}

	if err := parseUUIDCol(id, &p.ID); err != nil {
		return p, err
	}
	if err := parseUUIDCol(taskID, &p.TaskID); err != nil {
		return p, err
	}
	if err := parseTimeCol(createdAt, &p.CreatedAt); err != nil {
		return p, err
	}
	if err := parseTimeCol(updAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	return p, nil
}

// ListPropertiesByTask returns all properties of a task, name-ordered.
func (s *Store) ListPropertiesByTask(ctx context.Context, taskID uuid.UUID) ([]task.Property, error) {
	rows, err := s.query(ctx,
		`SELECT `+propertyColumns+` FROM task_properties WHERE task_id = ? ORDER BY name ASC`,
		taskID.String())
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var props []task.Property
	for rows.Next() {
		p, err := scanProperty(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate properties: %w", err)
	}
	return props, nil
}

// UpsertProperty creates or replaces the property keyed on
// (task_id, name).
func (s *Store) UpsertProperty(ctx context.Context, data *task.UpsertProperty) error {
	source := task.SourceVibe
	if data.Source != nil {
		source = *data.Source
	}

	now := formatTime(time.Now())
	_, err := s.exec(ctx, `
		INSERT INTO task_properties (id, task_id, name, value, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id, name) DO UPDATE SET
			value = excluded.value,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		uuid.NewString(), data.TaskID.String(), data.Name, data.Value, string(source), now, now)
	if err != nil {
		return fmt.Errorf("upsert property: %w", err)
	}
	return nil
}

// DeletePropertiesByTask removes all properties of a task.
func (s *Store) DeletePropertiesByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM task_properties WHERE task_id = ?`, taskID.String())
	if err != nil {
		return 0, fmt.Errorf("delete properties: %w", err)
	}
	return res.RowsAffected()
}
