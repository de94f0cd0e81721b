package task

import (
	"time"

	"github.com/google/uuid"
)

// PropertySource identifies where a task property came from.
type PropertySource string

const (
	SourceVibe   PropertySource = "vibe"
	SourceGithub PropertySource = "github"
)

// Property is an auxiliary key/value attached to a task. Properties
// preserve remote metadata (labels, milestone, project fields) without
// widening the Task row itself. Upserts are keyed on (task_id, name).
type Property struct {
	ID        uuid.UUID      `json:"id"`
	TaskID    uuid.UUID      `json:"task_id"`
	Name      string         `json:"name"`
	Value     string         `json:"value"`
	Source    PropertySource `json:"source"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// UpsertProperty holds the fields accepted when upserting a property.
type UpsertProperty struct {
	TaskID uuid.UUID       `json:"task_id"`
	Name   string          `json:"name"`
	Value  string          `json:"value"`
	Source *PropertySource `json:"source,omitempty"`
}
