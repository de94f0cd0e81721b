// Package events provides change-event types and publishing
// infrastructure for vibegraph's record streams.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of change event.
type EventType string

const (
	// EventDependencyCreated indicates a new dependency edge.
	EventDependencyCreated EventType = "dependency_created"
	// EventDependencyUpdated indicates a dependency edge changed.
	EventDependencyUpdated EventType = "dependency_updated"
	// EventDependencyDeleted indicates a dependency edge was removed.
	EventDependencyDeleted EventType = "dependency_deleted"

	// EventGenreCreated indicates a new dependency genre.
	EventGenreCreated EventType = "genre_created"
	// EventGenreUpdated indicates a genre changed.
	EventGenreUpdated EventType = "genre_updated"
	// EventGenreDeleted indicates a genre was removed.
	EventGenreDeleted EventType = "genre_deleted"

	// EventGenresReordered indicates a project's genres were reordered.
	EventGenresReordered EventType = "genres_reordered"
)

// Event represents a published change event scoped to a project.
type Event struct {
	Type      EventType `json:"type"`
	ProjectID uuid.UUID `json:"project_id"`
	Data      any       `json:"data"`
	Time      time.Time `json:"time"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(eventType EventType, projectID uuid.UUID, data any) Event {
	return Event{
		Type:      eventType,
		ProjectID: projectID,
		Data:      data,
		Time:      time.Now(),
	}
}
