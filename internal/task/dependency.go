package task

import (
	"time"

	"github.com/google/uuid"
)

// DependencyCreator identifies who created a dependency edge.
type DependencyCreator string

const (
	CreatorUser DependencyCreator = "user"
	CreatorAI   DependencyCreator = "ai"
)

// Dependency represents a dependency relationship between tasks.
// TaskID counts as blocked until DependsOnTaskID is done; starting it
// earlier requires confirmation.
type Dependency struct {
	ID              uuid.UUID         `json:"id"`
	TaskID          uuid.UUID         `json:"task_id"`
	DependsOnTaskID uuid.UUID         `json:"depends_on_task_id"`
	GenreID         *uuid.UUID        `json:"genre_id,omitempty"`
	CreatedBy       DependencyCreator `json:"created_by"`
	CreatedAt       time.Time         `json:"created_at"`
}

// CreateDependency holds the fields accepted when creating a dependency.
type CreateDependency struct {
	TaskID          uuid.UUID          `json:"task_id"`
	DependsOnTaskID uuid.UUID          `json:"depends_on_task_id"`
	CreatedBy       *DependencyCreator `json:"created_by,omitempty"`
	GenreID         *uuid.UUID         `json:"genre_id,omitempty"`
}

// GenreUpdateKind selects how a dependency update treats the genre field.
type GenreUpdateKind int

const (
	// GenreUnchanged leaves the existing genre as is.
	GenreUnchanged GenreUpdateKind = iota
	// GenreClear removes the genre from the dependency.
	GenreClear
	// GenreSet assigns a new genre to the dependency.
	GenreSet
)

// GenreUpdate is a tri-state update for a dependency's genre:
// no change, clear, or set to a specific genre.
type GenreUpdate struct {
	Kind    GenreUpdateKind
	GenreID uuid.UUID // valid only when Kind == GenreSet
}

// UnchangedGenre returns a GenreUpdate that leaves the genre untouched.
func UnchangedGenre() GenreUpdate { return GenreUpdate{Kind: GenreUnchanged} }

// ClearGenre returns a GenreUpdate that removes the genre.
func ClearGenre() GenreUpdate { return GenreUpdate{Kind: GenreClear} }

// SetGenre returns a GenreUpdate that assigns the given genre.
func SetGenre(id uuid.UUID) GenreUpdate { return GenreUpdate{Kind: GenreSet, GenreID: id} }

// Apply resolves the update against the dependency's current genre.
func (u GenreUpdate) Apply(current *uuid.UUID) *uuid.UUID {
	switch u.Kind {
	case GenreClear:
		return nil
	case GenreSet:
		id := u.GenreID
		return &id
	default:
		return current
	}
}
