package task

import (
	"time"

	"github.com/google/uuid"
)

// DefaultGenreColor is the hex color assigned when none is given.
const DefaultGenreColor = "#808080"

// Genre is a user-defined category attached to dependency edges,
// ordered within a project by (position asc, created_at asc).
type Genre struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Position  int32     `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateGenre holds the fields accepted when creating a genre.
// Position defaults to max+1 within the project; color to DefaultGenreColor.
type CreateGenre struct {
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color,omitempty"`
	Position  *int32    `json:"position,omitempty"`
}

// UpdateGenre holds the fields accepted when updating a genre.
// Nil fields are left unchanged.
type UpdateGenre struct {
	Name     *string `json:"name,omitempty"`
	Color    *string `json:"color,omitempty"`
	Position *int32  `json:"position,omitempty"`
}
