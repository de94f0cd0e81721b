package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	vgerrors "github.com/vibegraph/vibegraph/internal/errors"
	"github.com/vibegraph/vibegraph/internal/events"
	"github.com/vibegraph/vibegraph/internal/task"
)

// CreateGenreRequest is the body for creating a dependency genre.
type CreateGenreRequest struct {
	Name     string  `json:"name"`
	Color    *string `json:"color,omitempty"`
	Position *int32  `json:"position,omitempty"`
}

// ReorderGenresRequest lists genre IDs in their new order.
type ReorderGenresRequest struct {
	GenreIDs []uuid.UUID `json:"genre_ids"`
}

// handleListGenres returns a project's genres in display order.
func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	genres, err := s.store.ListGenresByProject(r.Context(), projectID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if genres == nil {
		genres = []task.Genre{}
	}
	JSONResponse(w, genres)
}

// handleCreateGenre creates a genre in a project.
func (s *Server) handleCreateGenre(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req CreateGenreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		JSONError(w, "name is required", http.StatusBadRequest)
		return
	}

	genre, err := s.store.CreateGenre(r.Context(), &task.CreateGenre{
		ProjectID: projectID,
		Name:      req.Name,
		Color:     req.Color,
		Position:  req.Position,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	s.publisher.Publish(events.TopicGenres, events.NewEvent(events.EventGenreCreated, projectID, genre))
	JSONResponse(w, genre)
}

// handleUpdateGenre updates a genre's name, color, or position.
func (s *Server) handleUpdateGenre(w http.ResponseWriter, r *http.Request) {
	genreID, ok := pathUUID(w, r, "genre_id")
	if !ok {
		return
	}

	var req task.UpdateGenre
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	genre, err := s.store.UpdateGenre(r.Context(), genreID, &req)
	if err != nil {
		HandleError(w, err)
		return
	}

	s.publisher.Publish(events.TopicGenres, events.NewEvent(events.EventGenreUpdated, genre.ProjectID, genre))
	JSONResponse(w, genre)
}

// handleReorderGenres rewrites a project's genre positions following
// the given order.
func (s *Server) handleReorderGenres(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req ReorderGenresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.GenreIDs) == 0 {
		JSONError(w, "genre_ids is required", http.StatusBadRequest)
		return
	}

	// The store re-checks same-project membership; verify here as well
	// so a caller mixing projects gets a clean 400.
	for _, id := range req.GenreIDs {
		g, err := s.store.FindGenre(r.Context(), id)
		if err != nil {
			HandleError(w, err)
			return
		}
		if g == nil {
			HandleError(w, vgerrors.ErrGenreNotFound(id.String()))
			return
		}
		if g.ProjectID != projectID {
			JSONError(w, "genre "+id.String()+" does not belong to this project", http.StatusBadRequest)
			return
		}
	}

	genres, err := s.store.ReorderGenres(r.Context(), req.GenreIDs)
	if err != nil {
		HandleError(w, err)
		return
	}

	s.publisher.Publish(events.TopicGenres, events.NewEvent(events.EventGenresReordered, projectID, genres))
	JSONResponse(w, genres)
}

// handleDeleteGenre removes a genre.
func (s *Server) handleDeleteGenre(w http.ResponseWriter, r *http.Request) {
	genreID, ok := pathUUID(w, r, "genre_id")
	if !ok {
		return
	}

	genre, err := s.store.FindGenre(r.Context(), genreID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if genre == nil {
		HandleError(w, vgerrors.ErrGenreNotFound(genreID.String()))
		return
	}

	if _, err := s.store.DeleteGenre(r.Context(), genreID); err != nil {
		HandleError(w, err)
		return
	}

	s.publisher.Publish(events.TopicGenres, events.NewEvent(events.EventGenreDeleted, genre.ProjectID, genre))
	NoContent(w)
}
