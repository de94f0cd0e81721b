package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	vgerrors "github.com/vibegraph/vibegraph/internal/errors"
	"github.com/vibegraph/vibegraph/internal/events"
	"github.com/vibegraph/vibegraph/internal/orchestrator"
	"github.com/vibegraph/vibegraph/internal/task"
)

// CreateDependencyRequest is the body for creating a dependency edge.
type CreateDependencyRequest struct {
	TaskID          uuid.UUID               `json:"task_id"`
	DependsOnTaskID uuid.UUID               `json:"depends_on_task_id"`
	CreatedBy       *task.DependencyCreator `json:"created_by,omitempty"`
	GenreID         *uuid.UUID              `json:"genre_id,omitempty"`
}

// GenreUpdatePayload encodes the tri-state genre update: "unchanged",
// "clear", or "set" with a genre_id.
type GenreUpdatePayload struct {
	Action  string     `json:"action"`
	GenreID *uuid.UUID `json:"genre_id,omitempty"`
}

// UpdateDependencyRequest is the body for updating a dependency.
type UpdateDependencyRequest struct {
	Genre *GenreUpdatePayload `json:"genre,omitempty"`
}

// UpdatePositionRequest is the body for updating a task's position.
type UpdatePositionRequest struct {
	Position int32 `json:"position"`
}

// handleListDependencies returns all dependency edges of a project.
func (s *Server) handleListDependencies(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	deps, err := s.store.ListDependenciesByProject(r.Context(), projectID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if deps == nil {
		deps = []task.Dependency{}
	}
	JSONResponse(w, deps)
}

// handleCreateDependency creates a dependency edge after validating
// self-reference, project membership, duplication, and acyclicity, then
// recomputes the project's DAG layout.
func (s *Server) handleCreateDependency(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req CreateDependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	if req.TaskID == req.DependsOnTaskID {
		HandleError(w, vgerrors.ErrSelfDependency(req.TaskID.String()))
		return
	}

	t, err := s.store.FindTask(ctx, req.TaskID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if t == nil {
		HandleError(w, vgerrors.ErrTaskNotFound(req.TaskID.String()))
		return
	}
	if t.ProjectID != projectID {
		HandleError(w, vgerrors.ErrCrossProjectEdge())
		return
	}

	dependsOn, err := s.store.FindTask(ctx, req.DependsOnTaskID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if dependsOn == nil {
		HandleError(w, vgerrors.ErrTaskNotFound(req.DependsOnTaskID.String()))
		return
	}
	if dependsOn.ProjectID != projectID {
		HandleError(w, vgerrors.ErrCrossProjectEdge())
		return
	}

	exists, err := s.store.DependencyExists(ctx, req.TaskID, req.DependsOnTaskID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if exists {
		HandleError(w, vgerrors.ErrDuplicateDependency(req.TaskID.String(), req.DependsOnTaskID.String()))
		return
	}

	cyclic, err := s.store.WouldCreateCycle(ctx, req.TaskID, req.DependsOnTaskID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if cyclic {
		HandleError(w, vgerrors.ErrCycleDetected(req.TaskID.String(), req.DependsOnTaskID.String()))
		return
	}

	dep, err := s.store.CreateDependency(ctx, &task.CreateDependency{
		TaskID:          req.TaskID,
		DependsOnTaskID: req.DependsOnTaskID,
		CreatedBy:       req.CreatedBy,
		GenreID:         req.GenreID,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	if err := orchestrator.RecalculateDAGLayout(ctx, s.store, projectID, s.logger); err != nil {
		s.logger.Warn("DAG layout recalculation failed", "project_id", projectID, "error", err)
	}

	s.publisher.Publish(events.TopicDependencies, events.NewEvent(events.EventDependencyCreated, projectID, dep))
	s.logger.Info("created dependency", "task_id", req.TaskID, "depends_on_task_id", req.DependsOnTaskID)

	JSONResponse(w, dep)
}

// dependencyProject resolves the project a dependency belongs to.
func (s *Server) dependencyProject(r *http.Request, dep *task.Dependency) (uuid.UUID, error) {
	t, err := s.store.FindTask(r.Context(), dep.TaskID)
	if err != nil {
		return uuid.Nil, err
	}
	if t == nil {
		return uuid.Nil, vgerrors.ErrTaskNotFound(dep.TaskID.String())
	}
	return t.ProjectID, nil
}

// handleUpdateDependency applies a tri-state genre update.
func (s *Server) handleUpdateDependency(w http.ResponseWriter, r *http.Request) {
	depID, ok := pathUUID(w, r, "dep_id")
	if !ok {
		return
	}

	var req UpdateDependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	update := task.UnchangedGenre()
	if req.Genre != nil {
		switch req.Genre.Action {
		case "unchanged", "":
			update = task.UnchangedGenre()
		case "clear":
			update = task.ClearGenre()
		case "set":
			if req.Genre.GenreID == nil {
				JSONError(w, "genre action \"set\" requires genre_id", http.StatusBadRequest)
				return
			}
			update = task.SetGenre(*req.Genre.GenreID)
		default:
			JSONError(w, "unknown genre action: "+req.Genre.Action, http.StatusBadRequest)
			return
		}
	}

	dep, err := s.store.UpdateDependency(r.Context(), depID, update)
	if err != nil {
		HandleError(w, err)
		return
	}

	if projectID, err := s.dependencyProject(r, dep); err == nil {
		s.publisher.Publish(events.TopicDependencies, events.NewEvent(events.EventDependencyUpdated, projectID, dep))
	}

	JSONResponse(w, dep)
}

// handleDeleteDependency removes a dependency edge.
func (s *Server) handleDeleteDependency(w http.ResponseWriter, r *http.Request) {
	depID, ok := pathUUID(w, r, "dep_id")
	if !ok {
		return
	}

	dep, err := s.store.FindDependency(r.Context(), depID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if dep == nil {
		HandleError(w, vgerrors.ErrDependencyNotFound(depID.String()))
		return
	}

	projectID, projErr := s.dependencyProject(r, dep)

	if _, err := s.store.DeleteDependency(r.Context(), depID); err != nil {
		HandleError(w, err)
		return
	}

	if projErr == nil {
		s.publisher.Publish(events.TopicDependencies, events.NewEvent(events.EventDependencyDeleted, projectID, dep))
	}
	s.logger.Info("deleted dependency", "dependency_id", depID,
		"task_id", dep.TaskID, "depends_on_task_id", dep.DependsOnTaskID)

	NoContent(w)
}

// handleUpdateTaskPosition updates a task's kanban position.
func (s *Server) handleUpdateTaskPosition(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(w, r, "task_id")
	if !ok {
		return
	}

	var req UpdatePositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	t, err := s.store.FindTask(r.Context(), taskID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if t == nil {
		HandleError(w, vgerrors.ErrTaskNotFound(taskID.String()))
		return
	}

	updated, err := s.store.UpdateTaskPosition(r.Context(), taskID, req.Position)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, updated)
}
