package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/vibegraph/vibegraph/internal/orchestrator"
	"github.com/vibegraph/vibegraph/internal/task"
)

// OrchestratorStateResponse pairs the lifecycle state with the current
// plan.
type OrchestratorStateResponse struct {
	State orchestrator.State          `json:"state"`
	Plan  *orchestrator.ExecutionPlan `json:"plan"`
}

// ValidateTransitionRequest asks whether a status change is allowed.
type ValidateTransitionRequest struct {
	TaskID    uuid.UUID   `json:"task_id"`
	NewStatus task.Status `json:"new_status"`
}

// TaskFailedRequest carries the failure message for a task.
type TaskFailedRequest struct {
	Error string `json:"error"`
}

func (s *Server) stateResponse(orch *orchestrator.ProjectOrchestrator) OrchestratorStateResponse {
	return OrchestratorStateResponse{
		State: orch.GetState(),
		Plan:  orch.CachedPlan(),
	}
}

// handleGetOrchestrator returns the orchestrator's state and a freshly
// built plan.
func (s *Server) handleGetOrchestrator(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	orch := s.registry.GetOrCreate(projectID)
	if _, err := orch.BuildPlan(r.Context(), s.store); err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, s.stateResponse(orch))
}

func (s *Server) handleStartOrchestrator(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	orch := s.registry.GetOrCreate(projectID)
	if err := orch.Start(r.Context(), s.store); err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, s.stateResponse(orch))
}

func (s *Server) handlePauseOrchestrator(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	orch := s.registry.GetOrCreate(projectID)
	if err := orch.Pause(); err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, s.stateResponse(orch))
}

func (s *Server) handleResumeOrchestrator(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	orch := s.registry.GetOrCreate(projectID)
	if err := orch.Resume(r.Context(), s.store); err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, s.stateResponse(orch))
}

func (s *Server) handleStopOrchestrator(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	orch := s.registry.GetOrCreate(projectID)
	if err := orch.Stop(); err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, s.stateResponse(orch))
}

// handleGetReadyTasks returns the task IDs a dispatcher may start now.
func (s *Server) handleGetReadyTasks(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	orch := s.registry.GetOrCreate(projectID)
	ids, err := orch.GetReadyToExecute(r.Context(), s.store)
	if err != nil {
		HandleError(w, err)
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	JSONResponse(w, ids)
}

// handleValidateTransition validates a proposed status change.
func (s *Server) handleValidateTransition(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req ValidateTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !task.IsValidStatus(req.NewStatus) {
		JSONError(w, "invalid new_status", http.StatusBadRequest)
		return
	}

	orch := s.registry.GetOrCreate(projectID)
	validation, err := orch.ValidateTaskTransition(r.Context(), req.TaskID, req.NewStatus, s.store)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, validation)
}

func (s *Server) handleTaskStarted(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "task_id")
	if !ok {
		return
	}

	orch := s.registry.GetOrCreate(projectID)
	if err := orch.OnTaskStarted(r.Context(), taskID, s.store); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}

// handleTaskCompleted records a completion and returns the advisory
// list of newly unblocked task IDs.
func (s *Server) handleTaskCompleted(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "task_id")
	if !ok {
		return
	}

	orch := s.registry.GetOrCreate(projectID)
	unblocked, err := orch.OnTaskCompleted(r.Context(), taskID, s.store)
	if err != nil {
		HandleError(w, err)
		return
	}
	if unblocked == nil {
		unblocked = []uuid.UUID{}
	}
	JSONResponse(w, unblocked)
}

func (s *Server) handleTaskFailed(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "task_id")
	if !ok {
		return
	}

	var req TaskFailedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	orch := s.registry.GetOrCreate(projectID)
	if err := orch.OnTaskFailed(r.Context(), taskID, req.Error, s.store); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}

func (s *Server) handleTaskReview(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "task_id")
	if !ok {
		return
	}

	orch := s.registry.GetOrCreate(projectID)
	if err := orch.OnTaskReview(r.Context(), taskID, s.store); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}
