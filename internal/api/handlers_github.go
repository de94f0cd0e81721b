package api

import (
	"encoding/json"
	"net/http"

	vgerrors "github.com/vibegraph/vibegraph/internal/errors"
	"github.com/vibegraph/vibegraph/internal/github"
)

// CreateGithubLinkRequest is the body for linking a project to a GitHub
// Projects v2 project.
type CreateGithubLinkRequest struct {
	GithubProjectID string  `json:"github_project_id"`
	Owner           string  `json:"owner"`
	Repo            *string `json:"repo,omitempty"`
	Number          *int64  `json:"number,omitempty"`
}

// handleListGithubLinks returns a project's GitHub links.
func (s *Server) handleListGithubLinks(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	links, err := s.store.ListLinksByProject(r.Context(), projectID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if links == nil {
		links = []github.ProjectLink{}
	}
	JSONResponse(w, links)
}

// handleCreateGithubLink links a project to a GitHub project.
func (s *Server) handleCreateGithubLink(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req CreateGithubLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.GithubProjectID == "" || req.Owner == "" {
		JSONError(w, "github_project_id and owner are required", http.StatusBadRequest)
		return
	}

	link, err := s.store.CreateLink(r.Context(), &github.CreateProjectLink{
		ProjectID:       projectID,
		GithubProjectID: req.GithubProjectID,
		Owner:           req.Owner,
		Repo:            req.Repo,
		Number:          req.Number,
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	s.logger.Info("created GitHub link", "link_id", link.ID, "github_project_id", link.GithubProjectID)
	JSONResponse(w, link)
}

// handleDeleteGithubLink removes a link and its mappings.
func (s *Server) handleDeleteGithubLink(w http.ResponseWriter, r *http.Request) {
	linkID, ok := pathUUID(w, r, "link_id")
	if !ok {
		return
	}

	n, err := s.store.DeleteLink(r.Context(), linkID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if n == 0 {
		HandleError(w, vgerrors.ErrLinkNotFound(linkID.String()))
		return
	}
	NoContent(w)
}

// handleToggleGithubLinkSync flips a link's sync_enabled flag.
func (s *Server) handleToggleGithubLinkSync(w http.ResponseWriter, r *http.Request) {
	linkID, ok := pathUUID(w, r, "link_id")
	if !ok {
		return
	}

	link, err := s.store.FindLink(r.Context(), linkID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if link == nil {
		HandleError(w, vgerrors.ErrLinkNotFound(linkID.String()))
		return
	}

	if err := s.store.UpdateLinkSyncEnabled(r.Context(), linkID, !link.SyncEnabled); err != nil {
		HandleError(w, err)
		return
	}

	link.SyncEnabled = !link.SyncEnabled
	JSONResponse(w, link)
}

// handleSyncGithubLink runs an on-demand pull for one link.
func (s *Server) handleSyncGithubLink(w http.ResponseWriter, r *http.Request) {
	linkID, ok := pathUUID(w, r, "link_id")
	if !ok {
		return
	}

	link, err := s.store.FindLink(r.Context(), linkID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if link == nil {
		HandleError(w, vgerrors.ErrLinkNotFound(linkID.String()))
		return
	}

	if err := s.syncSvc.CheckAvailable(r.Context()); err != nil {
		HandleError(w, err)
		return
	}

	result, err := s.syncSvc.SyncFromGithub(r.Context(), s.store, link, link.ProjectID)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, result)
}

// handleGetGithubLinkMappings returns the issue mappings of a link.
func (s *Server) handleGetGithubLinkMappings(w http.ResponseWriter, r *http.Request) {
	linkID, ok := pathUUID(w, r, "link_id")
	if !ok {
		return
	}

	mappings, err := s.store.ListMappingsByLink(r.Context(), linkID)
	if err != nil {
		HandleError(w, err)
		return
	}
	if mappings == nil {
		mappings = []github.IssueMapping{}
	}
	JSONResponse(w, mappings)
}
