package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vibegraph/vibegraph/internal/task"
)

// Store is the persistence the sync engine consumes. The db package
// provides the production implementation.
type Store interface {
	FindTask(ctx context.Context, id uuid.UUID) (*task.Task, error)
	CreateTask(ctx context.Context, data *task.CreateTask) (*task.Task, error)
	UpdateTaskBasic(ctx context.Context, id uuid.UUID, data *task.UpdateTask) (*task.Task, error)
	UpsertProperty(ctx context.Context, data *task.UpsertProperty) error

	FindLink(ctx context.Context, id uuid.UUID) (*ProjectLink, error)
	ListAllEnabledLinks(ctx context.Context) ([]ProjectLink, error)
	UpdateLinkLastSyncAt(ctx context.Context, id uuid.UUID, at time.Time) error

	FindMappingByTask(ctx context.Context, taskID uuid.UUID) (*IssueMapping, error)
	FindMappingByIssue(ctx context.Context, linkID uuid.UUID, issueNumber int64) (*IssueMapping, error)
	CreateMapping(ctx context.Context, data *CreateIssueMapping) (*IssueMapping, error)
	UpdateMappingSyncTimestamps(ctx context.Context, id uuid.UUID, githubUpdatedAt, vibeUpdatedAt *time.Time) error
}

// GithubToVibe maps a remote issue to a local status. The project
// "Status" field wins when it carries a recognizable word; the issue
// state is the fallback.
func GithubToVibe(issueState string, projectStatus *string) task.Status {
	if projectStatus != nil {
		lower := strings.ToLower(*projectStatus)
		switch {
		case strings.Contains(lower, "progress"):
			return task.StatusInProgress
		case strings.Contains(lower, "review"):
			return task.StatusInReview
		case strings.Contains(lower, "done"), strings.Contains(lower, "complete"):
			return task.StatusDone
		case strings.Contains(lower, "cancel"):
			return task.StatusCancelled
		}
	}

	if strings.EqualFold(issueState, "CLOSED") {
		return task.StatusDone
	}
	return task.StatusTodo
}

// VibeToGithubState maps a local status to the GraphQL issue state enum.
func VibeToGithubState(status task.Status) string {
	switch status {
	case task.StatusDone, task.StatusCancelled:
		return "CLOSED"
	default:
		return "OPEN"
	}
}

// SyncResult reports the outcome of one pull. Per-item failures land in
// Errors; the pull itself keeps going.
type SyncResult struct {
	ItemsSynced  int      `json:"items_synced"`
	ItemsCreated int      `json:"items_created"`
	ItemsUpdated int      `json:"items_updated"`
	ItemsSkipped int      `json:"items_skipped"`
	Errors       []string `json:"errors"`
}

// SyncService reconciles GitHub Projects v2 with local tasks.
type SyncService struct {
	provider IssueProvider
	queue    *Queue
	logger   *slog.Logger
}

// NewSyncService creates a sync service around a provider.
func NewSyncService(provider IssueProvider, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		provider: provider,
		queue:    NewQueue(logger),
		logger:   logger,
	}
}

// Provider returns the underlying issue provider.
func (s *SyncService) Provider() IssueProvider {
	return s.provider
}

// CheckAvailable verifies the provider can reach GitHub.
func (s *SyncService) CheckAvailable(ctx context.Context) error {
	return s.provider.CheckAvailable(ctx)
}

// SyncFromGithub pulls every item of the linked GitHub project and
// upserts local tasks. Item failures are accumulated, never fatal.
// The link's last_sync_at is stamped after the pass.
func (s *SyncService) SyncFromGithub(ctx context.Context, store Store, link *ProjectLink, projectID uuid.UUID) (*SyncResult, error) {
	result := &SyncResult{}

	s.logger.Info("starting GitHub sync",
		"github_project_id", link.GithubProjectID,
		"project_id", projectID)

	items, err := s.provider.GetProjectItems(ctx, link.GithubProjectID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		created, synced, err := s.syncItemFromGithub(ctx, store, link, projectID, &item)
		if err != nil {
			msg := fmt.Sprintf("failed to sync item %s: %v", item.ID, err)
			s.logger.Warn("sync item failed", "item_id", item.ID, "error", err)
			result.Errors = append(result.Errors, msg)
			continue
		}
		if !synced {
			result.ItemsSkipped++
			continue
		}
		if created {
			result.ItemsCreated++
		} else {
			result.ItemsUpdated++
		}
		result.ItemsSynced++
	}

	if err := store.UpdateLinkLastSyncAt(ctx, link.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	s.logger.Info("GitHub sync completed",
		"synced", result.ItemsSynced,
		"created", result.ItemsCreated,
		"updated", result.ItemsUpdated,
		"errors", len(result.Errors))

	return result, nil
}

// syncItemFromGithub reconciles one project item. Returns
// (created, synced): draft items and push-only mappings come back
// unsynced.
func (s *SyncService) syncItemFromGithub(ctx context.Context, store Store, link *ProjectLink, projectID uuid.UUID, item *ProjectItem) (bool, bool, error) {
	// Draft items carry no issue.
	issue := item.Issue
	if issue == nil {
		s.logger.Debug("skipping project item without issue content", "item_id", item.ID)
		return false, false, nil
	}

	mapping, err := store.FindMappingByIssue(ctx, link.ID, issue.Number)
	if err != nil {
		return false, false, err
	}

	if mapping != nil {
		if mapping.SyncDirection == SyncVibeToGithub {
			s.logger.Debug("skipping issue with push-only sync direction", "issue_number", issue.Number)
			return false, false, nil
		}

		if err := s.updateTaskFromIssue(ctx, store, mapping.TaskID, issue, item); err != nil {
			return false, false, err
		}
		if err := store.UpdateMappingSyncTimestamps(ctx, mapping.ID, &issue.UpdatedAt, nil); err != nil {
			return false, false, err
		}
		return false, true, nil
	}

	taskID, err := s.createTaskFromIssue(ctx, store, projectID, issue, item)
	if err != nil {
		return false, false, err
	}

	if _, err := store.CreateMapping(ctx, &CreateIssueMapping{
		TaskID:        taskID,
		ProjectLinkID: link.ID,
		IssueNumber:   issue.Number,
		IssueID:       issue.ID,
		IssueURL:      issue.URL,
	}); err != nil {
		return false, false, err
	}

	return true, true, nil
}

// createTaskFromIssue creates a local task for an unmapped issue.
// Imported tasks always start as todo; the remote status is kept as a
// property for reference, not applied to the task.
func (s *SyncService) createTaskFromIssue(ctx context.Context, store Store, projectID uuid.UUID, issue *Issue, item *ProjectItem) (uuid.UUID, error) {
	status := task.StatusTodo
	created, err := store.CreateTask(ctx, &task.CreateTask{
		ProjectID:   projectID,
		Title:       issue.Title,
		Description: issue.Body,
		Status:      &status,
	})
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.syncIssueProperties(ctx, store, created.ID, issue, item); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("created task from GitHub issue", "task_id", created.ID, "issue_number", issue.Number)
	return created.ID, nil
}

// updateTaskFromIssue refreshes title and description from the issue.
// The local status is the agent workflow's state and is never
// overwritten by the remote lifecycle.
func (s *SyncService) updateTaskFromIssue(ctx context.Context, store Store, taskID uuid.UUID, issue *Issue, item *ProjectItem) error {
	existing, err := store.FindTask(ctx, taskID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("mapped task %s not found", taskID)
	}

	if _, err := store.UpdateTaskBasic(ctx, taskID, &task.UpdateTask{
		Title:             issue.Title,
		Description:       issue.Body,
		Status:            existing.Status,
		ParentWorkspaceID: existing.ParentWorkspaceID,
	}); err != nil {
		return err
	}

	return s.syncIssueProperties(ctx, store, taskID, issue, item)
}

// syncIssueProperties upserts the issue's metadata and the project
// field values as task properties.
func (s *SyncService) syncIssueProperties(ctx context.Context, store Store, taskID uuid.UUID, issue *Issue, item *ProjectItem) error {
	source := task.SourceGithub

	upsert := func(name, value string) error {
		return store.UpsertProperty(ctx, &task.UpsertProperty{
			TaskID: taskID,
			Name:   name,
			Value:  value,
			Source: &source,
		})
	}

	if err := upsert("github_issue_url", issue.URL); err != nil {
		return err
	}
	if err := upsert("github_issue_number", fmt.Sprint(issue.Number)); err != nil {
		return err
	}

	if len(issue.Labels) > 0 {
		labels, err := json.Marshal(issue.Labels)
		if err != nil {
			labels = []byte("[]")
		}
		if err := upsert("labels", string(labels)); err != nil {
			return err
		}
	}

	if issue.Milestone != nil {
		milestone, err := json.Marshal(issue.Milestone)
		if err != nil {
			milestone = []byte("null")
		}
		if err := upsert("milestone", string(milestone)); err != nil {
			return err
		}
	}

	if len(issue.Assignees) > 0 {
		assignees, err := json.Marshal(issue.Assignees)
		if err != nil {
			assignees = []byte("[]")
		}
		if err := upsert("github_assignees", string(assignees)); err != nil {
			return err
		}
	}

	for _, fv := range item.FieldValues {
		name := "github_" + strings.ReplaceAll(strings.ToLower(fv.FieldName), " ", "_")
		if err := upsert(name, fv.Value); err != nil {
			return err
		}
	}

	return nil
}

// SyncTaskToGithub pushes a task's title, body, and state to its mapped
// issue. Tasks without a mapping, or mapped pull-only, are a no-op.
func (s *SyncService) SyncTaskToGithub(ctx context.Context, store Store, t *task.Task) error {
	mapping, err := store.FindMappingByTask(ctx, t.ID)
	if err != nil {
		return err
	}
	if mapping == nil {
		s.logger.Debug("no GitHub mapping for task", "task_id", t.ID)
		return nil
	}

	if mapping.SyncDirection == SyncGithubToVibe {
		s.logger.Debug("skipping task with pull-only sync direction", "task_id", t.ID)
		return nil
	}

	link, err := store.FindLink(ctx, mapping.ProjectLinkID)
	if err != nil {
		return err
	}
	if link == nil {
		return fmt.Errorf("GitHub link %s not found", mapping.ProjectLinkID)
	}
	if link.Repo == nil {
		return fmt.Errorf("GitHub link %s has no repository bound; cannot push issue updates", link.ID)
	}

	state := VibeToGithubState(t.Status)
	body := ""
	if t.Description != nil {
		body = *t.Description
	}

	if err := s.provider.UpdateIssue(ctx, IssueUpdate{
		Owner:  link.Owner,
		Repo:   *link.Repo,
		Number: mapping.IssueNumber,
		Title:  &t.Title,
		Body:   &body,
		State:  &state,
	}); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := store.UpdateMappingSyncTimestamps(ctx, mapping.ID, nil, &now); err != nil {
		return err
	}

	s.logger.Info("synced task to GitHub issue",
		"task_id", t.ID,
		"issue_number", mapping.IssueNumber,
		"state", state)
	return nil
}
