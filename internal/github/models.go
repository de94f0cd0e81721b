// Package github synchronizes vibegraph tasks with GitHub Projects v2:
// pulling project items into local tasks, pushing task changes back to
// issues, queueing writes while offline, and polling enabled links.
package github

import (
	"time"

	"github.com/google/uuid"
)

// SyncDirection controls which way changes flow for a mapping.
type SyncDirection string

const (
	// SyncBidirectional syncs changes both ways.
	SyncBidirectional SyncDirection = "bidirectional"
	// SyncGithubToVibe only pulls remote changes into local tasks.
	SyncGithubToVibe SyncDirection = "github_to_vibe"
	// SyncVibeToGithub only pushes local changes to GitHub.
	SyncVibeToGithub SyncDirection = "vibe_to_github"
)

// ProjectLink binds a local project to a GitHub Projects v2 project.
type ProjectLink struct {
	ID              uuid.UUID  `json:"id"`
	ProjectID       uuid.UUID  `json:"project_id"`
	GithubProjectID string     `json:"github_project_id"`
	Owner           string     `json:"owner"`
	Repo            *string    `json:"repo,omitempty"`
	Number          *int64     `json:"number,omitempty"`
	SyncEnabled     bool       `json:"sync_enabled"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateProjectLink holds the fields accepted when creating a link.
type CreateProjectLink struct {
	ProjectID       uuid.UUID `json:"project_id"`
	GithubProjectID string    `json:"github_project_id"`
	Owner           string    `json:"owner"`
	Repo            *string   `json:"repo,omitempty"`
	Number          *int64    `json:"number,omitempty"`
}

// IssueMapping binds one local task to one remote issue. A task has at
// most one remote binding, and an issue number maps at most once per
// link.
type IssueMapping struct {
	ID              uuid.UUID     `json:"id"`
	TaskID          uuid.UUID     `json:"task_id"`
	ProjectLinkID   uuid.UUID     `json:"github_project_link_id"`
	IssueNumber     int64         `json:"github_issue_number"`
	IssueID         string        `json:"github_issue_id"`
	IssueURL        string        `json:"github_issue_url"`
	SyncDirection   SyncDirection `json:"sync_direction"`
	LastSyncedAt    *time.Time    `json:"last_synced_at,omitempty"`
	GithubUpdatedAt *time.Time    `json:"github_updated_at,omitempty"`
	VibeUpdatedAt   *time.Time    `json:"vibe_updated_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// CreateIssueMapping holds the fields accepted when creating a mapping.
type CreateIssueMapping struct {
	TaskID        uuid.UUID      `json:"task_id"`
	ProjectLinkID uuid.UUID      `json:"github_project_link_id"`
	IssueNumber   int64          `json:"github_issue_number"`
	IssueID       string         `json:"github_issue_id"`
	IssueURL      string         `json:"github_issue_url"`
	SyncDirection *SyncDirection `json:"sync_direction,omitempty"`
}
