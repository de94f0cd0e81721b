package github

import (
	"context"
	"time"
)

// IssueProvider is the interface to GitHub Projects v2 and issues.
// The production implementation drives the gh CLI for GraphQL reads and
// the REST API for issue writes; tests substitute fakes.
type IssueProvider interface {
	// CheckAvailable verifies the provider can reach GitHub.
	CheckAvailable(ctx context.Context) error
	// ListProjects returns the Projects v2 projects owned by a user or
	// organization.
	ListProjects(ctx context.Context, owner string) ([]Project, error)
	// GetProjectItems returns all items of a project with their field
	// values, following pagination.
	GetProjectItems(ctx context.Context, projectID string) ([]ProjectItem, error)
	// UpdateIssue pushes title, body, state, and assignee changes to an
	// issue.
	UpdateIssue(ctx context.Context, update IssueUpdate) error
	// CreateIssueComment posts a comment on an issue.
	CreateIssueComment(ctx context.Context, owner, repo string, number int64, body string) error
}

// Project represents a GitHub Projects v2 project.
type Project struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Number           int64  `json:"number"`
	URL              string `json:"url"`
	Closed           bool   `json:"closed"`
	ShortDescription string `json:"short_description,omitempty"`
	Public           bool   `json:"public"`
	OwnerLogin       string `json:"owner_login"`
}

// Issue represents a GitHub issue.
type Issue struct {
	ID          string     `json:"id"`
	Number      int64      `json:"number"`
	Title       string     `json:"title"`
	Body        *string    `json:"body,omitempty"`
	State       string     `json:"state"`
	URL         string     `json:"url"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	AuthorLogin string     `json:"author_login,omitempty"`
	Assignees   []string   `json:"assignees,omitempty"`
	Labels      []Label    `json:"labels,omitempty"`
	Milestone   *Milestone `json:"milestone,omitempty"`
}

// Label is an issue label.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Milestone is an issue milestone.
type Milestone struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Number int64  `json:"number"`
}

// ProjectItem is a project entry with its field values. Draft items
// carry no issue.
type ProjectItem struct {
	ID          string       `json:"id"`
	Issue       *Issue       `json:"issue,omitempty"`
	FieldValues []FieldValue `json:"field_values"`
}

// FieldValue is one project field value on an item.
type FieldValue struct {
	FieldName string `json:"field_name"`
	Value     string `json:"value"`
}

// IssueUpdate describes a push to a remote issue. Nil fields are left
// unchanged. State takes the GraphQL enum values OPEN and CLOSED.
type IssueUpdate struct {
	Owner     string
	Repo      string
	Number    int64
	Title     *string
	Body      *string
	State     *string
	Assignees *[]string
}
