package github

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v82/github"
	"github.com/tidwall/gjson"

	vgerrors "github.com/vibegraph/vibegraph/internal/errors"
)

// projectItemsPageSize bounds one GraphQL page of project items.
const projectItemsPageSize = 100

// CLIProvider implements IssueProvider. Projects v2 reads go through
// `gh api graphql` (the REST API does not expose Projects v2); issue
// writes go through the REST API via go-github.
type CLIProvider struct {
	rest   *gogithub.Client
	logger *slog.Logger
}

// Ensure CLIProvider implements IssueProvider.
var _ IssueProvider = (*CLIProvider)(nil)

// NewCLIProvider creates a provider. The REST half authenticates with
// token, or with GITHUB_TOKEN from the environment when token is empty.
func NewCLIProvider(token string, logger *slog.Logger) *CLIProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	client := gogithub.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &CLIProvider{rest: client, logger: logger}
}

// CheckAvailable verifies the gh CLI is installed and authenticated.
func (p *CLIProvider) CheckAvailable(ctx context.Context) error {
	if _, err := exec.LookPath("gh"); err != nil {
		return vgerrors.ErrProviderUnavailable(err)
	}

	cmd := exec.CommandContext(ctx, "gh", "auth", "status")
	if err := cmd.Run(); err != nil {
		return vgerrors.ErrProviderUnavailable(err)
	}
	return nil
}

// runGraphQL executes a GraphQL query through the gh CLI and returns
// the raw JSON response.
func (p *CLIProvider) runGraphQL(ctx context.Context, query string, fields map[string]string) ([]byte, error) {
	args := []string{"api", "graphql", "-f", "query=" + query}
	for k, v := range fields {
		args = append(args, "-F", fmt.Sprintf("%s=%s", k, v))
	}

	cmd := exec.CommandContext(ctx, "gh", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("gh api graphql: %s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return stdout.Bytes(), nil
}

const listProjectsQuery = `
query($owner: String!) {
  repositoryOwner(login: $owner) {
    ... on ProjectV2Owner {
      projectsV2(first: 50) {
        nodes {
          id
          title
          number
          url
          closed
          shortDescription
          public
          owner { ... on Organization { login } ... on User { login } }
        }
      }
    }
  }
}`

// ListProjects returns the Projects v2 projects of a user or org.
func (p *CLIProvider) ListProjects(ctx context.Context, owner string) ([]Project, error) {
	out, err := p.runGraphQL(ctx, listProjectsQuery, map[string]string{"owner": owner})
	if err != nil {
		return nil, err
	}

	var projects []Project
	nodes := gjson.GetBytes(out, "data.repositoryOwner.projectsV2.nodes")
	nodes.ForEach(func(_, node gjson.Result) bool {
		projects = append(projects, Project{
			ID:               node.Get("id").String(),
			Title:            node.Get("title").String(),
			Number:           node.Get("number").Int(),
			URL:              node.Get("url").String(),
			Closed:           node.Get("closed").Bool(),
			ShortDescription: node.Get("shortDescription").String(),
			Public:           node.Get("public").Bool(),
			OwnerLogin:       node.Get("owner.login").String(),
		})
		return true
	})
	return projects, nil
}

const projectItemsQuery = `
query($projectId: ID!, $first: Int!, $after: String) {
  node(id: $projectId) {
    ... on ProjectV2 {
      items(first: $first, after: $after) {
        pageInfo { hasNextPage endCursor }
        nodes {
          id
          content {
            ... on Issue {
              id
              number
              title
              body
              state
              url
              createdAt
              updatedAt
              closedAt
              author { login }
              assignees(first: 20) { nodes { login } }
              labels(first: 20) { nodes { name color } }
              milestone { id title number }
            }
          }
          fieldValues(first: 20) {
            nodes {
              ... on ProjectV2ItemFieldSingleSelectValue { name field { ... on ProjectV2FieldCommon { name } } }
              ... on ProjectV2ItemFieldTextValue { text field { ... on ProjectV2FieldCommon { name } } }
              ... on ProjectV2ItemFieldNumberValue { number field { ... on ProjectV2FieldCommon { name } } }
              ... on ProjectV2ItemFieldDateValue { date field { ... on ProjectV2FieldCommon { name } } }
            }
          }
        }
      }
    }
  }
}`

// GetProjectItems returns all items of a project, following pagination.
func (p *CLIProvider) GetProjectItems(ctx context.Context, projectID string) ([]ProjectItem, error) {
	var items []ProjectItem
	cursor := ""

	for {
		fields := map[string]string{
			"projectId": projectID,
			"first":     fmt.Sprint(projectItemsPageSize),
		}
		if cursor != "" {
			fields["after"] = cursor
		}

		out, err := p.runGraphQL(ctx, projectItemsQuery, fields)
		if err != nil {
			return nil, err
		}

		conn := gjson.GetBytes(out, "data.node.items")
		conn.Get("nodes").ForEach(func(_, node gjson.Result) bool {
			items = append(items, parseProjectItem(node))
			return true
		})

		if !conn.Get("pageInfo.hasNextPage").Bool() {
			break
		}
		cursor = conn.Get("pageInfo.endCursor").String()
	}

	p.logger.Debug("fetched project items", "project_id", projectID, "count", len(items))
	return items, nil
}

// parseProjectItem converts a GraphQL item node.
func parseProjectItem(node gjson.Result) ProjectItem {
	item := ProjectItem{ID: node.Get("id").String()}

	content := node.Get("content")
	// Draft items and PRs surface as empty content objects.
	if content.Exists() && content.Get("id").Exists() {
		item.Issue = parseIssue(content)
	}

	node.Get("fieldValues.nodes").ForEach(func(_, fv gjson.Result) bool {
		name := fv.Get("field.name").String()
		if name == "" {
			return true
		}
		value := ""
		switch {
		case fv.Get("name").Exists():
			value = fv.Get("name").String()
		case fv.Get("text").Exists():
			value = fv.Get("text").String()
		case fv.Get("number").Exists():
			value = fv.Get("number").Raw
		case fv.Get("date").Exists():
			value = fv.Get("date").String()
		}
		item.FieldValues = append(item.FieldValues, FieldValue{FieldName: name, Value: value})
		return true
	})

	return item
}

func parseIssue(content gjson.Result) *Issue {
	issue := &Issue{
		ID:          content.Get("id").String(),
		Number:      content.Get("number").Int(),
		Title:       content.Get("title").String(),
		State:       content.Get("state").String(),
		URL:         content.Get("url").String(),
		AuthorLogin: content.Get("author.login").String(),
	}

	if body := content.Get("body"); body.Exists() && body.Type != gjson.Null {
		s := body.String()
		issue.Body = &s
	}

	issue.CreatedAt = parseGraphQLTime(content.Get("createdAt").String())
	issue.UpdatedAt = parseGraphQLTime(content.Get("updatedAt").String())
	if closedAt := content.Get("closedAt"); closedAt.Exists() && closedAt.Type != gjson.Null {
		t := parseGraphQLTime(closedAt.String())
		issue.ClosedAt = &t
	}

	content.Get("assignees.nodes").ForEach(func(_, a gjson.Result) bool {
		issue.Assignees = append(issue.Assignees, a.Get("login").String())
		return true
	})
	content.Get("labels.nodes").ForEach(func(_, l gjson.Result) bool {
		issue.Labels = append(issue.Labels, Label{
			Name:  l.Get("name").String(),
			Color: l.Get("color").String(),
		})
		return true
	})
	if m := content.Get("milestone"); m.Exists() && m.Type != gjson.Null {
		issue.Milestone = &Milestone{
			ID:     m.Get("id").String(),
			Title:  m.Get("title").String(),
			Number: m.Get("number").Int(),
		}
	}

	return issue
}

func parseGraphQLTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// UpdateIssue pushes title, body, and state changes through the REST
// API. State arrives as the GraphQL enum (OPEN/CLOSED) and is lowered
// to the REST form.
func (p *CLIProvider) UpdateIssue(ctx context.Context, update IssueUpdate) error {
	req := &gogithub.IssueRequest{
		Title:     update.Title,
		Body:      update.Body,
		Assignees: update.Assignees,
	}
	if update.State != nil {
		state := strings.ToLower(*update.State)
		req.State = &state
	}

	_, _, err := p.rest.Issues.Edit(ctx, update.Owner, update.Repo, int(update.Number), req)
	if err != nil {
		return fmt.Errorf("update issue %s/%s#%d: %w", update.Owner, update.Repo, update.Number, err)
	}

	p.logger.Debug("updated issue", "owner", update.Owner, "repo", update.Repo, "number", update.Number)
	return nil
}

// CreateIssueComment posts a comment on an issue.
func (p *CLIProvider) CreateIssueComment(ctx context.Context, owner, repo string, number int64, body string) error {
	_, _, err := p.rest.Issues.CreateComment(ctx, owner, repo, int(number), &gogithub.IssueComment{
		Body: gogithub.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("comment on issue %s/%s#%d: %w", owner, repo, number, err)
	}
	return nil
}
