package github_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibegraph/vibegraph/internal/db"
	"github.com/vibegraph/vibegraph/internal/github"
	"github.com/vibegraph/vibegraph/internal/task"
)

// fakeProvider is an in-memory IssueProvider.
type fakeProvider struct {
	mu           sync.Mutex
	items        []github.ProjectItem
	availableErr error
	updateErr    error
	itemsErrFor  string // GitHub project ID whose item fetch fails
	fetches      []string
	updates      []github.IssueUpdate
	comments     []string
}

func (f *fakeProvider) CheckAvailable(ctx context.Context) error {
	return f.availableErr
}

func (f *fakeProvider) ListProjects(ctx context.Context, owner string) ([]github.Project, error) {
	return nil, nil
}

func (f *fakeProvider) GetProjectItems(ctx context.Context, projectID string) ([]github.ProjectItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, projectID)
	if f.itemsErrFor == projectID {
		return nil, errors.New("remote project unavailable")
	}
	return append([]github.ProjectItem(nil), f.items...), nil
}

func (f *fakeProvider) UpdateIssue(ctx context.Context, update github.IssueUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, update)
	return nil
}

func (f *fakeProvider) CreateIssueComment(ctx context.Context, owner, repo string, number int64, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.comments = append(f.comments, body)
	return nil
}

func newIssueItem(number int64, title, state string) github.ProjectItem {
	body := "imported body"
	return github.ProjectItem{
		ID: "PVTI_" + uuid.NewString()[:8],
		Issue: &github.Issue{
			ID:        "I_" + uuid.NewString()[:8],
			Number:    number,
			Title:     title,
			Body:      &body,
			State:     state,
			URL:       "https://github.com/acme/widgets/issues/1",
			CreatedAt: time.Now().Add(-time.Hour).UTC(),
			UpdatedAt: time.Now().Add(-time.Minute).UTC().Truncate(time.Millisecond),
			Labels:    []github.Label{{Name: "bug", Color: "ff0000"}},
			Assignees: []string{"octocat"},
		},
		FieldValues: []github.FieldValue{
			{FieldName: "Status", Value: "Done"},
		},
	}
}

func newSyncFixture(t *testing.T) (*db.Store, *fakeProvider, *github.SyncService, *github.ProjectLink, uuid.UUID) {
	t.Helper()
	store := db.OpenTest(t)
	provider := &fakeProvider{}
	svc := github.NewSyncService(provider, nil)

	projectID := uuid.New()
	repo := "widgets"
	link, err := store.CreateLink(context.Background(), &github.CreateProjectLink{
		ProjectID:       projectID,
		GithubProjectID: "PVT_test",
		Owner:           "acme",
		Repo:            &repo,
	})
	require.NoError(t, err)

	return store, provider, svc, link, projectID
}

func TestSyncFromGithub_CreatesTaskAndMapping(t *testing.T) {
	store, provider, svc, link, projectID := newSyncFixture(t)
	provider.items = []github.ProjectItem{newIssueItem(1, "Remote issue", "OPEN")}

	ctx := context.Background()
	result, err := svc.SyncFromGithub(ctx, store, link, projectID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsCreated)
	assert.Equal(t, 0, result.ItemsUpdated)
	assert.Equal(t, 1, result.ItemsSynced)
	assert.Empty(t, result.Errors)

	tasks, err := store.ListTasksByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Remote issue", tasks[0].Title)
	// Imported tasks always start as todo, whatever the remote says.
	assert.Equal(t, task.StatusTodo, tasks[0].Status)

	mapping, err := store.FindMappingByIssue(ctx, link.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, mapping)
	assert.Equal(t, github.SyncBidirectional, mapping.SyncDirection)

	// Remote status lands in the property bag.
	props, err := store.ListPropertiesByTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	values := propertyMap(props)
	assert.Equal(t, "Done", values["github_status"])
	assert.Equal(t, "1", values["github_issue_number"])
	assert.Contains(t, values, "labels")
	assert.Contains(t, values, "github_assignees")

	// The link's sync stamp is set.
	refreshed, err := store.FindLink(ctx, link.ID)
	require.NoError(t, err)
	assert.NotNil(t, refreshed.LastSyncAt)
}

func propertyMap(props []task.Property) map[string]string {
	m := make(map[string]string, len(props))
	for _, p := range props {
		m[p.Name] = p.Value
	}
	return m
}

// A mapped task keeps its local status when the remote changes; only
// title, description, and properties refresh.
func TestSyncFromGithub_PreservesLocalStatus(t *testing.T) {
	store, provider, svc, link, projectID := newSyncFixture(t)
	item := newIssueItem(42, "Old title", "OPEN")
	provider.items = []github.ProjectItem{item}

	ctx := context.Background()
	_, err := svc.SyncFromGithub(ctx, store, link, projectID)
	require.NoError(t, err)

	tasks, err := store.ListTasksByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	local := tasks[0]

	// The agent moves the task forward locally.
	_, err = store.UpdateTaskBasic(ctx, local.ID, &task.UpdateTask{
		Title:  local.Title,
		Status: task.StatusInProgress,
	})
	require.NoError(t, err)

	// Remote retitles the issue and marks it done.
	item.Issue.Title = "X"
	item.FieldValues = []github.FieldValue{{FieldName: "Status", Value: "Done"}}
	provider.items = []github.ProjectItem{item}

	result, err := svc.SyncFromGithub(ctx, store, link, projectID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ItemsCreated)
	assert.Equal(t, 1, result.ItemsUpdated)

	refreshed, err := store.FindTask(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", refreshed.Title)
	assert.Equal(t, task.StatusInProgress, refreshed.Status, "remote lifecycle never overrides local status")

	props, err := store.ListPropertiesByTask(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "Done", propertyMap(props)["github_status"])

	mapping, err := store.FindMappingByTask(ctx, local.ID)
	require.NoError(t, err)
	require.NotNil(t, mapping.GithubUpdatedAt)
	assert.True(t, mapping.GithubUpdatedAt.Equal(item.Issue.UpdatedAt))
}

// Re-running against unchanged remote state creates nothing new.
func TestSyncFromGithub_Idempotent(t *testing.T) {
	store, provider, svc, link, projectID := newSyncFixture(t)
	provider.items = []github.ProjectItem{newIssueItem(1, "Issue", "OPEN")}

	ctx := context.Background()
	first, err := svc.SyncFromGithub(ctx, store, link, projectID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ItemsCreated)

	second, err := svc.SyncFromGithub(ctx, store, link, projectID)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ItemsCreated)
	assert.Equal(t, 1, second.ItemsUpdated)

	tasks, err := store.ListTasksByProject(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestSyncFromGithub_SkipsDraftsAndPushOnlyMappings(t *testing.T) {
	store, provider, svc, link, projectID := newSyncFixture(t)

	ctx := context.Background()

	// A draft item has no issue.
	draft := github.ProjectItem{ID: "PVTI_draft"}

	// A push-only mapping must not be touched by the pull side.
	pushOnly := newIssueItem(9, "Push only", "OPEN")
	direction := github.SyncVibeToGithub
	local := createLocalTask(t, store, projectID, "Local truth")
	_, err := store.CreateMapping(ctx, &github.CreateIssueMapping{
		TaskID:        local.ID,
		ProjectLinkID: link.ID,
		IssueNumber:   9,
		IssueID:       pushOnly.Issue.ID,
		IssueURL:      pushOnly.Issue.URL,
		SyncDirection: &direction,
	})
	require.NoError(t, err)

	provider.items = []github.ProjectItem{draft, pushOnly}

	result, err := svc.SyncFromGithub(ctx, store, link, projectID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ItemsCreated)
	assert.Equal(t, 0, result.ItemsUpdated)
	assert.Equal(t, 2, result.ItemsSkipped)

	refreshed, err := store.FindTask(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, "Local truth", refreshed.Title)
}

func createLocalTask(t *testing.T, store *db.Store, projectID uuid.UUID, title string) *task.Task {
	t.Helper()
	created, err := store.CreateTask(context.Background(), &task.CreateTask{
		ProjectID: projectID,
		Title:     title,
	})
	require.NoError(t, err)
	return created
}

func TestSyncTaskToGithub_PushesStateMapping(t *testing.T) {
	store, provider, svc, link, projectID := newSyncFixture(t)
	ctx := context.Background()

	local := createLocalTask(t, store, projectID, "Ship it")
	_, err := store.CreateMapping(ctx, &github.CreateIssueMapping{
		TaskID:        local.ID,
		ProjectLinkID: link.ID,
		IssueNumber:   3,
		IssueID:       "I_3",
		IssueURL:      "u3",
	})
	require.NoError(t, err)

	local.Status = task.StatusDone
	require.NoError(t, svc.SyncTaskToGithub(ctx, store, local))

	require.Len(t, provider.updates, 1)
	update := provider.updates[0]
	assert.Equal(t, "acme", update.Owner)
	assert.Equal(t, "widgets", update.Repo)
	assert.Equal(t, int64(3), update.Number)
	require.NotNil(t, update.State)
	assert.Equal(t, "CLOSED", *update.State)

	mapping, err := store.FindMappingByTask(ctx, local.ID)
	require.NoError(t, err)
	assert.NotNil(t, mapping.VibeUpdatedAt)
}

func TestSyncTaskToGithub_NoOpWithoutMappingOrPullOnly(t *testing.T) {
	store, provider, svc, link, projectID := newSyncFixture(t)
	ctx := context.Background()

	// No mapping at all.
	unmapped := createLocalTask(t, store, projectID, "Unmapped")
	require.NoError(t, svc.SyncTaskToGithub(ctx, store, unmapped))
	assert.Empty(t, provider.updates)

	// Pull-only mapping.
	pullOnly := createLocalTask(t, store, projectID, "Pull only")
	direction := github.SyncGithubToVibe
	_, err := store.CreateMapping(ctx, &github.CreateIssueMapping{
		TaskID:        pullOnly.ID,
		ProjectLinkID: link.ID,
		IssueNumber:   5,
		IssueID:       "I_5",
		IssueURL:      "u5",
		SyncDirection: &direction,
	})
	require.NoError(t, err)

	require.NoError(t, svc.SyncTaskToGithub(ctx, store, pullOnly))
	assert.Empty(t, provider.updates)
}

func TestPush_QueuesOnFailureAndRetries(t *testing.T) {
	store, provider, svc, link, projectID := newSyncFixture(t)
	ctx := context.Background()

	local := createLocalTask(t, store, projectID, "Flaky push")
	_, err := store.CreateMapping(ctx, &github.CreateIssueMapping{
		TaskID:        local.ID,
		ProjectLinkID: link.ID,
		IssueNumber:   8,
		IssueID:       "I_8",
		IssueURL:      "u8",
	})
	require.NoError(t, err)

	// The provider is down: the write queues, the caller is unaffected.
	provider.updateErr = errors.New("network down")
	svc.PushTaskStatus(ctx, store, local.ID)
	assert.Equal(t, 1, svc.QueueLength())

	// Still down: the retry requeues.
	assert.Equal(t, 0, svc.ProcessQueue(ctx, store))
	assert.Equal(t, 1, svc.QueueLength())

	// Recovered: the queued write lands.
	provider.updateErr = nil
	assert.Equal(t, 1, svc.ProcessQueue(ctx, store))
	assert.Equal(t, 0, svc.QueueLength())
	assert.Len(t, provider.updates, 1)
}

func TestPush_DropsAfterRetryBudget(t *testing.T) {
	store, provider, svc, link, projectID := newSyncFixture(t)
	ctx := context.Background()

	local := createLocalTask(t, store, projectID, "Doomed push")
	_, err := store.CreateMapping(ctx, &github.CreateIssueMapping{
		TaskID:        local.ID,
		ProjectLinkID: link.ID,
		IssueNumber:   13,
		IssueID:       "I_13",
		IssueURL:      "u13",
	})
	require.NoError(t, err)

	provider.updateErr = errors.New("permanently broken")
	svc.PushTaskStatus(ctx, store, local.ID)
	require.Equal(t, 1, svc.QueueLength())

	// Three failed attempts exhaust the budget and the op disappears.
	for i := 0; i < 3; i++ {
		svc.ProcessQueue(ctx, store)
	}
	assert.Equal(t, 0, svc.QueueLength())
}

func TestPush_BranchPostsComment(t *testing.T) {
	store, provider, svc, link, projectID := newSyncFixture(t)
	ctx := context.Background()

	local := createLocalTask(t, store, projectID, "Branchy")
	_, err := store.CreateMapping(ctx, &github.CreateIssueMapping{
		TaskID:        local.ID,
		ProjectLinkID: link.ID,
		IssueNumber:   21,
		IssueID:       "I_21",
		IssueURL:      "u21",
	})
	require.NoError(t, err)

	svc.PushTaskBranch(ctx, store, local.ID, "feature/branchy")
	require.Len(t, provider.comments, 1)
	assert.Contains(t, provider.comments[0], "feature/branchy")
}

func TestStatusMapping(t *testing.T) {
	progress := "In Progress"
	review := "In Review"
	cancelled := "Cancelled"

	assert.Equal(t, task.StatusTodo, github.GithubToVibe("OPEN", nil))
	assert.Equal(t, task.StatusDone, github.GithubToVibe("CLOSED", nil))
	assert.Equal(t, task.StatusInProgress, github.GithubToVibe("OPEN", &progress))
	assert.Equal(t, task.StatusInReview, github.GithubToVibe("OPEN", &review))
	assert.Equal(t, task.StatusCancelled, github.GithubToVibe("OPEN", &cancelled))

	assert.Equal(t, "OPEN", github.VibeToGithubState(task.StatusTodo))
	assert.Equal(t, "OPEN", github.VibeToGithubState(task.StatusInProgress))
	assert.Equal(t, "OPEN", github.VibeToGithubState(task.StatusInReview))
	assert.Equal(t, "CLOSED", github.VibeToGithubState(task.StatusDone))
	assert.Equal(t, "CLOSED", github.VibeToGithubState(task.StatusCancelled))
}
