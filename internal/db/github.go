package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vibegraph/vibegraph/internal/github"
)

const linkColumns = `id, project_id, github_project_id, owner, repo, number, sync_enabled,
	last_sync_at, created_at, updated_at`

func scanLink(scan func(dest ...any) error) (github.ProjectLink, error) {
	var (
		l                github.ProjectLink
		id, projectID    string
		repo             sql.NullString
		number           sql.NullInt64
		syncEnabled      int
		lastSyncAt       sql.NullString
		createdAt, updAt string
	)

	err := scan(&id, &projectID, &l.GithubProjectID, &l.Owner, &repo, &number,
		&syncEnabled, &lastSyncAt, &createdAt, &updAt)
	if err != nil {
		return l, err
	}

	if err := parseUUIDCol(id, &l.ID); err != nil {
		return l, err
	}
	if err := parseUUIDCol(projectID, &l.ProjectID); err != nil {
		return l, err
	}
	if repo.Valid {
		l.Repo = &repo.String
	}
	if number.Valid {
		l.Number = &number.Int64
	}
	l.SyncEnabled = syncEnabled != 0
	if l.LastSyncAt, err = parseNullTime(lastSyncAt); err != nil {
		return l, err
	}
	if err := parseTimeCol(createdAt, &l.CreatedAt); err != nil {
		return l, err
	}
	if err := parseTimeCol(updAt, &l.UpdatedAt); err != nil {
		return l, err
	}
	return l, nil
}

// FindLink retrieves a project link by ID. Returns nil if absent.
func (s *Store) FindLink(ctx context.Context, id uuid.UUID) (*github.ProjectLink, error) {
	row := s.queryRow(ctx, `SELECT `+linkColumns+` FROM github_project_links WHERE id = ?`, id.String())
	l, err := scanLink(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find link: %w", err)
	}
	return &l, nil
}

func (s *Store) listLinks(ctx context.Context, query string, args ...any) ([]github.ProjectLink, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []github.ProjectLink
	for rows.Next() {
		l, err := scanLink(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}

// ListLinksByProject returns all GitHub links for a project.
func (s *Store) ListLinksByProject(ctx context.Context, projectID uuid.UUID) ([]github.ProjectLink, error) {
	return s.listLinks(ctx,
		`SELECT `+linkColumns+` FROM github_project_links WHERE project_id = ? ORDER BY created_at ASC`,
		projectID.String())
}

// ListAllEnabledLinks returns every link with sync enabled, stalest
// first (null last_sync_at sorts before everything).
func (s *Store) ListAllEnabledLinks(ctx context.Context) ([]github.ProjectLink, error) {
	return s.listLinks(ctx, `
		SELECT `+linkColumns+` FROM github_project_links
		WHERE sync_enabled = 1
		ORDER BY CASE WHEN last_sync_at IS NULL THEN 0 ELSE 1 END, last_sync_at ASC`)
}

// CreateLink inserts a new project link with sync enabled.
func (s *Store) CreateLink(ctx context.Context, data *github.CreateProjectLink) (*github.ProjectLink, error) {
	now := time.Now().UTC()
	l := github.ProjectLink{
		ID:              uuid.New(),
		ProjectID:       data.ProjectID,
		GithubProjectID: data.GithubProjectID,
		Owner:           data.Owner,
		Repo:            data.Repo,
		Number:          data.Number,
		SyncEnabled:     true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := s.exec(ctx, `
		INSERT INTO github_project_links (id, project_id, github_project_id, owner, repo, number, sync_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID.String(), l.ProjectID.String(), l.GithubProjectID, l.Owner, l.Repo, l.Number,
		boolToCol(l.SyncEnabled), formatTime(l.CreatedAt), formatTime(l.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}
	return &l, nil
}

// UpdateLinkSyncEnabled toggles sync for a link.
func (s *Store) UpdateLinkSyncEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	_, err := s.exec(ctx, `UPDATE github_project_links SET sync_enabled = ?, updated_at = ? WHERE id = ?`,
		boolToCol(enabled), formatTime(time.Now()), id.String())
	if err != nil {
		return fmt.Errorf("update link sync: %w", err)
	}
	return nil
}

// UpdateLinkLastSyncAt stamps a link's last successful sync time.
func (s *Store) UpdateLinkLastSyncAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.exec(ctx, `UPDATE github_project_links SET last_sync_at = ?, updated_at = ? WHERE id = ?`,
		formatTime(at), formatTime(time.Now()), id.String())
	if err != nil {
		return fmt.Errorf("update link last sync: %w", err)
	}
	return nil
}

// DeleteLink removes a link; its mappings cascade.
func (s *Store) DeleteLink(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM github_project_links WHERE id = ?`, id.String())
	if err != nil {
		return 0, fmt.Errorf("delete link: %w", err)
	}
	return res.RowsAffected()
}

// --- issue mappings ---

const mappingColumns = `id, task_id, github_project_link_id, github_issue_number, github_issue_id,
	github_issue_url, sync_direction, last_synced_at, github_updated_at, vibe_updated_at,
	created_at, updated_at`

func scanMapping(scan func(dest ...any) error) (github.IssueMapping, error) {
	var (
		m                    github.IssueMapping
		id, taskID, linkID   string
		lastSynced, ghUpd    sql.NullString
		vibeUpd              sql.NullString
		createdAt, updatedAt string
	)

	err := scan(&id, &taskID, &linkID, &m.IssueNumber, &m.IssueID, &m.IssueURL,
		&m.SyncDirection, &lastSynced, &ghUpd, &vibeUpd, &createdAt, &updatedAt)
	if err != nil {
		return m, err
	}

	if err := parseUUIDCol(id, &m.ID); err != nil {
		return m, err
	}
	if err := parseUUIDCol(taskID, &m.TaskID); err != nil {
		return m, err
	}
	if err := parseUUIDCol(linkID, &m.ProjectLinkID); err != nil {
		return m, err
	}
	if m.LastSyncedAt, err = parseNullTime(lastSynced); err != nil {
		return m, err
	}
	if m.GithubUpdatedAt, err = parseNullTime(ghUpd); err != nil {
		return m, err
	}
	if m.VibeUpdatedAt, err = parseNullTime(vibeUpd); err != nil {
		return m, err
	}
	if err := parseTimeCol(createdAt, &m.CreatedAt); err != nil {
		return m, err
	}
	if err := parseTimeCol(updatedAt, &m.UpdatedAt); err != nil {
		return m, err
	}
	return m, nil
}

// FindMappingByTask retrieves the mapping for a task, if any.
func (s *Store) FindMappingByTask(ctx context.Context, taskID uuid.UUID) (*github.IssueMapping, error) {
	row := s.queryRow(ctx, `SELECT `+mappingColumns+` FROM github_issue_mappings WHERE task_id = ?`, taskID.String())
	m, err := scanMapping(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find mapping by task: %w", err)
	}
	return &m, nil
}

// FindMappingByIssue retrieves the mapping for an issue number within a
// link, if any.
func (s *Store) FindMappingByIssue(ctx context.Context, linkID uuid.UUID, issueNumber int64) (*github.IssueMapping, error) {
	row := s.queryRow(ctx,
		`SELECT `+mappingColumns+` FROM github_issue_mappings WHERE github_project_link_id = ? AND github_issue_number = ?`,
		linkID.String(), issueNumber)
	m, err := scanMapping(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find mapping by issue: %w", err)
	}
	return &m, nil
}

// ListMappingsByLink returns all mappings of a link.
func (s *Store) ListMappingsByLink(ctx context.Context, linkID uuid.UUID) ([]github.IssueMapping, error) {
	rows, err := s.query(ctx,
		`SELECT `+mappingColumns+` FROM github_issue_mappings WHERE github_project_link_id = ? ORDER BY github_issue_number ASC`,
		linkID.String())
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var mappings []github.IssueMapping
	for rows.Next() {
		m, err := scanMapping(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mappings: %w", err)
	}
	return mappings, nil
}

// CreateMapping inserts a new issue mapping.
func (s *Store) CreateMapping(ctx context.Context, data *github.CreateIssueMapping) (*github.IssueMapping, error) {
	direction := github.SyncBidirectional
	if data.SyncDirection != nil {
		direction = *data.SyncDirection
	}

	now := time.Now().UTC()
	m := github.IssueMapping{
		ID:            uuid.New(),
		TaskID:        data.TaskID,
		ProjectLinkID: data.ProjectLinkID,
		IssueNumber:   data.IssueNumber,
		IssueID:       data.IssueID,
		IssueURL:      data.IssueURL,
		SyncDirection: direction,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := s.exec(ctx, `
		INSERT INTO github_issue_mappings (id, task_id, github_project_link_id, github_issue_number, github_issue_id, github_issue_url, sync_direction, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.TaskID.String(), m.ProjectLinkID.String(), m.IssueNumber,
		m.IssueID, m.IssueURL, string(m.SyncDirection),
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("create mapping: %w", err)
	}
	return &m, nil
}

// UpdateMappingSyncTimestamps stamps the per-side sync times on a
// mapping. Nil arguments leave the corresponding column untouched.
func (s *Store) UpdateMappingSyncTimestamps(ctx context.Context, id uuid.UUID, githubUpdatedAt, vibeUpdatedAt *time.Time) error {
	now := time.Now().UTC()
	_, err := s.exec(ctx, `
		UPDATE github_issue_mappings SET
			github_updated_at = COALESCE(?, github_updated_at),
			vibe_updated_at = COALESCE(?, vibe_updated_at),
			last_synced_at = ?,
			updated_at = ?
		WHERE id = ?`,
		formatTimePtr(githubUpdatedAt), formatTimePtr(vibeUpdatedAt),
		formatTime(now), formatTime(now), id.String())
	if err != nil {
		return fmt.Errorf("update mapping timestamps: %w", err)
	}
	return nil
}

// DeleteMapping removes a mapping by ID.
func (s *Store) DeleteMapping(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM github_issue_mappings WHERE id = ?`, id.String())
	if err != nil {
		return 0, fmt.Errorf("delete mapping: %w", err)
	}
	return res.RowsAffected()
}
