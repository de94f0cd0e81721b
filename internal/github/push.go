package github

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Push entry points accept a remote write, execute it if the provider
// is reachable, and queue it otherwise. Callers never see an error:
// their local write has already been accepted, and the remote side
// catches up when ProcessQueue runs.

// PushTaskStatus pushes a task's current status (and title/body) to its
// mapped issue, queueing on failure.
func (s *SyncService) PushTaskStatus(ctx context.Context, store Store, taskID uuid.UUID) {
	s.executeOrQueue(ctx, store, Operation{
		ID:        uuid.New(),
		Kind:      OpUpdateStatus,
		TaskID:    taskID,
		CreatedAt: time.Now().UTC(),
	})
}

// PushTaskAssignment pushes an assignee change, queueing on failure.
// A nil assignee clears the remote assignees.
func (s *SyncService) PushTaskAssignment(ctx context.Context, store Store, taskID uuid.UUID, assignedTo *string) {
	s.executeOrQueue(ctx, store, Operation{
		ID:         uuid.New(),
		Kind:       OpUpdateAssignment,
		TaskID:     taskID,
		AssignedTo: assignedTo,
		CreatedAt:  time.Now().UTC(),
	})
}

// PushTaskBranch records the working branch on the mapped issue,
// queueing on failure.
func (s *SyncService) PushTaskBranch(ctx context.Context, store Store, taskID uuid.UUID, branch string) {
	s.executeOrQueue(ctx, store, Operation{
		ID:        uuid.New(),
		Kind:      OpUpdateBranch,
		TaskID:    taskID,
		Branch:    branch,
		CreatedAt: time.Now().UTC(),
	})
}

// executeOrQueue attempts an operation and queues it on failure.
func (s *SyncService) executeOrQueue(ctx context.Context, store Store, op Operation) {
	if err := s.executeOperation(ctx, store, op); err != nil {
		s.logger.Warn("sync operation failed, queueing", "operation_id", op.ID, "kind", op.Kind, "error", err)
		s.queue.Enqueue(op)
	}
}

// executeOperation performs one remote write.
func (s *SyncService) executeOperation(ctx context.Context, store Store, op Operation) error {
	switch op.Kind {
	case OpUpdateStatus:
		t, err := store.FindTask(ctx, op.TaskID)
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("task %s not found", op.TaskID)
		}
		return s.SyncTaskToGithub(ctx, store, t)

	case OpUpdateAssignment:
		mapping, link, err := s.resolveMapping(ctx, store, op.TaskID)
		if err != nil || mapping == nil {
			return err
		}
		assignees := []string{}
		if op.AssignedTo != nil {
			assignees = []string{*op.AssignedTo}
		}
		return s.provider.UpdateIssue(ctx, IssueUpdate{
			Owner:     link.Owner,
			Repo:      *link.Repo,
			Number:    mapping.IssueNumber,
			Assignees: &assignees,
		})

	case OpUpdateBranch:
		mapping, link, err := s.resolveMapping(ctx, store, op.TaskID)
		if err != nil || mapping == nil {
			return err
		}
		body := fmt.Sprintf("Working branch: `%s`", op.Branch)
		return s.provider.CreateIssueComment(ctx, link.Owner, *link.Repo, mapping.IssueNumber, body)

	default:
		return fmt.Errorf("unknown sync operation kind: %s", op.Kind)
	}
}

// resolveMapping loads a task's mapping and link for a push. Tasks
// without a push-capable mapping resolve to nil without error.
func (s *SyncService) resolveMapping(ctx context.Context, store Store, taskID uuid.UUID) (*IssueMapping, *ProjectLink, error) {
	mapping, err := store.FindMappingByTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if mapping == nil || mapping.SyncDirection == SyncGithubToVibe {
		return nil, nil, nil
	}

	link, err := store.FindLink(ctx, mapping.ProjectLinkID)
	if err != nil {
		return nil, nil, err
	}
	if link == nil {
		return nil, nil, fmt.Errorf("GitHub link %s not found", mapping.ProjectLinkID)
	}
	if link.Repo == nil {
		return nil, nil, fmt.Errorf("GitHub link %s has no repository bound", link.ID)
	}
	return mapping, link, nil
}

// ProcessQueue drains the offline queue and attempts every operation in
// order. Failed operations are retried on later calls until their
// retry budget runs out, then dropped.
func (s *SyncService) ProcessQueue(ctx context.Context, store Store) int {
	ops := s.queue.Drain()
	if len(ops) == 0 {
		return 0
	}

	processed := 0
	var failed []Operation
	for _, op := range ops {
		if err := s.executeOperation(ctx, store, op); err != nil {
			op.RetryCount++
			if op.RetryCount < maxRetries {
				s.logger.Warn("queued sync operation failed",
					"operation_id", op.ID, "attempt", op.RetryCount, "error", err)
				failed = append(failed, op)
			} else {
				s.logger.Error("queued sync operation dropped after retries",
					"operation_id", op.ID, "attempts", op.RetryCount, "error", err)
			}
			continue
		}
		processed++
	}

	if len(failed) > 0 {
		s.queue.Requeue(failed)
	}
	return processed
}

// QueueLength returns the number of pending queued operations.
func (s *SyncService) QueueLength() int {
	return s.queue.Len()
}
