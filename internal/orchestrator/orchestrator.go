package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	vgerrors "github.com/vibegraph/vibegraph/internal/errors"
	"github.com/vibegraph/vibegraph/internal/task"
)

// ProjectOrchestrator owns the orchestration lifecycle for one project:
// its state, its event stream, and the cached execution plan.
//
// All lifecycle changes and task notifications for a project are
// serialized; subscribers observe events in emission order. The design
// assumes a single ProjectOrchestrator instance mutates a given
// project's orchestration state.
type ProjectOrchestrator struct {
	projectID   uuid.UUID
	maxParallel int
	events      *broadcaster
	logger      *slog.Logger

	// opMu serializes lifecycle operations and task notifications so
	// each event/plan emission pair forms one critical section.
	opMu sync.Mutex

	// mu guards state and the cached plan for snapshot reads.
	mu    sync.RWMutex
	state State
	plan  *ExecutionPlan
}

// NewProjectOrchestrator creates an orchestrator for a project.
func NewProjectOrchestrator(projectID uuid.UUID, maxParallel int, logger *slog.Logger) *ProjectOrchestrator {
	if maxParallel < 1 {
		maxParallel = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectOrchestrator{
		projectID:   projectID,
		maxParallel: maxParallel,
		events:      newBroadcaster(),
		logger:      logger,
		state:       StateIdle,
	}
}

// ProjectID returns the project this orchestrator belongs to.
func (o *ProjectOrchestrator) ProjectID() uuid.UUID {
	return o.projectID
}

// Subscribe registers an event subscriber. New subscribers receive
// events emitted after this call; there is no replay. The channel is
// closed when the orchestrator is removed or the subscriber is
// unsubscribed.
func (o *ProjectOrchestrator) Subscribe() <-chan Event {
	return o.events.Subscribe()
}

// Unsubscribe removes a subscriber registered with Subscribe.
func (o *ProjectOrchestrator) Unsubscribe(ch <-chan Event) {
	o.events.Unsubscribe(ch)
}

// GetState returns the current orchestrator state.
func (o *ProjectOrchestrator) GetState() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// CachedPlan returns the most recently built plan, or nil if none has
// been built yet.
func (o *ProjectOrchestrator) CachedPlan() *ExecutionPlan {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.plan
}

// BuildPlan rebuilds the execution plan from the repository and caches
// it. It does not mutate orchestrator state.
func (o *ProjectOrchestrator) BuildPlan(ctx context.Context, repo Repository) (*ExecutionPlan, error) {
	tasks, err := repo.ListTasksByProject(ctx, o.projectID)
	if err != nil {
		return nil, err
	}
	deps, err := repo.ListDependenciesByProject(ctx, o.projectID)
	if err != nil {
		return nil, err
	}

	plan, err := BuildExecutionPlan(NewTaskGraph(tasks, deps))
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.plan = plan
	o.mu.Unlock()
	return plan, nil
}

// Start moves the orchestrator from idle (or paused) to running and
// emits StateChanged followed by a fresh PlanUpdated.
func (o *ProjectOrchestrator) Start(ctx context.Context, repo Repository) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.mu.Lock()
	if o.state == StateRunning {
		o.mu.Unlock()
		return vgerrors.ErrAlreadyRunning(o.projectID.String())
	}
	o.state = StateRunning
	o.mu.Unlock()

	o.events.Publish(stateEvent(StateRunning))
	o.logger.Info("orchestrator started", "project_id", o.projectID, "max_parallel", o.maxParallel)

	plan, err := o.BuildPlan(ctx, repo)
	if err != nil {
		return err
	}
	o.events.Publish(planEvent(plan))
	return nil
}

// Pause moves the orchestrator from running to paused. In-progress
// tasks finish, but no new tasks are handed out. The plan is unchanged
// by pausing, so none is rebuilt.
func (o *ProjectOrchestrator) Pause() error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.mu.Lock()
	if o.state != StateRunning {
		o.mu.Unlock()
		return vgerrors.ErrNotRunning(o.projectID.String())
	}
	o.state = StatePaused
	o.mu.Unlock()

	o.events.Publish(stateEvent(StatePaused))
	o.logger.Info("orchestrator paused", "project_id", o.projectID)
	return nil
}

// Resume moves the orchestrator from paused back to running and emits a
// fresh plan.
func (o *ProjectOrchestrator) Resume(ctx context.Context, repo Repository) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.mu.Lock()
	if o.state != StatePaused {
		o.mu.Unlock()
		return vgerrors.ErrNotRunning(o.projectID.String())
	}
	o.state = StateRunning
	o.mu.Unlock()

	o.events.Publish(stateEvent(StateRunning))

	plan, err := o.BuildPlan(ctx, repo)
	if err != nil {
		return err
	}
	o.events.Publish(planEvent(plan))
	return nil
}

// Stop winds the orchestrator down from any state. Subscribers observe
// StateChanged{stopping} then StateChanged{idle}; stopping is a phase
// signal, not a kill — in-flight repository calls are not cancelled.
// Stopping an idle orchestrator is a no-op and emits nothing.
func (o *ProjectOrchestrator) Stop() error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.mu.Lock()
	if o.state == StateIdle {
		o.mu.Unlock()
		return nil
	}
	o.state = StateStopping
	o.mu.Unlock()

	o.events.Publish(stateEvent(StateStopping))

	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()

	o.events.Publish(stateEvent(StateIdle))
	o.logger.Info("orchestrator stopped", "project_id", o.projectID)
	return nil
}

// GetReadyToExecute returns the IDs of tasks a dispatcher may start now:
// ready tasks, truncated to the free parallelism slots. It returns an
// empty slice unless the orchestrator is running.
func (o *ProjectOrchestrator) GetReadyToExecute(ctx context.Context, repo Repository) ([]uuid.UUID, error) {
	if o.GetState() != StateRunning {
		return nil, nil
	}

	plan, err := o.BuildPlan(ctx, repo)
	if err != nil {
		return nil, err
	}

	slots := o.maxParallel - plan.InProgressTasks
	if slots <= 0 {
		return nil, nil
	}

	ready := GetReadyTasks(plan)
	if len(ready) > slots {
		ready = ready[:slots]
	}

	ids := make([]uuid.UUID, 0, len(ready))
	for _, t := range ready {
		ids = append(ids, t.TaskID)
	}
	return ids, nil
}

// OnTaskStarted records that a task has started executing. The task's
// status is mutated by the external writer, not here.
func (o *ProjectOrchestrator) OnTaskStarted(ctx context.Context, taskID uuid.UUID, repo Repository) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.events.Publish(taskEvent(EventTaskStarted, taskID))

	plan, err := o.BuildPlan(ctx, repo)
	if err != nil {
		return err
	}
	o.events.Publish(planEvent(plan))
	return nil
}

// OnTaskCompleted records that a task has completed and returns the IDs
// of tasks whose only blocker was the completing task. The returned
// list is advisory for the caller's dispatcher.
func (o *ProjectOrchestrator) OnTaskCompleted(ctx context.Context, taskID uuid.UUID, repo Repository) ([]uuid.UUID, error) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.events.Publish(taskEvent(EventTaskCompleted, taskID))

	plan, err := o.BuildPlan(ctx, repo)
	if err != nil {
		return nil, err
	}
	newlyReady := GetTasksUnblockedByCompletion(plan, taskID)
	o.events.Publish(planEvent(plan))

	o.logger.Info("task completed", "project_id", o.projectID, "task_id", taskID, "unblocked", len(newlyReady))
	return newlyReady, nil
}

// OnTaskFailed records that a task has failed. The orchestrator does
// not auto-cancel dependents; the task keeps whatever status the
// external writer last set.
func (o *ProjectOrchestrator) OnTaskFailed(ctx context.Context, taskID uuid.UUID, taskErr string, repo Repository) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.events.Publish(Event{Type: EventTaskFailed, Data: EventData{TaskID: &taskID, Error: taskErr}})
	o.logger.Warn("task failed", "project_id", o.projectID, "task_id", taskID, "error", taskErr)

	plan, err := o.BuildPlan(ctx, repo)
	if err != nil {
		return err
	}
	o.events.Publish(planEvent(plan))
	return nil
}

// OnTaskReview records that a task is awaiting review.
func (o *ProjectOrchestrator) OnTaskReview(ctx context.Context, taskID uuid.UUID, repo Repository) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.events.Publish(taskEvent(EventTaskAwaitingReview, taskID))

	plan, err := o.BuildPlan(ctx, repo)
	if err != nil {
		return err
	}
	o.events.Publish(planEvent(plan))
	return nil
}

// ValidateTaskTransition loads the project's tasks and dependencies and
// validates the proposed status transition for one task.
func (o *ProjectOrchestrator) ValidateTaskTransition(ctx context.Context, taskID uuid.UUID, newStatus task.Status, repo Repository) (TransitionValidation, error) {
	tasks, err := repo.ListTasksByProject(ctx, o.projectID)
	if err != nil {
		return TransitionValidation{}, err
	}
	deps, err := repo.ListDependenciesByProject(ctx, o.projectID)
	if err != nil {
		return TransitionValidation{}, err
	}

	g := NewTaskGraph(tasks, deps)
	t := g.Task(taskID)
	if t == nil {
		return TransitionValidation{}, vgerrors.ErrTaskNotFound(taskID.String())
	}

	return ValidateTransition(t, newStatus, g), nil
}

// close shuts down the event stream; subscribers observe end-of-stream.
func (o *ProjectOrchestrator) close() {
	o.events.Close()
}
