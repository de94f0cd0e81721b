package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vgerrors "github.com/vibegraph/vibegraph/internal/errors"
	"github.com/vibegraph/vibegraph/internal/task"
)

// fakeRepo is an in-memory Repository for orchestrator tests.
type fakeRepo struct {
	mu        sync.Mutex
	tasks     []task.Task
	deps      []task.Dependency
	dagWrites map[uuid.UUID][2]float64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{dagWrites: make(map[uuid.UUID][2]float64)}
}

func (f *fakeRepo) ListTasksByProject(_ context.Context, projectID uuid.UUID) ([]task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []task.Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListDependenciesByProject(_ context.Context, _ uuid.UUID) ([]task.Dependency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]task.Dependency(nil), f.deps...), nil
}

func (f *fakeRepo) UpdateTaskDAGPosition(_ context.Context, taskID uuid.UUID, x, y *float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dagWrites[taskID] = [2]float64{*x, *y}
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			f.tasks[i].DAGPositionX = x
			f.tasks[i].DAGPositionY = y
		}
	}
	return nil
}

func (f *fakeRepo) setStatus(taskID uuid.UUID, status task.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			f.tasks[i].Status = status
		}
	}
}

// collect drains already-buffered events from a subscription.
func collect(sub <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestOrchestrator_StartEmitsStateThenPlan(t *testing.T) {
	repo := newFakeRepo()
	repo.tasks = []task.Task{newTestTask(t, task.StatusTodo, 0)}

	orch := NewProjectOrchestrator(testProjectID, 3, nil)
	sub := orch.Subscribe()

	require.NoError(t, orch.Start(context.Background(), repo))
	assert.Equal(t, StateRunning, orch.GetState())

	evs := collect(sub)
	require.Len(t, evs, 2)
	assert.Equal(t, EventStateChanged, evs[0].Type)
	assert.Equal(t, StateRunning, evs[0].Data.State)
	assert.Equal(t, EventPlanUpdated, evs[1].Type)
	require.NotNil(t, evs[1].Data.Plan)
	assert.Equal(t, 1, evs[1].Data.Plan.TotalTasks)
}

func TestOrchestrator_StartTwiceFails(t *testing.T) {
	repo := newFakeRepo()
	orch := NewProjectOrchestrator(testProjectID, 3, nil)

	require.NoError(t, orch.Start(context.Background(), repo))
	err := orch.Start(context.Background(), repo)
	require.Error(t, err)

	ve := vgerrors.AsVibeError(err)
	require.NotNil(t, ve)
	assert.Equal(t, vgerrors.CodeAlreadyRunning, ve.Code)
}

func TestOrchestrator_PauseResume(t *testing.T) {
	repo := newFakeRepo()
	orch := NewProjectOrchestrator(testProjectID, 3, nil)

	// Can't pause when idle.
	require.Error(t, orch.Pause())

	require.NoError(t, orch.Start(context.Background(), repo))
	require.NoError(t, orch.Pause())
	assert.Equal(t, StatePaused, orch.GetState())

	// Can't resume unless paused.
	require.NoError(t, orch.Resume(context.Background(), repo))
	assert.Equal(t, StateRunning, orch.GetState())
	require.Error(t, orch.Resume(context.Background(), repo))
}

// Stopping an idle orchestrator succeeds, stays idle, and emits nothing.
func TestOrchestrator_StopIdempotent(t *testing.T) {
	orch := NewProjectOrchestrator(testProjectID, 3, nil)
	sub := orch.Subscribe()

	require.NoError(t, orch.Stop())
	assert.Equal(t, StateIdle, orch.GetState())
	assert.Empty(t, collect(sub))
}

// A running orchestrator winds down through stopping to idle, with both
// edges visible to subscribers.
func TestOrchestrator_StopEmitsBothEdges(t *testing.T) {
	repo := newFakeRepo()
	orch := NewProjectOrchestrator(testProjectID, 3, nil)
	require.NoError(t, orch.Start(context.Background(), repo))

	sub := orch.Subscribe()
	require.NoError(t, orch.Stop())
	assert.Equal(t, StateIdle, orch.GetState())

	evs := collect(sub)
	require.Len(t, evs, 2)
	assert.Equal(t, StateStopping, evs[0].Data.State)
	assert.Equal(t, StateIdle, evs[1].Data.State)
}

func TestOrchestrator_GetReadyToExecute(t *testing.T) {
	repo := newFakeRepo()
	for i := 0; i < 5; i++ {
		repo.tasks = append(repo.tasks, newTestTask(t, task.StatusTodo, time.Duration(i)*time.Second))
	}

	orch := NewProjectOrchestrator(testProjectID, 2, nil)

	// Not running: empty.
	ids, err := orch.GetReadyToExecute(context.Background(), repo)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, orch.Start(context.Background(), repo))

	// Running with 2 slots: truncated.
	ids, err = orch.GetReadyToExecute(context.Background(), repo)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	// One task starts; only one slot remains.
	repo.setStatus(repo.tasks[0].ID, task.StatusInProgress)
	ids, err = orch.GetReadyToExecute(context.Background(), repo)
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	// Parallelism exhausted.
	repo.setStatus(repo.tasks[1].ID, task.StatusInProgress)
	ids, err = orch.GetReadyToExecute(context.Background(), repo)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestOrchestrator_OnTaskCompletedReturnsUnblocked(t *testing.T) {
	repo := newFakeRepo()
	a := newTestTask(t, task.StatusTodo, 0)
	b := newTestTask(t, task.StatusTodo, time.Second)
	repo.tasks = []task.Task{a, b}
	repo.deps = []task.Dependency{newTestDependency(b.ID, a.ID)}

	orch := NewProjectOrchestrator(testProjectID, 3, nil)
	sub := orch.Subscribe()

	// The external writer has not yet flipped A to done, so the rebuilt
	// plan still shows B blocked only by A.
	unblocked, err := orch.OnTaskCompleted(context.Background(), a.ID, repo)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, unblocked)

	evs := collect(sub)
	require.Len(t, evs, 2)
	assert.Equal(t, EventTaskCompleted, evs[0].Type)
	assert.Equal(t, EventPlanUpdated, evs[1].Type)
}

func TestOrchestrator_OnTaskFailedEmitsErrorEvent(t *testing.T) {
	repo := newFakeRepo()
	tk := newTestTask(t, task.StatusTodo, 0)
	repo.tasks = []task.Task{tk}

	orch := NewProjectOrchestrator(testProjectID, 3, nil)
	sub := orch.Subscribe()

	require.NoError(t, orch.OnTaskFailed(context.Background(), tk.ID, "worker crashed", repo))

	evs := collect(sub)
	require.Len(t, evs, 2)
	assert.Equal(t, EventTaskFailed, evs[0].Type)
	assert.Equal(t, "worker crashed", evs[0].Data.Error)
	require.NotNil(t, evs[0].Data.TaskID)
	assert.Equal(t, tk.ID, *evs[0].Data.TaskID)
}

func TestOrchestrator_ValidateTaskTransition(t *testing.T) {
	repo := newFakeRepo()
	dep := newTestTask(t, task.StatusTodo, 0)
	tk := newTestTask(t, task.StatusTodo, time.Second)
	repo.tasks = []task.Task{dep, tk}
	repo.deps = []task.Dependency{newTestDependency(tk.ID, dep.ID)}

	orch := NewProjectOrchestrator(testProjectID, 3, nil)

	validation, err := orch.ValidateTaskTransition(context.Background(), tk.ID, task.StatusInProgress, repo)
	require.NoError(t, err)
	assert.Equal(t, ValidationRequiresConfirmation, validation.Kind)
	assert.Equal(t, []uuid.UUID{dep.ID}, validation.BlockingTasks)

	_, err = orch.ValidateTaskTransition(context.Background(), uuid.New(), task.StatusDone, repo)
	require.Error(t, err)
	ve := vgerrors.AsVibeError(err)
	require.NotNil(t, ve)
	assert.Equal(t, vgerrors.CodeTaskNotFound, ve.Code)
}

func TestOrchestrator_EventOrderPerSubscriber(t *testing.T) {
	repo := newFakeRepo()
	tk := newTestTask(t, task.StatusTodo, 0)
	repo.tasks = []task.Task{tk}

	orch := NewProjectOrchestrator(testProjectID, 3, nil)
	sub1 := orch.Subscribe()
	sub2 := orch.Subscribe()

	ctx := context.Background()
	require.NoError(t, orch.Start(ctx, repo))
	require.NoError(t, orch.OnTaskStarted(ctx, tk.ID, repo))
	require.NoError(t, orch.Pause())

	want := []EventType{
		EventStateChanged, EventPlanUpdated,
		EventTaskStarted, EventPlanUpdated,
		EventStateChanged,
	}
	for _, sub := range []<-chan Event{sub1, sub2} {
		evs := collect(sub)
		require.Len(t, evs, len(want))
		for i, ev := range evs {
			assert.Equal(t, want[i], ev.Type)
		}
	}
}

func TestBroadcaster_SlowSubscriberDropsOldest(t *testing.T) {
	b := newBroadcaster()
	sub := b.Subscribe()

	// Overflow the buffer; the earliest events are the casualties.
	total := eventBufferSize + 10
	var ids []uuid.UUID
	for i := 0; i < total; i++ {
		id := uuid.New()
		ids = append(ids, id)
		b.Publish(taskEvent(EventTaskStarted, id))
	}

	evs := collect(sub)
	require.Len(t, evs, eventBufferSize)
	assert.Equal(t, ids[10], *evs[0].Data.TaskID)
	assert.Equal(t, ids[total-1], *evs[len(evs)-1].Data.TaskID)
	b.Close()
}

func TestRegistry_GetOrCreateIdempotent(t *testing.T) {
	reg := NewRegistry(3, nil)
	projectID := uuid.New()

	o1 := reg.GetOrCreate(projectID)
	o2 := reg.GetOrCreate(projectID)
	assert.Same(t, o1, o2)
	assert.Equal(t, 1, reg.Len())

	// Concurrent callers converge on one instance.
	var wg sync.WaitGroup
	results := make([]*ProjectOrchestrator, 16)
	other := uuid.New()
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = reg.GetOrCreate(other)
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestRegistry_RemoveEndsSubscriberStreams(t *testing.T) {
	reg := NewRegistry(3, nil)
	projectID := uuid.New()

	orch := reg.GetOrCreate(projectID)
	sub := orch.Subscribe()

	reg.Remove(projectID)
	assert.Nil(t, reg.Get(projectID))

	select {
	case _, ok := <-sub:
		assert.False(t, ok, "subscriber channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed after remove")
	}
}
