package orchestrator

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Registry is the process-wide map of project ID to orchestrator.
// Exactly one orchestrator exists per project at a time.
type Registry struct {
	mu            sync.RWMutex
	orchestrators map[uuid.UUID]*ProjectOrchestrator

	defaultMaxParallel int
	logger             *slog.Logger
}

// NewRegistry creates a registry. Orchestrators it creates use the given
// default parallelism.
func NewRegistry(defaultMaxParallel int, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		orchestrators:      make(map[uuid.UUID]*ProjectOrchestrator),
		defaultMaxParallel: defaultMaxParallel,
		logger:             logger,
	}
}

// GetOrCreate returns the orchestrator for a project, creating it on
// first use. The read lock serves the hot path; creation re-checks under
// the write lock so concurrent callers get the same instance.
func (r *Registry) GetOrCreate(projectID uuid.UUID) *ProjectOrchestrator {
	r.mu.RLock()
	if orch, ok := r.orchestrators[projectID]; ok {
		r.mu.RUnlock()
		return orch
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if orch, ok := r.orchestrators[projectID]; ok {
		return orch
	}

	orch := NewProjectOrchestrator(projectID, r.defaultMaxParallel, r.logger)
	r.orchestrators[projectID] = orch
	return orch
}

// Get returns the orchestrator for a project, or nil if none exists.
func (r *Registry) Get(projectID uuid.UUID) *ProjectOrchestrator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.orchestrators[projectID]
}

// Remove drops a project's orchestrator. Pending subscribers observe
// end-of-stream.
func (r *Registry) Remove(projectID uuid.UUID) {
	r.mu.Lock()
	orch, ok := r.orchestrators[projectID]
	if ok {
		delete(r.orchestrators, projectID)
	}
	r.mu.Unlock()

	if ok {
		orch.close()
	}
}

// Len returns the number of registered orchestrators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orchestrators)
}
