package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vibegraph/vibegraph/internal/db"
	"github.com/vibegraph/vibegraph/internal/events"
	"github.com/vibegraph/vibegraph/internal/github"
	"github.com/vibegraph/vibegraph/internal/orchestrator"
)

// Server is the vibegraph API server.
type Server struct {
	addr   string
	mux    *http.ServeMux
	logger *slog.Logger

	store     *db.Store
	registry  *orchestrator.Registry
	syncSvc   *github.SyncService
	publisher events.Publisher

	httpServer *http.Server
}

// Config holds server configuration.
type Config struct {
	Addr   string
	Logger *slog.Logger
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr: ":8080",
	}
}

// New creates a new API server.
func New(cfg *Config, store *db.Store, registry *orchestrator.Registry, syncSvc *github.SyncService, publisher events.Publisher) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NewMemoryPublisher()
	}

	s := &Server{
		addr:      cfg.Addr,
		mux:       http.NewServeMux(),
		logger:    logger,
		store:     store,
		registry:  registry,
		syncSvc:   syncSvc,
		publisher: publisher,
	}
	s.registerRoutes()
	return s
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	s.logger.Info("API server listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// registerRoutes sets up all API routes.
func (s *Server) registerRoutes() {
	// CORS middleware wrapper
	cors := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			h(w, r)
		}
	}

	// Health check
	s.mux.HandleFunc("GET /api/health", cors(s.handleHealth))

	// Orchestrator
	s.mux.HandleFunc("GET /api/projects/{id}/orchestrator", cors(s.handleGetOrchestrator))
	s.mux.HandleFunc("POST /api/projects/{id}/orchestrator/start", cors(s.handleStartOrchestrator))
	s.mux.HandleFunc("POST /api/projects/{id}/orchestrator/pause", cors(s.handlePauseOrchestrator))
	s.mux.HandleFunc("POST /api/projects/{id}/orchestrator/resume", cors(s.handleResumeOrchestrator))
	s.mux.HandleFunc("POST /api/projects/{id}/orchestrator/stop", cors(s.handleStopOrchestrator))
	s.mux.HandleFunc("GET /api/projects/{id}/orchestrator/ready-tasks", cors(s.handleGetReadyTasks))
	s.mux.HandleFunc("POST /api/projects/{id}/orchestrator/validate-transition", cors(s.handleValidateTransition))
	s.mux.HandleFunc("POST /api/projects/{id}/orchestrator/tasks/{task_id}/started", cors(s.handleTaskStarted))
	s.mux.HandleFunc("POST /api/projects/{id}/orchestrator/tasks/{task_id}/completed", cors(s.handleTaskCompleted))
	s.mux.HandleFunc("POST /api/projects/{id}/orchestrator/tasks/{task_id}/failed", cors(s.handleTaskFailed))
	s.mux.HandleFunc("POST /api/projects/{id}/orchestrator/tasks/{task_id}/review", cors(s.handleTaskReview))
	s.mux.HandleFunc("GET /api/projects/{id}/orchestrator/stream/ws", s.handleOrchestratorStream)

	// Dependencies
	s.mux.HandleFunc("GET /api/projects/{id}/dependencies", cors(s.handleListDependencies))
	s.mux.HandleFunc("POST /api/projects/{id}/dependencies", cors(s.handleCreateDependency))
	s.mux.HandleFunc("GET /api/projects/{id}/dependencies/stream/ws", s.handleDependenciesStream)
	s.mux.HandleFunc("PUT /api/dependencies/{dep_id}", cors(s.handleUpdateDependency))
	s.mux.HandleFunc("DELETE /api/dependencies/{dep_id}", cors(s.handleDeleteDependency))
	s.mux.HandleFunc("PUT /api/tasks/{task_id}/position", cors(s.handleUpdateTaskPosition))

	// Dependency genres
	s.mux.HandleFunc("GET /api/projects/{id}/dependency-genres", cors(s.handleListGenres))
	s.mux.HandleFunc("POST /api/projects/{id}/dependency-genres", cors(s.handleCreateGenre))
	s.mux.HandleFunc("PUT /api/projects/{id}/dependency-genres/reorder", cors(s.handleReorderGenres))
	s.mux.HandleFunc("GET /api/projects/{id}/dependency-genres/stream/ws", s.handleGenresStream)
	s.mux.HandleFunc("PUT /api/dependency-genres/{genre_id}", cors(s.handleUpdateGenre))
	s.mux.HandleFunc("DELETE /api/dependency-genres/{genre_id}", cors(s.handleDeleteGenre))

	// GitHub links
	s.mux.HandleFunc("GET /api/projects/{id}/github-links", cors(s.handleListGithubLinks))
	s.mux.HandleFunc("POST /api/projects/{id}/github-links", cors(s.handleCreateGithubLink))
	s.mux.HandleFunc("DELETE /api/github-links/{link_id}", cors(s.handleDeleteGithubLink))
	s.mux.HandleFunc("POST /api/github-links/{link_id}/toggle-sync", cors(s.handleToggleGithubLinkSync))
	s.mux.HandleFunc("POST /api/github-links/{link_id}/sync", cors(s.handleSyncGithubLink))
	s.mux.HandleFunc("GET /api/github-links/{link_id}/mappings", cors(s.handleGetGithubLinkMappings))
}

// handleHealth reports server liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, map[string]any{"status": "ok"})
}

// pathUUID parses a UUID path parameter, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		JSONError(w, "invalid "+name+": must be a UUID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
