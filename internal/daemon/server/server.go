// Package server provides the HTTP server for the paddock daemon.
package server

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/paddocktools/paddock/errors"
	"github.com/paddocktools/paddock/git"
	"github.com/paddocktools/paddock/logging"
	"github.com/paddocktools/paddock/sandbox"
	"github.com/paddocktools/paddock/session"
	"github.com/paddocktools/paddock/state"
)

// requestTimeout bounds git-backed handlers.
const requestTimeout = 30 * time.Second

// Server manages the daemon's HTTP server over a Unix socket.
type Server struct {
	logger    *logrus.Entry
	server    *http.Server
	registry  *session.Registry
	sandboxes *sandbox.Manager
	hub       *Hub
	startedAt time.Time
}

// New creates a server wired to the given registry, sandbox manager and
// event hub.
func New(registry *session.Registry, sandboxes *sandbox.Manager, hub *Hub) *Server {
	return &Server{
		logger:    logging.NewLogger("server"),
		registry:  registry,
		sandboxes: sandboxes,
		hub:       hub,
		startedAt: time.Now(),
	}
}

// Handler returns the daemon's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleSpawnSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/input", s.handleSessionInput)
	mux.HandleFunc("POST /api/sessions/{id}/resize", s.handleSessionResize)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleKillSession)

	mux.HandleFunc("GET /api/sandboxes", s.handleListSandboxes)
	mux.HandleFunc("POST /api/sandboxes", s.handleCreateSandbox)
	mux.HandleFunc("DELETE /api/sandboxes/{name}", s.handleRemoveSandbox)

	mux.HandleFunc("GET /api/repo", s.handleGetRepo)
	mux.HandleFunc("PUT /api/repo", s.handleSetRepo)

	mux.Handle("GET /events", s.hub)

	return mux
}

// ListenAndServe starts the daemon on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Set restrictive permissions on socket
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.server = &http.Server{
		Handler: h2c.NewHandler(s.Handler(), &http2.Server{}),
	}

	s.logger.WithField("socket", socketPath).Info("Daemon listening")
	return s.server.Serve(listener)
}

// Shutdown gracefully stops the server and kills all live sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	s.registry.Shutdown()
	s.hub.Close()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps structured error codes to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeSessionNotFound, errors.ErrCodeWorktreeNotFound,
		errors.ErrCodeRepoNotFound, errors.ErrCodeConfigNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	}

	var pErr *errors.PaddockError
	if goerrors.As(err, &pErr) {
		writeJSON(w, status, pErr)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid request body"))
		return false
	}
	return true
}

// activeRepo resolves the repository that sandbox handlers operate on.
func (s *Server) activeRepo() (string, error) {
	repo, err := state.ActiveRepo()
	if err != nil {
		return "", err
	}
	if repo == "" {
		return "", errors.RepoNotConfigured()
	}
	return repo, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"started_at": s.startedAt,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

type spawnRequest struct {
	AgentID string   `json:"agent_id"`
	Command []string `json:"command"`
	Dir     string   `json:"dir"`
	Cols    uint16   `json:"cols"`
	Rows    uint16   `json:"rows"`
}

func (s *Server) handleSpawnSession(w http.ResponseWriter, r *http.Request) {
	var req spawnRequest
	if !decodeBody(w, r, &req) {
		return
	}

	info, err := s.registry.Spawn(session.SpawnOptions{
		AgentID: req.AgentID,
		Command: req.Command,
		Dir:     req.Dir,
		Cols:    req.Cols,
		Rows:    req.Rows,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.registry.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type inputRequest struct {
	Data string `json:"data"`
}

func (s *Server) handleSessionInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.registry.Write(r.PathValue("id"), []byte(req.Data)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resizeRequest struct {
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

func (s *Server) handleSessionResize(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.registry.Resize(r.PathValue("id"), req.Cols, req.Rows); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKillSession(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Kill(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSandboxes(w http.ResponseWriter, r *http.Request) {
	repo, err := s.activeRepo()
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	infos, err := s.sandboxes.List(ctx, repo)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

type createSandboxRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleCreateSandbox(w http.ResponseWriter, r *http.Request) {
	var req createSandboxRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "session_id is required"))
		return
	}

	repo, err := s.activeRepo()
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	info, err := s.sandboxes.Create(ctx, repo, req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleRemoveSandbox(w http.ResponseWriter, r *http.Request) {
	repo, err := s.activeRepo()
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.sandboxes.Remove(ctx, repo, r.PathValue("name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type repoInfo struct {
	Path   string          `json:"path"`
	Branch string          `json:"branch,omitempty"`
	Head   string          `json:"head,omitempty"`
	Status *git.StatusInfo `json:"status,omitempty"`
}

func (s *Server) handleGetRepo(w http.ResponseWriter, r *http.Request) {
	repo, err := state.ActiveRepo()
	if err != nil {
		writeError(w, err)
		return
	}

	info := repoInfo{Path: repo}
	if repo != "" && git.IsGitRepo(repo) {
		// Enrichment is best-effort; a half-broken checkout still
		// reports its path.
		if branch, branchErr := git.CurrentBranch(repo); branchErr == nil {
			info.Branch = branch
		}
		if head, headErr := git.GetHeadCommit(repo); headErr == nil {
			info.Head = head
		}
		if status, statusErr := git.GetStatus(repo); statusErr == nil {
			info.Status = status
		}
	}
	writeJSON(w, http.StatusOK, info)
}

type setRepoRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleSetRepo(w http.ResponseWriter, r *http.Request) {
	var req setRepoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "path is required"))
		return
	}

	if !git.IsGitRepo(req.Path) {
		writeError(w, errors.RepoNotFound(req.Path))
		return
	}

	abs, err := state.SetActiveRepo(req.Path)
	if err != nil {
		writeError(w, errors.RepoNotFound(req.Path))
		return
	}

	s.logger.WithField("path", abs).Info("Active repository changed")
	writeJSON(w, http.StatusOK, map[string]string{"path": abs})
}
