// Package daemon provides an HTTP client for the paddock daemon's unix
// socket API.
package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/paddocktools/paddock/errors"
	"github.com/paddocktools/paddock/git"
	"github.com/paddocktools/paddock/pkg/paths"
	"github.com/paddocktools/paddock/sandbox"
	"github.com/paddocktools/paddock/session"
)

// baseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const baseURL = "http://unix"

// Client calls the daemon's HTTP API over its unix socket.
type Client struct {
	httpClient *http.Client
	socketPath string
}

// NewClient returns a client for the given socket path. An empty path uses
// the default socket location.
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = paths.SocketPath()
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   60 * time.Second,
		},
		socketPath: socketPath,
	}
}

// SocketPath returns the socket this client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// IsRunning reports whether the daemon answers on the socket.
func (c *Client) IsRunning(ctx context.Context) bool {
	if _, err := os.Stat(c.socketPath); err != nil {
		return false
	}
	err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	return err == nil
}

// do performs one API request, decoding a JSON response into out when out is
// non-nil. Error responses carrying a structured error body are surfaced as
// PaddockError values so callers can switch on the code.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		var pErr errors.PaddockError
		if json.Unmarshal(data, &pErr) == nil && pErr.Code != "" {
			return &pErr
		}
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// SpawnRequest configures a new session.
type SpawnRequest struct {
	AgentID string   `json:"agent_id"`
	Command []string `json:"command,omitempty"`
	Dir     string   `json:"dir,omitempty"`
	Cols    uint16   `json:"cols,omitempty"`
	Rows    uint16   `json:"rows,omitempty"`
}

// Spawn starts a new PTY session.
func (c *Client) Spawn(ctx context.Context, req SpawnRequest) (*session.Info, error) {
	var info session.Info
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListSessions returns all sessions known to the daemon.
func (c *Client) ListSessions(ctx context.Context) ([]session.Info, error) {
	var infos []session.Info
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// GetSession returns one session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*session.Info, error) {
	var info session.Info
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Input sends input bytes to a session's terminal.
func (c *Client) Input(ctx context.Context, sessionID, data string) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/input",
		map[string]string{"data": data}, nil)
}

// Resize changes a session's terminal geometry.
func (c *Client) Resize(ctx context.Context, sessionID string, cols, rows uint16) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/resize",
		map[string]uint16{"cols": cols, "rows": rows}, nil)
}

// Kill terminates a session's process.
func (c *Client) Kill(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+sessionID, nil, nil)
}

// CreateSandbox provisions a sandbox worktree for a session.
func (c *Client) CreateSandbox(ctx context.Context, sessionID string) (*sandbox.Info, error) {
	var info sandbox.Info
	err := c.do(ctx, http.MethodPost, "/api/sandboxes",
		map[string]string{"session_id": sessionID}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ListSandboxes returns all sandboxes in the active repository.
func (c *Client) ListSandboxes(ctx context.Context) ([]sandbox.Info, error) {
	var infos []sandbox.Info
	if err := c.do(ctx, http.MethodGet, "/api/sandboxes", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// RemoveSandbox deletes a sandbox worktree.
func (c *Client) RemoveSandbox(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/sandboxes/"+name, nil, nil)
}

// RepoInfo describes the daemon's active repository. Branch, Head and
// Status are only populated when the path points at a readable checkout.
type RepoInfo struct {
	Path   string          `json:"path"`
	Branch string          `json:"branch,omitempty"`
	Head   string          `json:"head,omitempty"`
	Status *git.StatusInfo `json:"status,omitempty"`
}

// ActiveRepo returns the daemon's active repository.
func (c *Client) ActiveRepo(ctx context.Context) (*RepoInfo, error) {
	var resp RepoInfo
	if err := c.do(ctx, http.MethodGet, "/api/repo", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetActiveRepo changes the daemon's active repository.
func (c *Client) SetActiveRepo(ctx context.Context, path string) (string, error) {
	var resp struct {
		Path string `json:"path"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/repo", map[string]string{"path": path}, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}
