package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddocktools/paddock/sandbox"
	"github.com/paddocktools/paddock/session"
	"github.com/paddocktools/paddock/testutil"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	t.Setenv("PADDOCK_HOME", t.TempDir())

	hub := NewHub()
	registry := session.NewRegistry(hub, session.Defaults{Dir: t.TempDir()})
	srv := New(registry, sandbox.NewManager(), hub)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		registry.Shutdown()
	})
	return ts
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions", map[string]interface{}{
		"agent_id": "agent-1",
		"command":  []string{"/bin/sleep", "30"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var info session.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()
	assert.NotEmpty(t, info.ID)
	assert.True(t, info.Alive)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sessions/"+info.ID+"/resize",
		map[string]uint16{"cols": 100, "rows": 30})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/sessions")
	require.NoError(t, err)
	var infos []session.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	resp.Body.Close()
	require.Len(t, infos, 1)
	assert.Equal(t, uint16(100), infos[0].Cols)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/sessions/"+info.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/sessions/" + info.ID)
	require.NoError(t, err)
	var after session.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&after))
	resp.Body.Close()
	assert.False(t, after.Alive)
}

func TestSessionNotFoundStatus(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sessions/nope/input",
		map[string]string{"data": "x"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSandboxEndpoints(t *testing.T) {
	ts := newTestServer(t)

	// Sandbox calls without an active repo are rejected
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/sandboxes",
		map[string]string{"session_id": "abc123"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/repo", map[string]string{"path": repoDir})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The repo endpoint enriches a readable checkout with branch, HEAD
	// commit and status.
	resp, repoErr := http.Get(ts.URL + "/api/repo")
	require.NoError(t, repoErr)
	var repo repoInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&repo))
	resp.Body.Close()
	assert.NotEmpty(t, repo.Path)
	assert.Equal(t, "main", repo.Branch)
	assert.Len(t, repo.Head, 40)
	require.NotNil(t, repo.Status)
	assert.False(t, repo.Status.IsDirty)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/sandboxes",
		map[string]string{"session_id": "abcd1234-ffff-0000-1111-222233334444"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created sandbox.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.Equal(t, "agent/abcd1234", created.Branch)

	resp, err := http.Get(ts.URL + "/api/sandboxes")
	require.NoError(t, err)
	var infos []sandbox.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	resp.Body.Close()
	require.Len(t, infos, 1)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/sandboxes/"+created.Name, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/sandboxes/"+created.Name, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestSetRepo_InvalidPath(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/repo",
		map[string]string{"path": t.TempDir()})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
