package errors

import (
	"fmt"
	"testing"
)

func TestPaddockError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeSessionNotFound, "session not found")
	if err.Code != ErrCodeSessionNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeSessionNotFound, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeWorktreeFailed, "worktree add failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeWorktreeFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeSessionNotFound) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("sessionId", "abc123").WithDetail("cols", 220)
	if detailed.Details["sessionId"] != "abc123" {
		t.Error("WithDetail should add details")
	}
}

func TestErrorConstructors(t *testing.T) {
	// Test SessionNotFound
	err := SessionNotFound("deadbeef")
	if err.Code != ErrCodeSessionNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeSessionNotFound, err.Code)
	}
	if err.Details["sessionId"] != "deadbeef" {
		t.Error("SessionNotFound should include sessionId detail")
	}

	// Test RepoNotFound
	err = RepoNotFound("/tmp/nowhere")
	if err.Code != ErrCodeRepoNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeRepoNotFound, err.Code)
	}
	if err.Details["path"] != "/tmp/nowhere" {
		t.Error("RepoNotFound should include path detail")
	}

	// Test WorktreeNotFound
	err = WorktreeNotFound("some-session-id")
	if err.Code != ErrCodeWorktreeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeWorktreeNotFound, err.Code)
	}

	// Test SpawnFailed wraps the cause
	cause := fmt.Errorf("no such file or directory")
	err = SpawnFailed("agent-1", cause)
	if err.Code != ErrCodeSpawnFailed {
		t.Errorf("expected code %s, got %s", ErrCodeSpawnFailed, err.Code)
	}
	if err.Unwrap() != cause {
		t.Error("SpawnFailed should wrap the cause")
	}
}
