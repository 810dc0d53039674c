package errors

import (
	"fmt"
	"os/exec"
)

// SpawnFailed creates a session spawn failure error
func SpawnFailed(agentID string, err error) *PaddockError {
	return Wrap(err, ErrCodeSpawnFailed, fmt.Sprintf("failed to spawn session for agent '%s'", agentID)).
		WithDetail("agentId", agentID)
}

// SessionNotFound creates a session not found error
func SessionNotFound(sessionID string) *PaddockError {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("session '%s' not found", sessionID)).
		WithDetail("sessionId", sessionID)
}

// IOFailed creates an error for a failed read/write against a live session
func IOFailed(sessionID string, err error) *PaddockError {
	return Wrap(err, ErrCodeIOFailed, fmt.Sprintf("I/O failed for session '%s'", sessionID)).
		WithDetail("sessionId", sessionID)
}

// RepoNotFound creates an error for a missing or invalid git repository
func RepoNotFound(path string) *PaddockError {
	return New(ErrCodeRepoNotFound, fmt.Sprintf("not a git repository: %s", path)).
		WithDetail("path", path)
}

// RepoNotConfigured creates an error for when no active repository is set
func RepoNotConfigured() *PaddockError {
	return New(ErrCodeRepoNotFound, "no active repository configured")
}

// WorktreeFailed creates a worktree provisioning failure error
func WorktreeFailed(sessionID string, err error) *PaddockError {
	return Wrap(err, ErrCodeWorktreeFailed, fmt.Sprintf("failed to provision worktree for session '%s'", sessionID)).
		WithDetail("sessionId", sessionID)
}

// WorktreeNotFound creates an error for a missing worktree registration
func WorktreeNotFound(name string) *PaddockError {
	return New(ErrCodeWorktreeNotFound, fmt.Sprintf("worktree '%s' not found", name)).
		WithDetail("name", name)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *PaddockError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *PaddockError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *PaddockError {
	pErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		pErr = pErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return pErr
}
