package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/paddocktools/paddock/command"
)

// WorktreeInfo contains information about a git worktree
type WorktreeInfo struct {
	Path     string
	Branch   string
	Commit   string
	Bare     bool
	Detached bool
}

// WorktreeManager manages git worktrees
type WorktreeManager struct {
	cmdBuilder *command.SafeBuilder
}

// NewWorktreeManager creates a new worktree manager
func NewWorktreeManager() *WorktreeManager {
	return &WorktreeManager{
		cmdBuilder: command.NewSafeBuilder(),
	}
}

// ListWorktrees returns all worktrees registered for the repository at repoPath
func (m *WorktreeManager) ListWorktrees(ctx context.Context, repoPath string) ([]WorktreeInfo, error) {
	cmd, err := m.cmdBuilder.Build(ctx, "git", "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = repoPath

	output, err := execCmd.Output()
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}

	return m.parseWorktreeList(string(output)), nil
}

// AddWorktree registers a new worktree at worktreePath checked out to branch.
// The branch must already exist.
func (m *WorktreeManager) AddWorktree(ctx context.Context, repoPath, worktreePath, branch string) error {
	if err := m.cmdBuilder.Validate("gitRef", branch); err != nil {
		return fmt.Errorf("invalid branch name: %w", err)
	}
	if err := m.cmdBuilder.Validate("fileName", worktreePath); err != nil {
		return fmt.Errorf("invalid worktree path: %w", err)
	}

	cmd, err := m.cmdBuilder.Build(ctx, "git", "worktree", "add", worktreePath, branch)
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = repoPath

	if output, err := execCmd.CombinedOutput(); err != nil {
		return fmt.Errorf("create worktree: %s", strings.TrimSpace(string(output)))
	}

	return nil
}

// RemoveWorktree removes a worktree registration and its checkout.
func (m *WorktreeManager) RemoveWorktree(ctx context.Context, repoPath, worktreePath string) error {
	cmd, err := m.cmdBuilder.Build(ctx, "git", "worktree", "remove", "--force", worktreePath)
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = repoPath

	if output, err := execCmd.CombinedOutput(); err != nil {
		return fmt.Errorf("remove worktree: %s", strings.TrimSpace(string(output)))
	}

	return nil
}

// PruneWorktrees drops stale worktree bookkeeping (registrations whose
// directories are gone).
func (m *WorktreeManager) PruneWorktrees(ctx context.Context, repoPath string) error {
	cmd, err := m.cmdBuilder.Build(ctx, "git", "worktree", "prune")
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = repoPath

	if output, err := execCmd.CombinedOutput(); err != nil {
		return fmt.Errorf("prune worktrees: %s", strings.TrimSpace(string(output)))
	}

	return nil
}

// parseWorktreeList parses git worktree list --porcelain output
func (m *WorktreeManager) parseWorktreeList(output string) []WorktreeInfo {
	var worktrees []WorktreeInfo

	var current WorktreeInfo
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			if current.Path != "" {
				worktrees = append(worktrees, current)
				current = WorktreeInfo{}
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "worktree "):
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			current.Commit = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "bare":
			current.Bare = true
		case line == "detached":
			current.Detached = true
		}
	}

	if current.Path != "" {
		worktrees = append(worktrees, current)
	}

	return worktrees
}
