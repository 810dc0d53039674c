// Package git provides git repository inspection and worktree management by
// shelling out to the git CLI.
package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/paddocktools/paddock/command"
)

// IsGitRepo checks if the given directory is inside a git repository
func IsGitRepo(dir string) bool {
	cmdBuilder := command.NewSafeBuilder()
	cmd, err := cmdBuilder.Build(context.Background(), "git", "rev-parse", "--git-dir")
	if err != nil {
		return false
	}
	execCmd := cmd.Exec()
	execCmd.Dir = dir
	return execCmd.Run() == nil
}

// GetGitRoot returns the root directory of the git repository
func GetGitRoot(dir string) (string, error) {
	cmdBuilder := command.NewSafeBuilder()
	cmd, err := cmdBuilder.Build(context.Background(), "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("failed to build command: %w", err)
	}
	execCmd := cmd.Exec()
	execCmd.Dir = dir
	output, err := execCmd.Output()
	if err != nil {
		return "", fmt.Errorf("get git root: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

// ResolveRef resolves a git ref (branch name, tag, or commit) to its full
// commit hash. Returns empty string and error if resolution fails.
func ResolveRef(dir, ref string) (string, error) {
	cmdBuilder := command.NewSafeBuilder()
	if err := cmdBuilder.Validate("gitRef", ref); err != nil {
		return "", fmt.Errorf("invalid ref: %w", err)
	}
	cmd, err := cmdBuilder.Build(context.Background(), "git", "rev-parse", ref)
	if err != nil {
		return "", fmt.Errorf("failed to build command: %w", err)
	}
	execCmd := cmd.Exec()
	execCmd.Dir = dir
	output, err := execCmd.Output()
	if err != nil {
		return "", fmt.Errorf("resolve ref %s: %w", ref, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// GetHeadCommit returns the current HEAD commit hash for a repository.
func GetHeadCommit(dir string) (string, error) {
	return ResolveRef(dir, "HEAD")
}

// CurrentBranch returns the current branch name for the repository at dir.
// Returns "detached" if HEAD is not on a branch.
func CurrentBranch(dir string) (string, error) {
	cmdBuilder := command.NewSafeBuilder()
	cmd, err := cmdBuilder.Build(context.Background(), "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to build command: %w", err)
	}
	execCmd := cmd.Exec()
	execCmd.Dir = dir
	output, err := execCmd.Output()
	if err != nil {
		return "", fmt.Errorf("get current branch: %w", err)
	}

	branch := strings.TrimSpace(string(output))
	if branch == "HEAD" {
		return "detached", nil
	}
	return branch, nil
}

// BranchExists reports whether a local branch exists in the repository.
func BranchExists(dir, branch string) bool {
	cmdBuilder := command.NewSafeBuilder()
	if cmdBuilder.Validate("gitRef", branch) != nil {
		return false
	}
	cmd, err := cmdBuilder.Build(context.Background(), "git", "rev-parse", "--verify", "refs/heads/"+branch)
	if err != nil {
		return false
	}
	execCmd := cmd.Exec()
	execCmd.Dir = dir
	return execCmd.Run() == nil
}

// CreateBranch creates a local branch at the current HEAD. It is a no-op if
// the branch already exists (create-or-find semantics).
func CreateBranch(ctx context.Context, dir, branch string) error {
	cmdBuilder := command.NewSafeBuilder()
	if err := cmdBuilder.Validate("gitRef", branch); err != nil {
		return fmt.Errorf("invalid branch name: %w", err)
	}

	if BranchExists(dir, branch) {
		return nil
	}

	cmd, err := cmdBuilder.Build(ctx, "git", "branch", branch)
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}
	execCmd := cmd.Exec()
	execCmd.Dir = dir
	if output, err := execCmd.CombinedOutput(); err != nil {
		// A concurrent creation may have won the race; that still satisfies
		// create-or-find.
		if BranchExists(dir, branch) {
			return nil
		}
		return fmt.Errorf("create branch: %s", strings.TrimSpace(string(output)))
	}
	return nil
}

// DeleteBranch force-deletes a local branch.
func DeleteBranch(ctx context.Context, dir, branch string) error {
	cmdBuilder := command.NewSafeBuilder()
	if err := cmdBuilder.Validate("gitRef", branch); err != nil {
		return fmt.Errorf("invalid branch name: %w", err)
	}
	cmd, err := cmdBuilder.Build(ctx, "git", "branch", "-D", branch)
	if err != nil {
		return fmt.Errorf("failed to build command: %w", err)
	}
	execCmd := cmd.Exec()
	execCmd.Dir = dir
	if output, err := execCmd.CombinedOutput(); err != nil {
		return fmt.Errorf("delete branch: %s", strings.TrimSpace(string(output)))
	}
	return nil
}
