// Package sandbox manages isolated git worktrees for agent sessions. Each
// sandbox is a dedicated worktree checked out on its own agent branch, kept
// under the repository's .git directory so it never shows up as an untracked
// path in the main checkout.
package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/paddocktools/paddock/command"
	"github.com/paddocktools/paddock/errors"
	"github.com/paddocktools/paddock/git"
	"github.com/paddocktools/paddock/logging"
)

// worktreesDirName is the directory under .git that holds all sandbox
// worktrees.
const worktreesDirName = "paddock-worktrees"

// branchPrefix is prepended to the session id fragment to form the sandbox
// branch name.
const branchPrefix = "agent/"

// branchIDLength is how many leading characters of the session id go into the
// branch name. Session ids are UUIDs, so eight hex characters keep branch
// names short while staying practically collision-free.
const branchIDLength = 8

// Info describes one sandbox worktree.
type Info struct {
	// Name is the session id the sandbox was created for.
	Name string `json:"name"`
	// Path is the absolute worktree path on disk.
	Path string `json:"path"`
	// Branch is the checked-out branch, or "detached".
	Branch string `json:"branch"`
	// Ahead and Behind count commits relative to the repository's main
	// branch HEAD at the time of listing.
	Ahead  int `json:"ahead"`
	Behind int `json:"behind"`
	// Dirty reports whether the worktree has uncommitted or untracked
	// changes.
	Dirty bool `json:"dirty"`
}

// Manager creates, lists and removes sandbox worktrees.
type Manager struct {
	worktrees *git.WorktreeManager
	builder   *command.SafeBuilder
	logger    *logrus.Entry

	// mu guards the locks map. Per-session locks serialize create/remove
	// for the same session id while leaving different sessions free to
	// proceed concurrently.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager returns a sandbox manager.
func NewManager() *Manager {
	return &Manager{
		worktrees: git.NewWorktreeManager(),
		builder:   command.NewSafeBuilder(),
		logger:    logging.NewLogger("sandbox"),
		locks:     make(map[string]*sync.Mutex),
	}
}

func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	return l
}

// BranchName returns the branch a sandbox for the given session id uses.
func BranchName(sessionID string) string {
	fragment := sessionID
	if len(fragment) > branchIDLength {
		fragment = fragment[:branchIDLength]
	}
	return branchPrefix + fragment
}

// worktreesDir returns the directory holding sandbox worktrees for a repo.
func worktreesDir(gitRoot string) string {
	return filepath.Join(gitRoot, ".git", worktreesDirName)
}

// Create makes a sandbox worktree for the given session inside repoPath.
// Creating a sandbox that already exists returns the existing sandbox. The
// branch is created from the current HEAD if it does not exist yet, otherwise
// the existing branch is checked out as-is.
func (m *Manager) Create(ctx context.Context, repoPath, sessionID string) (*Info, error) {
	// The id becomes a branch name and a path segment, so it must pass
	// the same validation the command layer applies to git arguments.
	if err := m.builder.Validate("sessionID", sessionID); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid session id")
	}
	if !git.IsGitRepo(repoPath) {
		return nil, errors.RepoNotFound(repoPath)
	}

	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	gitRoot, err := git.GetGitRoot(repoPath)
	if err != nil {
		return nil, errors.RepoNotFound(repoPath)
	}

	branch := BranchName(sessionID)
	worktreePath := filepath.Join(worktreesDir(gitRoot), sessionID)

	if _, statErr := os.Stat(worktreePath); statErr == nil {
		m.logger.WithField("session_id", sessionID).Debug("Sandbox already exists, reusing")
		return &Info{Name: sessionID, Path: worktreePath, Branch: branch}, nil
	}

	if err := git.CreateBranch(ctx, gitRoot, branch); err != nil {
		return nil, errors.WorktreeFailed(sessionID, err)
	}

	if err := os.MkdirAll(worktreesDir(gitRoot), 0755); err != nil {
		return nil, errors.WorktreeFailed(sessionID, err)
	}

	if err := m.worktrees.AddWorktree(ctx, gitRoot, worktreePath, branch); err != nil {
		return nil, errors.WorktreeFailed(sessionID, err)
	}

	m.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"branch":     branch,
		"path":       worktreePath,
	}).Info("Created sandbox worktree")

	// A fresh sandbox starts at the branch tip with a clean tree, so the
	// divergence counts are zero by construction.
	return &Info{Name: sessionID, Path: worktreePath, Branch: branch}, nil
}

// List returns all sandboxes for the repository, with divergence against the
// main branch and dirtiness computed per worktree. Worktrees that cannot be
// inspected are skipped rather than failing the whole listing.
func (m *Manager) List(ctx context.Context, repoPath string) ([]Info, error) {
	if !git.IsGitRepo(repoPath) {
		return nil, errors.RepoNotFound(repoPath)
	}

	gitRoot, err := git.GetGitRoot(repoPath)
	if err != nil {
		return nil, errors.RepoNotFound(repoPath)
	}

	worktrees, err := m.worktrees.ListWorktrees(ctx, gitRoot)
	if err != nil {
		return nil, errors.WorktreeFailed("", err)
	}

	baseDir := worktreesDir(gitRoot)
	infos := make([]Info, 0, len(worktrees))
	for _, wt := range worktrees {
		if wt.Bare || filepath.Dir(wt.Path) != baseDir {
			// The main checkout (and anything outside our directory)
			// is not a sandbox.
			continue
		}

		info := Info{
			Name:   filepath.Base(wt.Path),
			Path:   wt.Path,
			Branch: wt.Branch,
		}
		if wt.Detached || info.Branch == "" {
			// The porcelain listing has no branch for this entry, so
			// ask the worktree itself.
			branch, branchErr := git.CurrentBranch(wt.Path)
			if branchErr != nil {
				m.logger.WithError(branchErr).WithField("path", wt.Path).Warn("Skipping unreadable sandbox")
				continue
			}
			info.Branch = branch
		}

		if info.Branch != "detached" {
			ahead, behind, divErr := git.AheadBehind(ctx, gitRoot, info.Branch, "HEAD")
			if divErr != nil {
				m.logger.WithError(divErr).WithField("path", wt.Path).Warn("Skipping unreadable sandbox")
				continue
			}
			info.Ahead = ahead
			info.Behind = behind
		}

		dirty, dirtyErr := git.IsDirty(wt.Path)
		if dirtyErr != nil {
			m.logger.WithError(dirtyErr).WithField("path", wt.Path).Warn("Skipping unreadable sandbox")
			continue
		}
		info.Dirty = dirty

		infos = append(infos, info)
	}

	return infos, nil
}

// Remove deletes the sandbox with the given name. The worktree directory is
// removed even if git has already lost track of it, and the agent branch is
// deleted on a best-effort basis. Removing a sandbox twice returns
// WorktreeNotFound on the second call.
func (m *Manager) Remove(ctx context.Context, repoPath, name string) error {
	if err := m.builder.Validate("sessionID", name); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid sandbox name")
	}
	if !git.IsGitRepo(repoPath) {
		return errors.RepoNotFound(repoPath)
	}

	lock := m.sessionLock(name)
	lock.Lock()
	defer lock.Unlock()

	gitRoot, err := git.GetGitRoot(repoPath)
	if err != nil {
		return errors.RepoNotFound(repoPath)
	}

	worktreePath := filepath.Join(worktreesDir(gitRoot), name)
	if _, statErr := os.Stat(worktreePath); os.IsNotExist(statErr) {
		return errors.WorktreeNotFound(name)
	}

	if err := m.worktrees.RemoveWorktree(ctx, gitRoot, worktreePath); err != nil {
		// Fall back to removing the directory directly and pruning the
		// stale registration. A half-removed sandbox must not wedge.
		m.logger.WithError(err).WithField("name", name).Warn("git worktree remove failed, cleaning up manually")
		if rmErr := os.RemoveAll(worktreePath); rmErr != nil {
			return errors.WorktreeFailed(name, rmErr)
		}
	}
	if err := m.worktrees.PruneWorktrees(ctx, gitRoot); err != nil {
		m.logger.WithError(err).Debug("Worktree prune failed")
	}

	branch := BranchName(name)
	if err := git.DeleteBranch(ctx, gitRoot, branch); err != nil {
		m.logger.WithError(err).WithField("branch", branch).Debug("Branch cleanup failed")
	}

	m.logger.WithField("name", name).Info("Removed sandbox worktree")
	return nil
}
