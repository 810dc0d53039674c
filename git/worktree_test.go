package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddocktools/paddock/testutil"
)

func TestWorktreeManager_ParseWorktreeList(t *testing.T) {
	m := NewWorktreeManager()

	output := `worktree /home/user/project
HEAD abcdef1234567890abcdef1234567890abcdef12
branch refs/heads/main

worktree /home/user/project/.git/paddock-worktrees/session-1
HEAD fedcba0987654321fedcba0987654321fedcba09
branch refs/heads/agent/abcd1234

worktree /home/user/detached-wt
HEAD 1111111111111111111111111111111111111111
detached
`

	worktrees := m.parseWorktreeList(output)
	require.Len(t, worktrees, 3)

	assert.Equal(t, "/home/user/project", worktrees[0].Path)
	assert.Equal(t, "main", worktrees[0].Branch)
	assert.Equal(t, "abcdef1234567890abcdef1234567890abcdef12", worktrees[0].Commit)
	assert.False(t, worktrees[0].Detached)

	assert.Equal(t, "/home/user/project/.git/paddock-worktrees/session-1", worktrees[1].Path)
	assert.Equal(t, "agent/abcd1234", worktrees[1].Branch)

	assert.Equal(t, "/home/user/detached-wt", worktrees[2].Path)
	assert.Empty(t, worktrees[2].Branch)
	assert.True(t, worktrees[2].Detached)
}

func TestWorktreeManager_ParseWorktreeList_Bare(t *testing.T) {
	m := NewWorktreeManager()

	output := `worktree /home/user/project.git
bare
`

	worktrees := m.parseWorktreeList(output)
	require.Len(t, worktrees, 1)
	assert.True(t, worktrees[0].Bare)
}

func TestWorktreeManager_AddListRemove(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	ctx := context.Background()
	m := NewWorktreeManager()

	require.NoError(t, CreateBranch(ctx, repoDir, "agent/test1234"))

	wtPath := filepath.Join(repoDir, ".git", "paddock-worktrees", "wt-test")
	require.NoError(t, m.AddWorktree(ctx, repoDir, wtPath, "agent/test1234"))

	// The worktree directory should exist with a checkout of the branch
	_, err := os.Stat(filepath.Join(wtPath, "README.md"))
	assert.NoError(t, err)

	worktrees, err := m.ListWorktrees(ctx, repoDir)
	require.NoError(t, err)
	require.Len(t, worktrees, 2)
	assert.Equal(t, "agent/test1234", worktrees[1].Branch)

	require.NoError(t, m.RemoveWorktree(ctx, repoDir, wtPath))
	_, err = os.Stat(wtPath)
	assert.True(t, os.IsNotExist(err))

	worktrees, err = m.ListWorktrees(ctx, repoDir)
	require.NoError(t, err)
	assert.Len(t, worktrees, 1)
}

func TestWorktreeManager_RemoveWithDirtyFiles(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	ctx := context.Background()
	m := NewWorktreeManager()

	require.NoError(t, CreateBranch(ctx, repoDir, "agent/dirty123"))
	wtPath := filepath.Join(repoDir, ".git", "paddock-worktrees", "wt-dirty")
	require.NoError(t, m.AddWorktree(ctx, repoDir, wtPath, "agent/dirty123"))

	// Uncommitted changes must not block removal
	require.NoError(t, os.WriteFile(filepath.Join(wtPath, "scratch.txt"), []byte("wip"), 0600))

	require.NoError(t, m.RemoveWorktree(ctx, repoDir, wtPath))
	_, err := os.Stat(wtPath)
	assert.True(t, os.IsNotExist(err))
}
