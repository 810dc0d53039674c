package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pderrors "github.com/paddocktools/paddock/errors"
	"github.com/paddocktools/paddock/testutil"
)

func TestBranchName(t *testing.T) {
	assert.Equal(t, "agent/1a2b3c4d", BranchName("1a2b3c4d-5e6f-7a8b-9c0d-e1f2a3b4c5d6"))
	assert.Equal(t, "agent/short", BranchName("short"))
}

func TestManager_Create(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	m := NewManager()
	ctx := context.Background()

	info, err := m.Create(ctx, repoDir, "aaaabbbb-cccc-dddd-eeee-ffff00001111")
	require.NoError(t, err)

	assert.Equal(t, "aaaabbbb-cccc-dddd-eeee-ffff00001111", info.Name)
	assert.Equal(t, "agent/aaaabbbb", info.Branch)
	assert.Zero(t, info.Ahead)
	assert.Zero(t, info.Behind)
	assert.False(t, info.Dirty)

	// Worktree lives under .git so the main checkout stays clean
	assert.Contains(t, info.Path, filepath.Join(".git", "paddock-worktrees"))
	_, err = os.Stat(filepath.Join(info.Path, "README.md"))
	assert.NoError(t, err)
}

func TestManager_Create_ExistingSandboxReused(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	m := NewManager()
	ctx := context.Background()

	first, err := m.Create(ctx, repoDir, "reuse000-0000-0000-0000-000000000000")
	require.NoError(t, err)

	second, err := m.Create(ctx, repoDir, "reuse000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, first.Branch, second.Branch)
}

func TestManager_InvalidSessionID(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	m := NewManager()
	ctx := context.Background()

	// Ids feed branch names and directory paths, so anything outside the
	// safe character set is rejected before touching git.
	_, err := m.Create(ctx, repoDir, "../escape")
	assert.Equal(t, pderrors.ErrCodeInvalidInput, pderrors.GetCode(err))

	_, err = m.Create(ctx, repoDir, "")
	assert.Equal(t, pderrors.ErrCodeInvalidInput, pderrors.GetCode(err))

	err = m.Remove(ctx, repoDir, "bad;rm -rf")
	assert.Equal(t, pderrors.ErrCodeInvalidInput, pderrors.GetCode(err))
}

func TestManager_Create_NotARepo(t *testing.T) {
	dir := t.TempDir()

	m := NewManager()
	_, err := m.Create(context.Background(), dir, "some-session")
	require.Error(t, err)
	assert.Equal(t, pderrors.ErrCodeRepoNotFound, pderrors.GetCode(err))
}

func TestManager_List(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	m := NewManager()
	ctx := context.Background()

	infos, err := m.List(ctx, repoDir)
	require.NoError(t, err)
	assert.Empty(t, infos)

	created, err := m.Create(ctx, repoDir, "list0000-1111-2222-3333-444455556666")
	require.NoError(t, err)

	infos, err = m.List(ctx, repoDir)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "list0000-1111-2222-3333-444455556666", infos[0].Name)
	assert.Equal(t, "agent/list0000", infos[0].Branch)
	assert.Zero(t, infos[0].Ahead)
	assert.Zero(t, infos[0].Behind)
	assert.False(t, infos[0].Dirty)

	// An uncommitted file makes the sandbox dirty
	require.NoError(t, os.WriteFile(filepath.Join(created.Path, "work.txt"), []byte("wip"), 0600))

	infos, err = m.List(ctx, repoDir)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.True(t, infos[0].Dirty)
	assert.Zero(t, infos[0].Ahead)

	// Committing it moves the sandbox ahead of main and clean again
	testutil.RunGitCommand(t, created.Path, "add", "work.txt")
	testutil.RunGitCommand(t, created.Path, "commit", "-m", "Add work.txt")

	infos, err = m.List(ctx, repoDir)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 1, infos[0].Ahead)
	assert.Zero(t, infos[0].Behind)
	assert.False(t, infos[0].Dirty)
}

func TestManager_Remove(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	m := NewManager()
	ctx := context.Background()

	info, err := m.Create(ctx, repoDir, "gone0000-1111-2222-3333-444455556666")
	require.NoError(t, err)

	// A dirty sandbox must still be removable
	require.NoError(t, os.WriteFile(filepath.Join(info.Path, "wip.txt"), []byte("x"), 0600))

	require.NoError(t, m.Remove(ctx, repoDir, info.Name))
	_, err = os.Stat(info.Path)
	assert.True(t, os.IsNotExist(err))

	infos, err := m.List(ctx, repoDir)
	require.NoError(t, err)
	assert.Empty(t, infos)

	// Second removal reports the sandbox as gone
	err = m.Remove(ctx, repoDir, info.Name)
	require.Error(t, err)
	assert.Equal(t, pderrors.ErrCodeWorktreeNotFound, pderrors.GetCode(err))
}

func TestManager_Remove_Unknown(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	m := NewManager()
	err := m.Remove(context.Background(), repoDir, "never-created")
	require.Error(t, err)
	assert.Equal(t, pderrors.ErrCodeWorktreeNotFound, pderrors.GetCode(err))
}

func TestManager_ConcurrentCreateSameSession(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	m := NewManager()
	ctx := context.Background()

	const goroutines = 8
	var wg sync.WaitGroup
	paths := make([]string, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := m.Create(ctx, repoDir, "race0000-1111-2222-3333-444455556666")
			errs[i] = err
			if err == nil {
				paths[i] = info.Path
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, paths[0], paths[i])
	}
}
