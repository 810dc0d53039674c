package git

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddocktools/paddock/testutil"
)

func TestIsGitRepo(t *testing.T) {
	repoDir := t.TempDir()
	assert.False(t, IsGitRepo(repoDir))

	testutil.InitGitRepo(t, repoDir)
	assert.True(t, IsGitRepo(repoDir))
}

func TestGetGitRoot(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	root, err := GetGitRoot(repoDir)
	require.NoError(t, err)
	assert.NotEmpty(t, root)
}

func TestCurrentBranch(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	branch, err := CurrentBranch(repoDir)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestCurrentBranch_DetachedHead(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	head, err := GetHeadCommit(repoDir)
	require.NoError(t, err)
	testutil.RunGitCommand(t, repoDir, "checkout", "--detach", head)

	branch, err := CurrentBranch(repoDir)
	require.NoError(t, err)
	assert.Equal(t, "detached", branch)
}

func TestCreateBranch(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)
	ctx := context.Background()

	assert.False(t, BranchExists(repoDir, "agent/abc12345"))
	require.NoError(t, CreateBranch(ctx, repoDir, "agent/abc12345"))
	assert.True(t, BranchExists(repoDir, "agent/abc12345"))

	// Creating an existing branch is a no-op
	require.NoError(t, CreateBranch(ctx, repoDir, "agent/abc12345"))
}

func TestDeleteBranch(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)
	ctx := context.Background()

	require.NoError(t, CreateBranch(ctx, repoDir, "agent/gone1234"))
	require.NoError(t, DeleteBranch(ctx, repoDir, "agent/gone1234"))
	assert.False(t, BranchExists(repoDir, "agent/gone1234"))
}

func TestResolveRef(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	commit, err := ResolveRef(repoDir, "HEAD")
	require.NoError(t, err)
	assert.Len(t, commit, 40)

	_, err = ResolveRef(repoDir, "no-such-ref")
	assert.Error(t, err)
}
