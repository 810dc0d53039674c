package git

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddocktools/paddock/testutil"
)

func TestAheadBehind(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)
	ctx := context.Background()

	// Same commit on both sides
	ahead, behind, err := AheadBehind(ctx, repoDir, "main", "main")
	require.NoError(t, err)
	assert.Zero(t, ahead)
	assert.Zero(t, behind)

	// Branch two commits ahead of main
	testutil.RunGitCommand(t, repoDir, "checkout", "-b", "feature")
	testutil.CreateCommit(t, repoDir, "a.txt", "a")
	testutil.CreateCommit(t, repoDir, "b.txt", "b")

	ahead, behind, err = AheadBehind(ctx, repoDir, "feature", "main")
	require.NoError(t, err)
	assert.Equal(t, 2, ahead)
	assert.Zero(t, behind)

	// Main moves on independently, both sides diverge
	testutil.RunGitCommand(t, repoDir, "checkout", "main")
	testutil.CreateCommit(t, repoDir, "c.txt", "c")

	ahead, behind, err = AheadBehind(ctx, repoDir, "feature", "main")
	require.NoError(t, err)
	assert.Equal(t, 2, ahead)
	assert.Equal(t, 1, behind)
}

func TestAheadBehind_UnknownRef(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitGitRepo(t, repoDir)

	_, _, err := AheadBehind(context.Background(), repoDir, "main", "nope")
	assert.Error(t, err)
}
