package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeBuilder_Build(t *testing.T) {
	sb := NewSafeBuilder()

	cmd, err := sb.Build(context.Background(), "git", "status")
	require.NoError(t, err)
	assert.NotNil(t, cmd)

	_, err = sb.Build(context.Background(), "")
	assert.Error(t, err)
}

func TestValidateGitRef(t *testing.T) {
	sb := NewSafeBuilder()

	valid := []string{"main", "agent/abc12345", "feature/my-branch", "v1.2.3", "refs/heads/main"}
	for _, ref := range valid {
		assert.NoError(t, sb.Validate("gitRef", ref), "ref %q should be valid", ref)
	}

	invalid := []string{"", "-rf", "branch name", "branch;rm", "a`b`"}
	for _, ref := range invalid {
		assert.Error(t, sb.Validate("gitRef", ref), "ref %q should be invalid", ref)
	}
}

func TestValidateSessionID(t *testing.T) {
	sb := NewSafeBuilder()

	assert.NoError(t, sb.Validate("sessionID", "9f2c1a4e-1b7d-4f3a-9c0e-0a1b2c3d4e5f"))
	assert.NoError(t, sb.Validate("sessionID", "abc123"))

	assert.Error(t, sb.Validate("sessionID", ""))
	assert.Error(t, sb.Validate("sessionID", "../escape"))
	assert.Error(t, sb.Validate("sessionID", "has space"))
	assert.Error(t, sb.Validate("sessionID", "semi;colon"))
}

func TestValidateFileName(t *testing.T) {
	sb := NewSafeBuilder()

	assert.NoError(t, sb.Validate("fileName", "/tmp/repo/worktree"))
	assert.Error(t, sb.Validate("fileName", "../../etc/passwd"))
	assert.Error(t, sb.Validate("fileName", "path;rm -rf"))
}

func TestValidateUnknownType(t *testing.T) {
	sb := NewSafeBuilder()
	assert.Error(t, sb.Validate("unknown", "value"))
}

func TestCommand_Exec(t *testing.T) {
	sb := NewSafeBuilder()

	cmd, err := sb.Build(context.Background(), "git", "--version")
	require.NoError(t, err)

	execCmd := cmd.Exec()
	require.NoError(t, execCmd.Run())
}
