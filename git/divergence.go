package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/paddocktools/paddock/command"
)

// AheadBehind returns the commit counts by which local diverges from other,
// relative to their merge base. ahead counts commits reachable from local but
// not other; behind counts the reverse. Both are zero when the refs point at
// the same commit.
func AheadBehind(ctx context.Context, dir, local, other string) (ahead, behind int, err error) {
	cmdBuilder := command.NewSafeBuilder()
	for _, ref := range []string{local, other} {
		if err := cmdBuilder.Validate("gitRef", ref); err != nil {
			return 0, 0, fmt.Errorf("invalid ref: %w", err)
		}
	}

	cmd, err := cmdBuilder.Build(ctx, "git", "rev-list", "--left-right", "--count", local+"..."+other)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	execCmd.Dir = dir

	output, err := execCmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("rev-list count: %w", err)
	}

	// Output is "<left>\t<right>": left counts commits only on local,
	// right counts commits only on other.
	fields := strings.Fields(strings.TrimSpace(string(output)))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output: %q", string(output))
	}

	ahead, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parse ahead count: %w", err)
	}
	behind, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse behind count: %w", err)
	}

	return ahead, behind, nil
}
