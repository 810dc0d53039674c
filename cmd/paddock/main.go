package main

import (
	"os"

	"github.com/paddocktools/paddock/cli"
	"github.com/paddocktools/paddock/cmd"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"paddock",
		"PTY sessions and sandboxed git worktrees for coding agents",
	)

	rootCmd.AddCommand(cmd.NewDaemonCmd())
	rootCmd.AddCommand(cmd.NewSessionsCmd())
	rootCmd.AddCommand(cmd.NewSandboxesCmd())
	rootCmd.AddCommand(cmd.NewRepoCmd())
	rootCmd.AddCommand(cmd.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
