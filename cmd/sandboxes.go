package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paddocktools/paddock/cli"
)

// NewSandboxesCmd returns the sandboxes command group.
func NewSandboxesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandboxes",
		Short: "Manage sandbox worktrees",
	}

	cmd.AddCommand(newSandboxesListCmd())
	cmd.AddCommand(newSandboxesCreateCmd())
	cmd.AddCommand(newSandboxesRemoveCmd())

	return cmd
}

func newSandboxesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sandboxes in the active repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFor(cmd)
			infos, err := client.ListSandboxes(cmd.Context())
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return json.NewEncoder(os.Stdout).Encode(infos)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBRANCH\tAHEAD\tBEHIND\tDIRTY")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\n",
					info.Name, info.Branch, info.Ahead, info.Behind, info.Dirty)
			}
			return w.Flush()
		},
	}
}

func newSandboxesCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <session-id>",
		Short: "Create a sandbox worktree for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFor(cmd)
			info, err := client.CreateSandbox(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return json.NewEncoder(os.Stdout).Encode(info)
			}
			fmt.Printf("Created %s on %s\n", info.Path, info.Branch)
			return nil
		},
	}
}

func newSandboxesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a sandbox worktree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFor(cmd)
			if err := client.RemoveSandbox(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed sandbox %s\n", args[0])
			return nil
		},
	}
}
