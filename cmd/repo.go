package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paddocktools/paddock/cli"
)

// NewRepoCmd returns the repo command group.
func NewRepoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage the active repository",
	}

	cmd.AddCommand(newRepoShowCmd())
	cmd.AddCommand(newRepoSetCmd())

	return cmd
}

func newRepoShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active repository path",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFor(cmd)
			info, err := client.ActiveRepo(cmd.Context())
			if err != nil {
				return err
			}
			if info.Path == "" {
				fmt.Println("No active repository")
				return nil
			}
			if cli.GetOptions(cmd).JSONOutput {
				return json.NewEncoder(os.Stdout).Encode(info)
			}
			fmt.Println(info.Path)
			if info.Branch != "" {
				fmt.Printf("Branch: %s\n", info.Branch)
			}
			if info.Head != "" {
				fmt.Printf("HEAD:   %s\n", info.Head)
			}
			if info.Status != nil && info.Status.IsDirty {
				fmt.Println("Working tree has uncommitted changes")
			}
			return nil
		},
	}
}

func newRepoSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <path>",
		Short: "Set the active repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFor(cmd)
			abs, err := client.SetActiveRepo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Active repository: %s\n", abs)
			return nil
		},
	}
}
