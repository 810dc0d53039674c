package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paddocktools/paddock/cli"
	"github.com/paddocktools/paddock/pkg/daemon"
)

// NewSessionsCmd returns the sessions command group.
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage PTY sessions",
	}

	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsSpawnCmd())
	cmd.AddCommand(newSessionsKillCmd())

	return cmd
}

func clientFor(cmd *cobra.Command) *daemon.Client {
	opts := cli.GetOptions(cmd)
	return daemon.NewClient(opts.Socket)
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFor(cmd)
			infos, err := client.ListSessions(cmd.Context())
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return json.NewEncoder(os.Stdout).Encode(infos)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tAGENT\tALIVE\tSIZE\tDIR")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%s\t%t\t%dx%d\t%s\n",
					info.ID, info.AgentID, info.Alive, info.Cols, info.Rows, info.Dir)
			}
			return w.Flush()
		},
	}
}

func newSessionsSpawnCmd() *cobra.Command {
	var agentID, dir string
	var cols, rows uint16

	cmd := &cobra.Command{
		Use:   "spawn [command...]",
		Short: "Spawn a new PTY session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFor(cmd)
			info, err := client.Spawn(cmd.Context(), daemon.SpawnRequest{
				AgentID: agentID,
				Command: args,
				Dir:     dir,
				Cols:    cols,
				Rows:    rows,
			})
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return json.NewEncoder(os.Stdout).Encode(info)
			}
			fmt.Println(info.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "Agent id to label the session with")
	cmd.Flags().StringVar(&dir, "dir", "", "Working directory for the session")
	cmd.Flags().Uint16Var(&cols, "cols", 0, "Terminal columns")
	cmd.Flags().Uint16Var(&rows, "rows", 0, "Terminal rows")

	return cmd
}

func newSessionsKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <session-id>",
		Short: "Terminate a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFor(cmd)
			if err := client.Kill(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Killed session %s\n", args[0])
			return nil
		},
	}
}
