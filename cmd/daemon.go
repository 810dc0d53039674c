// Package cmd contains the paddock CLI subcommands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paddocktools/paddock/cli"
	"github.com/paddocktools/paddock/config"
	"github.com/paddocktools/paddock/internal/daemon/pidfile"
	"github.com/paddocktools/paddock/internal/daemon/server"
	"github.com/paddocktools/paddock/logging"
	"github.com/paddocktools/paddock/pkg/paths"
	"github.com/paddocktools/paddock/sandbox"
	"github.com/paddocktools/paddock/session"
	"github.com/paddocktools/paddock/state"
)

// NewDaemonCmd returns the paddockd daemon command with subcommands.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the paddock daemon",
		Long:  "The daemon hosts PTY sessions and sandbox worktrees and serves them over a unix socket.",
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		Long:  "Start the paddock daemon in foreground mode.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.GetOptions(cmd)

			// Sessions default to the active repository when one is set,
			// and its paddock.yml contributes configuration.
			defaultDir, stateErr := state.ActiveRepo()

			var cfg *config.Config
			var err error
			if opts.ConfigPath != "" {
				cfg, err = config.Load(opts.ConfigPath)
			} else {
				cfg, err = config.LoadFrom(defaultDir)
			}
			if err != nil {
				return err
			}

			logger := logging.NewLoggerWithConfig("paddockd", cfg.Logging)
			if stateErr != nil {
				logger.WithError(stateErr).Warn("Could not read persisted state")
			}

			pidPath := paths.PidFilePath()
			sockPath := cfg.Daemon.Socket
			if opts.Socket != "" {
				sockPath = opts.Socket
			}

			if err := pidfile.Acquire(pidPath); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			defer func() {
				if err := pidfile.Release(pidPath); err != nil {
					logger.Errorf("Failed to release pidfile: %v", err)
				}
			}()

			hub := server.NewHub()
			registry := session.NewRegistry(hub, session.Defaults{
				Dir:   defaultDir,
				Shell: cfg.Terminal.Shell,
				Cols:  cfg.Terminal.Cols,
				Rows:  cfg.Terminal.Rows,
			})
			sandboxes := sandbox.NewManager()
			srv := server.New(registry, sandboxes, hub)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			go func() {
				<-stop
				logger.Info("Received stop signal")

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("Server shutdown error: %v", err)
				}

				// Explicitly release pidfile before exit in signal handler
				_ = pidfile.Release(pidPath)
				os.Exit(0)
			}()

			logger.WithField("pid", os.Getpid()).Info("Starting daemon")
			if err := srv.ListenAndServe(sockPath); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := paths.PidFilePath()

			running, pid, err := pidfile.IsRunning(pidPath)
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}

			if !running {
				fmt.Println("Daemon is not running")
				return nil
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", pid, err)
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}

			fmt.Printf("Sent SIGTERM to process %d\n", pid)
			return nil
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := paths.PidFilePath()
			running, pid, err := pidfile.IsRunning(pidPath)
			if err != nil {
				return fmt.Errorf("error: %w", err)
			}

			if running {
				fmt.Printf("Running (PID: %d)\nSocket: %s\n", pid, paths.SocketPath())
			} else {
				fmt.Println("Stopped")
				os.Exit(1) // Return non-zero for stopped state (useful for scripts)
			}
			return nil
		},
	}
}
