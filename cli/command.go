// Package cli provides shared helpers for paddock commands.
package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/paddocktools/paddock/logging"
)

// CommandOptions holds common options for paddock commands
type CommandOptions struct {
	Verbose    bool
	JSONOutput bool
	ConfigPath string
	Socket     string
}

// NewStandardCommand creates a new command with standard paddock flags
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to paddock.yml config file")
	cmd.PersistentFlags().String("socket", "", "Path to the daemon unix socket")

	return cmd
}

// GetLogger creates a logger based on command flags
func GetLogger(cmd *cobra.Command) *logrus.Logger {
	entry := logging.NewLogger("paddock-cli")
	logger := entry.Logger

	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}

// GetOptions extracts common options from a command
func GetOptions(cmd *cobra.Command) CommandOptions {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	configPath, _ := cmd.Flags().GetString("config")
	socket, _ := cmd.Flags().GetString("socket")

	return CommandOptions{
		Verbose:    verbose,
		JSONOutput: jsonOutput,
		ConfigPath: configPath,
		Socket:     socket,
	}
}
