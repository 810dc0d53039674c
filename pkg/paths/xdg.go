// Package paths provides XDG-compliant path resolution for Paddock.
//
// Resolution order:
// 1. PADDOCK_HOME (portable root) -> $PADDOCK_HOME/{config,data,state,cache}
// 2. XDG env vars -> $XDG_*_HOME/paddock
// 3. Platform defaults -> ~/.config/paddock, ~/.local/share/paddock, etc.
package paths

import (
	"os"
	"path/filepath"
)

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if paddockHome := os.Getenv("PADDOCK_HOME"); paddockHome != "" {
		return filepath.Join(paddockHome, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if paddockHome := os.Getenv("PADDOCK_HOME"); paddockHome != "" {
		return filepath.Join(paddockHome, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the Paddock configuration directory.
// Used for config files like paddock.yml.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "paddock")
}

// StateDir returns the Paddock state directory.
// Used for runtime state, PID files, logs.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "paddock")
}

// RuntimeDir returns the Paddock runtime directory for sockets and pipes.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir (macOS).
func RuntimeDir() string {
	if paddockHome := os.Getenv("PADDOCK_HOME"); paddockHome != "" {
		return filepath.Join(paddockHome, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "paddock")
	}
	return StateDir()
}

// SocketPath returns the path to the paddock daemon unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "paddockd.sock")
}

// PidFilePath returns the path to the paddock daemon PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "paddockd.pid")
}

// StateFilePath returns the path to the persisted daemon state file.
func StateFilePath() string {
	return filepath.Join(StateDir(), "state.yml")
}

// EnsureDirs creates all Paddock directories if they don't exist.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		StateDir(),
		RuntimeDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
