// Package config loads paddock.yml configuration files. A global config in
// the XDG config directory provides defaults that a per-repository
// paddock.yml can override.
package config

import (
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/paddocktools/paddock/errors"
	"github.com/paddocktools/paddock/logging"
	"github.com/paddocktools/paddock/pkg/paths"
)

// ConfigFileName is the name of the per-repository configuration file.
const ConfigFileName = "paddock.yml"

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// TerminalConfig controls PTY session defaults.
type TerminalConfig struct {
	// Cols and Rows set the default geometry for new sessions.
	Cols uint16 `yaml:"cols"`
	Rows uint16 `yaml:"rows"`
	// Shell overrides $SHELL as the default session command.
	Shell string `yaml:"shell"`
}

// DaemonConfig controls the background daemon.
type DaemonConfig struct {
	// Socket overrides the unix socket path.
	Socket string `yaml:"socket"`
}

// Config is the root paddock configuration.
type Config struct {
	Terminal TerminalConfig `yaml:"terminal"`
	Daemon   DaemonConfig   `yaml:"daemon"`
	Logging  logging.Config `yaml:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Terminal: TerminalConfig{
			Cols: 220,
			Rows: 50,
		},
	}
}

// Load reads and parses a configuration file. Environment variables written
// as ${VAR} are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses configuration from raw YAML.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file")
	}
	applyDefaults(cfg)
	return cfg, nil
}

// LoadFrom loads configuration for a repository directory. The global config
// is loaded first when present, then the repository's paddock.yml is merged
// over it. Both files are optional; with neither present the built-in
// defaults are returned.
func LoadFrom(repoDir string) (*Config, error) {
	cfg := Default()

	globalPath := filepath.Join(paths.ConfigDir(), ConfigFileName)
	if err := mergeFile(cfg, globalPath); err != nil {
		return nil, err
	}

	if repoDir != "" {
		if err := mergeFile(cfg, filepath.Join(repoDir, ConfigFileName)); err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

// mergeFile unmarshals path over cfg in place. Missing files are skipped.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file").
			WithDetail("path", path)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Terminal.Cols == 0 {
		cfg.Terminal.Cols = 220
	}
	if cfg.Terminal.Rows == 0 {
		cfg.Terminal.Rows = 50
	}
	if cfg.Daemon.Socket == "" {
		cfg.Daemon.Socket = paths.SocketPath()
	}
}

// expandEnvVars replaces ${VAR} references with environment values. Unset
// variables expand to the empty string.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		name := match[2 : len(match)-1]
		return os.Getenv(name)
	})
}
