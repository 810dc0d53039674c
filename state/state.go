// Package state persists small key-value daemon state between runs, most
// importantly the active repository path that sandbox commands operate on.
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/paddocktools/paddock/pkg/paths"
)

// activeRepoKey is the state key holding the active repository path.
const activeRepoKey = "active_repo"

// State is a generic map of key-value pairs stored as YAML.
type State map[string]interface{}

// Load loads the state from the state file.
// Returns an empty state if the file doesn't exist.
func Load() (State, error) {
	data, err := os.ReadFile(paths.StateFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(State), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}

	if state == nil {
		state = make(State)
	}

	return state, nil
}

// Save writes the state to the state file.
func Save(state State) error {
	path := paths.StateFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

// GetString returns a string value from state, or empty if the key is absent
// or not a string.
func GetString(key string) (string, error) {
	state, err := Load()
	if err != nil {
		return "", err
	}

	str, _ := state[key].(string)
	return str, nil
}

// Set stores a value in the state.
func Set(key string, value interface{}) error {
	state, err := Load()
	if err != nil {
		return err
	}

	state[key] = value
	return Save(state)
}

// Delete removes a key from the state.
func Delete(key string) error {
	state, err := Load()
	if err != nil {
		return err
	}

	delete(state, key)
	return Save(state)
}

// ActiveRepo returns the persisted active repository path, or empty when no
// repository has been selected.
func ActiveRepo() (string, error) {
	return GetString(activeRepoKey)
}

// SetActiveRepo persists the active repository path. The path must be an
// existing directory; it is stored in absolute form.
func SetActiveRepo(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", path)
	}

	if err := Set(activeRepoKey, abs); err != nil {
		return "", err
	}
	return abs, nil
}
