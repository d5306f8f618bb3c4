package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the per-user and per-workspace directory
	DirName = ".promptarch"

	// ConfigFileName is the name of the YAML config file in DirName
	ConfigFileName = "config.yaml"
)

// UserDir returns the user-level promptarch directory (~/.promptarch)
func UserDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, DirName), nil
}

// GlobalConfigPath returns the path to the global config file
func GlobalConfigPath() (string, error) {
	userDir, err := UserDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(userDir, ConfigFileName), nil
}

// WorkspaceConfigPath returns the path to the config file of a workspace
func WorkspaceConfigPath(workspacePath string) string {
	return filepath.Join(workspacePath, DirName, ConfigFileName)
}

// StorePath returns the default location of the persistence file for a
// store backend ("file" or "sqlite")
func StorePath(backend string) (string, error) {
	userDir, err := UserDir()
	if err != nil {
		return "", err
	}

	if backend == "sqlite" {
		return filepath.Join(userDir, "state.db"), nil
	}
	return filepath.Join(userDir, "state.json"), nil
}

// LogsDir returns the directory relative log file names are placed in
func LogsDir() (string, error) {
	userDir, err := UserDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(userDir, "logs"), nil
}

// LogPath resolves a configured log file. Bare names go under LogsDir;
// absolute paths and paths with a directory are used as given.
func LogPath(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || filepath.Base(name) != name {
		return name, nil
	}

	logsDir, err := LogsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(logsDir, name), nil
}

// EnsureDir creates the parent directory of path
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
