package workspace

import (
	"os"
	"path/filepath"
)

// DetectWorkspace returns the root of the Git repository containing dir,
// or dir itself when it is not inside one. An empty dir means the current
// working directory.
func DetectWorkspace(dir string) (string, error) {
	if dir == "" {
		pwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = pwd
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	if gitRoot := findGitRoot(abs); gitRoot != "" {
		return gitRoot, nil
	}
	return abs, nil
}

// findGitRoot walks up the directory tree looking for a .git entry
func findGitRoot(startPath string) string {
	if startPath == "" {
		return ""
	}
	currentPath := startPath

	for {
		if _, err := os.Stat(filepath.Join(currentPath, ".git")); err == nil {
			return currentPath
		}

		parentPath := filepath.Dir(currentPath)
		if parentPath == currentPath {
			break
		}
		currentPath = parentPath
	}

	return ""
}
