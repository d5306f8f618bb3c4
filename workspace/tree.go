package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ErrFolderNotFound is returned when a project folder does not exist
var ErrFolderNotFound = errors.New("folder not found")

// NodeKind tells files and directories apart in a FileNode
type NodeKind string

const (
	KindFile      NodeKind = "file"
	KindDirectory NodeKind = "directory"
)

// FileNode is one entry of a project tree snapshot
type FileNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Kind     NodeKind    `json:"type"`
	Children []*FileNode `json:"children,omitempty"`
}

// TreeOptions controls which entries ReadTree leaves out
type TreeOptions struct {
	// Ignore holds doublestar globs matched against slash-separated paths
	// relative to the root
	Ignore []string

	// RespectGitignore applies the root .gitignore
	RespectGitignore bool

	Logger *zap.Logger
}

// ReadTree lists root recursively. Tooling directories, hidden entries other
// than config files and ignored paths are skipped. Sub-paths that cannot be
// read are logged and left out.
func ReadTree(ctx context.Context, root string, opts TreeOptions) ([]*FileNode, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, root)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	rules, err := newIgnoreRules(root, opts.Ignore, opts.RespectGitignore)
	if err != nil {
		logger.Warn("failed to load .gitignore", zap.String("root", root), zap.Error(err))
		rules, _ = newIgnoreRules(root, opts.Ignore, false)
	}

	w := &treeWalker{root: root, rules: rules, logger: logger}
	return w.readDir(ctx, "")
}

type treeWalker struct {
	root   string
	rules  *ignoreRules
	logger *zap.Logger
}

func (w *treeWalker) readDir(ctx context.Context, rel string) ([]*FileNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(w.root, rel))
	if err != nil {
		w.logger.Debug("skipping unreadable directory", zap.String("path", rel), zap.Error(err))
		return []*FileNode{}, nil
	}

	nodes := make([]*FileNode, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		isDir := entry.IsDir()
		if skipName(name, isDir) {
			continue
		}

		relPath := filepath.Join(rel, name)
		if w.rules.match(relPath, isDir) {
			continue
		}

		if !isDir {
			nodes = append(nodes, &FileNode{Name: name, Path: relPath, Kind: KindFile})
			continue
		}

		children, err := w.readDir(ctx, relPath)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &FileNode{
			Name:     name,
			Path:     relPath,
			Kind:     KindDirectory,
			Children: children,
		})
	}
	return nodes, nil
}

// CountFiles returns the number of file nodes in a tree
func CountFiles(nodes []*FileNode) int {
	count := 0
	for _, node := range nodes {
		if node.Kind == KindFile {
			count++
			continue
		}
		count += CountFiles(node.Children)
	}
	return count
}
