package workspace

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoredDirs are tooling directories never descended into
var ignoredDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".next":        true,
	"dist":         true,
	"build":        true,
	".vscode":      true,
	".idea":        true,
	"coverage":     true,
	".nyc_output":  true,
}

// ignoreRules decides which entries of a project tree are left out
type ignoreRules struct {
	globs     []string
	gitignore gitignore.Matcher
}

// newIgnoreRules builds the rules for root. Invalid globs are dropped.
func newIgnoreRules(root string, globs []string, respectGitignore bool) (*ignoreRules, error) {
	rules := &ignoreRules{}
	for _, g := range globs {
		g = filepath.ToSlash(strings.TrimSpace(g))
		if g == "" || !doublestar.ValidatePattern(g) {
			continue
		}
		rules.globs = append(rules.globs, g)
	}

	if respectGitignore {
		patterns, err := loadGitIgnore(root)
		if err != nil {
			return nil, err
		}
		if len(patterns) > 0 {
			rules.gitignore = gitignore.NewMatcher(patterns)
		}
	}
	return rules, nil
}

// loadGitIgnore parses the .gitignore at root, if any
func loadGitIgnore(root string) ([]gitignore.Pattern, error) {
	file, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, scanner.Err()
}

// skipName reports whether an entry is excluded by name alone: hidden
// entries other than config files, and tooling directories
func skipName(name string, isDir bool) bool {
	if isDir && ignoredDirs[name] {
		return true
	}
	return strings.HasPrefix(name, ".") && !IsConfigFile(name)
}

// match reports whether the slash-separated relative path is ignored
func (r *ignoreRules) match(rel string, isDir bool) bool {
	if r == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, g := range r.globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	if r.gitignore != nil && r.gitignore.Match(strings.Split(rel, "/"), isDir) {
		return true
	}
	return false
}
