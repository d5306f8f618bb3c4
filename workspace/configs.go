package workspace

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ConfigFiles maps a recognized config file name to its contents: a decoded
// JSON or YAML value when the file parsed, raw text otherwise
type ConfigFiles map[string]any

// Has reports whether any of the named files is present
func (c ConfigFiles) Has(names ...string) bool {
	for _, name := range names {
		if _, ok := c[name]; ok {
			return true
		}
	}
	return false
}

// Names returns the present file names, sorted
func (c ConfigFiles) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigFileNames lists the file names read from a project root
var ConfigFileNames = []string{
	"package.json",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"Cargo.toml",
	"go.mod",
	"requirements.txt",
	"Pipfile",
	"pyproject.toml",
	"setup.py",
	"composer.json",
	"pom.xml",
	"build.gradle",
	"build.gradle.kts",
	"tsconfig.json",
	"vite.config.ts",
	"next.config.js",
	"webpack.config.js",
	"CMakeLists.txt",
	"Makefile",
	"makefile",
	"Gemfile",
	"Rakefile",
	"Package.swift",
	"pubspec.yaml",
	"pubspec.yml",
}

var configFileSet = func() map[string]bool {
	set := make(map[string]bool, len(ConfigFileNames))
	for _, name := range ConfigFileNames {
		set[name] = true
	}
	return set
}()

// IsConfigFile reports whether name is one of the recognized config files
func IsConfigFile(name string) bool {
	return configFileSet[name]
}

// ReadConfigFiles reads every recognized config file directly under root.
// Unreadable files and JSON that fails to parse are left out; the only
// error returned is the context's.
func ReadConfigFiles(ctx context.Context, root string, logger *zap.Logger) (ConfigFiles, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	configs := make(ConfigFiles)
	for _, name := range ConfigFileNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		configPath := filepath.Join(root, name)
		info, err := os.Stat(configPath)
		if err != nil || info.IsDir() {
			continue
		}

		content, err := os.ReadFile(configPath)
		if err != nil {
			logger.Warn("failed to read config file", zap.String("file", name), zap.Error(err))
			continue
		}

		switch strings.ToLower(filepath.Ext(name)) {
		case ".json":
			var value any
			if err := json.Unmarshal(content, &value); err != nil {
				logger.Warn("failed to parse config file", zap.String("file", name), zap.Error(err))
				continue
			}
			configs[name] = value
		case ".yaml", ".yml":
			var value any
			if err := yaml.Unmarshal(content, &value); err != nil || value == nil {
				configs[name] = string(content)
				continue
			}
			configs[name] = value
		default:
			configs[name] = string(content)
		}
	}

	return configs, nil
}
