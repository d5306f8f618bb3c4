package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"promptarch/paths"
	"promptarch/store"
)

// Config represents the promptarch configuration
type Config struct {
	BaseURL           string `yaml:"base_url"`
	Model             string `yaml:"model"`
	Mode              string `yaml:"mode"`
	RequestTimeout    string `yaml:"request_timeout"`
	MinResponseLength int    `yaml:"min_response_length"`
	HistoryLimit      int    `yaml:"history_limit"`
	LocalModelsOnly   bool   `yaml:"local_models_only"`

	Store   StoreConfig   `yaml:"store"`
	Project ProjectConfig `yaml:"project"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig selects where preferences and history are kept
type StoreConfig struct {
	Backend string `yaml:"backend"` // file, sqlite
	Path    string `yaml:"path"`    // empty means the default under ~/.promptarch
}

// ProjectConfig controls how project folders are read
type ProjectConfig struct {
	Watch            bool     `yaml:"watch"`
	RespectGitignore bool     `yaml:"respect_gitignore"`
	Ignore           []string `yaml:"ignore"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"`
}

const defaultRequestTimeout = 5 * time.Minute

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "http://localhost:11434",
		Mode:              "fast",
		RequestTimeout:    defaultRequestTimeout.String(),
		MinResponseLength: 50,
		HistoryLimit:      50,
		Store: StoreConfig{
			Backend: store.BackendFile,
		},
		Project: ProjectConfig{
			RespectGitignore: true,
			Ignore:           []string{},
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// LoadConfig loads configuration from global and workspace sources
func LoadConfig(workspacePath string) (*Config, error) {
	globalPath, err := paths.GlobalConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(globalPath, workspacePath)
}

// LoadFrom layers defaults, the file at globalPath, the workspace file and
// environment overrides, in that order. Missing files are skipped; an
// unreadable or malformed file is an error.
func LoadFrom(globalPath, workspacePath string) (*Config, error) {
	cfg := DefaultConfig()

	files := []string{globalPath}
	if workspacePath != "" {
		files = append(files, paths.WorkspaceConfigPath(workspacePath))
	}
	for _, path := range files {
		if path == "" {
			continue
		}
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads a single config file over the defaults, without environment
// overrides. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.overlay(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay decodes path onto c; keys absent from the file keep their values
func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Save writes the config to path as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := paths.EnsureDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.BaseURL = normalizeHost(host)
	}
	if url := os.Getenv("PROMPTARCH_BASE_URL"); url != "" {
		c.BaseURL = url
	}
	if model := os.Getenv("PROMPTARCH_MODEL"); model != "" {
		c.Model = model
	}
	if mode := os.Getenv("PROMPTARCH_MODE"); mode != "" {
		c.Mode = strings.ToLower(mode)
	}
}

// normalizeHost turns an OLLAMA_HOST value such as "0.0.0.0:11434" into a URL
func normalizeHost(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "http://" + host
}

// Timeout returns the request timeout, or the default when unset or invalid
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return defaultRequestTimeout
	}
	return d
}

// Validate checks the config for invalid values
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	if c.Mode != "fast" && c.Mode != "plan" {
		return fmt.Errorf("mode must be fast or plan, got: %s", c.Mode)
	}
	if c.RequestTimeout != "" {
		if d, err := time.ParseDuration(c.RequestTimeout); err != nil || d <= 0 {
			return fmt.Errorf("request_timeout must be a positive duration, got: %s", c.RequestTimeout)
		}
	}
	if c.MinResponseLength < 1 {
		return fmt.Errorf("min_response_length must be at least 1, got: %d", c.MinResponseLength)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative")
	}
	switch c.Store.Backend {
	case "", store.BackendFile, store.BackendSQLite:
	default:
		return fmt.Errorf("store.backend must be %s or %s, got: %s", store.BackendFile, store.BackendSQLite, c.Store.Backend)
	}
	return nil
}

// Keys returns every settable key, sorted
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get retrieves a configuration value by key
func (c *Config) Get(key string) (interface{}, error) {
	f, ok := fields[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return f.get(c), nil
}

// Set updates a configuration value by key from its CLI string form
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	return f.set(c, value)
}

// List returns every key with its value
func (c *Config) List() map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, f := range fields {
		out[k] = f.get(c)
	}
	return out
}

type field struct {
	get func(c *Config) interface{}
	set func(c *Config, value string) error
}

var fields = map[string]field{
	"base_url": {
		get: func(c *Config) interface{} { return c.BaseURL },
		set: func(c *Config, v string) error { c.BaseURL = v; return nil },
	},
	"model": {
		get: func(c *Config) interface{} { return c.Model },
		set: func(c *Config, v string) error { c.Model = v; return nil },
	},
	"mode": {
		get: func(c *Config) interface{} { return c.Mode },
		set: func(c *Config, v string) error {
			v = strings.ToLower(v)
			if v != "fast" && v != "plan" {
				return fmt.Errorf("expected 'fast' or 'plan' for mode, got: %s", v)
			}
			c.Mode = v
			return nil
		},
	},
	"request_timeout": {
		get: func(c *Config) interface{} { return c.RequestTimeout },
		set: func(c *Config, v string) error {
			if d, err := time.ParseDuration(v); err != nil || d <= 0 {
				return fmt.Errorf("expected a positive duration for request_timeout, got: %s", v)
			}
			c.RequestTimeout = v
			return nil
		},
	},
	"min_response_length": {
		get: func(c *Config) interface{} { return c.MinResponseLength },
		set: intSetter("min_response_length", func(c *Config) *int { return &c.MinResponseLength }),
	},
	"history_limit": {
		get: func(c *Config) interface{} { return c.HistoryLimit },
		set: intSetter("history_limit", func(c *Config) *int { return &c.HistoryLimit }),
	},
	"local_models_only": {
		get: func(c *Config) interface{} { return c.LocalModelsOnly },
		set: boolSetter("local_models_only", func(c *Config) *bool { return &c.LocalModelsOnly }),
	},
	"store.backend": {
		get: func(c *Config) interface{} { return c.Store.Backend },
		set: func(c *Config, v string) error {
			if v != store.BackendFile && v != store.BackendSQLite {
				return fmt.Errorf("expected '%s' or '%s' for store.backend, got: %s", store.BackendFile, store.BackendSQLite, v)
			}
			c.Store.Backend = v
			return nil
		},
	},
	"store.path": {
		get: func(c *Config) interface{} { return c.Store.Path },
		set: func(c *Config, v string) error { c.Store.Path = v; return nil },
	},
	"project.watch": {
		get: func(c *Config) interface{} { return c.Project.Watch },
		set: boolSetter("project.watch", func(c *Config) *bool { return &c.Project.Watch }),
	},
	"project.respect_gitignore": {
		get: func(c *Config) interface{} { return c.Project.RespectGitignore },
		set: boolSetter("project.respect_gitignore", func(c *Config) *bool { return &c.Project.RespectGitignore }),
	},
	"project.ignore": {
		get: func(c *Config) interface{} { return strings.Join(c.Project.Ignore, ",") },
		set: func(c *Config, v string) error {
			globs := []string{}
			for _, g := range strings.Split(v, ",") {
				if g = strings.TrimSpace(g); g != "" {
					globs = append(globs, g)
				}
			}
			c.Project.Ignore = globs
			return nil
		},
	},
	"logging.level": {
		get: func(c *Config) interface{} { return c.Logging.Level },
		set: func(c *Config, v string) error {
			switch strings.ToLower(v) {
			case "debug", "info", "warn", "error":
				c.Logging.Level = strings.ToLower(v)
				return nil
			}
			return fmt.Errorf("expected debug, info, warn or error for logging.level, got: %s", v)
		},
	},
	"logging.json": {
		get: func(c *Config) interface{} { return c.Logging.JSON },
		set: boolSetter("logging.json", func(c *Config) *bool { return &c.Logging.JSON }),
	},
	"logging.file": {
		get: func(c *Config) interface{} { return c.Logging.File },
		set: func(c *Config, v string) error { c.Logging.File = v; return nil },
	},
}

func boolSetter(key string, target func(c *Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		switch v {
		case "true":
			*target(c) = true
		case "false":
			*target(c) = false
		default:
			return fmt.Errorf("expected 'true' or 'false' for %s, got: %s", key, v)
		}
		return nil
	}
}

func intSetter(key string, target func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("expected a non-negative number for %s, got: %s", key, v)
		}
		*target(c) = n
		return nil
	}
}
