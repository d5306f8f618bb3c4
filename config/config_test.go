package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable applyEnvOverrides reads
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"OLLAMA_HOST", "PROMPTARCH_BASE_URL", "PROMPTARCH_MODEL", "PROMPTARCH_MODE"} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BaseURL != "http://localhost:11434" {
		t.Errorf("Expected default base URL 'http://localhost:11434', got '%s'", cfg.BaseURL)
	}
	if cfg.Mode != "fast" {
		t.Errorf("Expected default mode 'fast', got '%s'", cfg.Mode)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("Expected default history limit 50, got %d", cfg.HistoryLimit)
	}
	if cfg.MinResponseLength != 50 {
		t.Errorf("Expected default min response length 50, got %d", cfg.MinResponseLength)
	}
	if !cfg.Project.RespectGitignore {
		t.Error("Expected gitignore to be respected by default")
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("Expected default store backend 'file', got '%s'", cfg.Store.Backend)
	}
	if cfg.Timeout() != 5*time.Minute {
		t.Errorf("Expected default timeout 5m, got %s", cfg.Timeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigGet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = "llama3:8b"
	cfg.LocalModelsOnly = true
	cfg.Project.Ignore = []string{"**/*.log", "tmp/**"}

	tests := []struct {
		key      string
		expected interface{}
	}{
		{"model", "llama3:8b"},
		{"local_models_only", true},
		{"history_limit", 50},
		{"store.backend", "file"},
		{"project.ignore", "**/*.log,tmp/**"},
		{"logging.level", "warn"},
	}

	for _, test := range tests {
		value, err := cfg.Get(test.key)
		if err != nil {
			t.Errorf("Unexpected error for key '%s': %v", test.key, err)
			continue
		}

		if value != test.expected {
			t.Errorf("For key '%s', expected %v, got %v", test.key, test.expected, value)
		}
	}

	if _, err := cfg.Get("unknown_key"); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestConfigSet(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		key      string
		value    string
		expected interface{}
	}{
		{"model", "qwen2.5:7b", "qwen2.5:7b"},
		{"mode", "PLAN", "plan"},
		{"request_timeout", "90s", "90s"},
		{"history_limit", "20", 20},
		{"local_models_only", "true", true},
		{"store.backend", "sqlite", "sqlite"},
		{"project.watch", "true", true},
		{"project.ignore", " dist/** , *.lock ,", "dist/**,*.lock"},
		{"logging.json", "true", true},
	}

	for _, test := range tests {
		if err := cfg.Set(test.key, test.value); err != nil {
			t.Errorf("Unexpected error for key '%s': %v", test.key, err)
			continue
		}

		value, err := cfg.Get(test.key)
		if err != nil {
			t.Errorf("Error getting value for key '%s': %v", test.key, err)
			continue
		}
		if value != test.expected {
			t.Errorf("For key '%s', expected %v, got %v", test.key, test.expected, value)
		}
	}

	if cfg.Timeout() != 90*time.Second {
		t.Errorf("Expected timeout 90s, got %s", cfg.Timeout())
	}
}

func TestConfigSetValidation(t *testing.T) {
	cfg := DefaultConfig()

	invalid := map[string]string{
		"unknown_key":       "value",
		"mode":              "turbo",
		"request_timeout":   "soon",
		"history_limit":     "-1",
		"local_models_only": "yes",
		"store.backend":     "redis",
		"logging.level":     "loud",
	}
	for key, value := range invalid {
		if err := cfg.Set(key, value); err == nil {
			t.Errorf("Expected error setting %s=%s", key, value)
		}
	}

	if cfg.Mode != "fast" {
		t.Errorf("Failed set should leave mode unchanged, got %s", cfg.Mode)
	}
}

func TestKeysAndList(t *testing.T) {
	cfg := DefaultConfig()
	keys := Keys()

	if len(keys) != 15 {
		t.Errorf("Expected 15 keys, got %d: %v", len(keys), keys)
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Errorf("Keys not sorted: %v", keys)
		}
	}

	list := cfg.List()
	for _, key := range keys {
		if _, ok := list[key]; !ok {
			t.Errorf("List missing key %s", key)
		}
	}
}

func TestLoadFromLayers(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	globalPath := filepath.Join(dir, "home", "config.yaml")
	workspace := filepath.Join(dir, "project")

	writeConfig(t, globalPath, "model: llama3:8b\nmode: plan\nhistory_limit: 10\nproject:\n  ignore: [\"*.log\"]\n")
	writeConfig(t, filepath.Join(workspace, ".promptarch", "config.yaml"), "model: qwen2.5:7b\nproject:\n  watch: true\n")

	cfg, err := LoadFrom(globalPath, workspace)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Model != "qwen2.5:7b" {
		t.Errorf("Workspace model should win, got %s", cfg.Model)
	}
	if cfg.Mode != "plan" {
		t.Errorf("Global mode should survive, got %s", cfg.Mode)
	}
	if cfg.HistoryLimit != 10 {
		t.Errorf("Expected history limit 10, got %d", cfg.HistoryLimit)
	}
	if !cfg.Project.Watch {
		t.Error("Expected project.watch from workspace config")
	}
	if !cfg.Project.RespectGitignore {
		t.Error("Default respect_gitignore should survive partial project sections")
	}
	if len(cfg.Project.Ignore) != 1 || cfg.Project.Ignore[0] != "*.log" {
		t.Errorf("Expected ignore [*.log], got %v", cfg.Project.Ignore)
	}
}

func TestLoadFromMissingFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadFrom(filepath.Join(dir, "none.yaml"), dir)
	if err != nil {
		t.Fatalf("Missing files should not be an error: %v", err)
	}
	if cfg.BaseURL != DefaultConfig().BaseURL {
		t.Errorf("Expected default base URL, got %s", cfg.BaseURL)
	}
}

func TestLoadFromMalformed(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "model: [unclosed\n")

	_, err := LoadFrom(path, "")
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Errorf("Expected parse error naming %s, got %v", path, err)
	}
}

func TestLoadFromInvalidValue(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "mode: turbo\n")

	if _, err := LoadFrom(path, ""); err == nil {
		t.Error("Expected validation error for mode turbo")
	}
}

func TestLoadFromZeroMinResponseLength(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "min_response_length: 0\n")

	if _, err := LoadFrom(path, ""); err == nil {
		t.Error("Expected validation error for min_response_length 0")
	}

	cfg := DefaultConfig()
	cfg.MinResponseLength = 1
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected min_response_length 1 to be valid, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Run("OLLAMA_HOST without scheme", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OLLAMA_HOST", "0.0.0.0:11434")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if cfg.BaseURL != "http://0.0.0.0:11434" {
			t.Errorf("Expected http://0.0.0.0:11434, got %s", cfg.BaseURL)
		}
	})

	t.Run("PROMPTARCH_BASE_URL beats OLLAMA_HOST", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OLLAMA_HOST", "https://ollama.internal")
		t.Setenv("PROMPTARCH_BASE_URL", "http://gpu-box:11434")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if cfg.BaseURL != "http://gpu-box:11434" {
			t.Errorf("Expected http://gpu-box:11434, got %s", cfg.BaseURL)
		}
	})

	t.Run("model and mode", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PROMPTARCH_MODEL", "mistral")
		t.Setenv("PROMPTARCH_MODE", "Plan")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		if cfg.Model != "mistral" || cfg.Mode != "plan" {
			t.Errorf("Expected mistral/plan, got %s/%s", cfg.Model, cfg.Mode)
		}
	})
}

func TestSaveConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".promptarch", "config.yaml")

	cfg := DefaultConfig()
	if err := cfg.Set("model", "codellama"); err != nil {
		t.Fatalf("Failed to set model: %v", err)
	}
	if err := cfg.Set("store.backend", "sqlite"); err != nil {
		t.Fatalf("Failed to set backend: %v", err)
	}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Model != "codellama" {
		t.Errorf("Expected model codellama, got %s", loaded.Model)
	}
	if loaded.Store.Backend != "sqlite" {
		t.Errorf("Expected backend sqlite, got %s", loaded.Store.Backend)
	}
}
