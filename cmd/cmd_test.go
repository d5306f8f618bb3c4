package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const refinedPrompt = "**🎯 EXPERT ROLE:** Senior Go Engineer\n\n**📋 TASK DETAILS:**\n1. Cache the module downloads in CI"

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[
			{"name":"llama3:8b","size":4661224676,"details":{"family":"llama","parameter_size":"8.0B","quantization_level":"Q4_0"}},
			{"name":"deepseek-v3.1:cloud","remote_host":"https://ollama.com"}
		]}`)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		answer := "```markdown\n" + refinedPrompt + "\n```"
		for _, part := range []string{answer[:25], answer[25:]} {
			data, _ := json.Marshal(map[string]any{"response": part, "done": false})
			fmt.Fprintf(w, "%s\n", data)
		}
		fmt.Fprintln(w, `{"response":"","done":true}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// sandbox isolates HOME and the working directory and returns a config file
// pointing at baseURL
func sandbox(t *testing.T, baseURL string) string {
	t.Helper()
	for _, name := range []string{"OLLAMA_HOST", "PROMPTARCH_BASE_URL", "PROMPTARCH_MODEL", "PROMPTARCH_MODE", "LC_ALL", "LANG"} {
		t.Setenv(name, "")
	}
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("base_url: "+baseURL+"\n"), 0644))
	return configPath
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestRefineFromArgs(t *testing.T) {
	srv := fakeServer(t)
	configPath := sandbox(t, srv.URL)

	out, _, err := run(t, "", "--config", configPath, "--no-project", "speed", "up", "CI")
	require.NoError(t, err)
	assert.Contains(t, out, "Refined prompt")
	assert.Contains(t, out, "Cache the module downloads in CI")

	out, _, err = run(t, "", "--config", configPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "speed up CI")
	assert.Contains(t, out, "[fast]")
}

func TestRefineQuietFromStdin(t *testing.T) {
	srv := fakeServer(t)
	configPath := sandbox(t, srv.URL)

	out, _, err := run(t, "  make the build faster \n", "--config", configPath, "--no-project", "--quiet", "--mode", "plan")
	require.NoError(t, err)
	assert.Equal(t, refinedPrompt+"\n", out)
}

func TestRefineWithoutPrompt(t *testing.T) {
	srv := fakeServer(t)
	configPath := sandbox(t, srv.URL)

	_, _, err := run(t, "   ", "--config", configPath)
	assert.ErrorIs(t, err, errNoPrompt)
}

func TestRefineUnknownModel(t *testing.T) {
	srv := fakeServer(t)
	configPath := sandbox(t, srv.URL)

	_, _, err := run(t, "", "--config", configPath, "--no-project", "-m", "mistral", "hello")
	assert.ErrorContains(t, err, `model "mistral" is not installed`)
}

func TestRefineBadMode(t *testing.T) {
	srv := fakeServer(t)
	configPath := sandbox(t, srv.URL)

	_, _, err := run(t, "", "--config", configPath, "--mode", "deep", "hello")
	assert.ErrorContains(t, err, "unknown mode")
}

func TestRefineServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	configPath := sandbox(t, url)

	_, _, err := run(t, "", "--config", configPath, "--no-project", "hello")
	assert.ErrorContains(t, err, "cannot reach the model server")
}

func TestStatus(t *testing.T) {
	srv := fakeServer(t)
	configPath := sandbox(t, srv.URL)

	out, _, err := run(t, "", "--config", configPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "connected")
	assert.Contains(t, out, "2 installed, 1 local")
	assert.Contains(t, out, "llama3:8b")
}

func TestModels(t *testing.T) {
	srv := fakeServer(t)
	configPath := sandbox(t, srv.URL)

	out, _, err := run(t, "", "--config", configPath, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "llama3:8b")
	assert.Contains(t, out, "4.7 GB")
	assert.Contains(t, out, "Q4_0")
	assert.Contains(t, out, "deepseek-v3.1:cloud")

	out, _, err = run(t, "", "--config", configPath, "models", "--local")
	require.NoError(t, err)
	assert.Contains(t, out, "llama3:8b")
	assert.NotContains(t, out, "deepseek")
}

func TestDetectJSON(t *testing.T) {
	configPath := sandbox(t, "http://localhost:11434")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/x\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>\n"), 0644))

	out, _, err := run(t, "", "--config", configPath, "detect", "--json", dir)
	require.NoError(t, err)

	var got struct {
		Languages []string `json:"detectedLanguages"`
		TechStack []string `json:"techStack"`
		Files     int      `json:"files"`
		Configs   []string `json:"configFiles"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"Go", "HTML"}, got.Languages)
	assert.Equal(t, []string{"Go"}, got.TechStack)
	assert.Equal(t, 3, got.Files)
	assert.Equal(t, []string{"go.mod"}, got.Configs)
}

func TestDetectMissingFolder(t *testing.T) {
	configPath := sandbox(t, "http://localhost:11434")

	_, _, err := run(t, "", "--config", configPath, "detect", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestHistoryClear(t *testing.T) {
	srv := fakeServer(t)
	configPath := sandbox(t, srv.URL)

	_, _, err := run(t, "", "--config", configPath, "--no-project", "-q", "first")
	require.NoError(t, err)

	out, _, err := run(t, "", "--config", configPath, "history", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared")

	out, _, err = run(t, "", "--config", configPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "no refinements yet")
}

func TestHistoryShow(t *testing.T) {
	srv := fakeServer(t)
	configPath := sandbox(t, srv.URL)

	_, _, err := run(t, "", "--config", configPath, "--no-project", "-q", "first")
	require.NoError(t, err)

	_, _, err = run(t, "", "--config", configPath, "history", "show", "")
	assert.ErrorIs(t, err, errEmptyID)
	_, _, err = run(t, "", "--config", configPath, "history", "show", "  ")
	assert.ErrorIs(t, err, errEmptyID)

	_, _, err = run(t, "", "--config", configPath, "history", "show", "zzzz")
	assert.ErrorContains(t, err, "no history entry")
}

func TestConfigCommands(t *testing.T) {
	configPath := sandbox(t, "http://localhost:11434")

	out, _, err := run(t, "", "--config", configPath, "config", "set", "mode", "plan")
	require.NoError(t, err)
	assert.Equal(t, "Set mode = plan\n", out)

	out, _, err = run(t, "", "--config", configPath, "config", "get", "mode")
	require.NoError(t, err)
	assert.Equal(t, "mode = plan\n", out)

	out, _, err = run(t, "", "--config", configPath, "config", "get", "base_url")
	require.NoError(t, err)
	assert.Equal(t, "base_url = http://localhost:11434\n", out)

	out, _, err = run(t, "", "--config", configPath, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "history_limit = 50\n")
	assert.Contains(t, out, "store.backend = file\n")

	_, _, err = run(t, "", "--config", configPath, "config", "set", "mode", "turbo")
	assert.Error(t, err)
	_, _, err = run(t, "", "--config", configPath, "config", "get", "nope")
	assert.Error(t, err)
}

func TestPrefsCommands(t *testing.T) {
	configPath := sandbox(t, "http://localhost:11434")

	out, _, err := run(t, "", "--config", configPath, "prefs", "theme", "toggle")
	require.NoError(t, err)
	assert.Equal(t, "Theme set to light\n", out)

	out, _, err = run(t, "", "--config", configPath, "prefs", "language", "fi")
	require.NoError(t, err)
	assert.Equal(t, "Language set to fi\n", out)

	out, _, err = run(t, "", "--config", configPath, "prefs")
	require.NoError(t, err)
	assert.Contains(t, out, "light")
	assert.Contains(t, out, "fi")

	_, _, err = run(t, "", "--config", configPath, "prefs", "theme", "sepia")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "one two", truncate("one\n  two", 10))
	assert.Equal(t, "abcdefghi…", truncate("abcdefghijklmnop", 10))
}
