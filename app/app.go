// Package app wires configuration, persistence, the model-server client and
// the generation session into one application context.
package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"promptarch/config"
	"promptarch/events"
	"promptarch/llm"
	"promptarch/paths"
	"promptarch/session"
	"promptarch/store"
	"promptarch/workspace"
)

// App is the application context shared by every command
type App struct {
	cfg         *config.Config
	logger      *zap.Logger
	store       store.Store
	client      *clientRef
	bus         *events.Bus
	coordinator *session.Coordinator
	loader      *workspace.Loader

	mu       sync.Mutex
	models   []llm.Model
	project  *workspace.Project
	watcher  *workspace.Watcher
	theme    Theme
	language string
}

// New opens the store, loads preferences and history and builds the session
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	mode, err := session.ParseMode(cfg.Mode)
	if err != nil {
		st.Close()
		return nil, err
	}

	bus := events.NewBus(logger)
	client := &clientRef{client: newClient(cfg.BaseURL, cfg, logger)}
	history := session.LoadHistory(st, cfg.HistoryLimit, logger)

	a := &App{
		cfg:    cfg,
		logger: logger.Named("app"),
		store:  st,
		client: client,
		bus:    bus,
		coordinator: session.NewCoordinator(session.Config{
			Generator:         client,
			History:           history,
			Bus:               bus,
			Logger:            logger,
			MinResponseLength: cfg.MinResponseLength,
			Mode:              mode,
		}),
		loader: workspace.NewLoader(workspace.TreeOptions{
			Ignore:           cfg.Project.Ignore,
			RespectGitignore: cfg.Project.RespectGitignore,
			Logger:           logger,
		}),
	}
	a.loadPreferences()

	if cfg.Model != "" {
		a.coordinator.SetModel(cfg.Model)
	}
	return a, nil
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	path := cfg.Path
	if path == "" {
		var err error
		if path, err = paths.StorePath(cfg.Backend); err != nil {
			return nil, err
		}
	}
	if err := paths.EnsureDir(path); err != nil {
		return nil, err
	}
	return store.Open(cfg.Backend, path)
}

func newClient(baseURL string, cfg *config.Config, logger *zap.Logger) *llm.Client {
	return llm.NewClient(llm.ClientConfig{
		BaseURL: baseURL,
		Timeout: cfg.Timeout(),
		Logger:  logger,
	})
}

// Config returns the configuration the app was built with
func (a *App) Config() *config.Config { return a.cfg }

// Bus returns the event bus
func (a *App) Bus() *events.Bus { return a.bus }

// Session returns the generation coordinator
func (a *App) Session() *session.Coordinator { return a.coordinator }

// Client returns the current model-server client
func (a *App) Client() *llm.Client { return a.client.get() }

// SetBaseURL points the app at another model server. The model list is
// dropped until the next LoadModels.
func (a *App) SetBaseURL(baseURL string) {
	client := newClient(baseURL, a.cfg, a.logger)
	a.client.set(client)

	a.mu.Lock()
	a.models = nil
	a.mu.Unlock()

	a.logger.Debug("base URL changed", zap.String("base_url", client.BaseURL()))
}

// Connect checks the server and, when it is up, loads the model list and
// selects the first model if none is selected yet
func (a *App) Connect(ctx context.Context) (bool, error) {
	client := a.client.get()
	ok, err := client.CheckConnection(ctx)

	payload := events.Connection{BaseURL: client.BaseURL(), Connected: ok}
	if err != nil {
		payload.Error = err.Error()
	}
	a.bus.Emit(events.ConnectionChanged, payload)
	if !ok {
		return false, err
	}

	models, err := a.LoadModels(ctx)
	if err != nil {
		return true, err
	}

	if a.coordinator.State().Model == "" {
		candidates := models
		if a.cfg.LocalModelsOnly {
			candidates = llm.FilterLocal(models)
		}
		if len(candidates) > 0 {
			a.coordinator.SetModel(candidates[0].Name)
			a.logger.Debug("auto-selected model", zap.String("model", candidates[0].Name))
		}
	}
	return true, nil
}

// LoadModels fetches the installed models from the server
func (a *App) LoadModels(ctx context.Context) ([]llm.Model, error) {
	models, err := a.client.get().ListModels(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.models = models
	a.mu.Unlock()

	a.bus.Emit(events.ModelsLoaded, len(models))
	return append([]llm.Model(nil), models...), nil
}

// Models returns the last loaded model list, optionally without cloud models
func (a *App) Models(localOnly bool) []llm.Model {
	a.mu.Lock()
	defer a.mu.Unlock()

	if localOnly {
		return llm.FilterLocal(a.models)
	}
	return append([]llm.Model(nil), a.models...)
}

// SelectModel selects the model for following generations. When a model list
// is loaded the name must be in it.
func (a *App) SelectModel(name string) error {
	a.mu.Lock()
	models := a.models
	a.mu.Unlock()

	if len(models) > 0 {
		found := false
		for _, m := range models {
			if m.Name == name {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("model %q is not installed", name)
		}
	}

	a.coordinator.SetModel(name)
	return nil
}

// OpenProject loads folder as the project context. With project.watch set the
// project is reloaded whenever the folder changes.
func (a *App) OpenProject(ctx context.Context, folder string) (*workspace.Project, error) {
	project, err := a.loader.Load(ctx, folder)
	if err != nil {
		return nil, err
	}

	var watcher *workspace.Watcher
	if a.cfg.Project.Watch {
		watcher, err = workspace.NewWatcher(a.loader, project.FolderPath, workspace.DefaultWatchDelay, a.projectReloaded)
		if err != nil {
			return nil, fmt.Errorf("failed to watch project: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch project: %w", err)
		}
	}

	a.mu.Lock()
	previous := a.watcher
	a.project = project
	a.watcher = watcher
	a.mu.Unlock()

	if previous != nil {
		previous.Close()
	}

	a.coordinator.SetProject(project)
	a.bus.Emit(events.ProjectChanged, project)
	a.logger.Debug("project opened",
		zap.String("folder", project.FolderPath),
		zap.Strings("tech_stack", project.TechStack),
		zap.Strings("languages", project.Languages))
	return project, nil
}

func (a *App) projectReloaded(project *workspace.Project) {
	a.mu.Lock()
	if a.project == nil || a.project.FolderPath != project.FolderPath {
		a.mu.Unlock()
		return
	}
	a.project = project
	a.mu.Unlock()

	a.coordinator.SetProject(project)
	a.bus.Emit(events.ProjectChanged, project)
}

// Project returns the current project context, or nil
func (a *App) Project() *workspace.Project {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.project
}

// ClearProject drops the project context and stops watching it
func (a *App) ClearProject() {
	a.mu.Lock()
	watcher := a.watcher
	a.project = nil
	a.watcher = nil
	a.mu.Unlock()

	if watcher != nil {
		watcher.Close()
	}
	a.coordinator.ClearProject()
	a.bus.Emit(events.ProjectChanged, (*workspace.Project)(nil))
}

// Close stops any generation, stops watching and closes the store
func (a *App) Close() error {
	a.coordinator.StopGeneration()
	a.mu.Lock()
	watcher := a.watcher
	a.watcher = nil
	a.mu.Unlock()

	if watcher != nil {
		watcher.Close()
	}
	return a.store.Close()
}

// clientRef lets the base URL change under a running coordinator
type clientRef struct {
	mu     sync.RWMutex
	client *llm.Client
}

func (r *clientRef) get() *llm.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client
}

func (r *clientRef) set(c *llm.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = c
}

func (r *clientRef) Generate(ctx context.Context, req llm.Request) (string, error) {
	return r.get().Generate(ctx, req)
}

func (r *clientRef) GenerateStream(ctx context.Context, req llm.Request) (*llm.Stream, error) {
	return r.get().GenerateStream(ctx, req)
}
