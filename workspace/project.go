package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Project is the context gathered from one selected folder. A new Project
// is built on every selection; it is never patched in place.
type Project struct {
	FolderPath string      `json:"folderPath"`
	Tree       []*FileNode `json:"fileStructure"`
	Configs    ConfigFiles `json:"configFiles"`
	TechStack  []string    `json:"techStack"`
	Languages  []string    `json:"detectedLanguages"`
	LoadedAt   time.Time   `json:"loadedAt"`
}

// Loader builds Project values from folders
type Loader struct {
	opts   TreeOptions
	logger *zap.Logger
}

// NewLoader creates a loader applying opts to every tree listing
func NewLoader(opts TreeOptions) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Logger = logger
	return &Loader{opts: opts, logger: logger.Named("workspace")}
}

// Load lists the folder and reads its config files concurrently, then
// derives the tech stack and detected languages
func (l *Loader) Load(ctx context.Context, folder string) (*Project, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve folder: %w", err)
	}

	var (
		tree    []*FileNode
		configs ConfigFiles
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tree, err = ReadTree(gctx, abs, l.opts)
		return err
	})
	g.Go(func() error {
		var err error
		configs, err = ReadConfigFiles(gctx, abs, l.opts.Logger)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	project := &Project{
		FolderPath: abs,
		Tree:       tree,
		Configs:    configs,
		TechStack:  TechStack(configs),
		Languages:  DetectLanguages(tree, configs),
		LoadedAt:   time.Now(),
	}

	l.logger.Debug("project loaded",
		zap.String("folder", abs),
		zap.Int("files", CountFiles(tree)),
		zap.Int("configs", len(configs)),
		zap.Strings("languages", project.Languages))

	return project, nil
}
