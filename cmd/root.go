package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"promptarch/app"
	"promptarch/config"
	"promptarch/logging"
	"promptarch/paths"
	"promptarch/workspace"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the promptarch command tree
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	refine := &refineOptions{}

	rootCmd := &cobra.Command{
		Use:   "promptarch [prompt...]",
		Short: "promptarch turns rough requests into structured prompts with a local model",
		Long: `promptarch is a prompt architect for Ollama. It reads the project you are
working in, detects its languages and frameworks, and asks a local model to
rewrite your request as a structured, stack-specific prompt.

The prompt is taken from the arguments, or from stdin when none are given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefine(cmd, opts, refine, args)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Global config file (default ~/.promptarch/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.Flags().StringVarP(&refine.model, "model", "m", "", "Model to use (default: configured model, else the first installed)")
	rootCmd.Flags().StringVar(&refine.mode, "mode", "", "Refinement mode: fast or plan")
	rootCmd.Flags().StringVarP(&refine.dir, "dir", "d", "", "Project folder (default: git root of the current directory)")
	rootCmd.Flags().BoolVar(&refine.noProject, "no-project", false, "Do not read a project folder")
	rootCmd.Flags().BoolVarP(&refine.quiet, "quiet", "q", false, "Print only the final prompt")

	rootCmd.AddCommand(
		newStatusCmd(opts),
		newModelsCmd(opts),
		newDetectCmd(opts),
		newHistoryCmd(opts),
		newConfigCmd(opts),
		newPrefsCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// globalConfigPath returns the --config path or the default global config file
func (o *globalOptions) globalConfigPath() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return paths.GlobalConfigPath()
}

// loadConfig layers the global file and the workspace file of workspacePath
func (o *globalOptions) loadConfig(workspacePath string) (*config.Config, error) {
	globalPath, err := o.globalConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFrom(globalPath, workspacePath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

// env bundles what a command needs to talk to the model server
type env struct {
	cfg       *config.Config
	app       *app.App
	logger    *zap.Logger
	workspace string
}

func (e *env) Close() {
	if err := e.app.Close(); err != nil {
		e.logger.Warn("failed to close app", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// openEnv resolves the workspace, loads config, builds the logger and the
// app. adjust may change the config before the app is built.
func (o *globalOptions) openEnv(dir string, adjust func(*config.Config)) (*env, error) {
	workspacePath, err := workspace.DetectWorkspace(dir)
	if err != nil {
		return nil, fmt.Errorf("error detecting workspace: %w", err)
	}

	cfg, err := o.loadConfig(workspacePath)
	if err != nil {
		return nil, err
	}
	if adjust != nil {
		adjust(cfg)
	}

	logger, err := logging.New(cfg.Logging, o.verbose)
	if err != nil {
		return nil, err
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &env{cfg: cfg, app: a, logger: logger, workspace: workspacePath}, nil
}

// interruptContext is cancelled on Ctrl-C or SIGTERM
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
