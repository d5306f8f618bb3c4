// Package logging builds the zap logger shared by every component.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"promptarch/config"
	"promptarch/paths"
)

// New builds a logger from cfg. verbose forces the debug level. Logs go to
// stderr unless cfg.File is set.
func New(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Sampling = nil
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if !cfg.JSON {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	level := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if cfg.Level != "" {
		parsed, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	if verbose {
		level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zcfg.Level = level

	if cfg.File != "" {
		path, err := paths.LogPath(cfg.File)
		if err != nil {
			return nil, err
		}
		if err := paths.EnsureDir(path); err != nil {
			return nil, err
		}
		zcfg.OutputPaths = []string{path}
		zcfg.ErrorOutputPaths = []string{path}
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("promptarch"), nil
}
