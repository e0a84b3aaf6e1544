package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/vaultgen/internal/cli/config"
	"github.com/leapstack-labs/vaultgen/internal/cli/output"
	"github.com/leapstack-labs/vaultgen/internal/engine"
	"github.com/leapstack-labs/vaultgen/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a discovered engine and a
// renderer. Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx, err := newCommandContext(cmd)
	if err != nil {
		return nil, nil, err
	}

	eng, err := createEngine(cmd.Context(), cmdCtx.Cfg, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = eng.Close()
	}

	if _, err := eng.Discover(cmd.Context()); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to discover project: %w", err)
	}

	cmdCtx.Engine = eng
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need project discovery.
func NewCommandContextWithoutEngine(cmd *cobra.Command) (*CommandContext, error) {
	return newCommandContext(cmd)
}

func newCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// getConfig returns the configuration the root command stored in the command
// context, loading it from the root flags when there is none.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg := config.FromContext(cmd.Context()); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", cmd.Root().PersistentFlags())
}

func createEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	if err := ensureStateDir(cfg.StatePath); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return engine.New(ctx, engineConfig(cfg, logger))
}

// ensureStateDir creates the directory of the state database.
func ensureStateDir(statePath string) error {
	if statePath == "" || statePath == state.MemoryPath {
		return nil
	}
	stateDir := filepath.Dir(statePath)
	if stateDir == "." || stateDir == "" {
		return nil
	}
	if err := os.MkdirAll(stateDir, 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}

// engineConfig maps the CLI configuration to the engine configuration.
// The target's dialect wins over the project dialect.
func engineConfig(cfg *config.Config, logger *slog.Logger) engine.Config {
	dialect := cfg.Dialect
	if cfg.Target != nil && cfg.Target.Dialect != "" {
		dialect = cfg.Target.Dialect
	}
	dialect = strings.ToLower(dialect)
	return engine.Config{
		MetadataDir:  cfg.MetadataDir,
		MappingsDir:  cfg.MappingsDir,
		MacrosDir:    cfg.MacrosDir,
		TemplatesDir: cfg.TemplatesDir,
		OutputDir:    cfg.OutputDir,
		StatePath:    cfg.StatePath,
		Dialect:      dialect,
		Environment:  cfg.Environment,
		Schema:       cfg.Schema,
		Targets:      cfg.Targets,
		Target:       cfg.Target.ToTargetInfo(),
		Vars:         cfg.Vars,
		Concurrency:  cfg.Concurrency,
		Logger:       logger,
	}
}
