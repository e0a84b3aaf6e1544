// Package engine orchestrates a vaultgen project: it discovers metadata,
// mappings and macros, orders the targets, renders their SQL level by level
// and records every generation run in the state store.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/vaultgen/internal/dag"
	"github.com/leapstack-labs/vaultgen/internal/generator"
	"github.com/leapstack-labs/vaultgen/internal/macro"
	"github.com/leapstack-labs/vaultgen/internal/mapping"
	"github.com/leapstack-labs/vaultgen/internal/model"
	starctx "github.com/leapstack-labs/vaultgen/internal/starlark"
	"github.com/leapstack-labs/vaultgen/internal/state"
)

// DefaultEnvironment is used when Config.Environment is empty.
const DefaultEnvironment = "dev"

// Config holds engine configuration.
type Config struct {
	// MetadataDir holds <schema>/<table>.csv metadata files
	MetadataDir string
	// MappingsDir holds the table_mappings and column_mappings directories
	MappingsDir string
	// MacrosDir is the path to the macros directory (optional)
	MacrosDir string
	// TemplatesDir overrides embedded templates (optional)
	TemplatesDir string
	// OutputDir receives <schema>/<table>.sql files
	OutputDir string
	// StatePath is the path to the SQLite state database, in memory when empty
	StatePath string

	// Dialect selects the template set
	Dialect string
	// Environment is the current environment (dev, staging, prod)
	Environment string
	// Schema is the Data Vault schema. When empty, the only schema holding
	// typed tables is used.
	Schema string
	// Targets restricts generation to these tables (name or schema.name)
	Targets []string
	// Target is exposed to templates as the target global
	Target *starctx.TargetInfo
	// Vars are project variables visible in config; table properties win
	Vars map[string]any
	// Concurrency bounds parallel renders within a level, GOMAXPROCS when zero
	Concurrency int

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine runs discovery and generation for one project.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	store  state.Store

	mu        sync.RWMutex
	project   *Project
	generator *generator.Generator
}

// New creates an engine and opens its state store. Discover must be called
// before any target operation.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Environment == "" {
		cfg.Environment = DefaultEnvironment
	}
	if cfg.Dialect == "" {
		cfg.Dialect = generator.DefaultDialect
	}
	if cfg.StatePath == "" {
		cfg.StatePath = state.MemoryPath
	}

	logger.Debug("initializing engine",
		"metadata_dir", cfg.MetadataDir,
		"mappings_dir", cfg.MappingsDir,
		"environment", cfg.Environment)

	store := state.NewSQLiteStore(logger)
	if err := store.Open(ctx, cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	return &Engine{cfg: cfg, logger: logger, store: store}, nil
}

// Close releases the state store.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Config returns the engine configuration with defaults applied.
func (e *Engine) Config() Config { return e.cfg }

// Store returns the state store.
func (e *Engine) Store() state.Store { return e.store }

// Project returns the last discovered project, or nil.
func (e *Engine) Project() *Project {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.project
}

// Graph returns the target dependency graph of the last discovery.
func (e *Engine) Graph() *dag.Graph[*model.Table] {
	if p := e.Project(); p != nil {
		return p.Graph
	}
	return nil
}

// Macros returns the macro registry of the last discovery.
func (e *Engine) Macros() *macro.Registry {
	if p := e.Project(); p != nil {
		return p.Macros
	}
	return nil
}

// Generator returns the generator of the last discovery.
func (e *Engine) Generator() *generator.Generator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generator
}

// snapshot returns the project and generator, failing before discovery.
func (e *Engine) snapshot() (*Project, *generator.Generator, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.project == nil {
		return nil, nil, fmt.Errorf("project not discovered")
	}
	return e.project, e.generator, nil
}

// CheckResult is the outcome of checking one target.
type CheckResult struct {
	Target   *model.Table
	Err      error
	Warnings []*model.MetadataWarning
}

// OK reports whether the target can be generated.
func (r CheckResult) OK() bool { return r.Err == nil }

// Check validates the named targets, or every target when names is empty.
// Target problems are reported per result; the error covers unknown names.
func (e *Engine) Check(names []string) ([]CheckResult, error) {
	p, gen, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	targets, err := p.Select(names)
	if err != nil {
		return nil, err
	}

	results := make([]CheckResult, len(targets))
	for i, t := range targets {
		results[i] = CheckResult{Target: t, Err: gen.Check(t, p.Mappings), Warnings: t.Warnings}
	}
	return results, nil
}

// Path returns the lineage path of the named version pointer.
func (e *Engine) Path(name string) ([]*model.Column, error) {
	p, _, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	t, err := p.Target(name)
	if err != nil {
		return nil, err
	}
	return p.Mappings.Path(t)
}

// PathJoins returns the join chain of the named version pointer.
func (e *Engine) PathJoins(name string) ([]mapping.Join, error) {
	p, _, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	path, err := e.Path(name)
	if err != nil {
		return nil, err
	}
	return p.Mappings.PathJoins(path)
}

// Render returns the SQL files of the named target without writing them.
func (e *Engine) Render(name string) ([]generator.Output, error) {
	p, gen, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	t, err := p.Target(name)
	if err != nil {
		return nil, err
	}
	return gen.Render(t, p.Mappings)
}

// normalizeName lower-cases a target name.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
