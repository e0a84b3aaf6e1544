package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/vaultgen/internal/dag"
	"github.com/leapstack-labs/vaultgen/internal/generator"
	"github.com/leapstack-labs/vaultgen/internal/loader"
	"github.com/leapstack-labs/vaultgen/internal/macro"
	"github.com/leapstack-labs/vaultgen/internal/mapping"
	"github.com/leapstack-labs/vaultgen/internal/model"
)

// Project is the discovered, read-only state of a project.
type Project struct {
	// Tables holds every loaded table, classified by name suffix
	Tables []*model.Table
	// Schema is the Data Vault schema
	Schema *model.Schema
	// Targets are the typed tables of Schema selected for generation
	Targets []*model.Table
	// Mappings resolves sources of every target
	Mappings *mapping.Mappings
	// Graph orders Targets
	Graph *dag.Graph[*model.Table]
	// Macros holds the project's macro namespaces
	Macros *macro.Registry
	// Warnings collects classification warnings of all tables
	Warnings []*model.MetadataWarning
	// Duration is how long discovery took
	Duration time.Duration
}

// Target resolves a target by "schema.name" or bare name.
func (p *Project) Target(name string) (*model.Table, error) {
	name = normalizeName(name)
	for _, t := range p.Targets {
		if t.FullName() == name || t.Name == name {
			return t, nil
		}
	}
	if t, ok := p.Mappings.Table(name); ok && !t.Kind.IsTyped() {
		return nil, fmt.Errorf("%s is not a Data Vault table", t.FullName())
	}
	return nil, fmt.Errorf("unknown target %q", name)
}

// Select resolves names to targets, every target when names is empty.
func (p *Project) Select(names []string) ([]*model.Table, error) {
	if len(names) == 0 {
		return p.Targets, nil
	}
	out := make([]*model.Table, 0, len(names))
	for _, name := range names {
		t, err := p.Target(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Discover loads the project and replaces the engine's current project.
// The steps are: load metadata, classify, log warnings, build the schema,
// load mappings and synthesize missing sources, build the graph, then load
// macros and templates.
func (e *Engine) Discover(ctx context.Context) (*Project, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ld := loader.New(loader.WithLogger(e.logger))

	raw, err := ld.LoadTables(e.cfg.MetadataDir)
	if err != nil {
		return nil, err
	}

	p := &Project{Tables: make([]*model.Table, len(raw))}
	for i, t := range raw {
		typed := model.Classify(t)
		for _, w := range typed.Warnings {
			e.logger.Warn("metadata warning", "table", w.Table, "warning", w.Message)
		}
		p.Warnings = append(p.Warnings, typed.Warnings...)
		p.Tables[i] = typed
	}

	schemaName, err := e.vaultSchema(p.Tables)
	if err != nil {
		return nil, err
	}

	var inSchema, others []*model.Table
	for _, t := range p.Tables {
		if t.Schema == schemaName {
			inSchema = append(inSchema, t)
		} else {
			others = append(others, t)
		}
	}
	p.Schema, err = model.NewSchema(schemaName, inSchema)
	if err != nil {
		return nil, err
	}

	tableMappings, err := ld.LoadTableMappings(e.cfg.MappingsDir)
	if err != nil {
		return nil, err
	}
	columnMappings, err := ld.LoadColumnMappings(e.cfg.MappingsDir)
	if err != nil {
		return nil, err
	}
	p.Mappings, err = mapping.New(tableMappings, columnMappings,
		mapping.WithSchema(p.Schema),
		mapping.WithTables(others...),
		mapping.WithSynthesizedSources(),
	)
	if err != nil {
		return nil, err
	}

	p.Targets, err = e.selectTargets(p.Schema)
	if err != nil {
		return nil, err
	}
	p.Graph, err = dag.FromTables(p.Targets, tableMappings)
	if err != nil {
		return nil, err
	}

	modules, err := macro.NewLoader(e.cfg.MacrosDir, e.logger).Load()
	if err != nil {
		return nil, err
	}
	p.Macros = macro.NewRegistry()
	if err := p.Macros.RegisterAll(modules); err != nil {
		return nil, err
	}

	gen, err := generator.New(e.cfg.Dialect,
		generator.WithTemplateDir(e.cfg.TemplatesDir),
		generator.WithEnvironment(e.cfg.Environment),
		generator.WithTarget(e.cfg.Target),
		generator.WithVars(e.cfg.Vars),
		generator.WithMacros(p.Macros),
		generator.WithLogger(e.logger),
	)
	if err != nil {
		return nil, err
	}

	p.Duration = time.Since(start)
	e.logger.Info("discovered project",
		slog.String("schema", schemaName),
		slog.Int("tables", len(p.Tables)),
		slog.Int("targets", len(p.Targets)),
		slog.Int("table_mappings", len(tableMappings)),
		slog.Int("column_mappings", len(columnMappings)),
		slog.Int("macros", p.Macros.Len()),
		slog.Int("warnings", len(p.Warnings)),
		slog.Duration("duration", p.Duration))

	e.mu.Lock()
	e.project = p
	e.generator = gen
	e.mu.Unlock()
	return p, nil
}

// vaultSchema returns the configured schema, or the only schema that holds
// typed tables.
func (e *Engine) vaultSchema(tables []*model.Table) (string, error) {
	if e.cfg.Schema != "" {
		return e.cfg.Schema, nil
	}

	seen := make(map[string]bool)
	for _, t := range tables {
		if t.Kind.IsTyped() {
			seen[t.Schema] = true
		}
	}
	names := make([]string, 0, len(seen))
	for s := range seen {
		names = append(names, s)
	}
	sort.Strings(names)

	switch len(names) {
	case 0:
		return "", fmt.Errorf("no hub, link, satellite or version pointer tables found in %s", e.cfg.MetadataDir)
	case 1:
		return names[0], nil
	default:
		return "", fmt.Errorf("typed tables found in schemas %s; set schema to choose one",
			strings.Join(names, ", "))
	}
}

// selectTargets returns the typed tables of s, restricted to Config.Targets
// when set.
func (e *Engine) selectTargets(s *model.Schema) ([]*model.Table, error) {
	var typed []*model.Table
	for _, t := range s.Tables() {
		if t.Kind.IsTyped() {
			typed = append(typed, t)
		}
	}
	if len(e.cfg.Targets) == 0 {
		return typed, nil
	}

	var out []*model.Table
	for _, name := range e.cfg.Targets {
		name = normalizeName(name)
		found := false
		for _, t := range typed {
			if t.FullName() == name || t.Name == name {
				out = append(out, t)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("configured target %q is not a Data Vault table of schema %s", name, s.Name)
		}
	}
	return out, nil
}
