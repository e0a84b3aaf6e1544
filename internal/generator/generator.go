// Package generator turns checked Data Vault tables into SQL by rendering the
// template set of a dialect. Templates are selected by table kind and
// generate type: a view renders one file, a table renders its DDL and an
// incremental load script.
package generator

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sync"

	"github.com/leapstack-labs/vaultgen/internal/macro"
	"github.com/leapstack-labs/vaultgen/internal/mapping"
	"github.com/leapstack-labs/vaultgen/internal/model"
	starctx "github.com/leapstack-labs/vaultgen/internal/starlark"
	"github.com/leapstack-labs/vaultgen/internal/template"
)

// DefaultDialect is the template set used when none is configured.
const DefaultDialect = "standard"

// GenerateTypeProperty is the table property selecting the generate type.
const GenerateTypeProperty = "generate_type"

// GenerateType selects what is generated for a table.
type GenerateType string

// Generate types.
const (
	GenerateView  GenerateType = "view"
	GenerateTable GenerateType = "table"
	GenerateETL   GenerateType = "etl"
)

// GenerateTypeOf returns the generate type of t, GenerateView by default.
func GenerateTypeOf(t *model.Table) (GenerateType, error) {
	v, ok := t.Property(GenerateTypeProperty)
	if !ok || v == "" {
		return GenerateView, nil
	}
	switch gt := GenerateType(v); gt {
	case GenerateView, GenerateTable, GenerateETL:
		return gt, nil
	default:
		return "", model.NewMetadataErrorf(t.FullName(), "unsupported %s %q, expected view, table or etl", GenerateTypeProperty, v)
	}
}

// Output is one generated SQL file. Path is relative and slash separated.
type Output struct {
	Path string
	SQL  string
}

// Generator renders SQL for target tables. It is safe for concurrent use.
type Generator struct {
	fsys    fs.FS
	dialect string
	env     string
	target  *starctx.TargetInfo
	vars    map[string]any
	macros  *macro.Registry
	pool    *starctx.ThreadPool
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]*template.Template
}

// Option configures a Generator.
type Option func(*Generator)

// WithTemplateDir layers the templates below dir over the embedded ones.
// An empty dir is ignored.
func WithTemplateDir(dir string) Option {
	return func(g *Generator) {
		if dir != "" {
			g.fsys = Overlay(dirFS(dir), g.fsys)
		}
	}
}

// WithTemplateFS replaces the template tree.
func WithTemplateFS(fsys fs.FS) Option {
	return func(g *Generator) { g.fsys = fsys }
}

// WithEnvironment sets the env global.
func WithEnvironment(env string) Option {
	return func(g *Generator) { g.env = env }
}

// WithTarget sets the target global.
func WithTarget(target *starctx.TargetInfo) Option {
	return func(g *Generator) { g.target = target }
}

// WithVars sets project variables. Table properties override them in config.
func WithVars(vars map[string]any) Option {
	return func(g *Generator) { g.vars = vars }
}

// WithMacros exposes the registry namespaces to templates.
func WithMacros(r *macro.Registry) Option {
	return func(g *Generator) { g.macros = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a generator for dialect. The dialect must have a template
// directory.
func New(dialect string, opts ...Option) (*Generator, error) {
	if dialect == "" {
		dialect = DefaultDialect
	}
	g := &Generator{
		fsys:    Embedded(),
		dialect: dialect,
		env:     "dev",
		logger:  slog.New(slog.DiscardHandler),
		cache:   make(map[string]*template.Template),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.pool = starctx.NewThreadPool(0, g.logger)
	if g.target == nil {
		g.target = &starctx.TargetInfo{Dialect: dialect}
	}

	info, err := fs.Stat(g.fsys, dialect)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("unsupported dialect %q: no template directory", dialect)
	}
	return g, nil
}

// Dialect returns the template set in use.
func (g *Generator) Dialect() string { return g.dialect }

// Plan returns the template names and output paths Render would produce.
func (g *Generator) Plan(t *model.Table) ([]Output, []string, error) {
	if !t.Kind.IsTyped() {
		return nil, nil, model.NewMetadataErrorf(t.FullName(), "untyped tables are not generated")
	}
	gt, err := GenerateTypeOf(t)
	if err != nil {
		return nil, nil, err
	}

	base := path.Join(t.Schema, t.Name)
	kind := t.Kind.String()
	switch gt {
	case GenerateTable:
		return []Output{{Path: base + "_t.sql"}, {Path: base + "_etl.sql"}},
			[]string{kind + "_table.sql", kind + "_etl.sql"}, nil
	case GenerateETL:
		return []Output{{Path: base + "_etl.sql"}}, []string{kind + "_etl.sql"}, nil
	default:
		return []Output{{Path: base + ".sql"}}, []string{kind + "_view.sql"}, nil
	}
}

// Check reports whether target can be generated: its roles are complete, it
// has a primary key, its mappings cover every column and, for a version
// pointer, its lineage path resolves.
func (g *Generator) Check(target *model.Table, m *mapping.Mappings) error {
	if err := target.Check(); err != nil {
		return err
	}
	if len(target.PK()) == 0 {
		return model.NewMetadataErrorf(target.FullName(), "%s has no primary key to generate", target.Kind)
	}
	if err := m.Check(target); err != nil {
		return err
	}
	if target.Kind == model.KindVersionPointer {
		if _, err := m.Path(target); err != nil {
			return err
		}
	}
	_, _, err := g.Plan(target)
	return err
}

// Render checks target against its mappings and renders its SQL files.
func (g *Generator) Render(target *model.Table, m *mapping.Mappings) ([]Output, error) {
	if err := g.Check(target, m); err != nil {
		return nil, err
	}

	outputs, names, err := g.Plan(target)
	if err != nil {
		return nil, err
	}

	config, err := starctx.ConfigDict(g.vars, target)
	if err != nil {
		return nil, err
	}
	ctx := starctx.NewExecutionContext(config, g.env, g.target,
		starctx.WithTable(target, m),
		starctx.WithMacroRegistry(g.macros),
		starctx.WithThreadPool(g.pool),
	)
	renderer := template.NewRenderer(ctx)

	for i, name := range names {
		tmpl, err := g.template(name)
		if err != nil {
			return nil, &template.TargetError{Target: target.FullName(), Template: name, Err: err}
		}
		sql, err := renderer.Render(tmpl)
		if err != nil {
			return nil, &template.TargetError{Target: target.FullName(), Template: name, Err: err}
		}
		outputs[i].SQL = sql
	}

	g.logger.Debug("rendered target", "target", target.FullName(), "files", len(outputs))
	return outputs, nil
}

// template returns the parsed template name of the dialect.
func (g *Generator) template(name string) (*template.Template, error) {
	file := path.Join(g.dialect, name)

	g.mu.Lock()
	defer g.mu.Unlock()
	if tmpl, ok := g.cache[file]; ok {
		return tmpl, nil
	}

	src, err := fs.ReadFile(g.fsys, file)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", file, err)
	}
	tmpl, err := template.ParseString(string(src), file, template.WithBlockTrimming())
	if err != nil {
		return nil, err
	}
	g.cache[file] = tmpl
	return tmpl, nil
}

// Templates lists the template files of the dialect.
func (g *Generator) Templates() ([]string, error) {
	entries, err := fs.ReadDir(g.fsys, g.dialect)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && path.Ext(e.Name()) == ".sql" {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
