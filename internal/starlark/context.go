package starlark

import (
	"errors"
	"fmt"
	"maps"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/vaultgen/internal/macro"
	"github.com/leapstack-labs/vaultgen/internal/mapping"
	"github.com/leapstack-labs/vaultgen/internal/model"
)

// exprOptions is the Starlark dialect of template expressions.
var exprOptions = &syntax.FileOptions{Set: true}

// sharedPool serves contexts built without WithThreadPool.
var sharedPool = NewThreadPool(0, nil)

// ExecutionContext holds the globals the templates of one target table are
// evaluated with:
//
//	config        project vars overlaid with the table properties
//	env           environment name, e.g. "dev"
//	target        the warehouse (dialect, schema, database)
//	target_table  the table being generated
//	mappings      resolver for the sources of target_table
//
// and one global per macro namespace. A context does not change once built
// and may be evaluated from several goroutines.
type ExecutionContext struct {
	table    *model.Table
	mappings *mapping.Mappings
	macros   starlark.StringDict
	pool     *ThreadPool
	globals  starlark.StringDict
}

// ContextOption configures an ExecutionContext.
type ContextOption func(*ExecutionContext)

// WithTable exposes t as target_table and m as mappings. Either may be nil.
func WithTable(t *model.Table, m *mapping.Mappings) ContextOption {
	return func(ctx *ExecutionContext) {
		ctx.table = t
		ctx.mappings = m
	}
}

// WithMacros adds macro namespaces. A builtin global wins over a namespace of
// the same name; the macro registry rejects such namespaces at load time.
func WithMacros(macros starlark.StringDict) ContextOption {
	return func(ctx *ExecutionContext) {
		if ctx.macros == nil {
			ctx.macros = make(starlark.StringDict, len(macros))
		}
		maps.Copy(ctx.macros, macros)
	}
}

// WithMacroRegistry adds every namespace of r. A nil registry adds none.
func WithMacroRegistry(r *macro.Registry) ContextOption {
	return func(ctx *ExecutionContext) {
		if r != nil {
			WithMacros(r.ToStarlarkDict())(ctx)
		}
	}
}

// WithThreadPool evaluates on threads from pool.
func WithThreadPool(pool *ThreadPool) ContextOption {
	return func(ctx *ExecutionContext) {
		if pool != nil {
			ctx.pool = pool
		}
	}
}

// NewExecutionContext builds the globals of a context. A nil config is built
// from the properties of the target table alone.
func NewExecutionContext(config starlark.Value, env string, target *TargetInfo, opts ...ContextOption) *ExecutionContext {
	ctx := &ExecutionContext{pool: sharedPool}
	for _, opt := range opts {
		opt(ctx)
	}
	if config == nil {
		config = propertiesDict(ctx.table)
	}

	globals := make(starlark.StringDict, len(ctx.macros)+5)
	maps.Copy(globals, ctx.macros)
	maps.Copy(globals, Predeclared(config, env, target))
	if ctx.table != nil {
		globals["target_table"] = NewTable(ctx.table)
	}
	if ctx.mappings != nil {
		globals["mappings"] = NewMappings(ctx.mappings)
	}
	ctx.globals = globals
	return ctx
}

// Globals returns the globals templates see. The dict must not be modified.
func (ctx *ExecutionContext) Globals() starlark.StringDict {
	return ctx.globals
}

// Eval evaluates the expression of a template tag. locals, such as loop
// variables, shadow globals. file and line locate the tag for errors.
func (ctx *ExecutionContext) Eval(expr, file string, line int, locals starlark.StringDict) (starlark.Value, error) {
	env := ctx.globals
	if len(locals) > 0 {
		env = make(starlark.StringDict, len(ctx.globals)+len(locals))
		maps.Copy(env, ctx.globals)
		maps.Copy(env, locals)
	}

	thread := ctx.pool.Get(file)
	defer ctx.pool.Put(thread)

	v, err := starlark.EvalOptions(exprOptions, thread, file, expr, env)
	if err != nil {
		return nil, newEvalError(file, line, expr, err)
	}
	return v, nil
}

// EvalString evaluates expr and formats the value for SQL text: strings are
// written unquoted, None as nothing, anything else as Starlark prints it.
func (ctx *ExecutionContext) EvalString(expr, file string, line int, locals starlark.StringDict) (string, error) {
	v, err := ctx.Eval(expr, file, line, locals)
	if err != nil {
		return "", err
	}
	switch v := v.(type) {
	case starlark.String:
		return string(v), nil
	case starlark.NoneType:
		return "", nil
	default:
		return v.String(), nil
	}
}

// EvalError is a template expression that failed to evaluate.
type EvalError struct {
	File    string
	Line    int
	Expr    string
	Message string // without the Starlark position, which is relative to Expr
	Err     error
}

func newEvalError(file string, line int, expr string, err error) *EvalError {
	e := &EvalError{File: file, Line: line, Expr: expr, Message: err.Error(), Err: err}

	var (
		evalErr    *starlark.EvalError
		syntaxErr  syntax.Error
		resolveErr resolve.ErrorList
	)
	switch {
	case errors.As(err, &evalErr):
		e.Message = evalErr.Msg
	case errors.As(err, &syntaxErr):
		e.Message = syntaxErr.Msg
	case errors.As(err, &resolveErr):
		e.Message = resolveErr[0].Msg
	}
	return e
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s:%d: %q: %s", e.File, e.Line, e.Expr, e.Message)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}
