package starlark

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/vaultgen/internal/macro"
)

func TestNewExecutionContext_Globals(t *testing.T) {
	ctx := hubContext(t)

	names := make([]string, 0, len(ctx.Globals()))
	for name := range ctx.Globals() {
		names = append(names, name)
	}
	slices.Sort(names)
	assert.Equal(t, []string{"config", "env", "mappings", "target", "target_table"}, names)

	bare := NewExecutionContext(starlark.NewDict(0), "dev", nil)
	assert.Len(t, bare.Globals(), 2, "only config and env without a table or target")
}

func TestNewExecutionContext_ConfigFromProperties(t *testing.T) {
	tbl := typedTable(t, "dv", "customer_h", map[string]string{"generate_type": "etl"}, "customer_key", "id")
	ctx := NewExecutionContext(nil, "dev", nil, WithTable(tbl, nil))

	got, err := ctx.EvalString(`config["generate_type"]`, "hub_view.sql", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "etl", got)

	_, hasMappings := ctx.Globals()["mappings"]
	assert.False(t, hasMappings, "mappings without a resolver")
}

func TestExecutionContext_EvalString(t *testing.T) {
	ctx := hubContext(t)

	tests := []struct {
		name string
		expr string
		want string
	}{
		{"string unquoted", `target_table.name + "_v"`, "customer_h_v"},
		{"none is empty", `None`, ""},
		{"int", `len(target_table.columns)`, "4"},
		{"list as starlark", `[c.name for c in target_table.pk]`, `["customer_key"]`},
		{"conditional", `"CREATE TABLE" if config["generate_type"] == "table" else "CREATE VIEW"`, "CREATE TABLE"},
		{"target", `target.dialect`, "standard"},
		{"env", `env`, "dev"},
		{"set builtin", `str(len(set(["ssn", "ssn"])))`, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ctx.EvalString(tt.expr, "hub_view.sql", 1, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecutionContext_LocalsShadowGlobals(t *testing.T) {
	ctx := hubContext(t)

	locals := starlark.StringDict{"env": starlark.String("prod"), "alias": starlark.String("p0")}
	got, err := ctx.EvalString(`alias + "." + env`, "satellite_view.sql", 3, locals)
	require.NoError(t, err)
	assert.Equal(t, "p0.prod", got)

	got, err = ctx.EvalString(`env`, "satellite_view.sql", 4, nil)
	require.NoError(t, err)
	assert.Equal(t, "dev", got, "locals do not leak into globals")
}

func TestExecutionContext_BuiltinsWinOverMacros(t *testing.T) {
	ctx := NewExecutionContext(starlark.NewDict(0), "dev", nil, WithMacros(starlark.StringDict{
		"env":  starlark.String("macro"),
		"hash": starlark.String("hash module"),
	}))

	got, err := ctx.EvalString(`env + "/" + hash`, "hub_view.sql", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "dev/hash module", got)
}

func TestExecutionContext_MacroRegistry(t *testing.T) {
	src := `
def key(cols):
    return "md5(" + " || '|' || ".join(cols) + ")"
`
	exports, err := starlark.ExecFileOptions(&syntax.FileOptions{}, &starlark.Thread{}, "hash.star", src, nil)
	require.NoError(t, err)

	registry := macro.NewRegistry()
	require.NoError(t, registry.Register(&macro.LoadedModule{Namespace: "hash", Path: "macros/hash.star", Exports: exports}))

	ctx := NewExecutionContext(starlark.NewDict(0), "dev", nil, WithMacroRegistry(registry))
	got, err := ctx.EvalString(`hash.key(["ssn", "country"])`, "hub_view.sql", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "md5(ssn || '|' || country)", got)

	ctx = NewExecutionContext(starlark.NewDict(0), "dev", nil, WithMacroRegistry(nil))
	assert.Len(t, ctx.Globals(), 2)
}

func TestExecutionContext_EvalError(t *testing.T) {
	ctx := hubContext(t)

	_, err := ctx.Eval(`fail("no key for " + target_table.name)`, "hub_view.sql", 7, nil)
	require.Error(t, err)

	var evalErr *EvalError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, "hub_view.sql", evalErr.File)
	assert.Equal(t, 7, evalErr.Line)
	assert.Contains(t, evalErr.Message, "no key for customer_h")
	assert.NotContains(t, evalErr.Message, "hub_view.sql:1:", "the expression-relative position is dropped")

	var starErr *starlark.EvalError
	assert.True(t, errors.As(err, &starErr), "the Starlark error is kept as the cause")
}

func TestExecutionContext_SyntaxError(t *testing.T) {
	_, err := hubContext(t).Eval(`target_table.`, "hub_view.sql", 2, nil)

	var evalErr *EvalError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, 2, evalErr.Line)
}

func TestEvalError_Error(t *testing.T) {
	err := &EvalError{File: "standard/hub_view.sql", Line: 10, Expr: "key.nme", Message: "struct has no .nme attribute"}
	assert.EqualError(t, err, `standard/hub_view.sql:10: "key.nme": struct has no .nme attribute`)
}
