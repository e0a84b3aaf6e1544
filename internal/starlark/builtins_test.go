package starlark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/vaultgen/internal/model"
)

func TestConfigDict(t *testing.T) {
	tbl := model.MustNewTable("dv", "customer_h", []model.ColumnDef{
		{Name: "customer_key", Type: "text"},
		{Name: "#generate_type", Type: "table"},
	}, nil)

	dict, err := ConfigDict(map[string]any{
		"generate_type": "view",
		"owner":         "data-team",
		"tags":          []string{"finance"},
	}, tbl)
	require.NoError(t, err)

	// Table properties override project variables.
	v, found, _ := dict.Get(starlark.String("generate_type"))
	require.True(t, found)
	assert.Equal(t, starlark.String("table"), v)

	v, found, _ = dict.Get(starlark.String("owner"))
	require.True(t, found)
	assert.Equal(t, starlark.String("data-team"), v)

	v, found, _ = dict.Get(starlark.String("tags"))
	require.True(t, found)
	assert.Equal(t, 1, v.(*starlark.List).Len())
}

func TestConfigDict_Empty(t *testing.T) {
	dict, err := ConfigDict(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, dict.Len(), "expected empty dict")
}

func TestConfigDict_UnsupportedVar(t *testing.T) {
	_, err := ConfigDict(map[string]any{
		"windows": []any{"7d", map[string]any{"size": struct{}{}}},
	}, nil)
	assert.EqualError(t, err, "vars.windows[1].size: unsupported value of type struct {}")
}

func TestConfigDict_SortedVars(t *testing.T) {
	dict, err := ConfigDict(map[string]any{"zone": "eu", "app": "crm", "load": 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"app": "crm", "load": 2, "zone": "eu"}`, dict.String())
}

func TestPredeclared(t *testing.T) {
	config := starlark.NewDict(1)
	_ = config.SetKey(starlark.String("name"), starlark.String("test"))

	target := &TargetInfo{
		Dialect:  "standard",
		Schema:   "dv",
		Database: "warehouse",
	}

	globals := Predeclared(config, "dev", target)

	_, ok := globals["config"]
	assert.True(t, ok, "config not found in globals")

	envVal, ok := globals["env"]
	assert.True(t, ok, "env not found in globals")
	assert.Equal(t, `"dev"`, envVal.String(), "env value")

	_, ok = globals["target"]
	assert.True(t, ok, "target not found in globals")
}

func TestPredeclared_NilTarget(t *testing.T) {
	globals := Predeclared(starlark.NewDict(0), "prod", nil)

	_, ok := globals["config"]
	assert.True(t, ok, "config not found in globals")
	_, ok = globals["env"]
	assert.True(t, ok, "env not found in globals")

	_, ok = globals["target"]
	assert.False(t, ok, "target should not be in globals when nil")
}
