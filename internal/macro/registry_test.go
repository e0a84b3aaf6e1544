package macro

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func module(ns string, exports starlark.StringDict) *LoadedModule {
	return &LoadedModule{Namespace: ns, Path: "macros/" + ns + ".star", Exports: exports}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	hash := module("hash", starlark.StringDict{"key": starlark.String("fn")})
	require.NoError(t, r.Register(hash))

	assert.True(t, r.Has("hash"))
	assert.Same(t, hash, r.Get("hash"))
	assert.Nil(t, r.Get("sources"))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		ns      string
		wantErr string
	}{
		{"duplicate", "hash", `macro namespace "hash": already defined in macros/hash.star`},
		{"target table global", "target_table", `macro namespace "target_table": namespace is reserved`},
		{"mappings global", "mappings", `macro namespace "mappings": namespace is reserved`},
		{"loop variable", "loop", `macro namespace "loop": namespace is reserved`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			require.NoError(t, r.Register(module("hash", nil)))

			err := r.Register(&LoadedModule{Namespace: tt.ns, Path: "other/" + tt.ns + ".star"})
			require.EqualError(t, err, tt.wantErr)

			var regErr *RegistryError
			require.True(t, errors.As(err, &regErr))
			assert.Equal(t, tt.ns, regErr.Namespace)
		})
	}
}

func TestRegistry_RegisterAll(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterAll([]*LoadedModule{module("sources", nil), module("hash", nil), module("dates", nil)})
	require.NoError(t, err)
	assert.Equal(t, []string{"dates", "hash", "sources"}, r.Namespaces())

	r = NewRegistry()
	err = r.RegisterAll([]*LoadedModule{module("hash", nil), module("config", nil), module("dates", nil)})
	require.Error(t, err)
	assert.Equal(t, []string{"hash"}, r.Namespaces(), "registration stops at the first error")
}

func TestRegistry_ToStarlarkDict(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(module("sources", starlark.StringDict{
		"rec_src": starlark.String("fn"),
		"SYSTEMS": starlark.NewDict(0),
	})))

	dict := r.ToStarlarkDict()
	require.Len(t, dict, 1)
	mod, ok := dict["sources"].(starlark.HasAttrs)
	require.True(t, ok, "namespace is %T", dict["sources"])

	v, err := mod.Attr("rec_src")
	require.NoError(t, err)
	assert.Equal(t, starlark.String("fn"), v)

	names := mod.AttrNames()
	slices.Sort(names)
	assert.Equal(t, []string{"SYSTEMS", "rec_src"}, names)

	_, err = mod.Attr("nope")
	assert.EqualError(t, err, "module sources has no attribute nope")
}

func TestStarlarkModule_Value(t *testing.T) {
	mod := &starlarkModule{name: "hash", exports: starlark.StringDict{"SEP": starlark.NewList(nil)}}

	assert.Equal(t, "<module hash>", mod.String())
	assert.Equal(t, "module", mod.Type())
	assert.Equal(t, starlark.True, mod.Truth())
	_, err := mod.Hash()
	assert.Error(t, err)

	mod.Freeze()
	err = mod.exports["SEP"].(*starlark.List).Append(starlark.String("|"))
	assert.Error(t, err, "freezing the namespace freezes its exports")
}

func TestLoadAndRegister(t *testing.T) {
	r, err := LoadAndRegister(writeMacros(t, map[string]string{"hash.star": hashMacros, "sources.star": recSrcMacros}))
	require.NoError(t, err)
	assert.Equal(t, []string{"hash", "sources"}, r.Namespaces())

	r, err = LoadAndRegister("/nonexistent/macros")
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())

	_, err = LoadAndRegister(writeMacros(t, map[string]string{"env.star": "X = 1\n"}))
	assert.EqualError(t, err, `macro namespace "env": namespace is reserved`)
}
