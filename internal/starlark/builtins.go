package starlark

import (
	"maps"
	"slices"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/vaultgen/internal/model"
)

// Predeclared returns the config, env and target globals. target is left
// out when nil. target_table, mappings and the macro namespaces are added by
// the ExecutionContext.
func Predeclared(config starlark.Value, env string, target *TargetInfo) starlark.StringDict {
	globals := starlark.StringDict{
		"config": config,
		"env":    starlark.String(env),
	}
	if target != nil {
		globals["target"] = target.ToStarlark()
	}
	return globals
}

// ConfigDict builds the config global: project vars overlaid with the
// properties of t, so a table can override a project default such as
// generate_type. Either may be nil. Property values are strings.
func ConfigDict(vars map[string]any, t *model.Table) (*starlark.Dict, error) {
	dict := starlark.NewDict(len(vars))
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		v, err := fromGo("vars."+k, vars[k])
		if err != nil {
			return nil, err
		}
		if err := dict.SetKey(starlark.String(k), v); err != nil {
			return nil, err
		}
	}
	if t == nil {
		return dict, nil
	}
	for _, k := range t.PropertyKeys() {
		v, _ := t.Property(k)
		if err := dict.SetKey(starlark.String(k), starlark.String(v)); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

// propertiesDict is the config dict of t without project vars.
func propertiesDict(t *model.Table) *starlark.Dict {
	dict, _ := ConfigDict(nil, t) // only vars can fail
	return dict
}
