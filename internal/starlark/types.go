// Package starlark provides the Starlark execution context and the values
// templates see: the target table, its columns and the mapping resolver.
package starlark

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// TargetInfo describes the warehouse the SQL is generated for. Templates see
// it as the target global.
type TargetInfo struct {
	Dialect  string // template set, e.g. "standard"
	Schema   string
	Database string
}

// ToStarlark converts TargetInfo to a Starlark struct value.
func (t *TargetInfo) ToStarlark() starlark.Value {
	return starlarkstruct.FromStringDict(starlark.String("target"), starlark.StringDict{
		"dialect":  starlark.String(t.Dialect),
		"schema":   starlark.String(t.Schema),
		"database": starlark.String(t.Database),
	})
}

// fromGo converts a project variable as decoded from vaultgen.yaml or the
// environment. Maps become dicts with sorted keys, so SQL rendered from a
// dict does not depend on map order, and YAML timestamps become ISO 8601
// strings. path names the variable in errors, e.g. vars.windows[1].
func fromGo(path string, v any) (starlark.Value, error) {
	switch v := v.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(v), nil
	case bool:
		return starlark.Bool(v), nil
	case int:
		return starlark.MakeInt(v), nil
	case int64:
		return starlark.MakeInt64(v), nil
	case uint64:
		return starlark.MakeUint64(v), nil
	case float64:
		return starlark.Float(v), nil
	case time.Time:
		return starlark.String(isoTime(v)), nil

	case []string:
		elems := make([]starlark.Value, len(v))
		for i, s := range v {
			elems[i] = starlark.String(s)
		}
		return starlark.NewList(elems), nil

	case []any:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			sv, err := fromGo(fmt.Sprintf("%s[%d]", path, i), e)
			if err != nil {
				return nil, err
			}
			elems[i] = sv
		}
		return starlark.NewList(elems), nil

	case map[string]any:
		dict := starlark.NewDict(len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			sv, err := fromGo(path+"."+k, v[k])
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil

	default:
		return nil, fmt.Errorf("%s: unsupported value of type %T", path, v)
	}
}

// isoTime formats t as a date when it has no time of day.
func isoTime(t time.Time) string {
	if h, m, s := t.Clock(); h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}
