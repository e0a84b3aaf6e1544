package starlark

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/vaultgen/internal/mapping"
	"github.com/leapstack-labs/vaultgen/internal/model"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// Table exposes a *model.Table to templates as target_table and as the
// elements of mappings.source_tables().
type Table struct {
	t *model.Table
}

var (
	_ starlark.HasAttrs   = (*Table)(nil)
	_ starlark.Comparable = (*Table)(nil)
	_ starlark.HasAttrs   = (*Column)(nil)
	_ starlark.Comparable = (*Column)(nil)
	_ starlark.HasAttrs   = (*Mappings)(nil)
)

// NewTable wraps t.
func NewTable(t *model.Table) *Table { return &Table{t: t} }

// Model returns the wrapped table.
func (v *Table) Model() *model.Table { return v.t }

func (v *Table) String() string        { return v.t.FullName() }
func (v *Table) Type() string          { return "table" }
func (v *Table) Freeze()               {}
func (v *Table) Truth() starlark.Bool  { return starlark.True }
func (v *Table) Hash() (uint32, error) { return starlark.String(v.t.FullName()).Hash() }

// CompareSameType compares tables by full name.
func (v *Table) CompareSameType(op syntax.Token, y starlark.Value, depth int) (bool, error) {
	return compareNames(op, v.t.FullName(), y.(*Table).t.FullName(), v.Type())
}

var tableAttrs = []string{
	"attributes", "business_keys", "column", "columns", "context_key", "context_load_dts",
	"foreign_keys", "full_name", "key", "keys", "kind", "load_dts", "metrics_key",
	"name", "pk", "properties", "property", "rec_src", "root_key", "schema", "uk",
}

// AttrNames lists the attributes available on a table.
func (v *Table) AttrNames() []string { return tableAttrs }

// Attr returns a table attribute. Roles that do not apply to the table kind
// are None or an empty list.
func (v *Table) Attr(name string) (starlark.Value, error) {
	t := v.t
	switch name {
	case "name":
		return starlark.String(t.Name), nil
	case "schema":
		return starlark.String(t.Schema), nil
	case "full_name":
		return starlark.String(t.FullName()), nil
	case "kind":
		return starlark.String(t.Kind.String()), nil
	case "columns":
		return columnList(t.Columns), nil
	case "properties":
		return propertiesDict(t), nil
	case "load_dts":
		return columnOrNone(t.LoadDts()), nil
	case "rec_src":
		return columnOrNone(t.RecSrc()), nil
	case "pk":
		return columnList(t.PK()), nil
	case "uk":
		return columnList(t.UK()), nil
	case "foreign_keys":
		return foreignKeyList(t.ForeignKeys()), nil

	case "key":
		switch {
		case t.Hub != nil:
			return columnOrNone(t.Hub.Key), nil
		case t.Link != nil:
			return columnOrNone(t.Link.RootKey), nil
		case t.Satellite != nil:
			return columnOrNone(t.Satellite.Key), nil
		}
		return starlark.None, nil
	case "business_keys":
		if t.Hub != nil {
			return columnList(t.Hub.BusinessKeys), nil
		}
		return starlark.NewList(nil), nil
	case "root_key":
		if t.Link != nil {
			return columnOrNone(t.Link.RootKey), nil
		}
		return starlark.None, nil
	case "keys":
		if t.Link != nil {
			return columnList(t.Link.Keys), nil
		}
		return starlark.NewList(nil), nil
	case "attributes":
		if t.Satellite != nil {
			return columnList(t.Satellite.Attributes), nil
		}
		return starlark.NewList(nil), nil
	case "metrics_key":
		if t.VersionPointer != nil {
			return columnOrNone(t.VersionPointer.MetricsKey), nil
		}
		return starlark.None, nil
	case "context_key":
		if t.VersionPointer != nil {
			return columnOrNone(t.VersionPointer.ContextKey), nil
		}
		return starlark.None, nil
	case "context_load_dts":
		if t.VersionPointer != nil {
			return columnOrNone(t.VersionPointer.ContextLoadDts), nil
		}
		return starlark.None, nil

	case "column":
		return starlark.NewBuiltin("column", v.column), nil
	case "property":
		return starlark.NewBuiltin("property", v.property), nil
	}
	return nil, nil
}

func (v *Table) column(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	c, ok := v.t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%s has no column %q", v.t.FullName(), name)
	}
	return NewColumn(c), nil
}

func (v *Table) property(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var def starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "key", &key, "default?", &def); err != nil {
		return nil, err
	}
	if val, ok := v.t.Property(key); ok {
		return starlark.String(val), nil
	}
	return def, nil
}

// Column exposes a *model.Column to templates.
type Column struct {
	c *model.Column
}

// NewColumn wraps c.
func NewColumn(c *model.Column) *Column { return &Column{c: c} }

// Model returns the wrapped column.
func (v *Column) Model() *model.Column { return v.c }

func (v *Column) String() string        { return v.c.Name }
func (v *Column) Type() string          { return "column" }
func (v *Column) Freeze()               {}
func (v *Column) Truth() starlark.Bool  { return starlark.True }
func (v *Column) Hash() (uint32, error) { return starlark.String(v.c.FullName()).Hash() }

// CompareSameType compares columns by full name.
func (v *Column) CompareSameType(op syntax.Token, y starlark.Value, depth int) (bool, error) {
	return compareNames(op, v.c.FullName(), y.(*Column).c.FullName(), v.Type())
}

// AttrNames lists the attributes available on a column.
func (v *Column) AttrNames() []string { return []string{"full_name", "name", "table", "type"} }

// Attr returns a column attribute.
func (v *Column) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(v.c.Name), nil
	case "type":
		return starlark.String(v.c.Type), nil
	case "full_name":
		return starlark.String(v.c.FullName()), nil
	case "table":
		return starlark.String(v.c.Owner().FullName()), nil
	}
	return nil, nil
}

// Mappings exposes the resolver to templates as the mappings global.
type Mappings struct {
	m *mapping.Mappings
}

// NewMappings wraps m.
func NewMappings(m *mapping.Mappings) *Mappings { return &Mappings{m: m} }

func (v *Mappings) String() string        { return "<mappings>" }
func (v *Mappings) Type() string          { return "mappings" }
func (v *Mappings) Freeze()               {}
func (v *Mappings) Truth() starlark.Bool  { return starlark.True }
func (v *Mappings) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: mappings") }

type builtinFunc func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)

func (v *Mappings) methods() map[string]builtinFunc {
	return map[string]builtinFunc{
		"source_tables":  v.sourceTables,
		"filter":         v.filter,
		"source_column":  v.sourceColumn,
		"source_columns": v.sourceColumns,
		"path":           v.path,
		"path_joins":     v.pathJoins,
	}
}

// AttrNames lists the resolver methods.
func (v *Mappings) AttrNames() []string {
	names := make([]string, 0, 6)
	for name := range v.methods() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attr returns a bound resolver method.
func (v *Mappings) Attr(name string) (starlark.Value, error) {
	fn, ok := v.methods()[name]
	if !ok {
		return nil, nil
	}
	return starlark.NewBuiltin(name, fn), nil
}

func (v *Mappings) sourceTables(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var target *Table
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "target", &target); err != nil {
		return nil, err
	}
	sources := v.m.SourceTables(target.t)
	elems := make([]starlark.Value, len(sources))
	for i, s := range sources {
		elems[i] = NewTable(s)
	}
	return starlark.NewList(elems), nil
}

func (v *Mappings) filter(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var source, target *Table
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "source", &source, "target", &target); err != nil {
		return nil, err
	}
	f, ok := v.m.Filter(source.t, target.t)
	if !ok {
		return starlark.None, nil
	}
	return starlark.String(f), nil
}

func (v *Mappings) sourceColumn(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var source *Table
	var target *Column
	var prefix string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "source", &source, "target", &target, "prefix?", &prefix); err != nil {
		return nil, err
	}
	expr, ok := v.m.SourceColumn(source.t, target.c, prefix)
	if !ok {
		return starlark.None, nil
	}
	return starlark.String(expr), nil
}

func (v *Mappings) sourceColumns(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var source *Table
	var target *Column
	var prefix string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "source", &source, "target", &target, "prefix?", &prefix); err != nil {
		return nil, err
	}
	exprs := v.m.SourceColumns(source.t, target.c, prefix)
	elems := make([]starlark.Value, len(exprs))
	for i, e := range exprs {
		elems[i] = starlark.String(e)
	}
	return starlark.NewList(elems), nil
}

func (v *Mappings) path(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var target *Table
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "target", &target); err != nil {
		return nil, err
	}
	path, err := v.m.Path(target.t)
	if err != nil {
		return nil, err
	}
	return columnList(path), nil
}

func (v *Mappings) pathJoins(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var target *Table
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "target", &target); err != nil {
		return nil, err
	}
	path, err := v.m.Path(target.t)
	if err != nil {
		return nil, err
	}
	joins, err := v.m.PathJoins(path)
	if err != nil {
		return nil, err
	}

	elems := make([]starlark.Value, len(joins))
	for i, j := range joins {
		elems[i] = starlarkstruct.FromStringDict(starlark.String("join"), starlark.StringDict{
			"alias":       starlark.String(j.Alias),
			"table":       NewTable(j.Table),
			"column":      starlark.String(j.Column),
			"last_column": starlark.String(j.LastColumn),
			"prev_alias":  starlark.String(j.PrevAlias),
			"prev_column": starlark.String(j.PrevColumn),
		})
	}
	return starlark.NewList(elems), nil
}

func columnOrNone(c *model.Column) starlark.Value {
	if c == nil {
		return starlark.None
	}
	return NewColumn(c)
}

func columnList(cols []*model.Column) *starlark.List {
	elems := make([]starlark.Value, len(cols))
	for i, c := range cols {
		elems[i] = NewColumn(c)
	}
	return starlark.NewList(elems)
}

func foreignKeyList(fks []model.ForeignKey) *starlark.List {
	elems := make([]starlark.Value, len(fks))
	for i, fk := range fks {
		elems[i] = starlarkstruct.FromStringDict(starlark.String("foreign_key"), starlark.StringDict{
			"table":           starlark.String(fk.Table.FullName()),
			"columns":         stringList(fk.Columns),
			"foreign_table":   starlark.String(fk.ForeignTable.FullName()),
			"foreign_columns": stringList(fk.ForeignColumns),
		})
	}
	return starlark.NewList(elems)
}

func stringList(ss []string) *starlark.List {
	elems := make([]starlark.Value, len(ss))
	for i, s := range ss {
		elems[i] = starlark.String(s)
	}
	return starlark.NewList(elems)
}

func compareNames(op syntax.Token, x, y, typ string) (bool, error) {
	switch op {
	case syntax.EQL:
		return x == y, nil
	case syntax.NEQ:
		return x != y, nil
	default:
		return false, fmt.Errorf("%s %s %s not implemented", typ, op, typ)
	}
}
