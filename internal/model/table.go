package model

import (
	"sort"
	"strings"
)

// Audit column names shared by every Data Vault table.
const (
	LoadDtsColumn = "load_dts"
	RecSrcColumn  = "rec_src"
	BatchIDColumn = "batch_id"
)

// propertyPrefix marks metadata rows that carry table properties instead of columns.
const propertyPrefix = "#"

// Table is an ordered set of columns with a schema-qualified name and free-form
// properties. The role fields are populated by Classify according to Kind.
type Table struct {
	Schema     string
	Name       string
	Columns    []*Column
	Properties map[string]string

	Kind           Kind
	Hub            *HubRoles
	Link           *LinkRoles
	Satellite      *SatelliteRoles
	VersionPointer *VersionPointerRoles

	// Warnings holds soft anomalies found during classification.
	Warnings []*MetadataWarning

	index map[string]*Column
}

// NewTable builds an untyped table. Column names are lower-cased; rows whose
// name starts with "#" become properties keyed by the lower-cased remainder
// with the row's type as value. Entries in overrides win over such rows.
func NewTable(schema, name string, defs []ColumnDef, overrides map[string]string) (*Table, error) {
	t := &Table{
		Schema:     schema,
		Name:       name,
		Properties: make(map[string]string),
		index:      make(map[string]*Column, len(defs)),
	}
	ref := t.Ref()

	for _, def := range defs {
		colName := strings.ToLower(strings.TrimSpace(def.Name))
		if strings.HasPrefix(colName, propertyPrefix) {
			t.Properties[strings.TrimPrefix(colName, propertyPrefix)] = def.Type
			continue
		}
		if colName == "" {
			return nil, NewMetadataErrorf(ref.FullName(), "empty column name")
		}
		if _, dup := t.index[colName]; dup {
			return nil, NewMetadataErrorf(ref.FullName(), "duplicate column %q", colName)
		}
		col := &Column{Name: colName, Type: def.Type, owner: ref}
		t.Columns = append(t.Columns, col)
		t.index[colName] = col
	}

	for k, v := range overrides {
		t.Properties[strings.ToLower(strings.TrimPrefix(k, propertyPrefix))] = v
	}

	return t, nil
}

// MustNewTable is like NewTable but panics on error. Intended for fixtures.
func MustNewTable(schema, name string, defs []ColumnDef, overrides map[string]string) *Table {
	t, err := NewTable(schema, name, defs, overrides)
	if err != nil {
		panic(err)
	}
	return t
}

// Ref returns the table's reference.
func (t *Table) Ref() TableRef { return TableRef{Schema: t.Schema, Name: t.Name} }

// FullName returns "schema.name".
func (t *Table) FullName() string { return t.Ref().FullName() }

// Column looks up a column by (case-insensitive) name.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.index[strings.ToLower(name)]
	return c, ok
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Property returns the table property with the given key.
func (t *Table) Property(key string) (string, bool) {
	v, ok := t.Properties[key]
	return v, ok
}

// PropertyKeys returns the property keys in sorted order.
func (t *Table) PropertyKeys() []string {
	keys := make([]string, 0, len(t.Properties))
	for k := range t.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadDts returns the load_dts column, or nil.
func (t *Table) LoadDts() *Column {
	c, _ := t.Column(LoadDtsColumn)
	return c
}

// RecSrc returns the rec_src column, or nil.
func (t *Table) RecSrc() *Column {
	c, _ := t.Column(RecSrcColumn)
	return c
}

func (t *Table) String() string {
	parts := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		parts[i] = c.String()
	}
	return t.FullName() + "(" + strings.Join(parts, ", ") + ")"
}

// columnsExcept returns the columns whose names are not in skip, in order.
func (t *Table) columnsExcept(skip ...string) []*Column {
	var out []*Column
	for _, c := range t.Columns {
		excluded := false
		for _, s := range skip {
			if c.Name == s {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, c)
		}
	}
	return out
}

// columnsWithSuffix returns the columns whose names end in suffix, in order.
func (t *Table) columnsWithSuffix(suffix string) []*Column {
	var out []*Column
	for _, c := range t.Columns {
		if strings.HasSuffix(c.Name, suffix) {
			out = append(out, c)
		}
	}
	return out
}
