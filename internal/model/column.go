// Package model holds the Data Vault table model: columns, tables, the
// suffix-based classification into hubs, links, satellites and version
// pointers, and the schema-wide reference graph built from derived foreign keys.
package model

import (
	"fmt"
	"strings"
)

// TableRef identifies a table by schema and name.
type TableRef struct {
	Schema string
	Name   string
}

// FullName returns "schema.name".
func (r TableRef) FullName() string {
	return r.Schema + "." + r.Name
}

func (r TableRef) String() string { return r.FullName() }

// ParseTableRef splits "schema.name". A name without a dot has an empty schema.
func ParseTableRef(fullName string) TableRef {
	if i := strings.IndexByte(fullName, '.'); i >= 0 {
		return TableRef{Schema: fullName[:i], Name: fullName[i+1:]}
	}
	return TableRef{Name: fullName}
}

// ColumnDef is the raw (name, type) pair handed over by a metadata loader.
type ColumnDef struct {
	Name string
	Type string
}

// Column is a named, typed column owned by exactly one table.
type Column struct {
	Name string // lower-cased
	Type string

	owner TableRef // set once by NewTable
}

// Owner returns the table that contains the column.
func (c *Column) Owner() TableRef { return c.owner }

// FullName returns "schema.table.column".
func (c *Column) FullName() string {
	return c.owner.FullName() + "." + c.Name
}

// Equal reports structural equality on name and type.
func (c *Column) Equal(other *Column) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Name == other.Name && c.Type == other.Type
}

func (c *Column) String() string {
	return fmt.Sprintf("%s: %s", c.Name, c.Type)
}

// ColumnNames returns the names of the given columns in order.
func ColumnNames(cols []*Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
