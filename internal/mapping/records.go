// Package mapping resolves how target table columns are populated from source
// tables. It holds the flat table/column mapping records, a resolver that binds
// them to typed tables, completeness checks, and the version-pointer path walk.
package mapping

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/vaultgen/internal/model"
)

// TableMapping declares that a source table feeds a target table.
type TableMapping struct {
	SourceSchema string `json:"source_schema"`
	SourceTable  string `json:"source_table"`
	SourceFilter string `json:"source_filter"`
	TargetSchema string `json:"target_schema"`
	TargetTable  string `json:"target_table"`
}

// Source returns the source table reference.
func (m TableMapping) Source() model.TableRef {
	return model.TableRef{Schema: m.SourceSchema, Name: m.SourceTable}
}

// Target returns the target table reference.
func (m TableMapping) Target() model.TableRef {
	return model.TableRef{Schema: m.TargetSchema, Name: m.TargetTable}
}

// TableMappings is a queryable list of table mappings.
type TableMappings []TableMapping

// FromTable returns the mappings whose source is schema.table.
func (ms TableMappings) FromTable(schema, table string) TableMappings {
	var out TableMappings
	for _, m := range ms {
		if m.SourceSchema == schema && m.SourceTable == table {
			out = append(out, m)
		}
	}
	return out
}

// ToTable returns the mappings whose target is schema.table.
func (ms TableMappings) ToTable(schema, table string) TableMappings {
	var out TableMappings
	for _, m := range ms {
		if m.TargetSchema == schema && m.TargetTable == table {
			out = append(out, m)
		}
	}
	return out
}

// ColumnMapping declares that one or more source columns, optionally passed
// through a transformation, populate a target column. SrcColumn may list
// several columns separated by "," or ";"; the transformation refers to them
// as $1, $2, ...
type ColumnMapping struct {
	SrcSchema      string `json:"src_schema"`
	SrcTable       string `json:"src_table"`
	SrcColumn      string `json:"src_column"`
	Transformation string `json:"transformation"`
	TgtSchema      string `json:"tgt_schema"`
	TgtTable       string `json:"tgt_table"`
	TgtColumn      string `json:"tgt_column"`
}

// Source returns the source table reference.
func (m ColumnMapping) Source() model.TableRef {
	return model.TableRef{Schema: m.SrcSchema, Name: m.SrcTable}
}

// Target returns the target table reference.
func (m ColumnMapping) Target() model.TableRef {
	return model.TableRef{Schema: m.TgtSchema, Name: m.TgtTable}
}

// SourceColumnNames splits SrcColumn into its column names.
func (m ColumnMapping) SourceColumnNames() []string {
	return splitColumns(m.SrcColumn)
}

// ColumnMappings is a queryable list of column mappings.
type ColumnMappings []ColumnMapping

// FromTable returns the mappings whose source is schema.table.
func (ms ColumnMappings) FromTable(schema, table string) ColumnMappings {
	var out ColumnMappings
	for _, m := range ms {
		if m.SrcSchema == schema && m.SrcTable == table {
			out = append(out, m)
		}
	}
	return out
}

// ToTable returns the mappings whose target is schema.table.
func (ms ColumnMappings) ToTable(schema, table string) ColumnMappings {
	var out ColumnMappings
	for _, m := range ms {
		if m.TgtSchema == schema && m.TgtTable == table {
			out = append(out, m)
		}
	}
	return out
}

// FromColumn returns the mappings whose raw source column is schema.table.column.
func (ms ColumnMappings) FromColumn(schema, table, column string) ColumnMappings {
	var out ColumnMappings
	for _, m := range ms {
		if m.SrcSchema == schema && m.SrcTable == table && strings.EqualFold(m.SrcColumn, column) {
			out = append(out, m)
		}
	}
	return out
}

// ToColumn returns the mappings whose target is schema.table.column.
func (ms ColumnMappings) ToColumn(schema, table, column string) ColumnMappings {
	var out ColumnMappings
	for _, m := range ms {
		if m.TgtSchema == schema && m.TgtTable == table && strings.EqualFold(m.TgtColumn, column) {
			out = append(out, m)
		}
	}
	return out
}

// SourceTables synthesizes one classified table per distinct source
// (schema, table) with the referenced source columns as untyped columns.
func (ms ColumnMappings) SourceTables() []*model.Table {
	return synthesize(ms, func(m ColumnMapping) (model.TableRef, []string) {
		return m.Source(), m.SourceColumnNames()
	})
}

// TargetTables synthesizes one classified table per distinct target
// (schema, table) with the mapped target columns.
func (ms ColumnMappings) TargetTables() []*model.Table {
	return synthesize(ms, func(m ColumnMapping) (model.TableRef, []string) {
		return m.Target(), splitColumns(m.TgtColumn)
	})
}

func synthesize(ms ColumnMappings, side func(ColumnMapping) (model.TableRef, []string)) []*model.Table {
	columns := make(map[model.TableRef]map[string]struct{})
	for _, m := range ms {
		ref, names := side(m)
		set, ok := columns[ref]
		if !ok {
			set = make(map[string]struct{})
			columns[ref] = set
		}
		for _, n := range names {
			set[strings.ToLower(n)] = struct{}{}
		}
	}

	refs := make([]model.TableRef, 0, len(columns))
	for ref := range columns {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].FullName() < refs[j].FullName() })

	tables := make([]*model.Table, 0, len(refs))
	for _, ref := range refs {
		names := make([]string, 0, len(columns[ref]))
		for n := range columns[ref] {
			names = append(names, n)
		}
		sort.Strings(names)

		defs := make([]model.ColumnDef, len(names))
		for i, n := range names {
			defs[i] = model.ColumnDef{Name: n}
		}
		t, err := model.NewTable(ref.Schema, ref.Name, defs, nil)
		if err != nil {
			continue
		}
		tables = append(tables, model.Classify(t))
	}
	return tables
}

// splitColumns splits a "," or ";" separated column list, dropping blanks.
func splitColumns(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
