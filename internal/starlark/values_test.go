package starlark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/vaultgen/internal/mapping"
	"github.com/leapstack-labs/vaultgen/internal/model"
)

func typedTable(t *testing.T, schema, name string, props map[string]string, columns ...string) *model.Table {
	t.Helper()
	defs := make([]model.ColumnDef, len(columns))
	for i, c := range columns {
		defs[i] = model.ColumnDef{Name: c, Type: "text"}
	}
	tbl, err := model.NewTable(schema, name, defs, props)
	require.NoError(t, err)
	return model.Classify(tbl)
}

func hubContext(t *testing.T) *ExecutionContext {
	hub := typedTable(t, "db", "customer_h", map[string]string{"generate_type": "table"},
		"customer_key", "ssn", "load_dts", "rec_src")
	tm := mapping.TableMappings{
		{SourceSchema: "db", SourceTable: "customers", SourceFilter: "ssn <> ''", TargetSchema: "db", TargetTable: "customer_h"},
	}
	cm := mapping.ColumnMappings{
		{SrcSchema: "db", SrcTable: "customers", SrcColumn: "ssn", TgtSchema: "db", TgtTable: "customer_h", TgtColumn: "customer_key"},
		{SrcSchema: "db", SrcTable: "customers", SrcColumn: "ssn", TgtSchema: "db", TgtTable: "customer_h", TgtColumn: "ssn"},
		{SrcSchema: "db", SrcTable: "customers", SrcColumn: "load_dts", TgtSchema: "db", TgtTable: "customer_h", TgtColumn: "load_dts"},
		{SrcSchema: "db", SrcTable: "customers", Transformation: "'db'", TgtSchema: "db", TgtTable: "customer_h", TgtColumn: "rec_src"},
	}
	m, err := mapping.New(tm, cm, mapping.WithTables(hub), mapping.WithSynthesizedSources())
	require.NoError(t, err)

	return NewExecutionContext(nil, "dev", &TargetInfo{Dialect: "standard"}, WithTable(hub, m))
}

func TestTableValue_Attributes(t *testing.T) {
	ctx := hubContext(t)

	tests := []struct {
		expr string
		want string
	}{
		{`target_table`, "db.customer_h"},
		{`target_table.name`, "customer_h"},
		{`target_table.schema`, "db"},
		{`target_table.kind`, "hub"},
		{`target_table.key`, "customer_key"},
		{`target_table.key.full_name`, "db.customer_h.customer_key"},
		{`target_table.key.type`, "text"},
		{`target_table.key.table`, "db.customer_h"},
		{`", ".join([c.name for c in target_table.columns])`, "customer_key, ssn, load_dts, rec_src"},
		{`", ".join([c.name for c in target_table.business_keys])`, "ssn"},
		{`", ".join([c.name for c in target_table.pk])`, "customer_key"},
		{`", ".join([c.name for c in target_table.uk])`, "ssn"},
		{`target_table.load_dts.name`, "load_dts"},
		{`str(target_table.metrics_key)`, "None"},
		{`str(len(target_table.attributes))`, "0"},
		{`target_table.property("generate_type")`, "table"},
		{`target_table.property("missing", "view")`, "view"},
		{`target_table.column("SSN").name`, "ssn"},
		{`str(target_table.key == target_table.column("customer_key"))`, "True"},
		{`str(target_table.key != target_table.load_dts)`, "True"},
		{`config["generate_type"]`, "table"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ctx.EvalString(tt.expr, "test.sql", 1, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableValue_UnknownColumn(t *testing.T) {
	ctx := hubContext(t)

	_, err := ctx.EvalString(`target_table.column("nope")`, "test.sql", 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `db.customer_h has no column "nope"`)

	_, err = ctx.EvalString(`target_table.no_such_attr`, "test.sql", 1, nil)
	assert.Error(t, err)
}

func TestMappingsValue(t *testing.T) {
	ctx := hubContext(t)

	tests := []struct {
		expr string
		want string
	}{
		{`str(len(mappings.source_tables(target_table)))`, "1"},
		{`mappings.source_tables(target_table)[0].full_name`, "db.customers"},
		{`mappings.filter(mappings.source_tables(target_table)[0], target_table)`, "ssn <> ''"},
		{`str(mappings.filter(target_table, target_table))`, "None"},
		{`mappings.source_column(mappings.source_tables(target_table)[0], target_table.key)`, "ssn"},
		{`mappings.source_column(mappings.source_tables(target_table)[0], target_table.key, prefix="s")`, "s.ssn"},
		{`mappings.source_column(mappings.source_tables(target_table)[0], target_table.rec_src)`, "'db'"},
		{`str(mappings.source_columns(mappings.source_tables(target_table)[0], target_table.key))`, `["ssn"]`},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ctx.EvalString(tt.expr, "test.sql", 1, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMappingsValue_PathRequiresVersionPointer(t *testing.T) {
	ctx := hubContext(t)

	_, err := ctx.Eval(`mappings.path(target_table)`, "test.sql", 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only defined for version pointers")
}

func TestValues_Hashable(t *testing.T) {
	ctx := hubContext(t)

	v, err := ctx.Eval(`{target_table: 1, target_table.key: 2}`, "test.sql", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, v.(*starlark.Dict).Len())

	_, err = ctx.Eval(`{mappings: 1}`, "test.sql", 1, nil)
	assert.Error(t, err)
}
