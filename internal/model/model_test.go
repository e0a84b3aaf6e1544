package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cols(pairs ...string) []ColumnDef {
	defs := make([]ColumnDef, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		defs = append(defs, ColumnDef{Name: pairs[i], Type: pairs[i+1]})
	}
	return defs
}

func typed(t *testing.T, name string, defs []ColumnDef) *Table {
	t.Helper()
	tbl, err := NewTable("dv", name, defs, nil)
	require.NoError(t, err)
	return Classify(tbl)
}

func exampleHub(t *testing.T, n string) *Table {
	return typed(t, "example"+n+"_h", cols(
		"example"+n+"_key", "text",
		"example_id1", "text",
		"example_id2", "numeric",
		"load_dts", "numeric",
		"rec_src", "text",
	))
}

func exampleLink(t *testing.T, a, b string) *Table {
	return typed(t, "example_"+a+"_"+b+"_l", cols(
		"example_"+a+"_"+b+"_l_key", "text",
		"example"+a+"_key", "text",
		"example"+b+"_key", "text",
		"load_dts", "numeric",
		"rec_src", "text",
	))
}

func exampleSatellite(t *testing.T, n string) *Table {
	return typed(t, "example"+n+"_s", cols(
		"example"+n+"_key", "text",
		"load_dts", "numeric",
		"attribute1", "text",
		"attribute2", "numeric",
		"rec_src", "text",
	))
}

func TestNewTable_Properties(t *testing.T) {
	tbl, err := NewTable("dv", "example", cols(
		"Example_Key", "text",
		"#Generate_Type", "table",
		"#other_meta", "foo",
		"load_dts", "numeric",
	), nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"generate_type": "table", "other_meta": "foo"}, tbl.Properties)
	assert.Equal(t, []string{"example_key", "load_dts"}, ColumnNames(tbl.Columns))
	assert.Equal(t, []string{"generate_type", "other_meta"}, tbl.PropertyKeys())

	for _, c := range tbl.Columns {
		assert.Equal(t, tbl.Ref(), c.Owner(), "column %s owner", c.Name)
	}
	c, ok := tbl.Column("EXAMPLE_KEY")
	require.True(t, ok)
	assert.Equal(t, "dv.example.example_key", c.FullName())
}

func TestNewTable_OverridesWin(t *testing.T) {
	tbl, err := NewTable("dv", "example", cols("#generate_type", "view", "a", "text"),
		map[string]string{"#Generate_Type": "table"})
	require.NoError(t, err)
	assert.Equal(t, "table", tbl.Properties["generate_type"])
}

func TestNewTable_DuplicateColumn(t *testing.T) {
	_, err := NewTable("dv", "example", cols("a", "text", "A", "numeric"), nil)
	require.Error(t, err)

	var me *MetadataError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "dv.example", me.Table)
}

func TestColumn_Equal(t *testing.T) {
	a := MustNewTable("dv", "a", cols("x", "text"), nil)
	b := MustNewTable("dv", "b", cols("x", "text", "y", "numeric"), nil)

	assert.True(t, a.Columns[0].Equal(b.Columns[0]))
	assert.False(t, a.Columns[0].Equal(b.Columns[1]))
	assert.NotEqual(t, a.Columns[0].FullName(), b.Columns[0].FullName())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"customer_h", KindHub},
		{"sales_line_customer_l", KindLink},
		{"customer_s", KindSatellite},
		{"example_2_3_l_s", KindSatellite},
		{"example_1_2_vp", KindVersionPointer},
		{"customers", KindTable},
		{"hub", KindTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.name))
		})
	}
}

func TestClassify_Hub(t *testing.T) {
	hub := typed(t, "example_h", cols(
		"example_key", "text",
		"example_id1", "text",
		"example_id2", "numeric",
		"load_dts", "numeric",
		"rec_src", "text",
		"batch_id", "numeric",
	))

	require.NoError(t, hub.Check())
	assert.Equal(t, KindHub, hub.Kind)
	assert.Equal(t, "example_key", hub.Hub.Key.Name)
	assert.Equal(t, []string{"example_id1", "example_id2"}, ColumnNames(hub.Hub.BusinessKeys))
	assert.Equal(t, []string{"example_key"}, ColumnNames(hub.PK()))
	assert.Equal(t, []string{"example_id1", "example_id2"}, ColumnNames(hub.UK()))
	assert.Empty(t, hub.ForeignKeys())
}

func TestClassify_DoesNotMutateInput(t *testing.T) {
	raw := MustNewTable("dv", "example_h", cols("example_key", "text"), nil)
	hub := Classify(raw)

	assert.Equal(t, KindTable, raw.Kind)
	assert.Nil(t, raw.Hub)
	assert.Equal(t, KindHub, hub.Kind)
}

func TestClassify_Link(t *testing.T) {
	link := typed(t, "example_l", cols(
		"example_l_key", "text",
		"example1_key", "text",
		"example2_key", "text",
		"load_dts", "numeric",
		"rec_src", "text",
	))

	require.NoError(t, link.Check())
	assert.Equal(t, "example_l_key", link.Link.RootKey.Name)
	assert.Equal(t, []string{"example1_key", "example2_key"}, ColumnNames(link.Link.Keys))
	assert.Equal(t, []string{"example_l_key"}, ColumnNames(link.PK()))
	assert.Empty(t, link.UK())

	fks := link.ForeignKeys()
	require.Len(t, fks, 2)
	assert.Equal(t, TableRef{"dv", "example_l"}, fks[0].Table)
	assert.Equal(t, []string{"example1_key"}, fks[0].Columns)
	assert.Equal(t, TableRef{"dv", "example1_h"}, fks[0].ForeignTable)
	assert.Equal(t, []string{"example1_key"}, fks[0].ForeignColumns)
	assert.Equal(t, TableRef{"dv", "example2_h"}, fks[1].ForeignTable)
}

func TestClassify_MixedCaseNames(t *testing.T) {
	hub := typed(t, "Customer_h", cols(
		"Customer_Key", "text",
		"id", "text",
		"load_dts", "numeric",
		"rec_src", "text",
	))
	require.NoError(t, hub.Check())
	assert.Equal(t, "customer_key", hub.Hub.Key.Name)
	assert.Equal(t, []string{"id"}, ColumnNames(hub.Hub.BusinessKeys))

	link := typed(t, "Sale_l", cols(
		"sale_l_key", "text",
		"a_key", "text",
		"b_key", "text",
		"load_dts", "numeric",
		"rec_src", "text",
	))
	require.NoError(t, link.Check())
	assert.Equal(t, "sale_l_key", link.Link.RootKey.Name)
	assert.Equal(t, []string{"a_key", "b_key"}, ColumnNames(link.Link.Keys))
	assert.Len(t, link.ForeignKeys(), 2)
}

func TestClassify_Satellite(t *testing.T) {
	sat := typed(t, "example_s", cols(
		"example_key", "text",
		"load_dts", "numeric",
		"attribute1", "text",
		"attribute2", "numeric",
		"rec_src", "text",
	))

	require.NoError(t, sat.Check())
	assert.Empty(t, sat.Warnings)
	assert.Equal(t, "example_key", sat.Satellite.Key.Name)
	assert.Equal(t, []string{"attribute1", "attribute2"}, ColumnNames(sat.Satellite.Attributes))
	assert.Equal(t, []string{"example_key", "load_dts"}, ColumnNames(sat.PK()))
	assert.Empty(t, sat.UK())

	fks := sat.ForeignKeys()
	require.Len(t, fks, 1)
	assert.Equal(t, TableRef{"dv", "example_h"}, fks[0].ForeignTable)
	_, ambiguous := fks[0].Alternate()
	assert.False(t, ambiguous)
}

func TestClassify_LinkSatellite(t *testing.T) {
	lsat := typed(t, "example_l_s", cols(
		"example_l_key", "text",
		"load_dts", "numeric",
		"effective_ts", "numeric",
		"rec_src", "text",
	))

	require.NoError(t, lsat.Check())
	assert.Equal(t, []string{"effective_ts"}, ColumnNames(lsat.Satellite.Attributes))
	assert.Equal(t, []string{"example_l_key", "load_dts"}, ColumnNames(lsat.PK()))

	fks := lsat.ForeignKeys()
	require.Len(t, fks, 1)
	assert.Equal(t, TableRef{"dv", "example_l"}, fks[0].ForeignTable)
	assert.Equal(t, []string{"example_l_key"}, fks[0].ForeignColumns)
	alt, ok := fks[0].Alternate()
	require.True(t, ok)
	assert.Equal(t, "example_l_h", alt.Name)
}

func TestClassify_SatelliteWithoutKey(t *testing.T) {
	tests := []struct {
		name string
		defs []ColumnDef
	}{
		{"no key", cols("load_dts", "numeric", "attr", "text", "rec_src", "text")},
		{"two keys", cols("a_key", "text", "b_key", "text", "load_dts", "numeric", "rec_src", "text")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sat := typed(t, "example_s", tt.defs)

			require.Len(t, sat.Warnings, 1)
			assert.Nil(t, sat.Satellite.Key)
			assert.Empty(t, sat.PK())
			assert.Empty(t, sat.ForeignKeys())
			assert.NoError(t, sat.Check(), "missing satellite key is not fatal")
		})
	}
}

func TestClassify_VersionPointer(t *testing.T) {
	vp := typed(t, "example_1_2_vp", cols(
		"example1_key", "text",
		"example2_key", "text",
		"example2_load_dts", "numeric",
		"load_dts", "numeric",
	))

	require.NoError(t, vp.Check())
	assert.Equal(t, "example1_key", vp.VersionPointer.MetricsKey.Name)
	assert.Equal(t, "example2_key", vp.VersionPointer.ContextKey.Name)
	assert.Equal(t, "example2_load_dts", vp.VersionPointer.ContextLoadDts.Name)
	assert.Equal(t, "load_dts", vp.LoadDts().Name)
	assert.Empty(t, vp.ForeignKeys())
}

func TestCheck_MissingRoles(t *testing.T) {
	tests := []struct {
		name     string
		table    string
		defs     []ColumnDef
		wantRole string
	}{
		{"hub without key", "example_h", cols("id", "text", "load_dts", "numeric", "rec_src", "text"), "key"},
		{"hub without business key", "example_h", cols("example_key", "text", "load_dts", "numeric", "rec_src", "text"), "business_keys"},
		{"hub without rec_src", "example_h", cols("example_key", "text", "id", "text", "load_dts", "numeric"), "rec_src"},
		{"link without root key", "example_l", cols("a_key", "text", "load_dts", "numeric", "rec_src", "text"), "root_key"},
		{"satellite without load_dts", "example_s", cols("a_key", "text", "rec_src", "text"), "load_dts"},
		{"version pointer with one key", "example_vp", cols("a_key", "text", "a_load_dts", "numeric", "load_dts", "numeric"), "context_key"},
		{"version pointer without context dts", "example_vp", cols("a_key", "text", "b_key", "text", "load_dts", "numeric"), "context_load_dts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := typed(t, tt.table, tt.defs).Check()
			require.Error(t, err)

			var me *MetadataError
			require.True(t, errors.As(err, &me))
			assert.Contains(t, me.Message, tt.wantRole)
			assert.Equal(t, "dv."+tt.table, me.Table)
		})
	}
}

func TestCheck_UntypedAlwaysPasses(t *testing.T) {
	tbl := typed(t, "customers", nil)
	assert.NoError(t, tbl.Check())
	assert.Empty(t, tbl.PK())
	assert.Empty(t, tbl.ForeignKeys())
}
