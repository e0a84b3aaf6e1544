package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/vaultgen/internal/mapping"
	"github.com/leapstack-labs/vaultgen/internal/model"
	"github.com/leapstack-labs/vaultgen/internal/testutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newLoader(t *testing.T) *Loader {
	return New(WithLogger(testutil.NewTestLogger(t)))
}

func TestLoadTables(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "dv", "customer_h.csv"),
		"\ufeffname,type\ncustomer_key,text\nSSN,text\nload_dts,timestamp\nrec_src,text\n#generate_type,table\n")
	writeFile(t, filepath.Join(dir, "dv", "customer_s.csv"),
		"name,type\ncustomer_key,text\nname,text\nload_dts,timestamp\nrec_src,text\n")
	writeFile(t, filepath.Join(dir, "dv", "customer_s.yaml"),
		"description: Customer attributes\nproperties:\n  generate_type: table\n")
	writeFile(t, filepath.Join(dir, "db", "customers.csv"), "name,type\nssn,text\n")
	writeFile(t, filepath.Join(dir, "dv", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, ".hidden", "x.csv"), "name,type\na,text\n")

	tables, err := newLoader(t).LoadTables(dir)
	require.NoError(t, err)
	require.Len(t, tables, 3)

	names := make([]string, len(tables))
	for i, tbl := range tables {
		names[i] = tbl.FullName()
	}
	assert.Equal(t, []string{"db.customers", "dv.customer_h", "dv.customer_s"}, names)

	hub := tables[1]
	assert.Equal(t, model.KindTable, hub.Kind, "loaded tables are untyped")
	assert.Equal(t, []string{"customer_key", "ssn", "load_dts", "rec_src"}, model.ColumnNames(hub.Columns))
	gt, ok := hub.Property("generate_type")
	require.True(t, ok)
	assert.Equal(t, "table", gt)

	sat := tables[2]
	gt, ok = sat.Property("generate_type")
	require.True(t, ok)
	assert.Equal(t, "table", gt)
}

func TestLoadTable_SidecarWinsOverPropertyRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dv", "customer_h.csv")
	writeFile(t, path, "name,type\ncustomer_key,text\n#generate_type,view\n")
	writeFile(t, filepath.Join(dir, "dv", "customer_h.yml"), "properties:\n  generate_type: table\n")

	tbl, err := newLoader(t).LoadTable(path)
	require.NoError(t, err)
	gt, _ := tbl.Property("generate_type")
	assert.Equal(t, "table", gt)
}

func TestLoadTable_Errors(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		sidecar string
		errMsg  string
	}{
		{
			name:   "empty file",
			csv:    "",
			errMsg: "customer_h.csv: empty file",
		},
		{
			name:   "missing type column",
			csv:    "name\ncustomer_key\n",
			errMsg: `customer_h.csv:1: missing column "type" in header`,
		},
		{
			name:   "duplicate column",
			csv:    "name,type\nssn,text\nSSN,text\n",
			errMsg: `duplicate column "ssn"`,
		},
		{
			name:   "unterminated quote",
			csv:    "name,type\n\"ssn,text\n",
			errMsg: "in quoted-field",
		},
		{
			name:    "unknown sidecar field",
			csv:     "name,type\nssn,text\n",
			sidecar: "propertiez:\n  a: b\n",
			errMsg:  "customer_h.yaml: invalid sidecar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "dv", "customer_h.csv")
			writeFile(t, path, tt.csv)
			if tt.sidecar != "" {
				writeFile(t, filepath.Join(dir, "dv", "customer_h.yaml"), tt.sidecar)
			}

			_, err := newLoader(t).LoadTable(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)

			var fileErr *FileError
			assert.True(t, errors.As(err, &fileErr))
		})
	}
}

func TestReadTable_Comma(t *testing.T) {
	l := New(WithComma(';'))
	tbl, err := l.ReadTable(strings.NewReader("name;type\nssn;text\n"), "inline.csv", "db", "customers", nil)
	require.NoError(t, err)
	c, ok := tbl.Column("ssn")
	require.True(t, ok)
	assert.Equal(t, "text", c.Type)
}

func TestLoadTables_MissingDir(t *testing.T) {
	_, err := newLoader(t).LoadTables(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorContains(t, err, "failed to read metadata directory")
}

func TestLoadTableMappings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, TableMappingsDir, "b.csv"),
		"source_schema,source_table,source_filter,target_schema,target_table\n"+
			"db,sales,,dv,customer_h\n")
	writeFile(t, filepath.Join(dir, TableMappingsDir, "a.csv"),
		"source_schema,source_table,source_filter,target_schema,target_table\n"+
			"db,customers,\"ssn <> ''\",dv,customer_h\n"+
			"-- disabled,,,,\n")

	tm, err := newLoader(t).LoadTableMappings(dir)
	require.NoError(t, err)
	assert.Equal(t, mapping.TableMappings{
		{SourceSchema: "db", SourceTable: "customers", SourceFilter: "ssn <> ''", TargetSchema: "dv", TargetTable: "customer_h"},
		{SourceSchema: "db", SourceTable: "sales", TargetSchema: "dv", TargetTable: "customer_h"},
	}, tm)
}

func TestLoadMappings_MissingDirectory(t *testing.T) {
	l := newLoader(t)
	dir := t.TempDir()

	tm, err := l.LoadTableMappings(dir)
	require.NoError(t, err)
	assert.Empty(t, tm)

	cm, err := l.LoadColumnMappings(dir)
	require.NoError(t, err)
	assert.Empty(t, cm)
}

func TestLoadColumnMappings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ColumnMappingsDir, "customer.csv"),
		"src_schema,src_table,src_column,transformation,tgt_schema,tgt_table,tgt_column\n"+
			"db,customers,SSN,,dv,customer_h,customer_key\n"+
			"--db,customers,name,,dv,customer_s,name\n"+
			"db,customers,,'db',dv,customer_h,rec_src\n"+
			"db,sales,\"txn_id,ssn\",\"$1 || $2\",dv,sale_l,sale_l_key\n")

	cm, err := newLoader(t).LoadColumnMappings(dir)
	require.NoError(t, err)
	require.Len(t, cm, 3)

	assert.Equal(t, "ssn", cm[0].SrcColumn)
	assert.Equal(t, "'db'", cm[1].Transformation)
	assert.Equal(t, []string{"txn_id", "ssn"}, cm[2].SourceColumnNames())
	assert.Equal(t, "$1 || $2", cm[2].Transformation)
}

func TestReadMappings_Errors(t *testing.T) {
	l := New()

	tests := []struct {
		name   string
		read   func() error
		errMsg string
	}{
		{
			name: "table mapping without target",
			read: func() error {
				_, err := l.ReadTableMappings(strings.NewReader(
					"source_schema,source_table,target_schema,target_table\n"+
						"db,customers,dv,customer_h\n"+
						"db,sales,dv,\n"), "tm.csv")
				return err
			},
			errMsg: "tm.csv:3: empty target_table",
		},
		{
			name: "table mapping header",
			read: func() error {
				_, err := l.ReadTableMappings(strings.NewReader("source_schema,source_table\n"), "tm.csv")
				return err
			},
			errMsg: `tm.csv:1: missing column "target_schema" in header`,
		},
		{
			name: "column mapping without source",
			read: func() error {
				_, err := l.ReadColumnMappings(strings.NewReader(
					"src_schema,src_table,src_column,transformation,tgt_schema,tgt_table,tgt_column\n"+
						"db,customers,,,dv,customer_h,ssn\n"), "cm.csv")
				return err
			},
			errMsg: "cm.csv:2: mapping to dv.customer_h.ssn needs src_column or transformation",
		},
		{
			name: "column mapping without target",
			read: func() error {
				_, err := l.ReadColumnMappings(strings.NewReader(
					"src_schema,src_table,src_column,tgt_schema,tgt_table,tgt_column\n"+
						"db,customers,ssn,,,\n"), "cm.csv")
				return err
			},
			errMsg: "cm.csv:2: empty tgt_column, tgt_schema, tgt_table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseSidecar(t *testing.T) {
	sc, err := ParseSidecar([]byte("description: Hub\nproperties:\n  generate_type: table\n  batch: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, "Hub", sc.Description)
	assert.Equal(t, map[string]string{"generate_type": "table", "batch": "5"}, sc.Properties)

	sc, err = ParseSidecar(nil)
	require.NoError(t, err)
	assert.Empty(t, sc.Properties)
}
