// Package loader reads project metadata from disk.
//
// Table metadata lives in <metadata_dir>/<schema>/<table>.csv with a
// "name,type" header; an optional <table>.yaml next to it carries property
// overrides. Mapping records live in <mappings_dir>/table_mappings/*.csv and
// <mappings_dir>/column_mappings/*.csv.
package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/vaultgen/internal/mapping"
	"github.com/leapstack-labs/vaultgen/internal/model"
)

// Mapping subdirectories below the mappings directory.
const (
	TableMappingsDir  = "table_mappings"
	ColumnMappingsDir = "column_mappings"
)

// commentPrefix marks a mapping row as a comment.
const commentPrefix = "--"

var (
	tableHeader         = []string{"name", "type"}
	tableMappingHeader  = []string{"source_schema", "source_table", "target_schema", "target_table"}
	columnMappingHeader = []string{"src_schema", "src_table", "src_column", "tgt_schema", "tgt_table", "tgt_column"}
)

// Loader reads metadata and mapping files.
type Loader struct {
	comma  rune
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithComma sets the CSV field delimiter. The default is ','.
func WithComma(r rune) Option {
	return func(l *Loader) { l.comma = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{comma: ',', logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadTables reads every <dir>/<schema>/<table>.csv. The returned tables are
// untyped, ordered by schema then name.
func (l *Loader) LoadTables(dir string) ([]*model.Table, error) {
	schemas, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata directory: %w", err)
	}

	var tables []*model.Table
	for _, entry := range schemas {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		schemaDir := filepath.Join(dir, entry.Name())
		paths, err := csvFiles(schemaDir)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			t, err := l.LoadTable(path)
			if err != nil {
				return nil, err
			}
			tables = append(tables, t)
		}
		l.logger.Debug("loaded schema metadata",
			slog.String("schema", entry.Name()),
			slog.Int("tables", len(paths)))
	}
	return tables, nil
}

// LoadTable reads one metadata file. The schema is the name of the parent
// directory and the table name is the file name without extension.
func (l *Loader) LoadTable(path string) (*model.Table, error) {
	schema := filepath.Base(filepath.Dir(path))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	overrides, err := l.loadSidecar(strings.TrimSuffix(path, filepath.Ext(path)))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //#nosec G304 -- path comes from the project's metadata directory
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata file: %w", err)
	}
	defer f.Close()

	return l.ReadTable(f, path, schema, name, overrides)
}

// ReadTable parses table metadata. Rows whose name starts with "#" become
// properties; overrides win over them.
func (l *Loader) ReadTable(r io.Reader, file, schema, name string, overrides map[string]string) (*model.Table, error) {
	records, err := readCSV(r, file, l.comma, tableHeader)
	if err != nil {
		return nil, err
	}

	defs := make([]model.ColumnDef, len(records))
	for i, rec := range records {
		defs[i] = model.ColumnDef{Name: rec.get("name"), Type: rec.get("type")}
	}

	t, err := model.NewTable(schema, name, defs, overrides)
	if err != nil {
		return nil, &FileError{File: file, Err: err}
	}
	return t, nil
}

// LoadTableMappings reads every CSV file in <dir>/table_mappings. A missing
// directory yields no mappings.
func (l *Loader) LoadTableMappings(dir string) (mapping.TableMappings, error) {
	var out mapping.TableMappings
	err := l.eachMappingFile(filepath.Join(dir, TableMappingsDir), func(file string, r io.Reader) error {
		ms, err := l.ReadTableMappings(r, file)
		out = append(out, ms...)
		return err
	})
	return out, err
}

// ReadTableMappings parses a table mapping file.
func (l *Loader) ReadTableMappings(r io.Reader, file string) (mapping.TableMappings, error) {
	records, err := readCSV(r, file, l.comma, tableMappingHeader)
	if err != nil {
		return nil, err
	}

	var out mapping.TableMappings
	for _, rec := range records {
		if isComment(rec.get("source_schema")) {
			continue
		}
		m := mapping.TableMapping{
			SourceSchema: rec.get("source_schema"),
			SourceTable:  rec.get("source_table"),
			SourceFilter: rec.get("source_filter"),
			TargetSchema: rec.get("target_schema"),
			TargetTable:  rec.get("target_table"),
		}
		if err := requireFields(file, rec.line, map[string]string{
			"source_schema": m.SourceSchema,
			"source_table":  m.SourceTable,
			"target_schema": m.TargetSchema,
			"target_table":  m.TargetTable,
		}); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// LoadColumnMappings reads every CSV file in <dir>/column_mappings. A missing
// directory yields no mappings.
func (l *Loader) LoadColumnMappings(dir string) (mapping.ColumnMappings, error) {
	var out mapping.ColumnMappings
	err := l.eachMappingFile(filepath.Join(dir, ColumnMappingsDir), func(file string, r io.Reader) error {
		ms, err := l.ReadColumnMappings(r, file)
		out = append(out, ms...)
		return err
	})
	return out, err
}

// ReadColumnMappings parses a column mapping file. Rows whose src_schema
// starts with "--" are comments.
func (l *Loader) ReadColumnMappings(r io.Reader, file string) (mapping.ColumnMappings, error) {
	records, err := readCSV(r, file, l.comma, columnMappingHeader)
	if err != nil {
		return nil, err
	}

	var out mapping.ColumnMappings
	for _, rec := range records {
		if isComment(rec.get("src_schema")) {
			continue
		}
		m := mapping.ColumnMapping{
			SrcSchema:      rec.get("src_schema"),
			SrcTable:       rec.get("src_table"),
			SrcColumn:      strings.ToLower(rec.get("src_column")),
			Transformation: rec.get("transformation"),
			TgtSchema:      rec.get("tgt_schema"),
			TgtTable:       rec.get("tgt_table"),
			TgtColumn:      strings.ToLower(rec.get("tgt_column")),
		}
		if err := requireFields(file, rec.line, map[string]string{
			"tgt_schema": m.TgtSchema,
			"tgt_table":  m.TgtTable,
			"tgt_column": m.TgtColumn,
		}); err != nil {
			return nil, err
		}
		if m.SrcColumn == "" && m.Transformation == "" {
			return nil, fileErrorf(file, rec.line, "mapping to %s.%s.%s needs src_column or transformation",
				m.TgtSchema, m.TgtTable, m.TgtColumn)
		}
		out = append(out, m)
	}
	return out, nil
}

func (l *Loader) eachMappingFile(dir string, read func(file string, r io.Reader) error) error {
	paths, err := csvFiles(dir)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Debug("no mapping directory", slog.String("dir", dir))
		return nil
	}
	if err != nil {
		return err
	}

	for _, path := range paths {
		f, err := os.Open(path) //#nosec G304 -- path comes from the project's mappings directory
		if err != nil {
			return fmt.Errorf("failed to open mapping file: %w", err)
		}
		err = read(path, f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// csvFiles lists the .csv files of dir in name order.
func csvFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func isComment(field string) bool { return strings.HasPrefix(field, commentPrefix) }

func requireFields(file string, line int, fields map[string]string) error {
	names := make([]string, 0, len(fields))
	for name, v := range fields {
		if v == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return fileErrorf(file, line, "empty %s", strings.Join(names, ", "))
}
