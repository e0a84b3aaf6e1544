package mapping

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/vaultgen/internal/model"
)

// placeholderPattern matches the $N references in a transformation.
var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// Mappings binds table and column mappings to typed tables. It is read-only
// after New and safe for concurrent use.
type Mappings struct {
	tableMappings  TableMappings
	columnMappings ColumnMappings
	schema         *model.Schema

	tables []*model.Table
	lookup map[string]*model.Table // full name -> table
}

type options struct {
	schema     *model.Schema
	tables     []*model.Table
	synthesize bool
}

// Option configures New.
type Option func(*options)

// WithSchema registers every table of s and enables Path.
func WithSchema(s *model.Schema) Option {
	return func(o *options) { o.schema = s }
}

// WithTables registers explicit tables, for example targets outside the schema.
func WithTables(tables ...*model.Table) Option {
	return func(o *options) { o.tables = append(o.tables, tables...) }
}

// WithSynthesizedSources fills lookup gaps with tables synthesized from the
// source side of the column mappings. Explicit tables always take precedence.
func WithSynthesizedSources() Option {
	return func(o *options) { o.synthesize = true }
}

// New builds the resolver. Two different explicit tables with the same full
// name are rejected.
func New(tableMappings TableMappings, columnMappings ColumnMappings, opts ...Option) (*Mappings, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	m := &Mappings{
		tableMappings:  tableMappings,
		columnMappings: columnMappings,
		schema:         o.schema,
		lookup:         make(map[string]*model.Table),
	}

	var explicit []*model.Table
	if o.schema != nil {
		explicit = append(explicit, o.schema.Tables()...)
	}
	explicit = append(explicit, o.tables...)

	for _, t := range explicit {
		if existing, ok := m.lookup[t.FullName()]; ok {
			if existing != t {
				return nil, model.NewMetadataErrorf(t.FullName(), "table registered twice")
			}
			continue
		}
		m.register(t)
	}

	if o.synthesize {
		for _, t := range columnMappings.SourceTables() {
			if _, ok := m.lookup[t.FullName()]; !ok {
				m.register(t)
			}
		}
	}

	return m, nil
}

func (m *Mappings) register(t *model.Table) {
	m.lookup[t.FullName()] = t
	m.tables = append(m.tables, t)
}

// TableMappings returns the underlying table mappings.
func (m *Mappings) TableMappings() TableMappings { return m.tableMappings }

// ColumnMappings returns the underlying column mappings.
func (m *Mappings) ColumnMappings() ColumnMappings { return m.columnMappings }

// Schema returns the registered schema, or nil.
func (m *Mappings) Schema() *model.Schema { return m.schema }

// Tables returns every registered table in registration order.
func (m *Mappings) Tables() []*model.Table { return m.tables }

// Table looks up a registered table by full name.
func (m *Mappings) Table(fullName string) (*model.Table, bool) {
	t, ok := m.lookup[fullName]
	return t, ok
}

// SourceTables returns the tables declared as sources of target that resolve
// through the lookup, in declaration order without duplicates. Unresolved
// sources are dropped.
func (m *Mappings) SourceTables(target *model.Table) []*model.Table {
	var out []*model.Table
	seen := make(map[string]bool)
	for _, tm := range m.tableMappings.ToTable(target.Schema, target.Name) {
		name := tm.Source().FullName()
		if seen[name] {
			continue
		}
		seen[name] = true
		if t, ok := m.lookup[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Filter returns the source filter of the mapping from source to target. The
// boolean is false when no table mapping connects the pair.
func (m *Mappings) Filter(source, target *model.Table) (string, bool) {
	for _, tm := range m.tableMappings.ToTable(target.Schema, target.Name) {
		if tm.SourceSchema == source.Schema && tm.SourceTable == source.Name {
			return tm.SourceFilter, true
		}
	}
	return "", false
}

// SourceColumns returns one expression per column mapping from source into
// the target column. With a prefix every raw column is qualified as
// "prefix.column". Transformations have their $N placeholders substituted;
// without a transformation the raw columns are joined with ";".
func (m *Mappings) SourceColumns(source *model.Table, target *model.Column, prefix string) []string {
	owner := target.Owner()
	var out []string
	for _, cm := range m.columnMappings.ToColumn(owner.Schema, owner.Name, target.Name) {
		if cm.SrcSchema != source.Schema || cm.SrcTable != source.Name {
			continue
		}
		out = append(out, Expression(cm, prefix))
	}
	return out
}

// SourceColumn returns the first expression of SourceColumns.
func (m *Mappings) SourceColumn(source *model.Table, target *model.Column, prefix string) (string, bool) {
	exprs := m.SourceColumns(source, target, prefix)
	if len(exprs) == 0 {
		return "", false
	}
	return exprs[0], true
}

// Expression renders a single column mapping as a source expression.
// A placeholder beyond the source columns is kept as written; Check rejects
// such mappings.
func Expression(cm ColumnMapping, prefix string) string {
	cols := cm.SourceColumnNames()
	if prefix != "" {
		for i, c := range cols {
			cols[i] = prefix + "." + c
		}
	}
	if strings.TrimSpace(cm.Transformation) == "" {
		return strings.Join(cols, ";")
	}
	return placeholderPattern.ReplaceAllStringFunc(cm.Transformation, func(ph string) string {
		n, err := strconv.Atoi(ph[1:])
		if err != nil || n < 1 || n > len(cols) {
			return ph
		}
		return cols[n-1]
	})
}

// maxPlaceholder returns the highest $N referenced by a transformation.
func maxPlaceholder(transformation string) int {
	highest := 0
	for _, match := range placeholderPattern.FindAllStringSubmatch(transformation, -1) {
		if n, err := strconv.Atoi(match[1]); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}
