package mapping

import (
	"github.com/leapstack-labs/vaultgen/internal/model"
)

// Check validates that target can be fully populated from its mappings. It
// returns the first violation as a *model.MetadataError.
func (m *Mappings) Check(target *model.Table) error {
	name := target.FullName()

	declared := m.tableMappings.ToTable(target.Schema, target.Name)
	if len(declared) == 0 {
		return model.NewMetadataErrorf(name, "no table mappings to target")
	}

	filters := make(map[string]string, len(declared))
	for _, tm := range declared {
		src := tm.Source().FullName()
		if prev, ok := filters[src]; ok && prev != tm.SourceFilter {
			return model.NewMetadataErrorf(name, "conflicting filters for source %s: %q and %q", src, prev, tm.SourceFilter)
		}
		filters[src] = tm.SourceFilter
	}

	sources := m.SourceTables(target)
	if len(sources) == 0 {
		return model.NewMetadataErrorf(name, "none of the %d declared source tables resolve", len(filters))
	}

	for _, cm := range m.columnMappings.ToTable(target.Schema, target.Name) {
		if n, have := maxPlaceholder(cm.Transformation), len(cm.SourceColumnNames()); n > have {
			return model.NewMetadataErrorf(name, "transformation %q for column %s references $%d but only %d source columns are given",
				cm.Transformation, cm.TgtColumn, n, have)
		}
	}

	if target.Kind == model.KindVersionPointer {
		for _, col := range target.Columns {
			if len(m.columnMappings.ToColumn(target.Schema, target.Name, col.Name)) == 0 {
				return model.NewMetadataErrorf(name, "no column mapping to %s", col.Name)
			}
		}
		return nil
	}

	for _, src := range sources {
		for _, col := range target.Columns {
			if expr, ok := m.SourceColumn(src, col, ""); !ok || expr == "" {
				return model.NewMetadataErrorf(name, "column %s has no mapping from source %s", col.Name, src.FullName())
			}
		}
	}

	return nil
}
