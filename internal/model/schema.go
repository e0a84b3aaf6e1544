package model

// Schema owns a set of typed tables keyed by name and the reference graph
// derived from their foreign keys. The graph is computed once in NewSchema;
// the Schema is read-only afterwards and safe for concurrent readers.
type Schema struct {
	Name string

	tables    []*Table
	byName    map[string]*Table
	referring map[string][]*Table // name -> tables whose fks point at name
	referred  map[string][]string // name -> names its fks point at
}

// NewSchema indexes tables by name and builds the reference graph. Duplicate
// table names are rejected. Foreign table names are recorded, not resolved.
func NewSchema(name string, tables []*Table) (*Schema, error) {
	s := &Schema{
		Name:      name,
		tables:    make([]*Table, 0, len(tables)),
		byName:    make(map[string]*Table, len(tables)),
		referring: make(map[string][]*Table),
		referred:  make(map[string][]string),
	}

	for _, t := range tables {
		if _, dup := s.byName[t.Name]; dup {
			return nil, NewMetadataErrorf(t.FullName(), "duplicate table %q in schema %q", t.Name, name)
		}
		s.byName[t.Name] = t
		s.tables = append(s.tables, t)
	}

	for _, t := range s.tables {
		for _, fk := range t.ForeignKeys() {
			target := fk.ForeignTable.Name
			if !containsTable(s.referring[target], t) {
				s.referring[target] = append(s.referring[target], t)
			}
			if !containsString(s.referred[t.Name], target) {
				s.referred[t.Name] = append(s.referred[t.Name], target)
			}
		}
	}

	return s, nil
}

// Tables returns the tables in construction order.
func (s *Schema) Tables() []*Table { return s.tables }

// Table looks up a table by name.
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// ForeignTable resolves the table referenced by fk. It fails when the table
// does not exist, or when both readings of an ambiguous satellite key exist.
func (s *Schema) ForeignTable(fk ForeignKey) (*Table, error) {
	t, ok := s.byName[fk.ForeignTable.Name]
	if alt, hasAlt := fk.Alternate(); hasAlt {
		if altTable, altOK := s.byName[alt.Name]; altOK {
			if ok {
				return nil, NewMetadataErrorf(fk.Table.FullName(),
					"key %v is ambiguous: it refers to both %s and %s",
					fk.Columns, t.FullName(), altTable.FullName())
			}
		}
	}
	if !ok {
		return nil, NewMetadataErrorf(fk.Table.FullName(), "referenced table not found: %s", fk.ForeignTable.FullName())
	}
	return t, nil
}

// ForeignColumns resolves the referenced columns of fk.
func (s *Schema) ForeignColumns(fk ForeignKey) ([]*Column, error) {
	t, err := s.ForeignTable(fk)
	if err != nil {
		return nil, err
	}
	cols := make([]*Column, 0, len(fk.ForeignColumns))
	for _, name := range fk.ForeignColumns {
		c, ok := t.Column(name)
		if !ok {
			return nil, NewMetadataErrorf(fk.Table.FullName(), "referenced column not found: %s.%s", t.FullName(), name)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// ReferringTables returns the tables whose foreign keys point at t.
func (s *Schema) ReferringTables(t *Table) []*Table {
	return s.referring[t.Name]
}

// ReferredTables resolves the tables that t's foreign keys point at.
func (s *Schema) ReferredTables(t *Table) ([]*Table, error) {
	names := s.referred[t.Name]
	out := make([]*Table, 0, len(names))
	for _, name := range names {
		ref, ok := s.byName[name]
		if !ok {
			return nil, NewMetadataErrorf(t.FullName(), "referenced table not found: %s.%s", t.Schema, name)
		}
		out = append(out, ref)
	}
	return out, nil
}

// RelatedLinks returns the links referring to a hub.
func (s *Schema) RelatedLinks(hub *Table) []*Table {
	return filterKind(s.ReferringTables(hub), KindLink)
}

// RelatedSatellites returns the satellites referring to a hub.
func (s *Schema) RelatedSatellites(hub *Table) []*Table {
	return filterKind(s.ReferringTables(hub), KindSatellite)
}

// RelatedLinkSatellites returns the satellites referring to a link.
func (s *Schema) RelatedLinkSatellites(link *Table) []*Table {
	return filterKind(s.ReferringTables(link), KindSatellite)
}

// RelatedHubs returns the hubs a link refers to.
func (s *Schema) RelatedHubs(link *Table) ([]*Table, error) {
	referred, err := s.ReferredTables(link)
	if err != nil {
		return nil, err
	}
	return filterKind(referred, KindHub), nil
}

// RelatedHub returns the hub a satellite hangs off.
func (s *Schema) RelatedHub(sat *Table) (*Table, error) {
	return s.relatedOne(sat, KindHub)
}

// RelatedLink returns the link a link satellite hangs off.
func (s *Schema) RelatedLink(sat *Table) (*Table, error) {
	return s.relatedOne(sat, KindLink)
}

func (s *Schema) relatedOne(t *Table, kind Kind) (*Table, error) {
	referred, err := s.ReferredTables(t)
	if err != nil {
		return nil, err
	}
	matches := filterKind(referred, kind)
	if len(matches) == 0 {
		return nil, NewMetadataErrorf(t.FullName(), "no related %s", kind)
	}
	return matches[0], nil
}

func filterKind(tables []*Table, kind Kind) []*Table {
	var out []*Table
	for _, t := range tables {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

func containsTable(tables []*Table, t *Table) bool {
	for _, x := range tables {
		if x == t {
			return true
		}
	}
	return false
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
