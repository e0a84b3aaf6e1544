package mapping

import (
	"fmt"

	"github.com/leapstack-labs/vaultgen/internal/model"
)

// walkState is the position of the path walk in the hub/link/satellite graph.
type walkState int

const (
	atHub walkState = iota
	atLink
	atSatellite
)

// pathWalk holds the state of a single Path computation.
type pathWalk struct {
	schema    *model.Schema
	reachable map[string]bool // full names of the target's source tables
	goal      *model.Column

	path []*model.Column
	seen map[string]bool
}

// Path computes the lineage from the metrics key source column of a version
// pointer to its context key source column. The walk is greedy: at every node
// the first candidate wins and there is no backtracking.
func (m *Mappings) Path(vp *model.Table) ([]*model.Column, error) {
	name := vp.FullName()
	if vp.Kind != model.KindVersionPointer || vp.VersionPointer == nil {
		return nil, model.NewMetadataErrorf(name, "path is only defined for version pointers, got %s", vp.Kind)
	}
	if m.schema == nil {
		return nil, model.NewMetadataErrorf(name, "path requires a schema")
	}
	if vp.VersionPointer.MetricsKey == nil || vp.VersionPointer.ContextKey == nil {
		return nil, model.NewMetadataErrorf(name, "version pointer is missing its metrics or context key")
	}

	current, err := m.endpoint(vp, vp.VersionPointer.MetricsKey)
	if err != nil {
		return nil, err
	}
	goal, err := m.endpoint(vp, vp.VersionPointer.ContextKey)
	if err != nil {
		return nil, err
	}

	w := &pathWalk{
		schema:    m.schema,
		reachable: make(map[string]bool),
		goal:      goal,
		path:      []*model.Column{current},
		seen:      map[string]bool{current.FullName(): true},
	}
	for _, src := range m.SourceTables(vp) {
		w.reachable[src.FullName()] = true
	}

	for current.FullName() != goal.FullName() {
		table, err := w.table(current)
		if err != nil {
			return nil, err
		}

		var state walkState
		switch table.Kind {
		case model.KindHub:
			state = atHub
		case model.KindLink:
			state = atLink
		case model.KindSatellite:
			state = atSatellite
		default:
			return nil, model.NewMetadataErrorf(name, "wrong type in version-pointer path: %s is a %s", table.FullName(), table.Kind)
		}

		var step []*model.Column
		switch state {
		case atHub:
			step, err = w.fromHub(table, current)
		case atLink:
			step, err = w.fromLink(table, current)
		case atSatellite:
			step, err = w.fromSatellite(table)
		}
		if err != nil {
			return nil, err
		}

		for _, c := range step {
			if w.seen[c.FullName()] {
				return nil, model.NewMetadataErrorf(name, "version-pointer path revisits %s", c.FullName())
			}
			w.visit(c)
		}
		current = step[len(step)-1]
	}

	return w.path, nil
}

// endpoint resolves the source column of the first mapping into key.
func (m *Mappings) endpoint(vp *model.Table, key *model.Column) (*model.Column, error) {
	rows := m.columnMappings.ToColumn(vp.Schema, vp.Name, key.Name)
	if len(rows) == 0 {
		return nil, model.NewMetadataErrorf(vp.FullName(), "key %s has no column mapping", key.Name)
	}
	row := rows[0]

	t, ok := m.schema.Table(row.SrcTable)
	if !ok || t.Schema != row.SrcSchema {
		return nil, model.NewMetadataErrorf(vp.FullName(), "source table %s of key %s is not in schema %s",
			row.Source().FullName(), key.Name, m.schema.Name)
	}
	col, ok := t.Column(row.SrcColumn)
	if !ok {
		return nil, model.NewMetadataErrorf(vp.FullName(), "source column %s.%s of key %s not found",
			t.FullName(), row.SrcColumn, key.Name)
	}
	return col, nil
}

func (w *pathWalk) table(c *model.Column) (*model.Table, error) {
	owner := c.Owner()
	t, ok := w.schema.Table(owner.Name)
	if !ok {
		return nil, model.NewMetadataErrorf(owner.FullName(), "table not found in schema %s", w.schema.Name)
	}
	return t, nil
}

func (w *pathWalk) visit(c *model.Column) {
	w.path = append(w.path, c)
	w.seen[c.FullName()] = true
}

// fromHub prefers a satellite whose key is the goal, otherwise moves onto the
// first reachable link column that references this hub.
func (w *pathWalk) fromHub(hub *model.Table, current *model.Column) ([]*model.Column, error) {
	for _, sat := range w.schema.RelatedSatellites(hub) {
		if sat.Satellite == nil || sat.Satellite.Key == nil {
			continue
		}
		key := sat.Satellite.Key
		if key.FullName() == w.goal.FullName() && !w.seen[key.FullName()] {
			return []*model.Column{key}, nil
		}
	}

	for _, link := range w.schema.RelatedLinks(hub) {
		if !w.reachable[link.FullName()] {
			continue
		}
		for _, fk := range link.ForeignKeys() {
			if fk.ForeignTable.Name != hub.Name || len(fk.Columns) == 0 {
				continue
			}
			col, ok := link.Column(fk.Columns[0])
			if !ok || w.seen[col.FullName()] {
				continue
			}
			return []*model.Column{col}, nil
		}
	}

	return nil, model.NewMetadataErrorf(hub.FullName(), "no link from %s", current.FullName())
}

// fromLink leaves the link through the first unseen key whose hub is
// reachable. The link's own column is part of the path.
func (w *pathWalk) fromLink(link *model.Table, current *model.Column) ([]*model.Column, error) {
	for _, fk := range link.ForeignKeys() {
		if len(fk.Columns) == 0 {
			continue
		}
		local, ok := link.Column(fk.Columns[0])
		if !ok || w.seen[local.FullName()] {
			continue
		}
		if !w.reachable[fk.ForeignTable.FullName()] {
			continue
		}
		foreign, err := w.schema.ForeignColumns(fk)
		if err != nil {
			return nil, err
		}
		if len(foreign) == 0 {
			continue
		}
		return []*model.Column{local, foreign[0]}, nil
	}

	return nil, model.NewMetadataErrorf(link.FullName(), "no hub from %s", current.FullName())
}

func (w *pathWalk) fromSatellite(sat *model.Table) ([]*model.Column, error) {
	hub, err := w.schema.RelatedHub(sat)
	if err != nil {
		return nil, err
	}
	if hub.Hub == nil || hub.Hub.Key == nil {
		return nil, model.NewMetadataErrorf(hub.FullName(), "hub has no key column")
	}
	return []*model.Column{hub.Hub.Key}, nil
}

// Join is one table of the SQL join chain that realizes a lineage path.
// Consecutive path columns on the same table share a Join; the first Join
// has no previous alias.
type Join struct {
	Alias      string
	Table      *model.Table
	Column     string // first path column on Table
	LastColumn string // last path column on Table
	PrevAlias  string
	PrevColumn string // last path column of the previous Join
}

// PathJoins groups a lineage path into the join chain a renderer needs.
// Aliases are p0, p1, ... in path order.
func (m *Mappings) PathJoins(path []*model.Column) ([]Join, error) {
	var joins []Join
	for _, c := range path {
		owner := c.Owner()
		if n := len(joins); n > 0 && joins[n-1].Table.Ref() == owner {
			joins[n-1].LastColumn = c.Name
			continue
		}

		t, ok := m.lookup[owner.FullName()]
		if !ok {
			return nil, model.NewMetadataErrorf(owner.FullName(), "path table is not registered")
		}
		j := Join{
			Alias:      fmt.Sprintf("p%d", len(joins)),
			Table:      t,
			Column:     c.Name,
			LastColumn: c.Name,
		}
		if n := len(joins); n > 0 {
			j.PrevAlias = joins[n-1].Alias
			j.PrevColumn = joins[n-1].LastColumn
		}
		joins = append(joins, j)
	}
	return joins, nil
}
