package dag

import (
	"github.com/leapstack-labs/vaultgen/internal/mapping"
	"github.com/leapstack-labs/vaultgen/internal/model"
)

// FromTables builds the generation graph of targets. A target depends on the
// targets its foreign keys point at (a link on its hubs, a satellite on its
// hub or link) and on every target declared as one of its mapping sources.
// Node IDs are table full names.
func FromTables(targets []*model.Table, tableMappings mapping.TableMappings) (*Graph[*model.Table], error) {
	g := NewGraph[*model.Table]()
	for _, t := range targets {
		g.AddNode(t.FullName(), t)
	}

	for _, t := range targets {
		child := t.FullName()
		for _, fk := range t.ForeignKeys() {
			if err := g.addDependency(fk.ForeignTable.FullName(), child); err != nil {
				return nil, err
			}
			if alt, ok := fk.Alternate(); ok {
				if err := g.addDependency(alt.FullName(), child); err != nil {
					return nil, err
				}
			}
		}
		for _, tm := range tableMappings.ToTable(t.Schema, t.Name) {
			if err := g.addDependency(tm.Source().FullName(), child); err != nil {
				return nil, err
			}
		}
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// addDependency adds parent -> child when parent is a target too. Sources
// outside the graph are ignored.
func (g *Graph[T]) addDependency(parent, child string) error {
	if _, ok := g.nodes[parent]; !ok || parent == child {
		return nil
	}
	return g.AddEdge(parent, child)
}
