// Package dag orders generation targets. A Graph holds one node per target
// and an edge from every table to the tables built on top of it; it supports
// cycle detection, topological sorting, execution levels and impact queries.
package dag

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Node is a graph node carrying a value.
type Node[T any] struct {
	ID    string
	Value T
}

// Graph is a directed graph keyed by node ID. Edges point from a dependency
// to its dependents. It is not safe for concurrent mutation.
type Graph[T any] struct {
	nodes   map[string]*Node[T]
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// NewGraph creates an empty graph.
func NewGraph[T any]() *Graph[T] {
	return &Graph[T]{
		nodes:   make(map[string]*Node[T]),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node, replacing the value of an existing one.
func (g *Graph[T]) AddNode(id string, value T) {
	if n, exists := g.nodes[id]; exists {
		n.Value = value
		return
	}
	g.nodes[id] = &Node[T]{ID: id, Value: value}
	g.edges[id] = nil
	g.parents[id] = nil
}

// AddEdge records that child depends on parent. Both nodes must exist.
func (g *Graph[T]) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}
	if parentID == childID {
		return fmt.Errorf("self-loop detected: %s", parentID)
	}

	if !slices.Contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !slices.Contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// Node returns a node by ID.
func (g *Graph[T]) Node(id string) (*Node[T], bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Parents returns the direct dependencies of id, sorted.
func (g *Graph[T]) Parents(id string) []string { return sorted(g.parents[id]) }

// Children returns the direct dependents of id, sorted.
func (g *Graph[T]) Children(id string) []string { return sorted(g.edges[id]) }

// Nodes returns every node sorted by ID.
func (g *Graph[T]) Nodes() []*Node[T] {
	nodes := make([]*Node[T], 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Len returns the number of nodes.
func (g *Graph[T]) Len() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph[T]) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// FindCycle returns a cycle as a closed path (first ID repeated at the end),
// or nil when the graph is acyclic.
func (g *Graph[T]) FindCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	via := make(map[string]string)

	var cycle []string
	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true

		for _, child := range sorted(g.edges[id]) {
			if !visited[child] {
				via[child] = id
				if dfs(child) {
					return true
				}
			} else if onStack[child] {
				cycle = []string{child}
				for curr := id; curr != child; curr = via[curr] {
					cycle = append([]string{curr}, cycle...)
				}
				cycle = append([]string{child}, cycle...)
				return true
			}
		}

		onStack[id] = false
		return false
	}

	for _, id := range g.ids() {
		if !visited[id] && dfs(id) {
			return cycle
		}
	}
	return nil
}

// CycleError reports a dependency cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

func (g *Graph[T]) checkAcyclic() error {
	if cycle := g.FindCycle(); cycle != nil {
		return &CycleError{Path: cycle}
	}
	return nil
}

// TopologicalSort returns the nodes with dependencies before dependents.
// Ties are broken by ID.
func (g *Graph[T]) TopologicalSort() ([]*Node[T], error) {
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	visited := make(map[string]bool)
	var result []*Node[T]

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, parent := range sorted(g.parents[id]) {
			visit(parent)
		}
		result = append(result, g.nodes[id])
	}

	for _, id := range g.ids() {
		visit(id)
	}
	return result, nil
}

// Levels groups node IDs by depth. Level 0 has no dependencies; the nodes of
// level N only depend on nodes of lower levels and can be processed in
// parallel once those are done.
func (g *Graph[T]) Levels() ([][]string, error) {
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	depth := make(map[string]int, len(g.nodes))
	var levelOf func(id string) int
	levelOf = func(id string) int {
		if d, ok := depth[id]; ok {
			return d
		}
		d := 0
		for _, parent := range g.parents[id] {
			if pd := levelOf(parent) + 1; pd > d {
				d = pd
			}
		}
		depth[id] = d
		return d
	}

	var levels [][]string
	for _, id := range g.ids() {
		d := levelOf(id)
		for len(levels) <= d {
			levels = append(levels, []string{})
		}
		levels[d] = append(levels[d], id)
	}
	for i := range levels {
		sort.Strings(levels[i])
	}
	return levels, nil
}

// Downstream returns the given nodes and everything that depends on them,
// sorted. Unknown IDs are ignored.
func (g *Graph[T]) Downstream(ids []string) []string {
	return g.closure(ids, g.edges, true)
}

// Upstream returns everything the given node depends on, sorted, excluding
// the node itself.
func (g *Graph[T]) Upstream(id string) []string {
	return g.closure([]string{id}, g.parents, false)
}

func (g *Graph[T]) closure(start []string, next map[string][]string, inclusive bool) []string {
	seen := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		for _, n := range next[id] {
			if !seen[n] {
				seen[n] = true
				walk(n)
			}
		}
	}
	for _, id := range start {
		if _, ok := g.nodes[id]; !ok {
			continue
		}
		if inclusive {
			seen[id] = true
		}
		walk(id)
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Roots returns the nodes without dependencies, sorted.
func (g *Graph[T]) Roots() []string {
	var roots []string
	for _, id := range g.ids() {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Leaves returns the nodes without dependents, sorted.
func (g *Graph[T]) Leaves() []string {
	var leaves []string
	for _, id := range g.ids() {
		if len(g.edges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// Subgraph returns a graph with only the given nodes and the edges between
// them.
func (g *Graph[T]) Subgraph(ids []string) *Graph[T] {
	sub := NewGraph[T]()
	for _, id := range ids {
		if n, ok := g.nodes[id]; ok {
			sub.AddNode(id, n.Value)
		}
	}
	for _, id := range ids {
		for _, child := range g.edges[id] {
			if _, ok := sub.nodes[child]; ok {
				_ = sub.AddEdge(id, child)
			}
		}
	}
	return sub
}

func (g *Graph[T]) ids() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sorted(ss []string) []string {
	out := slices.Clone(ss)
	sort.Strings(out)
	return out
}
