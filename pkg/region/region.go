// Package region resolves points against the hierarchy of spatial regions
// declared by graph nodes. A child region always takes priority over its
// parent for the points it covers; a parent stands for everything in its
// footprint not claimed by a more specific child.
//
// A Tree is an immutable arena built once from a graph snapshot. Queries are
// pure reads and may run concurrently when the shapes allow concurrent reads.
package region

import (
	"github.com/chazu/fieldgraph/pkg/graph"
	"github.com/chazu/fieldgraph/pkg/kernel"
)

// Index is a region's position in the tree arena.
type Index int

// None marks a root region's missing parent.
const None Index = -1

// Region is the footprint of one node. Explicit regions own a shape;
// implicit regions (Shape == nil) are the union of their children.
type Region struct {
	Index Index
	Node  graph.Index
	ID    graph.NodeID
	Shape kernel.Shape

	parent   Index
	children []Index
}

// Implicit reports whether the region is defined by its children.
func (r *Region) Implicit() bool {
	return r.Shape == nil
}

// Tree is the region forest of one graph snapshot.
type Tree struct {
	regions []*Region
	roots   []Index
	byNode  map[graph.NodeID]Index
}

// Build walks g from its roots and records one region per node that
// declares one. A region's children are the regions of its node's children;
// regions whose parent node declares no region become roots. Sibling order
// follows the node child order.
//
// g must be acyclic, which graph.Builder guarantees.
func Build(g *graph.Graph) *Tree {
	t := &Tree{byNode: make(map[graph.NodeID]Index)}
	if g == nil {
		return t
	}
	for _, n := range g.Roots() {
		t.walk(g, n, None)
	}
	return t
}

func (t *Tree) walk(g *graph.Graph, n *graph.Node, parent Index) {
	next := parent
	switch n.RegionKind() {
	case graph.RegionExplicit, graph.RegionImplicit:
		r := &Region{
			Index:  Index(len(t.regions)),
			Node:   n.Index,
			ID:     n.ID,
			parent: parent,
		}
		if n.RegionKind() == graph.RegionExplicit {
			r.Shape = n.Shape
		}
		t.regions = append(t.regions, r)
		t.byNode[n.ID] = r.Index
		if parent == None {
			t.roots = append(t.roots, r.Index)
		} else {
			p := t.regions[parent]
			p.children = append(p.children, r.Index)
		}
		next = r.Index
	case graph.RegionNone:
		// Children of a region-less node start new trees.
		next = None
	}

	for _, c := range g.Children(n) {
		t.walk(g, c, next)
	}
}

// Len returns the number of regions.
func (t *Tree) Len() int {
	return len(t.regions)
}

// Get returns the region at i, or nil if out of range.
func (t *Tree) Get(i Index) *Region {
	if i < 0 || int(i) >= len(t.regions) {
		return nil
	}
	return t.regions[i]
}

// ForNode returns the region declared by node id, or nil.
func (t *Tree) ForNode(id graph.NodeID) *Region {
	i, ok := t.byNode[id]
	if !ok {
		return nil
	}
	return t.regions[i]
}

// Roots returns the root regions in walk order.
func (t *Tree) Roots() []*Region {
	out := make([]*Region, len(t.roots))
	for i, idx := range t.roots {
		out[i] = t.regions[idx]
	}
	return out
}

// Parent returns r's parent region, or nil for a root.
func (t *Tree) Parent(r *Region) *Region {
	if r.parent == None {
		return nil
	}
	return t.regions[r.parent]
}

// Children returns r's child regions in sibling order.
func (t *Tree) Children(r *Region) []*Region {
	out := make([]*Region, len(r.children))
	for i, idx := range r.children {
		out[i] = t.regions[idx]
	}
	return out
}

// Path returns the ancestry of r, root first, ending with r.
func (t *Tree) Path(r *Region) []*Region {
	var path []*Region
	for cur := r; cur != nil; cur = t.Parent(cur) {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
