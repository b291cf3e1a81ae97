package graph

import (
	"errors"
	"fmt"

	"github.com/chazu/fieldgraph/pkg/attr"
)

// Graph is an immutable snapshot of the node forest. It is never mutated
// after Build; each authoring pass produces a new graph.
type Graph struct {
	nodes    []*Node
	index    map[NodeID]Index
	roots    []Index
	registry *attr.Registry
}

// Len returns the total number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns every node in arena order. The slice must not be modified.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Registry returns the category registry the graph was built against.
func (g *Graph) Registry() *attr.Registry {
	return g.registry
}

// Get returns the node at i, or nil if i is out of range.
func (g *Graph) Get(i Index) *Node {
	if i < 0 || int(i) >= len(g.nodes) {
		return nil
	}
	return g.nodes[i]
}

// Lookup returns the node with the given id, or nil.
func (g *Graph) Lookup(id NodeID) *Node {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.nodes[i]
}

// MustLookup returns the node with the given id, or panics.
func (g *Graph) MustLookup(id NodeID) *Node {
	n := g.Lookup(id)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q", id))
	}
	return n
}

// Parent returns the parent of n, or nil for a root.
func (g *Graph) Parent(n *Node) *Node {
	return g.Get(n.Parent)
}

// Children returns the child nodes of n in insertion order.
func (g *Graph) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.children))
	for _, ci := range n.children {
		if c := g.Get(ci); c != nil {
			children = append(children, c)
		}
	}
	return children
}

// Roots returns all nodes without a parent.
func (g *Graph) Roots() []*Node {
	roots := make([]*Node, 0, len(g.roots))
	for _, ri := range g.roots {
		roots = append(roots, g.nodes[ri])
	}
	return roots
}

// Placed returns every node that has an anchor.
func (g *Graph) Placed() []*Node {
	var placed []*Node
	for _, n := range g.nodes {
		if n.Placed() {
			placed = append(placed, n)
		}
	}
	return placed
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

// ErrBuilt is returned by a Builder used after Build.
var ErrBuilt = errors.New("graph: builder already built")

// Builder assembles a Graph. It is single-use: nodes returned by Add may be
// edited until Build is called, after which the graph is a read-only
// snapshot and further Add, SetParent or Build calls fail with ErrBuilt.
type Builder struct {
	g       *Graph
	parents map[Index]NodeID
	built   bool
}

// NewBuilder creates a builder whose graph validates attributes against reg.
// A nil registry skips category checks.
func NewBuilder(reg *attr.Registry) *Builder {
	return &Builder{
		g: &Graph{
			index:    make(map[NodeID]Index),
			registry: reg,
		},
		parents: make(map[Index]NodeID),
	}
}

// Add creates a node with the given id.
func (b *Builder) Add(id NodeID) (*Node, error) {
	if b.built {
		return nil, ErrBuilt
	}
	if id == "" {
		return nil, fmt.Errorf("graph: empty node id")
	}
	if _, exists := b.g.index[id]; exists {
		return nil, fmt.Errorf("graph: node %q already exists", id)
	}
	n := &Node{
		ID:     id,
		Index:  Index(len(b.g.nodes)),
		Parent: NoParent,
	}
	b.g.nodes = append(b.g.nodes, n)
	b.g.index[id] = n.Index
	return n, nil
}

// Node returns a node added earlier, or nil.
func (b *Builder) Node(id NodeID) *Node {
	return b.g.Lookup(id)
}

// SetParent records parent as the parent of child. The parent may be added
// later; references are resolved by Build.
func (b *Builder) SetParent(child, parent NodeID) error {
	if b.built {
		return ErrBuilt
	}
	c := b.g.Lookup(child)
	if c == nil {
		return fmt.Errorf("graph: no node named %q", child)
	}
	if parent == "" {
		delete(b.parents, c.Index)
		return nil
	}
	b.parents[c.Index] = parent
	return nil
}

// Build links parents and children, validates the result and returns the
// snapshot. If any finding has SeverityError the graph is nil.
func (b *Builder) Build() (*Graph, []ValidationError) {
	if b.built {
		return nil, []ValidationError{{Message: ErrBuilt.Error(), Severity: SeverityError}}
	}
	b.built = true
	g := b.g
	var errs []ValidationError

	for _, n := range g.nodes {
		n.Parent = NoParent
		n.children = nil
	}
	for _, n := range g.nodes {
		pid, ok := b.parents[n.Index]
		if !ok {
			continue
		}
		p := g.Lookup(pid)
		if p == nil {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("parent reference %q does not exist", pid),
				Severity: SeverityError,
			})
			continue
		}
		n.Parent = p.Index
		p.children = append(p.children, n.Index)
	}

	g.roots = g.roots[:0]
	for _, n := range g.nodes {
		if n.Parent == NoParent {
			g.roots = append(g.roots, n.Index)
		}
	}

	errs = append(errs, Validate(g)...)
	if HasErrors(errs) {
		return nil, errs
	}
	return g, errs
}
