package graph

import (
	"github.com/chazu/fieldgraph/pkg/attr"
	"github.com/chazu/fieldgraph/pkg/kernel"
)

// NodeID is the authored name of a node, unique within a graph.
type NodeID string

// Index is a node's position in the graph arena. Stable for the lifetime of
// a snapshot.
type Index int

// NoParent marks a root node.
const NoParent Index = -1

// RegionKind enumerates how a node takes part in the region hierarchy.
type RegionKind int

const (
	RegionNone     RegionKind = iota // node declares no region
	RegionExplicit                   // node owns a native shape
	RegionImplicit                   // union of the node's child regions
)

func (k RegionKind) String() string {
	switch k {
	case RegionNone:
		return "none"
	case RegionExplicit:
		return "explicit"
	case RegionImplicit:
		return "implicit"
	default:
		return "unknown"
	}
}

// Entry pairs an attribute value with its category.
type Entry struct {
	Category attr.CategoryID
	Value    attr.Value
}

// Node is a spatially anchored carrier of typed attributes.
type Node struct {
	ID     NodeID
	Index  Index
	Parent Index

	// Anchor places the node for interpolation; nil means unplaced.
	Anchor kernel.Anchor

	// Shape is the native geometry of an explicit region. Implicit marks a
	// region defined by its children. Setting both is a validation error.
	Shape    kernel.Shape
	Implicit bool

	Attrs []Entry

	children []Index
}

// Placed reports whether the node has an anchor.
func (n *Node) Placed() bool {
	return n.Anchor != nil
}

// RegionKind returns how the node takes part in the region hierarchy.
func (n *Node) RegionKind() RegionKind {
	switch {
	case n.Implicit:
		return RegionImplicit
	case n.Shape != nil:
		return RegionExplicit
	default:
		return RegionNone
	}
}

// Attr returns the value stored for a category.
func (n *Node) Attr(id attr.CategoryID) (attr.Value, bool) {
	for _, e := range n.Attrs {
		if e.Category == id {
			return e.Value, true
		}
	}
	return nil, false
}

// SetAttr stores v under id, replacing any earlier value so category ids
// stay unique per node.
func (n *Node) SetAttr(id attr.CategoryID, v attr.Value) {
	for i := range n.Attrs {
		if n.Attrs[i].Category == id {
			n.Attrs[i].Value = v
			return
		}
	}
	n.Attrs = append(n.Attrs, Entry{Category: id, Value: v})
}
