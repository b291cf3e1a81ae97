// Package measure provides distance measures between graph nodes and query
// points. Interpolation only sees the Measure interface, so a measure may
// follow any native geometry as long as it is non-negative. IDW treats a
// zero distance as "this node owns the point", so a measure returns zero
// only where that should hold: Euclidean at the anchor alone, Surface across
// the whole shape.
package measure

import (
	"math"

	"github.com/chazu/fieldgraph/pkg/graph"
	"github.com/chazu/fieldgraph/pkg/kernel"
)

// Measure computes one distance per (node, point) pair. Callers only pass
// placed nodes.
type Measure interface {
	Distance(n *graph.Node, p kernel.Vec3) float64
}

// Func adapts a plain function to Measure.
type Func func(n *graph.Node, p kernel.Vec3) float64

// Distance calls f.
func (f Func) Distance(n *graph.Node, p kernel.Vec3) float64 {
	return f(n, p)
}

// Euclidean measures straight-line distance to the anchor origin.
type Euclidean struct{}

// Distance returns |p - origin|, or NaN for an unplaced node.
func (Euclidean) Distance(n *graph.Node, p kernel.Vec3) float64 {
	if n.Anchor == nil {
		return math.NaN()
	}
	return n.Anchor.Origin().Dist(p)
}

// Surface measures distance to the anchor's shape when the anchor has one,
// falling back to Euclidean for point anchors.
//
// Unlike Euclidean, Surface is zero at every point inside the shape, not
// only at the anchor. IDW therefore passes a node's values through across
// its whole footprint, and where footprints overlap the first node in slice
// order owns the overlap. Use Euclidean when blending should start at the
// anchor.
type Surface struct{}

// Distance returns the shape distance, or the Euclidean one.
func (Surface) Distance(n *graph.Node, p kernel.Vec3) float64 {
	if s, ok := n.Anchor.(kernel.Shape); ok {
		d, _ := s.Nearest(p)
		return d
	}
	return Euclidean{}.Distance(n, p)
}

// Compile-time interface checks.
var (
	_ Measure = Euclidean{}
	_ Measure = Surface{}
	_ Measure = Func(nil)
)

// Names maps configuration names to measures.
var Names = map[string]Measure{
	"euclidean": Euclidean{},
	"surface":   Surface{},
}
