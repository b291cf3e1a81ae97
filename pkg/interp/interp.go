// Package interp blends the attributes of anchored graph nodes at a query
// point. Every strategy is a pure function of the node slice, the point and
// the distance measure; no state is kept between calls, so concurrent calls
// over the same immutable snapshot are safe.
package interp

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/fieldgraph/pkg/attr"
	"github.com/chazu/fieldgraph/pkg/feature"
	"github.com/chazu/fieldgraph/pkg/graph"
	"github.com/chazu/fieldgraph/pkg/kernel"
	"github.com/chazu/fieldgraph/pkg/measure"
	"github.com/chazu/fieldgraph/pkg/weight"
)

// ErrInvalidDistance reports a negative or NaN distance from the measure.
var ErrInvalidDistance = errors.New("interp: invalid distance")

// DistanceError identifies the node whose distance broke the measure contract.
type DistanceError struct {
	Node     graph.NodeID
	Distance float64
}

func (e *DistanceError) Error() string {
	return fmt.Sprintf("interp: node %s: invalid distance %v", e.Node, e.Distance)
}

func (e *DistanceError) Unwrap() error {
	return ErrInvalidDistance
}

// Interpolate blends the feature vectors of nodes at p. Unplaced nodes are
// skipped. An empty or fully unplaced node set yields an empty vector.
func Interpolate(s Strategy, nodes []*graph.Node, p kernel.Vec3, m measure.Measure) (feature.Vector, error) {
	switch s := s.(type) {
	case Nearest:
		return nearest(nodes, p, m)
	case IDW:
		if err := checkPower(s.Power); err != nil {
			return nil, err
		}
		return inverseDistance(nodes, p, m, s.Power, 0)
	case SpaceAdjustedIDW:
		if err := checkPower(s.Power); err != nil {
			return nil, err
		}
		return inverseDistance(nodes, p, m, s.Power, 1)
	case Kernel:
		if s.Transform == nil {
			return nil, fmt.Errorf("interp: kernel strategy has no transform: %w", weight.ErrDomain)
		}
		return kernelWeighted(nodes, p, m, s.Transform)
	case nil:
		return nil, errors.New("interp: nil strategy")
	default:
		return nil, fmt.Errorf("interp: unknown strategy %T", s)
	}
}

func checkPower(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return fmt.Errorf("interp: power %v: %w", p, weight.ErrDomain)
	}
	return nil
}

// distance queries m and enforces the non-negative, non-NaN contract.
func distance(m measure.Measure, n *graph.Node, p kernel.Vec3) (float64, error) {
	d := m.Distance(n, p)
	if math.IsNaN(d) || d < 0 {
		return 0, &DistanceError{Node: n.ID, Distance: d}
	}
	return d, nil
}

// nearest returns the vector of the first node at the minimum distance.
func nearest(nodes []*graph.Node, p kernel.Vec3, m measure.Measure) (feature.Vector, error) {
	var best *graph.Node
	bestD := math.Inf(1)

	for _, n := range nodes {
		if !n.Placed() {
			continue
		}
		d, err := distance(m, n, p)
		if err != nil {
			return nil, err
		}
		if best == nil || d < bestD {
			best, bestD = n, d
		}
	}

	if best == nil {
		return feature.Vector{}, nil
	}
	return feature.FromNode(best), nil
}

// inverseDistance implements IDW (offset 0) and space-adjusted IDW
// (offset 1). With offset 0 the first node at distance zero, or whose
// weight overflows, short-circuits to its own vector.
func inverseDistance(nodes []*graph.Node, p kernel.Vec3, m measure.Measure, power, offset float64) (feature.Vector, error) {
	acc := feature.Vector{}
	sums := make(map[attr.CategoryID]float64)

	for _, n := range nodes {
		if !n.Placed() {
			continue
		}
		d, err := distance(m, n, p)
		if err != nil {
			return nil, err
		}
		if offset == 0 && d == 0 {
			return feature.FromNode(n), nil
		}
		w := 1 / math.Pow(d+offset, power)
		if math.IsInf(w, 1) {
			return feature.FromNode(n), nil
		}
		accumulate(acc, sums, feature.FromNode(n), w)
	}

	return normalize(acc, sums), nil
}

// kernelWeighted weighs every placed node with t in a single batch.
func kernelWeighted(nodes []*graph.Node, p kernel.Vec3, m measure.Measure, t weight.Transform) (feature.Vector, error) {
	var placed []*graph.Node
	var ds []float64
	for _, n := range nodes {
		if !n.Placed() {
			continue
		}
		d, err := distance(m, n, p)
		if err != nil {
			return nil, err
		}
		placed = append(placed, n)
		ds = append(ds, d)
	}
	if len(placed) == 0 {
		return feature.Vector{}, nil
	}

	ws, err := t.ApplyMany(ds)
	if err != nil {
		return nil, fmt.Errorf("interp: weights: %w", err)
	}

	acc := feature.Vector{}
	sums := make(map[attr.CategoryID]float64)
	for i, n := range placed {
		accumulate(acc, sums, feature.FromNode(n), ws[i])
	}
	return normalize(acc, sums), nil
}

// accumulate adds w*v into acc and records w against every category v supplies.
func accumulate(acc feature.Vector, sums map[attr.CategoryID]float64, v feature.Vector, w float64) {
	acc.Accumulate(v, w)
	for c := range v {
		sums[c] += w
	}
}

// normalize divides each category by the total weight of the nodes that
// supplied it, so sparsely covered categories are not diluted by nodes that
// lack them. Categories with zero total weight carry no information and are
// dropped rather than turned into NaN.
func normalize(acc feature.Vector, sums map[attr.CategoryID]float64) feature.Vector {
	out := acc
	for c, total := range sums {
		if total == 0 {
			delete(out, c)
			continue
		}
		out = out.DivideCategory(c, total)
	}
	return out
}
