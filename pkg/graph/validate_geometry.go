package graph

import (
	"fmt"
	"math"

	"github.com/chazu/fieldgraph/pkg/kernel"
)

// ---------------------------------------------------------------------------
// Geometric validation (errors + warnings)
// ---------------------------------------------------------------------------

// validateGeometry runs the checks that look at anchors and region shapes.
func validateGeometry(g *Graph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateAnchors(g)...)
	errs = append(errs, validateShapeBounds(g)...)
	errs = append(errs, validateSiblingOverlap(g)...)
	return errs
}

func finite(v kernel.Vec3) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// validateAnchors checks that every placed node has a finite origin, since
// distance measures are undefined anywhere else.
func validateAnchors(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, n := range g.nodes {
		if n.Anchor == nil {
			continue
		}
		if o := n.Anchor.Origin(); !finite(o) {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  fmt.Sprintf("anchor origin (%g, %g, %g) is not finite", o.X, o.Y, o.Z),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateShapeBounds checks that every explicit region has a non-empty,
// finite bounding box.
func validateShapeBounds(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, n := range g.nodes {
		if n.Shape == nil {
			continue
		}
		b := n.Shape.Bounds()
		switch {
		case b.IsEmpty():
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  "region shape has empty bounds",
				Severity: SeverityError,
			})
		case !finite(b.Min) || !finite(b.Max):
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  "region shape has unbounded extent",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateSiblingOverlap warns when the bounds of two explicit sibling
// regions intersect. The resolver picks the first sibling in declaration
// order for points in an overlap. Bounds are conservative, so a warning does
// not prove the shapes themselves overlap.
func validateSiblingOverlap(g *Graph) []ValidationError {
	var errs []ValidationError

	check := func(siblings []*Node) {
		var regions []*Node
		for _, n := range siblings {
			if n.RegionKind() == RegionExplicit {
				regions = append(regions, n)
			}
		}
		for i, later := range regions {
			lb := later.Shape.Bounds()
			for _, earlier := range regions[:i] {
				if earlier.Shape.Bounds().Intersects(lb) {
					errs = append(errs, ValidationError{
						NodeID:   later.ID,
						Message:  fmt.Sprintf("region bounds overlap sibling %s; points in the overlap resolve to %s", earlier.ID, earlier.ID),
						Severity: SeverityWarning,
					})
					break
				}
			}
		}
	}

	check(g.Roots())
	for _, n := range g.nodes {
		check(g.Children(n))
	}
	return errs
}
