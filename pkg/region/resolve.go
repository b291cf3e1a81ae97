package region

import (
	"math"

	"github.com/chazu/fieldgraph/pkg/kernel"
)

// ContainsOwn is the raw footprint test with no carve-out for children.
// An implicit region contains p when any child resolves it.
func (t *Tree) ContainsOwn(r *Region, p kernel.Vec3) bool {
	if r.Implicit() {
		return t.resolveChildren(r, p) != nil
	}
	return r.Shape.Contains(p)
}

// ContainsExcludingChildren reports whether p lies in r's footprint and no
// descendant region claims it.
func (t *Tree) ContainsExcludingChildren(r *Region, p kernel.Vec3) bool {
	if !t.ContainsOwn(r, p) {
		return false
	}
	return t.resolveChildren(r, p) == nil
}

// Resolve returns the deepest region under r that claims p, or nil.
//
// Implicit regions return the first child match. Explicit regions return nil
// when p is outside their shape, else the deepest child match or themselves.
// Overlapping siblings are not detected; the first in sibling order wins.
func (t *Tree) Resolve(r *Region, p kernel.Vec3) *Region {
	if r.Implicit() {
		return t.resolveChildren(r, p)
	}
	if !r.Shape.Contains(p) {
		return nil
	}
	if c := t.resolveChildren(r, p); c != nil {
		return c
	}
	return r
}

func (t *Tree) resolveChildren(r *Region, p kernel.Vec3) *Region {
	for _, c := range r.children {
		if hit := t.Resolve(t.regions[c], p); hit != nil {
			return hit
		}
	}
	return nil
}

// ResolvePoint resolves p against the roots in order. Nil means p lies in
// no region.
func (t *Tree) ResolvePoint(p kernel.Vec3) *Region {
	for _, idx := range t.roots {
		if hit := t.Resolve(t.regions[idx], p); hit != nil {
			return hit
		}
	}
	return nil
}

// NearestDistance returns the distance from p to r and the closest point.
// Explicit regions ask their shape. Implicit regions take the minimum over
// their children; an implicit region without children reports +Inf, which
// callers must treat as "no region present".
func (t *Tree) NearestDistance(r *Region, p kernel.Vec3) (float64, kernel.Vec3) {
	if !r.Implicit() {
		return r.Shape.Nearest(p)
	}
	best, at := math.Inf(1), p
	for _, c := range r.children {
		d, q := t.NearestDistance(t.regions[c], p)
		if d < best {
			best, at = d, q
		}
	}
	return best, at
}

// Nearest returns the root region closest to p with its distance and
// closest point. It returns nil and +Inf when no root has finite distance.
func (t *Tree) Nearest(p kernel.Vec3) (*Region, float64, kernel.Vec3) {
	var best *Region
	bestD, at := math.Inf(1), p
	for _, idx := range t.roots {
		r := t.regions[idx]
		d, q := t.NearestDistance(r, p)
		if d < bestD {
			best, bestD, at = r, d, q
		}
	}
	return best, bestD, at
}

// Bounds returns the bounding box of r. An implicit region's bounds are the
// union of its children's; with no children the box is empty.
func (t *Tree) Bounds(r *Region) kernel.AABB {
	if !r.Implicit() {
		return r.Shape.Bounds()
	}
	b := kernel.EmptyAABB()
	for _, c := range r.children {
		b = b.Union(t.Bounds(t.regions[c]))
	}
	return b
}
