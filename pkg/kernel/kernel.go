// Package kernel defines the geometry contracts consumed by the field core.
// Backends (sdfx) answer containment and nearest-point queries behind these
// interfaces so the interpolation and region code never sees a concrete
// shape representation.
package kernel

import "math"

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * k.
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{v.X * k, v.Y * k, v.Z * k}
}

// Length returns the Euclidean norm of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Dist returns the Euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 {
	return v.Sub(o).Length()
}

// AABB is an axis-aligned bounding box. The zero value is not empty; use
// EmptyAABB for a box that contains nothing.
type AABB struct {
	Min, Max Vec3
}

// EmptyAABB returns a box with inverted extents, the identity for Union.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box has no volume on some axis.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Union returns the smallest box containing both b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: Vec3{math.Min(b.Min.X, o.Min.X), math.Min(b.Min.Y, o.Min.Y), math.Min(b.Min.Z, o.Min.Z)},
		Max: Vec3{math.Max(b.Max.X, o.Max.X), math.Max(b.Max.Y, o.Max.Y), math.Max(b.Max.Z, o.Max.Z)},
	}
}

// Contains reports whether p lies inside or on the box.
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Intersects reports whether b and o share at least one point.
func (b AABB) Intersects(o AABB) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y &&
		b.Min.Z <= o.Max.Z && o.Min.Z <= b.Max.Z
}

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Anchor is the handle a placed node carries. Origin is the canonical anchor
// point: distance measures report exactly zero there.
type Anchor interface {
	Origin() Vec3
}

// Shape is the native geometry of an explicit region.
type Shape interface {
	// Contains reports whether p is inside the shape's footprint.
	Contains(p Vec3) bool
	// Nearest returns the distance from p to the shape and the closest point
	// on it. Points inside the shape are at distance 0 from themselves.
	Nearest(p Vec3) (float64, Vec3)
	// Bounds returns an approximate axis-aligned bounding box.
	Bounds() AABB
}

// Point is an anchor with no extent.
type Point Vec3

// Origin returns the point itself.
func (p Point) Origin() Vec3 {
	return Vec3(p)
}

// Solid is a backend shape that can both anchor a node and serve as the
// native geometry of its region.
type Solid interface {
	Shape
	Anchor
}

// Kernel builds solids. Implementations (sdfx) validate dimensions and
// report bad input as errors rather than panicking.
type Kernel interface {
	// Primitives
	Sphere(radius float64) (Solid, error)
	Box(x, y, z float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)

	// Combinators
	Translate(s Solid, v Vec3) Solid
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
}
