// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx signed distance field library. A point is inside a
// solid when its SDF value is non-positive.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/fieldgraph/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*SdfxKernel)(nil)
var _ kernel.Solid = (*sdfxSolid)(nil)

const (
	// projectSteps bounds the gradient walk used to find a surface point.
	projectSteps = 32
	// surfaceTol is the SDF magnitude treated as "on the surface".
	surfaceTol = 1e-7
	// convergeTol is the residual SDF accepted when the walk runs out of
	// steps, relative to the starting distance.
	convergeTol = 1e-6
	// gradStep is the central-difference step for the SDF gradient.
	gradStep = 1e-5
)

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

func toVec(p kernel.Vec3) v3.Vec {
	return v3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

func fromVec(v v3.Vec) kernel.Vec3 {
	return kernel.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// Contains reports whether the SDF is non-positive at p.
func (s *sdfxSolid) Contains(p kernel.Vec3) bool {
	return s.s.Evaluate(toVec(p)) <= 0
}

// Nearest returns the SDF distance from p and a surface point reached by
// stepping down the SDF. Inside points return (0, p). If the walk does not
// reach the surface the point returned is still at distance d from p.
func (s *sdfxSolid) Nearest(p kernel.Vec3) (float64, kernel.Vec3) {
	pv := toVec(p)
	d := s.s.Evaluate(pv)
	if d <= 0 {
		return 0, p
	}

	q := pv
	for i := 0; i < projectSteps; i++ {
		dq := s.s.Evaluate(q)
		if math.Abs(dq) < surfaceTol {
			return d, fromVec(q)
		}
		dir, ok := s.descent(q)
		if !ok {
			break
		}
		q = q.Add(dir.MulScalar(dq))
	}
	if math.Abs(s.s.Evaluate(q)) <= convergeTol*math.Max(1, d) {
		return d, fromVec(q)
	}

	// Unconverged: keep the answer consistent with d.
	dir := q.Sub(pv)
	if dir.Length() == 0 {
		var ok bool
		if dir, ok = s.descent(pv); !ok {
			dir = v3.Vec{X: 1}
		}
	}
	return d, fromVec(pv.Add(dir.Normalize().MulScalar(d)))
}

// descent returns the unit direction in which the SDF decreases at q. On a
// medial axis the central gradient cancels out; there the steepest of the
// six one-sided axis samples is used instead.
func (s *sdfxSolid) descent(q v3.Vec) (v3.Vec, bool) {
	if n := s.gradient(q); n.Length() > 0 {
		return n.Normalize().MulScalar(-1), true
	}
	f := s.s.Evaluate(q)
	best, bestF := v3.Vec{}, f
	for _, axis := range unitAxes {
		if fa := s.s.Evaluate(q.Add(axis.MulScalar(gradStep))); fa < bestF {
			best, bestF = axis, fa
		}
	}
	return best, bestF < f
}

var unitAxes = []v3.Vec{
	{X: 1}, {X: -1},
	{Y: 1}, {Y: -1},
	{Z: 1}, {Z: -1},
}

// gradient estimates the SDF gradient at q with central differences.
func (s *sdfxSolid) gradient(q v3.Vec) v3.Vec {
	dx := v3.Vec{X: gradStep}
	dy := v3.Vec{Y: gradStep}
	dz := v3.Vec{Z: gradStep}
	return v3.Vec{
		X: s.s.Evaluate(q.Add(dx)) - s.s.Evaluate(q.Sub(dx)),
		Y: s.s.Evaluate(q.Add(dy)) - s.s.Evaluate(q.Sub(dy)),
		Z: s.s.Evaluate(q.Add(dz)) - s.s.Evaluate(q.Sub(dz)),
	}
}

// Bounds returns the SDF bounding box.
func (s *sdfxSolid) Bounds() kernel.AABB {
	bb := s.s.BoundingBox()
	return kernel.AABB{Min: fromVec(bb.Min), Max: fromVec(bb.Max)}
}

// Origin returns the centre of the bounding box.
func (s *sdfxSolid) Origin() kernel.Vec3 {
	return s.Bounds().Center()
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Sphere creates a sphere centred at the origin.
func (k *SdfxKernel) Sphere(radius float64) (kernel.Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx: sphere: %w", err)
	}
	return wrap(s), nil
}

// Box creates a box centred at the origin with the given edge lengths.
func (k *SdfxKernel) Box(x, y, z float64) (kernel.Solid, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: box: %w", err)
	}
	return wrap(s), nil
}

// Cylinder creates a Z-aligned cylinder centred at the origin.
func (k *SdfxKernel) Cylinder(height, radius float64) (kernel.Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("sdfx: cylinder: %w", err)
	}
	return wrap(s), nil
}

// Translate moves a solid by v.
func (k *SdfxKernel) Translate(s kernel.Solid, v kernel.Vec3) kernel.Solid {
	m := sdf.Translate3d(toVec(v))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}
