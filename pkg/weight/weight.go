// Package weight converts distances into blending weights. Transforms are
// shared by the interpolation strategies and any other code that needs a
// distance falloff.
package weight

import (
	"errors"
	"fmt"
	"math"

	"github.com/tanema/gween/ease"
)

var (
	// ErrDomain reports an invalid transform parameter, such as a zero sigma.
	ErrDomain = errors.New("weight: parameter out of domain")
	// ErrUnsupported reports an operation a transform cannot perform, such
	// as a single-value softmax.
	ErrUnsupported = errors.New("weight: unsupported operation")
)

// Epsilon keeps Reciprocal finite at zero distance.
const Epsilon = 1e-5

// Transform maps distances to weights. Implementations must stay finite as
// the distance approaches zero.
type Transform interface {
	Apply(d float64) (float64, error)
	ApplyMany(ds []float64) ([]float64, error)
}

// Compile-time interface checks.
var (
	_ Transform = Gaussian{}
	_ Transform = Reciprocal{}
	_ Transform = Softmax{}
	_ Transform = Falloff{}
)

func applyEach(t Transform, ds []float64) ([]float64, error) {
	out := make([]float64, len(ds))
	for i, d := range ds {
		w, err := t.Apply(d)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Gaussian
// ---------------------------------------------------------------------------

// Gaussian weighs by exp(-d²/(2σ²)), which is 1 at zero distance and decays
// monotonically.
type Gaussian struct {
	Sigma float64
}

func (g Gaussian) Apply(d float64) (float64, error) {
	if g.Sigma == 0 || math.IsNaN(g.Sigma) || math.IsInf(g.Sigma, 0) {
		return 0, fmt.Errorf("%w: gaussian sigma %v", ErrDomain, g.Sigma)
	}
	return math.Exp(-(d * d) / (2 * g.Sigma * g.Sigma)), nil
}

func (g Gaussian) ApplyMany(ds []float64) ([]float64, error) {
	return applyEach(g, ds)
}

// ---------------------------------------------------------------------------
// Reciprocal
// ---------------------------------------------------------------------------

// Reciprocal weighs by 1/(d+Epsilon).
type Reciprocal struct{}

func (Reciprocal) Apply(d float64) (float64, error) {
	return 1 / (d + Epsilon), nil
}

func (r Reciprocal) ApplyMany(ds []float64) ([]float64, error) {
	return applyEach(r, ds)
}

// ---------------------------------------------------------------------------
// Softmax
// ---------------------------------------------------------------------------

// Softmax turns a batch of distances into a probability distribution,
// favouring the closest candidates. It has no single-value form.
type Softmax struct{}

func (Softmax) Apply(float64) (float64, error) {
	return 0, fmt.Errorf("%w: softmax needs a batch", ErrUnsupported)
}

// ApplyMany returns exp(-d_i - max_j(-d_j)) normalised to sum to 1. Shifting
// by the largest exponent keeps every term in (0, 1]. NaN distances, and a
// batch where every distance is +Inf, have no distribution and fail with
// ErrDomain.
func (Softmax) ApplyMany(ds []float64) ([]float64, error) {
	out := make([]float64, len(ds))
	if len(ds) == 0 {
		return out, nil
	}
	shift := math.Inf(-1)
	for _, d := range ds {
		if math.IsNaN(d) {
			return nil, fmt.Errorf("%w: softmax distance %v", ErrDomain, d)
		}
		shift = math.Max(shift, -d)
	}
	if math.IsInf(shift, 0) {
		return nil, fmt.Errorf("%w: softmax needs a finite distance, min is %v", ErrDomain, -shift)
	}
	var sum float64
	for i, d := range ds {
		out[i] = math.Exp(-d - shift)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Falloff
// ---------------------------------------------------------------------------

// Falloff gives compact-support weights: 1 at zero distance, 0 at Radius and
// beyond, shaped in between by an easing curve (ease.Linear when nil).
type Falloff struct {
	Radius float64
	Curve  ease.TweenFunc
}

func (f Falloff) Apply(d float64) (float64, error) {
	if !(f.Radius > 0) || math.IsInf(f.Radius, 0) {
		return 0, fmt.Errorf("%w: falloff radius %v", ErrDomain, f.Radius)
	}
	curve := f.Curve
	if curve == nil {
		curve = ease.Linear
	}
	x := math.Min(math.Max(d/f.Radius, 0), 1)
	return 1 - float64(curve(float32(x), 0, 1, 1)), nil
}

func (f Falloff) ApplyMany(ds []float64) ([]float64, error) {
	return applyEach(f, ds)
}

// Curves names the easing curves selectable from configuration.
var Curves = map[string]ease.TweenFunc{
	"linear":      ease.Linear,
	"in-quad":     ease.InQuad,
	"out-quad":    ease.OutQuad,
	"in-out-quad": ease.InOutQuad,
	"in-cubic":    ease.InCubic,
	"out-cubic":   ease.OutCubic,
	"in-sine":     ease.InSine,
	"out-sine":    ease.OutSine,
}

// CurveByName looks up a curve in Curves. The empty name means linear.
func CurveByName(name string) (ease.TweenFunc, error) {
	if name == "" {
		return ease.Linear, nil
	}
	c, ok := Curves[name]
	if !ok {
		return nil, fmt.Errorf("weight: unknown curve %q", name)
	}
	return c, nil
}
