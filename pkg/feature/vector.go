// Package feature implements per-category numeric feature vectors and the
// small algebra the interpolation strategies need.
package feature

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/fieldgraph/pkg/attr"
	"github.com/chazu/fieldgraph/pkg/graph"
)

// Vector maps a category to its fixed-width sub-vector. An absent key means
// no node contributed that category, which differs from a present zero.
//
// Sub-vectors for the same category must have the same width across every
// vector being combined; a mismatch is a caller bug and panics.
type Vector map[attr.CategoryID][]float64

// FromNode encodes the numeric attributes of n. Non-numeric values are skipped.
func FromNode(n *graph.Node) Vector {
	v := make(Vector, len(n.Attrs))
	for _, e := range n.Attrs {
		if e.Value == nil {
			continue
		}
		enc, ok := e.Value.Numeric()
		if !ok {
			continue
		}
		v[e.Category] = append([]float64(nil), enc...)
	}
	return v
}

// Clone returns a deep copy of v.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for k, sub := range v {
		out[k] = append([]float64(nil), sub...)
	}
	return out
}

// Scale returns v with every sub-vector multiplied by k.
func (v Vector) Scale(k float64) Vector {
	out := make(Vector, len(v))
	for c, sub := range v {
		s := make([]float64, len(sub))
		for i, x := range sub {
			s[i] = x * k
		}
		out[c] = s
	}
	return out
}

// Add returns the union of v and o, summing shared categories elementwise.
func (v Vector) Add(o Vector) Vector {
	out := v.Clone()
	out.Accumulate(o, 1)
	return out
}

// DivideCategory returns v with only category c divided by k. It is a no-op
// copy when c is absent.
func (v Vector) DivideCategory(c attr.CategoryID, k float64) Vector {
	out := v.Clone()
	if sub, ok := out[c]; ok {
		for i := range sub {
			sub[i] /= k
		}
	}
	return out
}

// Accumulate adds k*o into v in place. This is the only mutating operation
// and exists so strategies can sum contributions without reallocating.
func (v Vector) Accumulate(o Vector, k float64) {
	for c, sub := range o {
		dst, ok := v[c]
		if !ok {
			dst = make([]float64, len(sub))
			v[c] = dst
		} else if len(dst) != len(sub) {
			panic(fmt.Sprintf("feature: category %q width %d, cannot combine with width %d", c, len(dst), len(sub)))
		}
		for i, x := range sub {
			dst[i] += k * x
		}
	}
}

// Categories returns the category ids present in v, sorted.
func (v Vector) Categories() []attr.CategoryID {
	ids := make([]attr.CategoryID, 0, len(v))
	for c := range v {
		ids = append(ids, c)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Equal reports whether v and o have the same categories and every element
// differs by at most tol.
func (v Vector) Equal(o Vector, tol float64) bool {
	if len(v) != len(o) {
		return false
	}
	for c, a := range v {
		b, ok := o[c]
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if math.Abs(a[i]-b[i]) > tol {
				return false
			}
		}
	}
	return true
}

// Decode turns the sub-vector for category c back into a typed value using
// the category's kind from reg.
func (v Vector) Decode(reg *attr.Registry, c attr.CategoryID) (attr.Value, error) {
	cat, ok := reg.Get(c)
	if !ok {
		return nil, fmt.Errorf("feature: category %q is not defined", c)
	}
	sub, ok := v[c]
	if !ok {
		return nil, fmt.Errorf("feature: category %q not present", c)
	}
	val, err := attr.NewValue(cat.Kind)
	if err != nil {
		return nil, err
	}
	if err := val.SetNumeric(sub); err != nil {
		return nil, fmt.Errorf("feature: decode %q: %w", c, err)
	}
	return val, nil
}
