// Package attr defines typed attribute categories and their fixed-width
// numeric encodings. Every numeric-convertible value encodes to exactly
// Kind.Width() floats, so feature vectors built from different nodes line up.
package attr

import (
	"errors"
	"fmt"
)

// MaxEnumCardinality is the number of slots reserved for Enum and FlagsEnum
// encodings. Enum members and flag bits must have an index below it.
const MaxEnumCardinality = 32

// ErrWidth is returned when a numeric encoding has the wrong length for its kind.
var ErrWidth = errors.New("attr: encoding width mismatch")

// CategoryID names an attribute slot. Unique within a graph.
type CategoryID string

// Kind enumerates attribute value types.
type Kind int

const (
	KindNominal   Kind = iota // free-form label, not interpolated
	KindFloat                 // scalar
	KindEnum                  // one member of a closed set
	KindFlagsEnum             // any subset of a closed set
	KindRange                 // [min, max] pair
	KindVector3               // 3D vector
	KindVector2               // 2D vector
	KindBoolean               // true/false
)

func (k Kind) String() string {
	switch k {
	case KindNominal:
		return "nominal"
	case KindFloat:
		return "float"
	case KindEnum:
		return "enum"
	case KindFlagsEnum:
		return "flags"
	case KindRange:
		return "range"
	case KindVector3:
		return "vec3"
	case KindVector2:
		return "vec2"
	case KindBoolean:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := KindNominal; k <= KindBoolean; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("attr: unknown kind %q", s)
}

// Width returns the number of floats in the kind's encoding.
func (k Kind) Width() int {
	switch k {
	case KindNominal, KindFloat, KindBoolean:
		return 1
	case KindRange, KindVector2:
		return 2
	case KindVector3:
		return 3
	case KindEnum, KindFlagsEnum:
		return MaxEnumCardinality
	default:
		return 0
	}
}

// Numeric reports whether values of this kind take part in interpolation.
func (k Kind) Numeric() bool {
	return k != KindNominal && k.Width() > 0
}

// Category is an immutable attribute slot definition.
type Category struct {
	ID   CategoryID
	Kind Kind
}

// Width returns the feature width of the category.
func (c Category) Width() int {
	return c.Kind.Width()
}

// Registry owns the categories of one graph.
type Registry struct {
	cats  map[CategoryID]Category
	order []CategoryID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{cats: make(map[CategoryID]Category)}
}

// Define registers a new category. Redefining an id is an error, even with
// the same kind, since categories are immutable once created.
func (r *Registry) Define(id CategoryID, kind Kind) (Category, error) {
	if id == "" {
		return Category{}, errors.New("attr: empty category id")
	}
	if _, exists := r.cats[id]; exists {
		return Category{}, fmt.Errorf("attr: category %q already defined", id)
	}
	if kind.Width() == 0 {
		return Category{}, fmt.Errorf("attr: category %q: invalid kind %d", id, int(kind))
	}
	c := Category{ID: id, Kind: kind}
	r.cats[id] = c
	r.order = append(r.order, id)
	return c, nil
}

// Get returns the category with the given id.
func (r *Registry) Get(id CategoryID) (Category, bool) {
	c, ok := r.cats[id]
	return c, ok
}

// Categories returns all categories in definition order.
func (r *Registry) Categories() []Category {
	out := make([]Category, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.cats[id])
	}
	return out
}

// Len returns the number of defined categories.
func (r *Registry) Len() int {
	return len(r.order)
}
