package attr

import (
	"fmt"
	"math/bits"
)

// Value is a typed attribute payload. Numeric returns the fixed-width
// encoding (false for kinds that do not interpolate); SetNumeric decodes an
// encoding, typically a blended one, back into the value.
type Value interface {
	Kind() Kind
	Numeric() ([]float64, bool)
	SetNumeric(enc []float64) error
}

// NewValue returns a zero value of the given kind.
func NewValue(k Kind) (Value, error) {
	switch k {
	case KindNominal:
		return &Nominal{}, nil
	case KindFloat:
		return &Float{}, nil
	case KindEnum:
		return &Enum{}, nil
	case KindFlagsEnum:
		return &Flags{}, nil
	case KindRange:
		return &Range{}, nil
	case KindVector3:
		return &Vector3{}, nil
	case KindVector2:
		return &Vector2{}, nil
	case KindBoolean:
		return &Boolean{}, nil
	default:
		return nil, fmt.Errorf("attr: no value type for kind %d", int(k))
	}
}

func checkWidth(k Kind, enc []float64) error {
	if len(enc) != k.Width() {
		return fmt.Errorf("%w: %s wants %d, got %d", ErrWidth, k, k.Width(), len(enc))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Nominal
// ---------------------------------------------------------------------------

// Nominal is a free-form label. It has no numeric encoding.
type Nominal struct {
	Label string
}

func (*Nominal) Kind() Kind                     { return KindNominal }
func (*Nominal) Numeric() ([]float64, bool)     { return nil, false }
func (*Nominal) SetNumeric(enc []float64) error { return fmt.Errorf("attr: nominal values are not numeric") }

// ---------------------------------------------------------------------------
// Scalars
// ---------------------------------------------------------------------------

// Float is a scalar attribute.
type Float struct {
	V float64
}

func (*Float) Kind() Kind { return KindFloat }

func (f *Float) Numeric() ([]float64, bool) { return []float64{f.V}, true }

func (f *Float) SetNumeric(enc []float64) error {
	if err := checkWidth(KindFloat, enc); err != nil {
		return err
	}
	f.V = enc[0]
	return nil
}

// Boolean encodes as 0 or 1 and decodes with a 0.5 threshold.
type Boolean struct {
	V bool
}

func (*Boolean) Kind() Kind { return KindBoolean }

func (b *Boolean) Numeric() ([]float64, bool) {
	if b.V {
		return []float64{1}, true
	}
	return []float64{0}, true
}

func (b *Boolean) SetNumeric(enc []float64) error {
	if err := checkWidth(KindBoolean, enc); err != nil {
		return err
	}
	b.V = enc[0] >= 0.5
	return nil
}

// ---------------------------------------------------------------------------
// Pairs and vectors
// ---------------------------------------------------------------------------

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min, Max float64
}

func (*Range) Kind() Kind { return KindRange }

func (r *Range) Numeric() ([]float64, bool) { return []float64{r.Min, r.Max}, true }

func (r *Range) SetNumeric(enc []float64) error {
	if err := checkWidth(KindRange, enc); err != nil {
		return err
	}
	r.Min, r.Max = enc[0], enc[1]
	return nil
}

// Vector2 is a 2D vector attribute.
type Vector2 struct {
	X, Y float64
}

func (*Vector2) Kind() Kind { return KindVector2 }

func (v *Vector2) Numeric() ([]float64, bool) { return []float64{v.X, v.Y}, true }

func (v *Vector2) SetNumeric(enc []float64) error {
	if err := checkWidth(KindVector2, enc); err != nil {
		return err
	}
	v.X, v.Y = enc[0], enc[1]
	return nil
}

// Vector3 is a 3D vector attribute.
type Vector3 struct {
	X, Y, Z float64
}

func (*Vector3) Kind() Kind { return KindVector3 }

func (v *Vector3) Numeric() ([]float64, bool) { return []float64{v.X, v.Y, v.Z}, true }

func (v *Vector3) SetNumeric(enc []float64) error {
	if err := checkWidth(KindVector3, enc); err != nil {
		return err
	}
	v.X, v.Y, v.Z = enc[0], enc[1], enc[2]
	return nil
}

// ---------------------------------------------------------------------------
// Enumerations
// ---------------------------------------------------------------------------

// Enum selects one member by index. Encodes one-hot; decodes by argmax with
// the lowest index winning ties.
type Enum struct {
	Index int
}

func (*Enum) Kind() Kind { return KindEnum }

func (e *Enum) Numeric() ([]float64, bool) {
	if e.Index < 0 || e.Index >= MaxEnumCardinality {
		return nil, false
	}
	enc := make([]float64, MaxEnumCardinality)
	enc[e.Index] = 1
	return enc, true
}

func (e *Enum) SetNumeric(enc []float64) error {
	if err := checkWidth(KindEnum, enc); err != nil {
		return err
	}
	best := 0
	for i, v := range enc {
		if v > enc[best] {
			best = i
		}
	}
	e.Index = best
	return nil
}

// Flags is a bit set over at most MaxEnumCardinality members. Each bit gets
// its own slot; a slot decodes as set when it is at least 0.5.
type Flags struct {
	Mask uint32
}

func (*Flags) Kind() Kind { return KindFlagsEnum }

func (f *Flags) Numeric() ([]float64, bool) {
	enc := make([]float64, MaxEnumCardinality)
	for i := range enc {
		if f.Mask&(1<<uint(i)) != 0 {
			enc[i] = 1
		}
	}
	return enc, true
}

func (f *Flags) SetNumeric(enc []float64) error {
	if err := checkWidth(KindFlagsEnum, enc); err != nil {
		return err
	}
	var m uint32
	for i, v := range enc {
		if v >= 0.5 {
			m |= 1 << uint(i)
		}
	}
	f.Mask = m
	return nil
}

// Count returns the number of set flags.
func (f *Flags) Count() int {
	return bits.OnesCount32(f.Mask)
}
