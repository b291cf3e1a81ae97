package feature

import (
	"testing"

	"github.com/chazu/fieldgraph/pkg/attr"
	"github.com/chazu/fieldgraph/pkg/graph"
)

const tol = 1e-12

func sample() Vector {
	return Vector{
		"danger": {0.5},
		"wind":   {1, 2, 3},
	}
}

func TestAddCommutative(t *testing.T) {
	a := sample()
	b := Vector{"danger": {1.5}, "loot": {2, 4}}

	ab := a.Add(b)
	ba := b.Add(a)
	if !ab.Equal(ba, tol) {
		t.Errorf("a+b = %v, b+a = %v", ab, ba)
	}
	want := Vector{"danger": {2}, "wind": {1, 2, 3}, "loot": {2, 4}}
	if !ab.Equal(want, tol) {
		t.Errorf("a+b = %v, want %v", ab, want)
	}
}

func TestAddAssociative(t *testing.T) {
	a := sample()
	b := Vector{"danger": {1}, "loot": {2, 4}}
	c := Vector{"wind": {-1, 0, 1}, "loot": {1, 1}}

	left := a.Add(b).Add(c)
	right := a.Add(b.Add(c))
	if !left.Equal(right, tol) {
		t.Errorf("(a+b)+c = %v, a+(b+c) = %v", left, right)
	}
}

func TestOperationsDoNotMutate(t *testing.T) {
	a := sample()
	orig := a.Clone()

	_ = a.Add(Vector{"danger": {10}})
	_ = a.Scale(3)
	_ = a.DivideCategory("wind", 2)

	if !a.Equal(orig, 0) {
		t.Errorf("pure operations mutated the receiver: %v", a)
	}
}

func TestIdentities(t *testing.T) {
	a := sample()
	if !a.Scale(1).Equal(a, 0) {
		t.Error("Scale(1) should be the identity")
	}
	if !a.DivideCategory("wind", 1).Equal(a, 0) {
		t.Error("DivideCategory(c, 1) should be the identity")
	}
}

func TestDivideCategory(t *testing.T) {
	a := sample()
	got := a.DivideCategory("wind", 2)
	want := Vector{"danger": {0.5}, "wind": {0.5, 1, 1.5}}
	if !got.Equal(want, tol) {
		t.Errorf("DivideCategory = %v, want %v", got, want)
	}

	// Absent category is a no-op and must not create the key.
	got = a.DivideCategory("missing", 2)
	if _, ok := got["missing"]; ok {
		t.Error("DivideCategory created an absent category")
	}
	if !got.Equal(a, 0) {
		t.Error("DivideCategory on absent category changed the vector")
	}
}

func TestAbsentDiffersFromZero(t *testing.T) {
	a := Vector{"danger": {0}}
	b := Vector{}
	if a.Equal(b, tol) {
		t.Error("present zero should differ from absent key")
	}
}

func TestAccumulateWidthMismatchPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("combining mismatched widths should panic")
		}
	}()
	a := Vector{"wind": {1, 2, 3}}
	a.Accumulate(Vector{"wind": {1, 2}}, 1)
}

func TestFromNodeSkipsNonNumeric(t *testing.T) {
	n := &graph.Node{ID: "n"}
	n.SetAttr("danger", &attr.Float{V: 0.25})
	n.SetAttr("name", &attr.Nominal{Label: "Fen"})
	n.SetAttr("loot", &attr.Range{Min: 1, Max: 3})

	v := FromNode(n)
	want := Vector{"danger": {0.25}, "loot": {1, 3}}
	if !v.Equal(want, 0) {
		t.Errorf("FromNode = %v, want %v", v, want)
	}

	// The vector must not alias the node's encoding.
	v["danger"][0] = 9
	if n.Attrs[0].Value.(*attr.Float).V != 0.25 {
		t.Error("FromNode aliased the node value")
	}
}

func TestCategoriesSorted(t *testing.T) {
	v := Vector{"z": {1}, "a": {1}, "m": {1}}
	got := v.Categories()
	want := []attr.CategoryID{"a", "m", "z"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Categories() = %v, want %v", got, want)
		}
	}
}

func TestDecode(t *testing.T) {
	reg := attr.NewRegistry()
	reg.Define("loot", attr.KindRange)
	reg.Define("wet", attr.KindBoolean)

	v := Vector{"loot": {2, 6}, "wet": {0.7}}

	val, err := v.Decode(reg, "loot")
	if err != nil {
		t.Fatalf("Decode(loot) error = %v", err)
	}
	if r := val.(*attr.Range); r.Min != 2 || r.Max != 6 {
		t.Errorf("Decode(loot) = %+v, want {2 6}", r)
	}

	val, err = v.Decode(reg, "wet")
	if err != nil {
		t.Fatalf("Decode(wet) error = %v", err)
	}
	if !val.(*attr.Boolean).V {
		t.Error("Decode(wet) should round 0.7 to true")
	}

	if _, err := v.Decode(reg, "undefined"); err == nil {
		t.Error("Decode of an undefined category should fail")
	}
	reg.Define("absent", attr.KindFloat)
	if _, err := v.Decode(reg, "absent"); err == nil {
		t.Error("Decode of an absent category should fail")
	}
}
