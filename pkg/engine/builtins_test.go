package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/fieldgraph/pkg/attr"
	"github.com/chazu/fieldgraph/pkg/graph"
	"github.com/chazu/fieldgraph/pkg/interp"
	"github.com/chazu/fieldgraph/pkg/kernel"
	"github.com/chazu/fieldgraph/pkg/measure"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(category "danger" :float)`,
			expect: `(category "danger" "__kw_float")`,
		},
		{
			name:   "multiple keywords",
			input:  `(node "a" :parent "w" :implicit true)`,
			expect: `(node "a" "__kw_parent" "w" "__kw_implicit" true)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "escaped quote in string",
			input:  `"say \":hi\"" :x`,
			expect: `"say \":hi\"" "__kw_x"`,
		},
		{
			name:   "backtick string preserved",
			input:  "`raw :kw`",
			expect: "`raw :kw`",
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(def my-shape (sphere 1))`,
			expect: `(def my_shape (sphere 1))`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec3 -8 0 0)`,
			expect: `(vec3 -8 0 0)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:space-adjusted`,
			expect: `"__kw_space-adjusted"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Categories and attributes
// ---------------------------------------------------------------------------

func TestCategoryKinds(t *testing.T) {
	snap := mustEvaluate(t, `
(category "name" :nominal)
(category "danger" :float)
(category "biome" :enum)
(category "tags" :flags)
(category "temp" :range)
(category "wind" :vec2)
(category "drift" :vec3)
(category "wet" :bool)
`)
	want := []attr.Kind{
		attr.KindNominal, attr.KindFloat, attr.KindEnum, attr.KindFlagsEnum,
		attr.KindRange, attr.KindVector2, attr.KindVector3, attr.KindBoolean,
	}
	cats := snap.Registry.Categories()
	if len(cats) != len(want) {
		t.Fatalf("got %d categories, want %d", len(cats), len(want))
	}
	for i, c := range cats {
		if c.Kind != want[i] {
			t.Errorf("category %s kind = %s, want %s", c.ID, c.Kind, want[i])
		}
	}
}

func TestAttrValues(t *testing.T) {
	snap := mustEvaluate(t, `
(category "name" :nominal)
(category "danger" :float)
(category "biome" :enum)
(category "tags" :flags)
(category "mask" :flags)
(category "temp" :range)
(category "wind" :vec2)
(category "drift" :vec3)
(category "wet" :bool)
(node "a" :at (vec3 1 2 3))
(attr "a" "name" "camp")
(attr "a" "danger" 0.4)
(attr "a" "biome" 3)
(attr "a" "tags" (list 0 2))
(attr "a" "mask" 5)
(attr "a" "temp" (span -5 30))
(attr "a" "wind" (vec2 1 -1))
(attr "a" "drift" (vec3 0 0 1))
(attr "a" "wet" true)
`)
	n := snap.Graph.MustLookup("a")

	check := func(id attr.CategoryID, want attr.Value) {
		t.Helper()
		got, ok := n.Attr(id)
		if !ok {
			t.Errorf("attr %s missing", id)
			return
		}
		gotEnc, gotOK := got.Numeric()
		wantEnc, wantOK := want.Numeric()
		if got.Kind() != want.Kind() || gotOK != wantOK {
			t.Errorf("attr %s = %#v, want %#v", id, got, want)
			return
		}
		for i := range wantEnc {
			if gotEnc[i] != wantEnc[i] {
				t.Errorf("attr %s encoding = %v, want %v", id, gotEnc, wantEnc)
				return
			}
		}
	}

	check("danger", &attr.Float{V: 0.4})
	check("biome", &attr.Enum{Index: 3})
	check("tags", &attr.Flags{Mask: 0b101})
	check("mask", &attr.Flags{Mask: 0b101})
	check("temp", &attr.Range{Min: -5, Max: 30})
	check("wind", &attr.Vector2{X: 1, Y: -1})
	check("drift", &attr.Vector3{Z: 1})
	check("wet", &attr.Boolean{V: true})

	if v, _ := n.Attr("name"); v.(*attr.Nominal).Label != "camp" {
		t.Errorf("name = %#v, want camp", v)
	}
	if got := n.Anchor.Origin(); got != (kernel.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("anchor = %v, want (1,2,3)", got)
	}
}

func TestAttrErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"undefined category", `(node "a") (attr "a" "danger" 1)`, "not defined"},
		{"unknown node", `(category "danger" :float) (attr "ghost" "danger" 1)`, "no node named"},
		{"wrong value type", `(category "danger" :float) (node "a") (attr "a" "danger" "high")`, "expected number"},
		{"enum out of range", `(category "biome" :enum) (node "a") (attr "a" "biome" 40)`, "out of range"},
		{"unknown kind", `(category "x" :matrix)`, "unknown"},
		{"duplicate category", `(category "x" :float) (category "x" :float)`, "x"},
		{"duplicate node", `(node "a") (node "a")`, "already exists"},
		{"inverted span", `(span 3 1)`, "greater than"},
		{"bad sphere", `(sphere "big")`, "expected number"},
		{"region not a shape", `(node "a" :region 5)`, "expected shape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("unexpected fatal error: %v", err)
			}
			if snap != nil {
				t.Fatal("expected nil snapshot")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected eval errors")
			}
			if !strings.Contains(evalErrs[0].Message, tt.want) {
				t.Errorf("error = %q, want containing %q", evalErrs[0].Message, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Hierarchy and regions
// ---------------------------------------------------------------------------

const parkScript = `
; a park with a pond, next to a lake
(category "danger" :float)
(category "wet" :bool)

(node "world" :implicit true)
(node "park" :parent "world" :region (box 10 10 10))
(node "pond" :parent "park" :region (sphere 2))
(node "lake" :parent "world" :region (translate (sphere 1) (vec3 20 0 0)))

(attr "park" "danger" 0.1)
(attr "pond" "danger" 0.5)
(attr "pond" "wet" true)
(attr "lake" "danger" 0.9)
(attr "lake" "wet" true)
`

func TestNodeHierarchy(t *testing.T) {
	snap := mustEvaluate(t, parkScript)
	g := snap.Graph

	if g.Len() != 4 {
		t.Fatalf("got %d nodes, want 4", g.Len())
	}
	roots := g.Roots()
	if len(roots) != 1 || roots[0].ID != "world" {
		t.Fatalf("roots = %v, want [world]", roots)
	}
	if p := g.Parent(g.MustLookup("pond")); p == nil || p.ID != "park" {
		t.Errorf("pond parent = %v, want park", p)
	}
	if k := g.MustLookup("world").RegionKind(); k != graph.RegionImplicit {
		t.Errorf("world region kind = %s, want implicit", k)
	}
	if g.MustLookup("world").Placed() {
		t.Error("implicit node without :at should be unplaced")
	}
	if !g.MustLookup("park").Placed() {
		t.Error("explicit region node should be anchored on its shape")
	}
}

func TestForwardParentReference(t *testing.T) {
	snap := mustEvaluate(t, `
(node "child" :parent "later")
(node "later")
`)
	if p := snap.Graph.Parent(snap.Graph.MustLookup("child")); p == nil || p.ID != "later" {
		t.Errorf("child parent = %v, want later", p)
	}
}

func TestNodeRefAsParent(t *testing.T) {
	snap := mustEvaluate(t, `
(category "x" :float)
(def root (node "root"))
(node "leaf" :parent root)
(attr root "x" 1)
`)
	if p := snap.Graph.Parent(snap.Graph.MustLookup("leaf")); p == nil || p.ID != "root" {
		t.Errorf("leaf parent = %v, want root", p)
	}
	if _, ok := snap.Graph.MustLookup("root").Attr("x"); !ok {
		t.Error("attr through node reference not set")
	}
}

func TestRegionsResolveFromScript(t *testing.T) {
	snap := mustEvaluate(t, parkScript)
	tree := snap.Regions

	tests := []struct {
		p    kernel.Vec3
		want graph.NodeID
	}{
		{kernel.Vec3{X: 0.5}, "pond"},
		{kernel.Vec3{X: 4}, "park"},
		{kernel.Vec3{X: 20.2}, "lake"},
	}
	for _, tt := range tests {
		r := tree.ResolvePoint(tt.p)
		if r == nil || r.ID != tt.want {
			t.Errorf("ResolvePoint(%v) = %v, want %s", tt.p, r, tt.want)
		}
	}
	if r := tree.ResolvePoint(kernel.Vec3{X: 50}); r != nil {
		t.Errorf("ResolvePoint outside = %s, want none", r.ID)
	}
}

func TestDifferenceAndUnionRegions(t *testing.T) {
	snap := mustEvaluate(t, `
(node "ring" :region (difference (sphere 5) (sphere 3)))
(node "pair" :region (union (sphere 1) (translate (sphere 1) (vec3 10 0 0))))
`)
	tree := snap.Regions
	if r := tree.ResolvePoint(kernel.Vec3{}); r != nil {
		t.Errorf("hole in ring resolved to %s", r.ID)
	}
	if r := tree.ResolvePoint(kernel.Vec3{X: 4}); r == nil || r.ID != "ring" {
		t.Errorf("ring body resolved to %v", r)
	}
	if r := tree.ResolvePoint(kernel.Vec3{X: 10}); r == nil || r.ID != "pair" {
		t.Errorf("second sphere of pair resolved to %v", r)
	}
}

func TestInterpolateScriptedGraph(t *testing.T) {
	snap := mustEvaluate(t, `
(category "danger" :float)
(node "safe" :at (vec3 0 0 0))
(node "risky" :at (vec3 10 0 0))
(attr "safe" "danger" 0)
(attr "risky" "danger" 1)
`)
	nodes := snap.Graph.Placed()

	v, err := interp.Interpolate(interp.IDW{Power: 2}, nodes, kernel.Vec3{X: 5}, measure.Euclidean{})
	if err != nil {
		t.Fatalf("Interpolate error = %v", err)
	}
	if got := v["danger"][0]; math.Abs(got-0.5) > 1e-12 {
		t.Errorf("danger at midpoint = %f, want 0.5", got)
	}

	v, err = interp.Interpolate(interp.IDW{Power: 2}, nodes, kernel.Vec3{X: 10}, measure.Euclidean{})
	if err != nil {
		t.Fatalf("Interpolate error = %v", err)
	}
	if got := v["danger"][0]; got != 1 {
		t.Errorf("danger at risky anchor = %f, want exactly 1", got)
	}
}
