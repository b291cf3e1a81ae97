package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/fieldgraph/pkg/attr"
	"github.com/chazu/fieldgraph/pkg/graph"
	"github.com/chazu/fieldgraph/pkg/kernel"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites script source before zygomys sees it:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal), so
//     keywords never collide with user-defined globals.
//
//  2. Kebab-case to underscore: set-attr -> set_attr, since zygomys reads a
//     hyphen inside an identifier as subtraction.
//
//  3. Line comments: ; and ;; become //, the zygomys comment syntax.
//
// String literals (double-quoted and backtick) are copied untouched.
func preprocessSource(source string) string {
	out := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch c := b[i]; {
		case c == '"':
			j := skipQuoted(b, i, '"', true)
			out = append(out, b[i:j]...)
			i = j

		case c == '`':
			j := skipQuoted(b, i, '`', false)
			out = append(out, b[i:j]...)
			i = j

		case c == ';':
			out = append(out, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}

		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++

		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// skipQuoted returns the index just past the literal opened at b[start].
func skipQuoted(b []byte, start int, quote byte, escapes bool) int {
	i := start + 1
	for i < len(b) && b[i] != quote {
		if escapes && b[i] == '\\' && i+1 < len(b) {
			i += 2
			continue
		}
		i++
	}
	if i < len(b) {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a kernel.Vec3.
type sexpVec3 struct {
	vec kernel.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpVec2 wraps a two-component vector.
type sexpVec2 struct {
	x, y float64
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %g %g)", v.x, v.y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// sexpRange wraps a closed numeric interval.
type sexpRange struct {
	lo, hi float64
}

func (r *sexpRange) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(span %g %g)", r.lo, r.hi)
}
func (r *sexpRange) Type() *zygo.RegisteredType { return nil }

// sexpShape wraps a solid built by the geometry kernel.
type sexpShape struct {
	solid kernel.Solid
	desc  string
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string { return s.desc }
func (s *sexpShape) Type() *zygo.RegisteredType            { return nil }

// sexpNodeRef names a node declared earlier in the script.
type sexpNodeRef struct {
	id graph.NodeID
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(noderef %q)", string(n.id))
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// A trailing keyword with no value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// describe renders a Sexp for error messages.
func describe(s zygo.Sexp) string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T (%s)", s, s.SexpString(nil))
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %s", describe(s))
}

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %s", describe(s))
}

// toBool accepts true/false.
func toBool(s zygo.Sexp) (bool, error) {
	if v, ok := s.(*zygo.SexpBool); ok {
		return v.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %s", describe(s))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %s", describe(s))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_float) and plain strings ("float").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %s", describe(s))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toNodeID accepts a node reference or a plain string id.
func toNodeID(s zygo.Sexp) (graph.NodeID, error) {
	switch v := s.(type) {
	case *sexpNodeRef:
		return v.id, nil
	case *zygo.SexpStr:
		return graph.NodeID(v.S), nil
	}
	return "", fmt.Errorf("expected node reference or id, got %s", describe(s))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (kernel.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return kernel.Vec3{}, fmt.Errorf("expected vec3, got %s", describe(s))
}

// toShape extracts a solid from a sexpShape.
func toShape(s zygo.Sexp) (*sexpShape, error) {
	if v, ok := s.(*sexpShape); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected shape, got %s", describe(s))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// numbers converts every element of args to float64.
func numbers(fn string, labels []string, args []zygo.Sexp) ([]float64, error) {
	if len(args) != len(labels) {
		return nil, fmt.Errorf("%s requires exactly %d arguments, got %d", fn, len(labels), len(args))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", fn, labels[i], err)
		}
		out[i] = f
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Attribute values
// ---------------------------------------------------------------------------

// toValue converts a script value into an attribute value of the given kind.
func toValue(kind attr.Kind, s zygo.Sexp) (attr.Value, error) {
	switch kind {
	case attr.KindNominal:
		str, err := toString(s)
		if err != nil {
			return nil, err
		}
		return &attr.Nominal{Label: str}, nil

	case attr.KindFloat:
		f, err := toFloat64(s)
		if err != nil {
			return nil, err
		}
		return &attr.Float{V: f}, nil

	case attr.KindBoolean:
		b, err := toBool(s)
		if err != nil {
			return nil, err
		}
		return &attr.Boolean{V: b}, nil

	case attr.KindEnum:
		idx, err := toInt(s)
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= attr.MaxEnumCardinality {
			return nil, fmt.Errorf("enum index %d out of range [0,%d)", idx, attr.MaxEnumCardinality)
		}
		return &attr.Enum{Index: idx}, nil

	case attr.KindFlagsEnum:
		return toFlags(s)

	case attr.KindRange:
		r, ok := s.(*sexpRange)
		if !ok {
			return nil, fmt.Errorf("expected span, got %s", describe(s))
		}
		return &attr.Range{Min: r.lo, Max: r.hi}, nil

	case attr.KindVector2:
		v, ok := s.(*sexpVec2)
		if !ok {
			return nil, fmt.Errorf("expected vec2, got %s", describe(s))
		}
		return &attr.Vector2{X: v.x, Y: v.y}, nil

	case attr.KindVector3:
		v, err := toVec3(s)
		if err != nil {
			return nil, err
		}
		return &attr.Vector3{X: v.X, Y: v.Y, Z: v.Z}, nil
	}
	return nil, fmt.Errorf("unsupported kind %s", kind)
}

// toFlags accepts either a list of set bit indices or a raw integer mask.
func toFlags(s zygo.Sexp) (attr.Value, error) {
	if mask, err := toInt(s); err == nil {
		if mask < 0 || mask > 1<<attr.MaxEnumCardinality-1 {
			return nil, fmt.Errorf("flag mask %d out of range", mask)
		}
		return &attr.Flags{Mask: uint32(mask)}, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, fmt.Errorf("expected flag list or mask: %w", err)
	}
	var f attr.Flags
	for _, item := range items {
		bit, err := toInt(item)
		if err != nil {
			return nil, fmt.Errorf("flag entry: %w", err)
		}
		if bit < 0 || bit >= attr.MaxEnumCardinality {
			return nil, fmt.Errorf("flag %d out of range [0,%d)", bit, attr.MaxEnumCardinality)
		}
		f.Mask |= 1 << uint(bit)
	}
	return &f, nil
}

// ---------------------------------------------------------------------------
// Evaluation session
// ---------------------------------------------------------------------------

// session is the mutable state one evaluation's builtins write into.
type session struct {
	kernel   kernel.Kernel
	registry *attr.Registry
	builder  *graph.Builder
}

func newSession(k kernel.Kernel) *session {
	reg := attr.NewRegistry()
	return &session{
		kernel:   k,
		registry: reg,
		builder:  graph.NewBuilder(reg),
	}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the fieldgraph DSL builtins into a zygomys
// environment. Builtins write into s during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *session) {

	// -----------------------------------------------------------------------
	// (category "danger" :float)
	// -----------------------------------------------------------------------
	env.AddFunction("category", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("category requires an id and a kind")
		}
		id, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("category: id: %w", err)
		}
		kindName, err := toKeywordString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("category: kind: %w", err)
		}
		kind, err := attr.ParseKind(kindName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("category: %w", err)
		}
		if _, err := s.registry.Define(attr.CategoryID(id), kind); err != nil {
			return zygo.SexpNull, fmt.Errorf("category: %w", err)
		}
		return &zygo.SexpStr{S: id}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3) (vec2 1 2) (span 0 10)
	//
	// Intervals are spelled span because range is a zygomys loop form.
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numbers("vec3", []string{"x", "y", "z"}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec3{vec: kernel.Vec3{X: v[0], Y: v[1], Z: v[2]}}, nil
	})

	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numbers("vec2", []string{"x", "y"}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec2{x: v[0], y: v[1]}, nil
	})

	env.AddFunction("span", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numbers("span", []string{"lo", "hi"}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if v[0] > v[1] {
			return zygo.SexpNull, fmt.Errorf("span: lo %g is greater than hi %g", v[0], v[1])
		}
		return &sexpRange{lo: v[0], hi: v[1]}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere 5) (box 10 4 2) (cylinder 8 2)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numbers("sphere", []string{"radius"}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		solid, err := s.kernel.Sphere(v[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		return &sexpShape{solid: solid, desc: fmt.Sprintf("(sphere %g)", v[0])}, nil
	})

	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numbers("box", []string{"x", "y", "z"}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		solid, err := s.kernel.Box(v[0], v[1], v[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		return &sexpShape{solid: solid, desc: fmt.Sprintf("(box %g %g %g)", v[0], v[1], v[2])}, nil
	})

	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numbers("cylinder", []string{"height", "radius"}, args)
		if err != nil {
			return zygo.SexpNull, err
		}
		solid, err := s.kernel.Cylinder(v[0], v[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return &sexpShape{solid: solid, desc: fmt.Sprintf("(cylinder %g %g)", v[0], v[1])}, nil
	})

	// -----------------------------------------------------------------------
	// (translate shape (vec3 x y z))
	// -----------------------------------------------------------------------
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("translate requires a shape and a vec3")
		}
		sh, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		v, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		return &sexpShape{
			solid: s.kernel.Translate(sh.solid, v),
			desc:  fmt.Sprintf("(translate %s (vec3 %g %g %g))", sh.desc, v.X, v.Y, v.Z),
		}, nil
	})

	// -----------------------------------------------------------------------
	// (union a b ...) (difference a b)
	// -----------------------------------------------------------------------
	env.AddFunction("union", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("union requires at least two shapes")
		}
		acc, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("union: shape 0: %w", err)
		}
		solid, descs := acc.solid, []string{acc.desc}
		for i, a := range args[1:] {
			sh, err := toShape(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("union: shape %d: %w", i+1, err)
			}
			solid = s.kernel.Union(solid, sh.solid)
			descs = append(descs, sh.desc)
		}
		return &sexpShape{solid: solid, desc: "(union " + strings.Join(descs, " ") + ")"}, nil
	})

	env.AddFunction("difference", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("difference requires exactly two shapes")
		}
		a, err := toShape(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("difference: %w", err)
		}
		b, err := toShape(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("difference: %w", err)
		}
		return &sexpShape{
			solid: s.kernel.Difference(a.solid, b.solid),
			desc:  fmt.Sprintf("(difference %s %s)", a.desc, b.desc),
		}, nil
	})

	// -----------------------------------------------------------------------
	// (node "forest" :parent "world" :at (vec3 0 0 0) :region shape :implicit true)
	//
	// Without :at, a node with an explicit region is anchored on its shape.
	// -----------------------------------------------------------------------
	env.AddFunction("node", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("node requires exactly one id argument")
		}
		id, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: id: %w", err)
		}

		n, err := s.builder.Add(graph.NodeID(id))
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("node: %w", err)
		}

		if v, ok := pa.kw["parent"]; ok {
			pid, err := toNodeID(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("node %s: parent: %w", id, err)
			}
			if err := s.builder.SetParent(n.ID, pid); err != nil {
				return zygo.SexpNull, fmt.Errorf("node %s: %w", id, err)
			}
		}
		if v, ok := pa.kw["region"]; ok {
			sh, err := toShape(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("node %s: region: %w", id, err)
			}
			n.Shape = sh.solid
			n.Anchor = sh.solid
		}
		if v, ok := pa.kw["implicit"]; ok {
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("node %s: implicit: %w", id, err)
			}
			n.Implicit = b
		}
		if v, ok := pa.kw["at"]; ok {
			at, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("node %s: at: %w", id, err)
			}
			n.Anchor = kernel.Point(at)
		}

		return &sexpNodeRef{id: n.ID}, nil
	})

	// -----------------------------------------------------------------------
	// (attr "forest" "danger" 0.4)
	//
	// The value is read according to the category's kind, which must be
	// declared first.
	// -----------------------------------------------------------------------
	env.AddFunction("attr", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("attr requires a node, a category and a value")
		}
		id, err := toNodeID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("attr: node: %w", err)
		}
		n := s.builder.Node(id)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("attr: no node named %q", id)
		}
		cid, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("attr: category: %w", err)
		}
		cat, ok := s.registry.Get(attr.CategoryID(cid))
		if !ok {
			return zygo.SexpNull, fmt.Errorf("attr: category %q is not defined", cid)
		}
		val, err := toValue(cat.Kind, args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("attr %s.%s: %w", id, cid, err)
		}
		n.SetAttr(cat.ID, val)
		return &sexpNodeRef{id: n.ID}, nil
	})
}
