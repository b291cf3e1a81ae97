package interp

import (
	"fmt"
	"strings"

	"github.com/chazu/fieldgraph/pkg/weight"
)

// DefaultPower is the IDW exponent used when none is configured.
const DefaultPower = 2.5

// Strategy is the closed set of interpolation strategies. Variants carry
// only the parameters they use; Interpolate switches over them exhaustively.
type Strategy interface {
	strategy() // marker method restricting implementations to this package
}

// Nearest returns the values of the single closest node (Voronoi cells).
type Nearest struct{}

func (Nearest) strategy() {}

// IDW is classic inverse distance weighting, w = 1/d^Power. A node at
// distance zero is passed through verbatim.
//
// With Power <= 3 in three dimensions the many far nodes collectively
// outweigh the few near ones; this is a property of the method.
type IDW struct {
	Power float64
}

func (IDW) strategy() {}

// SpaceAdjustedIDW weighs by 1/(d+1)^Power. The offset removes the
// singularity at zero distance, trading exact pass-through for smoother
// blending near each node.
type SpaceAdjustedIDW struct {
	Power float64
}

func (SpaceAdjustedIDW) strategy() {}

// Kernel weighs with any distance transform. Weights are computed as one
// batch so normalising transforms such as weight.Softmax work.
type Kernel struct {
	Transform weight.Transform
}

func (Kernel) strategy() {}

// Name returns a short description of s for logs.
func Name(s Strategy) string {
	switch s := s.(type) {
	case Nearest:
		return "nearest"
	case IDW:
		return fmt.Sprintf("idw(p=%g)", s.Power)
	case SpaceAdjustedIDW:
		return fmt.Sprintf("space-adjusted-idw(p=%g)", s.Power)
	case Kernel:
		return fmt.Sprintf("kernel(%T)", s.Transform)
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Method enumerates the strategies selectable from configuration.
type Method int

const (
	MethodNearest Method = iota
	MethodIDW
	MethodSpaceAdjustedIDW
)

func (m Method) String() string {
	switch m {
	case MethodNearest:
		return "nearest"
	case MethodIDW:
		return "idw"
	case MethodSpaceAdjustedIDW:
		return "space-adjusted-idw"
	default:
		return "unknown"
	}
}

// ParseMethod is the inverse of Method.String. Matching ignores case.
func ParseMethod(s string) (Method, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m := MethodNearest; m <= MethodSpaceAdjustedIDW; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("interp: unknown method %q (want nearest, idw or space-adjusted-idw)", s)
}

// Options selects a strategy from configuration. Power only affects the IDW
// variants; zero means DefaultPower.
type Options struct {
	Method Method
	Power  float64
}

// Strategy builds the variant named by o.
func (o Options) Strategy() (Strategy, error) {
	p := o.Power
	if p == 0 {
		p = DefaultPower
	}
	switch o.Method {
	case MethodNearest:
		return Nearest{}, nil
	case MethodIDW:
		return IDW{Power: p}, nil
	case MethodSpaceAdjustedIDW:
		return SpaceAdjustedIDW{Power: p}, nil
	default:
		return nil, fmt.Errorf("interp: unknown method %d", int(o.Method))
	}
}
