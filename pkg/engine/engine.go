// Package engine evaluates fieldgraph scripts. It wraps zygomys in a
// sandboxed environment and produces an immutable Snapshot (graph, category
// registry and region tree) from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/fieldgraph/pkg/attr"
	"github.com/chazu/fieldgraph/pkg/graph"
	"github.com/chazu/fieldgraph/pkg/kernel"
	"github.com/chazu/fieldgraph/pkg/kernel/sdfx"
	"github.com/chazu/fieldgraph/pkg/region"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code or a graph that
// fails validation.
type EvalError struct {
	Line    int
	Col     int
	NodeID  graph.NodeID
	Message string
}

func (e EvalError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	case e.NodeID != "":
		return fmt.Sprintf("node %s: %s", e.NodeID, e.Message)
	default:
		return e.Message
	}
}

// Snapshot is the immutable result of one successful evaluation.
type Snapshot struct {
	Graph    *graph.Graph
	Registry *attr.Registry
	Regions  *region.Tree

	// Warnings holds non-fatal validation findings.
	Warnings []graph.ValidationError
}

func emptySnapshot() *Snapshot {
	reg := attr.NewRegistry()
	g, _ := graph.NewBuilder(reg).Build()
	return &Snapshot{Graph: g, Registry: reg, Regions: region.Build(g)}
}

// Engine wraps the zygomys interpreter for fieldgraph evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	kernel     kernel.Kernel
}

// NewEngine creates an Engine that builds region shapes with the sdfx kernel.
func NewEngine() *Engine {
	return NewEngineWithKernel(sdfx.New())
}

// NewEngineWithKernel creates an Engine backed by the given geometry kernel.
func NewEngineWithKernel(k kernel.Kernel) *Engine {
	return &Engine{kernel: k}
}

// Evaluate takes Lisp source code and produces a new Snapshot.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns snapshot + nil errors + nil error
//   - On parse/eval/validation failure: returns nil snapshot + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Snapshot, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("engine: panic during evaluation: %v", r)}
			}
		}()

		snap, evalErrs, err := e.evaluate(source)
		ch <- evalResult{snapshot: snap, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Snapshot, []EvalError, error) {
	// Empty source is a valid program that produces an empty snapshot.
	if strings.TrimSpace(source) == "" {
		return emptySnapshot(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	s := newSession(e.kernel)
	registerBuiltins(env, s)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	g, findings := s.builder.Build()
	if g == nil {
		var evalErrs []EvalError
		for _, f := range findings {
			if f.Severity != graph.SeverityError {
				continue
			}
			evalErrs = append(evalErrs, EvalError{NodeID: f.NodeID, Message: f.Message})
		}
		return nil, evalErrs, nil
	}

	return &Snapshot{
		Graph:    g,
		Registry: s.registry,
		Regions:  region.Build(g),
		Warnings: findings,
	}, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values,
// extracting the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
