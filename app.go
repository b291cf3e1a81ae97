package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/fieldgraph/pkg/attr"
	"github.com/chazu/fieldgraph/pkg/engine"
	"github.com/chazu/fieldgraph/pkg/interp"
	"github.com/chazu/fieldgraph/pkg/kernel"
	"github.com/chazu/fieldgraph/pkg/logger"
	"github.com/chazu/fieldgraph/pkg/measure"
)

// ErrNoSnapshot is returned by Sample before a script evaluated successfully.
var ErrNoSnapshot = errors.New("no evaluated script")

// App ties the engine to a sampling configuration. It keeps the last good
// snapshot so repeated samples reuse one evaluation.
type App struct {
	engine   *engine.Engine
	strategy interp.Strategy
	measure  measure.Measure
	log      *slog.Logger
	snap     *engine.Snapshot
}

// EvalErrorData is a JSON-serializable eval error or validation warning.
type EvalErrorData struct {
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
	Node    string `json:"node,omitempty"`
	Message string `json:"message"`
}

// EvalResult summarises one evaluation.
type EvalResult struct {
	Nodes      int             `json:"nodes"`
	Categories []string        `json:"categories"`
	Regions    int             `json:"regions"`
	Errors     []EvalErrorData `json:"errors"`
	Warnings   []EvalErrorData `json:"warnings"`
}

// Sample is the field at one point: the owning region and blended values.
type Sample struct {
	Point   [3]float64     `json:"point"`
	Region  string         `json:"region,omitempty"`
	Path    []string       `json:"path,omitempty"`
	Nearest *NearestRegion `json:"nearest,omitempty"`
	Values  map[string]any `json:"values"`
}

// NearestRegion reports the closest region for points outside every region.
type NearestRegion struct {
	Region   string     `json:"region"`
	Distance float64    `json:"distance"`
	Closest  [3]float64 `json:"closest"`
}

// NewApp creates an App with the strategy and measure named by cfg. A nil
// log means the process-wide logger.
func NewApp(cfg Config, log *slog.Logger) (*App, error) {
	s, err := cfg.Strategy()
	if err != nil {
		return nil, err
	}
	m, err := cfg.DistanceMeasure()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.L()
	}
	return &App{
		engine:   engine.NewEngine(),
		strategy: s,
		measure:  m,
		log:      log,
	}, nil
}

// Evaluate runs a script. On success the resulting snapshot replaces the
// previous one; on failure the previous snapshot stays in place.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Categories: []string{},
		Errors:     []EvalErrorData{},
		Warnings:   []EvalErrorData{},
	}

	snap, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.log.Error("evaluate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			a.log.Warn("script error", "line", e.Line, "node", e.NodeID, "msg", e.Message)
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Node:    string(e.NodeID),
				Message: e.Message,
			})
		}
		return result
	}

	for _, w := range snap.Warnings {
		a.log.Warn("validation", "node", w.NodeID, "msg", w.Message)
		result.Warnings = append(result.Warnings, EvalErrorData{
			Node:    string(w.NodeID),
			Message: w.Message,
		})
	}
	for _, c := range snap.Registry.Categories() {
		result.Categories = append(result.Categories, string(c.ID))
	}
	result.Nodes = snap.Graph.Len()
	result.Regions = snap.Regions.Len()

	a.snap = snap
	a.log.Info("evaluated",
		"nodes", result.Nodes,
		"categories", len(result.Categories),
		"regions", result.Regions,
		"strategy", interp.Name(a.strategy))
	return result
}

// Sample resolves the region at p and blends the placed nodes' attributes.
func (a *App) Sample(p kernel.Vec3) (Sample, error) {
	if a.snap == nil {
		return Sample{}, ErrNoSnapshot
	}
	out := Sample{
		Point:  [3]float64{p.X, p.Y, p.Z},
		Values: map[string]any{},
	}

	tree := a.snap.Regions
	if r := tree.ResolvePoint(p); r != nil {
		out.Region = string(r.ID)
		for _, anc := range tree.Path(r) {
			out.Path = append(out.Path, string(anc.ID))
		}
	} else if r, d, q := tree.Nearest(p); r != nil && !math.IsInf(d, 0) {
		out.Nearest = &NearestRegion{
			Region:   string(r.ID),
			Distance: d,
			Closest:  [3]float64{q.X, q.Y, q.Z},
		}
	}

	v, err := interp.Interpolate(a.strategy, a.snap.Graph.Placed(), p, a.measure)
	if err != nil {
		return Sample{}, fmt.Errorf("sample %v: %w", p, err)
	}
	for _, c := range v.Categories() {
		val, err := v.Decode(a.snap.Registry, c)
		if err != nil {
			return Sample{}, fmt.Errorf("sample %v: %w", p, err)
		}
		out.Values[string(c)] = jsonValue(val)
	}

	a.log.Debug("sampled", "point", out.Point, "region", out.Region, "values", len(out.Values))
	return out, nil
}

// SampleAll samples every point in order, stopping at the first error.
func (a *App) SampleAll(points []kernel.Vec3) ([]Sample, error) {
	out := make([]Sample, 0, len(points))
	for _, p := range points {
		s, err := a.Sample(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// jsonValue renders a decoded attribute value for JSON output.
func jsonValue(v attr.Value) any {
	switch v := v.(type) {
	case *attr.Float:
		return v.V
	case *attr.Boolean:
		return v.V
	case *attr.Enum:
		return v.Index
	case *attr.Flags:
		bits := []int{}
		for i := 0; i < attr.MaxEnumCardinality; i++ {
			if v.Mask&(1<<uint(i)) != 0 {
				bits = append(bits, i)
			}
		}
		return bits
	case *attr.Range:
		return [2]float64{v.Min, v.Max}
	case *attr.Vector2:
		return [2]float64{v.X, v.Y}
	case *attr.Vector3:
		return [3]float64{v.X, v.Y, v.Z}
	case *attr.Nominal:
		return v.Label
	default:
		return nil
	}
}

// ParsePoints reads query points written as "x,y,z;x,y,z".
func ParsePoints(s string) ([]kernel.Vec3, error) {
	var out []kernel.Vec3
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("point %q: want x,y,z", item)
		}
		var xyz [3]float64
		for i, part := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, fmt.Errorf("point %q: %w", item, err)
			}
			xyz[i] = f
		}
		out = append(out, kernel.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	return out, nil
}
