package graph

import (
	"fmt"

	"github.com/chazu/fieldgraph/pkg/attr"
)

// ValidationSeverity indicates whether a validation finding blocks a build
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks Build
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (empty if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID, e.Message)
}

// HasErrors reports whether any finding has SeverityError.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs the structural checks on a linked graph. It is read-only.
// Query code never re-checks these invariants, so a graph that fails here
// must not reach the interpolator or the region resolver.
func Validate(g *Graph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateAcyclic(g)...)
	errs = append(errs, validateRegions(g)...)
	errs = append(errs, validateAttrs(g)...)
	errs = append(errs, validateGeometry(g)...)
	return errs
}

// validateAcyclic checks parent links for cycles using DFS with 3-color
// marking. Each node has at most one parent, so the walk follows a chain.
func validateAcyclic(g *Graph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.nodes))
	var errs []ValidationError

	for start := range g.nodes {
		if color[start] != white {
			continue
		}
		var path []int
		i := start
		for i >= 0 && color[i] == white {
			color[i] = gray
			path = append(path, i)
			i = int(g.nodes[i].Parent)
		}
		if i >= 0 && color[i] == gray {
			errs = append(errs, ValidationError{
				NodeID:   g.nodes[i].ID,
				Message:  fmt.Sprintf("cycle detected: node %s is its own ancestor", g.nodes[i].ID),
				Severity: SeverityError,
			})
		}
		for _, j := range path {
			color[j] = black
		}
	}

	return errs
}

// validateRegions checks region declarations.
func validateRegions(g *Graph) []ValidationError {
	var errs []ValidationError

	for _, n := range g.nodes {
		if n.Implicit && n.Shape != nil {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  "region is declared both implicit and explicit",
				Severity: SeverityError,
			})
			continue
		}
		if !n.Implicit {
			continue
		}
		hasChildRegion := false
		for _, c := range g.Children(n) {
			if c.RegionKind() != RegionNone {
				hasChildRegion = true
				break
			}
		}
		if !hasChildRegion {
			errs = append(errs, ValidationError{
				NodeID:   n.ID,
				Message:  "implicit region has no child regions; it contains nothing and its nearest distance is infinite",
				Severity: SeverityWarning,
			})
		}
	}

	return errs
}

// validateAttrs checks that every attribute refers to a known category of
// the matching kind. Skipped when the graph has no registry.
func validateAttrs(g *Graph) []ValidationError {
	if g.registry == nil {
		return nil
	}
	var errs []ValidationError

	for _, n := range g.nodes {
		for _, e := range n.Attrs {
			c, ok := g.registry.Get(e.Category)
			if !ok {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  fmt.Sprintf("attribute category %q is not defined", e.Category),
					Severity: SeverityError,
				})
				continue
			}
			if e.Value == nil {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  fmt.Sprintf("attribute %q has no value", e.Category),
					Severity: SeverityError,
				})
				continue
			}
			if e.Value.Kind() != c.Kind {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  fmt.Sprintf("attribute %q holds a %s value, category is %s", e.Category, e.Value.Kind(), c.Kind),
					Severity: SeverityError,
				})
				continue
			}
			if enc, ok := e.Value.Numeric(); ok && len(enc) != c.Width() {
				errs = append(errs, ValidationError{
					NodeID:   n.ID,
					Message:  fmt.Sprintf("attribute %q encodes %d values, category width is %d", e.Category, len(enc), c.Width()),
					Severity: SeverityError,
				})
			}
			if c.Kind == attr.KindEnum {
				if _, ok := e.Value.Numeric(); !ok {
					errs = append(errs, ValidationError{
						NodeID:   n.ID,
						Message:  fmt.Sprintf("attribute %q: enum index out of range [0,%d)", e.Category, attr.MaxEnumCardinality),
						Severity: SeverityError,
					})
				}
			}
		}
	}

	return errs
}
