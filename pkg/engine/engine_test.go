package engine

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func mustEvaluate(t *testing.T, source string) *Snapshot {
	t.Helper()
	snap, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if snap == nil {
		t.Fatal("expected non-nil snapshot")
	}
	return snap
}

func TestEvaluateEmptySource(t *testing.T) {
	for _, src := range []string{"", "   \n\t  \n  "} {
		snap := mustEvaluate(t, src)
		if snap.Graph.Len() != 0 {
			t.Errorf("expected empty graph, got %d nodes", snap.Graph.Len())
		}
		if snap.Registry.Len() != 0 || snap.Regions.Len() != 0 {
			t.Error("expected empty registry and region tree")
		}
	}
}

func TestEvaluatePlainExpressions(t *testing.T) {
	snap := mustEvaluate(t, `
(def x 10)
(def y 20)
(+ x y)
`)
	if snap.Graph.Len() != 0 {
		t.Errorf("expected empty graph, got %d nodes", snap.Graph.Len())
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	snap, evalErrs, err := eng.Evaluate("(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot on syntax error")
	}
	if len(evalErrs) == 0 || evalErrs[0].Message == "" {
		t.Fatalf("expected a populated eval error, got %v", evalErrs)
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	snap, evalErrs, err := NewEngine().Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvaluateValidationErrorsReported(t *testing.T) {
	snap, evalErrs, err := NewEngine().Evaluate(`
(node "a" :parent "b")
(node "b" :parent "a")
`)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot for a parent cycle")
	}
	found := false
	for _, e := range evalErrs {
		if strings.Contains(e.Message, "cycle") && e.NodeID != "" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a cycle error tied to a node, got %v", evalErrs)
	}
}

func TestEvaluateWarningsKept(t *testing.T) {
	snap := mustEvaluate(t, `(node "empty" :implicit true)`)
	if len(snap.Warnings) == 0 {
		t.Error("expected a warning for an implicit region without children")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	var err error = EvalError{Line: 5, Message: "something went wrong"}
	if s := err.Error(); !strings.Contains(s, "line 5") || !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() = %q, want line and message", s)
	}

	if s := (EvalError{NodeID: "forest", Message: "bad"}).Error(); !strings.Contains(s, "node forest") {
		t.Errorf("Error() = %q, want node id", s)
	}

	if s := (EvalError{Message: "no location"}).Error(); strings.Contains(s, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s)
	}

	var ee EvalError
	if !errors.As(err, &ee) {
		t.Error("errors.As should find EvalError")
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	const src = `
(category "danger" :float)
(node "a" :at (vec3 0 0 0))
(attr "a" "danger" 0.5)
`
	for i := 0; i < 5; i++ {
		snap := mustEvaluate(t, src)
		if snap.Graph.Len() != 1 || snap.Registry.Len() != 1 {
			t.Fatalf("iteration %d: got %d nodes and %d categories", i, snap.Graph.Len(), snap.Registry.Len())
		}
	}
}

func TestEvaluateConcurrentCallers(t *testing.T) {
	eng := NewEngine()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Superseded results are reported as errors; anything else must succeed.
			_, evalErrs, err := eng.Evaluate(`(node "n")`)
			if err != nil && !strings.Contains(err.Error(), "superseded") {
				t.Errorf("unexpected fatal error: %v", err)
			}
			if len(evalErrs) > 0 {
				t.Errorf("unexpected eval errors: %v", evalErrs)
			}
		}()
	}
	wg.Wait()
}

func TestEvaluateTimeout(t *testing.T) {
	// waitWithTimeout is exercised directly with a channel that never sends,
	// since zygomys offers no cheap way to hang a sandbox.
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult)

	done := make(chan error, 1)
	go func() {
		_, _, err := waitWithTimeout(ch, 1, &mu, &gen)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "timed out") {
			t.Errorf("expected timeout error, got: %v", err)
		}
	case <-time.After(EvalTimeout + 2*time.Second):
		t.Fatal("test itself timed out waiting for evaluation timeout")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2)

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	_, _, err := waitWithTimeout(ch, 1, &mu, &gen)
	if err == nil || !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short line format", "line 3: bad form", 3, "bad form"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			if len(errs) != 1 {
				t.Fatalf("expected one error, got %d", len(errs))
			}
			if errs[0].Line != tt.wantLine {
				t.Errorf("line = %d, want %d", errs[0].Line, tt.wantLine)
			}
			if !strings.Contains(errs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}
