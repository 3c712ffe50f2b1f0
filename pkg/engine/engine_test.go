package engine

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chazu/trilat/pkg/solver"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine()

	sc, evalErrs, err := eng.Evaluate("")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if sc == nil {
		t.Fatal("expected non-nil scene")
	}
	if sc.SphereCount() != 0 {
		t.Errorf("expected empty scene, got %d spheres", sc.SphereCount())
	}
}

func TestEvaluateWhitespaceOnly(t *testing.T) {
	eng := NewEngine()

	sc, evalErrs, err := eng.Evaluate("   \n\t  \n  ")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if sc == nil || sc.SphereCount() != 0 {
		t.Fatalf("expected empty scene, got %v", sc)
	}
}

func TestEvaluateValidExpression(t *testing.T) {
	eng := NewEngine()

	// Plain arithmetic declares nothing.
	sc, evalErrs, err := eng.Evaluate("(+ 1 2)")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if sc.SphereCount() != 0 || sc.SolveCount() != 0 {
		t.Errorf("expected empty scene, got %d spheres %d solves", sc.SphereCount(), sc.SolveCount())
	}
}

func TestEvaluateMultipleExpressions(t *testing.T) {
	eng := NewEngine()

	source := `
(def x 10)
(def y 20)
(+ x y)
`
	sc, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if sc == nil {
		t.Fatal("expected non-nil scene")
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	// Unmatched paren is a parse error.
	sc, evalErrs, err := eng.Evaluate("(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if sc != nil {
		t.Fatal("expected nil scene on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine()

	sc, evalErrs, err := eng.Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if sc != nil {
		t.Fatal("expected nil scene on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if strings.Contains(e2.Error(), "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", e2.Error())
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()
	source := `(intersect (sphere "a" 3 4 0 13) (sphere "b" 9 0 0 15) (sphere "c" 0 9 0 15))`

	first, _, err := eng.Evaluate(source)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		sc, evalErrs, err := eng.Evaluate(source)
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if sc.Solves[0].ID != first.Solves[0].ID || sc.Order[2] != first.Order[2] {
			t.Errorf("iteration %d: IDs differ between evaluations", i)
		}
	}
}

func TestEvaluateSampleScript(t *testing.T) {
	src, err := os.ReadFile("../../examples/sample.lisp")
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	sc, evalErrs, err := NewEngine().Evaluate(string(src))
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if sc.SphereCount() != 6 || sc.SolveCount() != 2 {
		t.Fatalf("got %d spheres %d solves, want 6 and 2", sc.SphereCount(), sc.SolveCount())
	}
	if sc.Solves[0].Result.Kind != solver.NoIntersection {
		t.Errorf("survey sample kind = %s, want none", sc.Solves[0].Result.Kind)
	}
	if sc.Solves[1].Result.Kind != solver.TwoPoints {
		t.Errorf("second solve kind = %s, want two", sc.Solves[1].Result.Kind)
	}
}

func TestWithTimeout(t *testing.T) {
	if got := NewEngine().Timeout(); got != DefaultEvalTimeout {
		t.Errorf("default timeout = %s", got)
	}
	if got := NewEngine(WithTimeout(time.Second)).Timeout(); got != time.Second {
		t.Errorf("timeout = %s, want 1s", got)
	}
	if got := NewEngine(WithTimeout(-1)).Timeout(); got != DefaultEvalTimeout {
		t.Errorf("non-positive timeout should keep default, got %s", got)
	}
}

func TestEvaluateTimeout(t *testing.T) {
	// A channel that never sends stands in for a runaway script.
	eng := NewEngine(WithTimeout(20 * time.Millisecond))
	gen := eng.begin()
	ch := make(chan outcome)

	done := make(chan error, 1)
	go func() {
		_, _, err := eng.await(ch, gen)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got: %v", err)
		}
		if !strings.Contains(err.Error(), "timed out after 20ms") {
			t.Errorf("expected timeout error message, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("test itself timed out waiting for evaluation timeout")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	eng := NewEngine()
	stale := eng.begin()
	eng.begin()

	ch := make(chan outcome, 1)
	ch <- outcome{}

	_, _, err := eng.await(ch, stale)
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got: %v", err)
	}
}

func TestEvaluateCurrentGenerationPassesThrough(t *testing.T) {
	eng := NewEngine()
	gen := eng.begin()

	ch := make(chan outcome, 1)
	ch <- outcome{errors: []EvalError{{Message: "boom"}}}

	sc, evalErrs, err := eng.await(ch, gen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc != nil || len(evalErrs) != 1 || evalErrs[0].Message != "boom" {
		t.Errorf("outcome not passed through: %v %v", sc, evalErrs)
	}
}

func TestEvaluateResultWarnings(t *testing.T) {
	res, err := NewEngine().EvaluateResult(`(sphere "pt" 1 2 3 0)`)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0].Message, "zero radius") {
		t.Fatalf("expected zero radius warning, got %+v", res.Warnings)
	}
	if res.Warnings[0].ID != res.Scene.Lookup("pt").ID {
		t.Error("warning should point at the sphere")
	}
	if Warnings(nil) != nil {
		t.Error("nil scene has no warnings")
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{
			name:     "error on line format",
			msg:      "Error on line 5: unexpected token\n",
			wantLine: 5,
			wantMsg:  "unexpected token",
		},
		{
			name:     "no line info",
			msg:      "some generic error",
			wantLine: 0,
			wantMsg:  "some generic error",
		},
		{
			name:     "line format lowercase",
			msg:      "error on line 12: missing paren",
			wantLine: 12,
			wantMsg:  "missing paren",
		},
		{
			name:     "short line format",
			msg:      "line 3: intersect requires exactly 3 spheres",
			wantLine: 3,
			wantMsg:  "exactly 3 spheres",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
