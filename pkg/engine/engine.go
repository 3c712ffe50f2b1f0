// Package engine evaluates trilateration scenario scripts. It wraps zygomys
// in a sandboxed environment and produces a scene.Scene holding the spheres
// a script declares and the intersections it computes.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/trilat/pkg/monitoring"
	"github.com/chazu/trilat/pkg/scene"
	"github.com/chazu/trilat/pkg/solver"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code or a structural
// solver error raised by intersect.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal finding about an evaluated scene.
type EvalWarning struct {
	Message string
	ID      scene.ID
}

// EvalResult bundles the full output of an evaluation for use by UI bindings.
type EvalResult struct {
	Scene    *scene.Scene
	Errors   []EvalError
	Warnings []EvalWarning
}

// Option configures an Engine.
type Option func(*Engine)

// WithSolver sets the solver used by the intersect builtin.
func WithSolver(s *solver.Solver) Option {
	return func(e *Engine) { e.solver = s }
}

// WithTimeout sets the hard limit for a single evaluation. Non-positive
// values keep DefaultEvalTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// Engine wraps the zygomys interpreter for scenario evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	solver  *solver.Solver
	timeout time.Duration
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		solver:  solver.New(solver.DefaultOptions()),
		timeout: DefaultEvalTimeout,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Timeout returns the evaluation limit in effect.
func (e *Engine) Timeout() time.Duration { return e.timeout }

// Evaluate takes Lisp source code and produces a new Scene.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns scene + nil errors + nil error
//   - On parse/eval failure: returns nil scene + eval errors + nil error
//   - On fatal failure: returns nil + nil + error; ErrTimeout and
//     ErrSuperseded are matchable with errors.Is
func (e *Engine) Evaluate(source string) (*scene.Scene, []EvalError, error) {
	gen := e.begin()
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		sc, evalErrs, err := e.evaluate(source)
		ch <- outcome{scene: sc, errors: evalErrs, err: err}
	}()

	return e.await(ch, gen)
}

// EvaluateResult runs Evaluate and attaches validation warnings.
func (e *Engine) EvaluateResult(source string) (EvalResult, error) {
	sc, evalErrs, err := e.Evaluate(source)
	if err != nil {
		return EvalResult{}, err
	}
	return EvalResult{Scene: sc, Errors: evalErrs, Warnings: Warnings(sc)}, nil
}

// Warnings converts the scene's validation warnings. A nil scene has none.
func Warnings(sc *scene.Scene) []EvalWarning {
	if sc == nil {
		return nil
	}
	var out []EvalWarning
	for _, w := range scene.Validate(sc).Warnings {
		out = append(out, EvalWarning{Message: w.Message, ID: w.ID})
	}
	return out
}

func (e *Engine) evaluate(source string) (*scene.Scene, []EvalError, error) {
	sc := scene.New()

	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return sc, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	builtinErr := registerBuiltins(env, sc, e.solver)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		evalErrs := parseZygomysError(err)
		if berr := builtinErr(); berr != nil {
			evalErrs[0].Message = berr.Error()
		}
		return nil, evalErrs, nil
	}

	if vr := scene.Validate(sc); !vr.OK() {
		evalErrs := make([]EvalError, 0, len(vr.Errors))
		for _, ve := range vr.Errors {
			evalErrs = append(evalErrs, EvalError{Message: ve.Error()})
		}
		return nil, evalErrs, nil
	}

	monitoring.Verbosef("engine: evaluated %d spheres, %d intersections", sc.SphereCount(), sc.SolveCount())
	return sc, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// zygomys formats parse errors as "Error on line N: <details>\n".
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
