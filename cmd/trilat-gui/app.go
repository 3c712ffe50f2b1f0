package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/chazu/trilat/pkg/config"
	"github.com/chazu/trilat/pkg/engine"
	"github.com/chazu/trilat/pkg/geom"
	"github.com/chazu/trilat/pkg/kernel"
	"github.com/chazu/trilat/pkg/kernel/sdfx"
	"github.com/chazu/trilat/pkg/solver"
)

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	engine *engine.Engine
	solver *solver.Solver
	kernel kernel.Kernel
	tol    float64
}

// SphereInput is one row of the form.
type SphereInput struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	R float64 `json:"r"`
}

// SolveRequest is sent by the form's Calculate button.
type SolveRequest struct {
	Spheres []SphereInput `json:"spheres"`
}

// SolveResponse is the form result. ErrorKind is "input", "collinear" or
// "degenerate" when Error is set.
type SolveResponse struct {
	Kind         string      `json:"kind"`
	Points       []geom.Vec3 `json:"points"`
	Discriminant float64     `json:"discriminant"`
	Verified     bool        `json:"verified"`
	MaxResidual  float64     `json:"maxResidual"`
	Error        string      `json:"error,omitempty"`
	ErrorKind    string      `json:"errorKind,omitempty"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// SolveView is one intersect call of a script.
type SolveView struct {
	Spheres []string    `json:"spheres"`
	Kind    string      `json:"kind"`
	Points  []geom.Vec3 `json:"points"`
}

// EvalResponse is the full result of a script evaluation.
type EvalResponse struct {
	Solves   []SolveView     `json:"solves"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates a new App with an engine and the sdfx kernel.
func NewApp(cfg *config.Config) *App {
	if cfg == nil {
		cfg = &config.Config{}
	}
	slv := solver.New(cfg.SolverOptions())
	return &App{
		engine: engine.NewEngine(engine.WithSolver(slv), engine.WithTimeout(cfg.GetEvalTimeout())),
		solver: slv,
		kernel: sdfx.New(),
		tol:    cfg.GetVerifyTolerance(),
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// Intersect solves the three spheres of the form and checks the points
// against the geometry kernel.
func (a *App) Intersect(req SolveRequest) SolveResponse {
	resp := SolveResponse{Points: []geom.Vec3{}}

	if len(req.Spheres) != 3 {
		resp.Error = fmt.Sprintf("need exactly 3 spheres, got %d", len(req.Spheres))
		resp.ErrorKind = "input"
		return resp
	}
	var spheres [3]geom.Sphere
	for i, in := range req.Spheres {
		s, err := geom.NewSphere(in.X, in.Y, in.Z, in.R)
		if err != nil {
			resp.Error = fmt.Sprintf("sphere %d: %v", i+1, err)
			resp.ErrorKind = "input"
			return resp
		}
		spheres[i] = s
	}

	res, err := a.solver.Solve(spheres[0], spheres[1], spheres[2])
	if err != nil {
		resp.Error = err.Error()
		switch {
		case errors.Is(err, solver.ErrCollinear):
			resp.ErrorKind = "collinear"
		case errors.Is(err, solver.ErrDegenerate):
			resp.ErrorKind = "degenerate"
		default:
			resp.ErrorKind = "input"
		}
		return resp
	}

	resp.Kind = res.Kind.String()
	resp.Points = append(resp.Points, res.Points...)
	resp.Discriminant = res.Discriminant

	if len(res.Points) > 0 {
		rep, err := kernel.Verify(a.kernel, spheres, res.Points, a.tol)
		if err != nil {
			// sdfx rejects zero radii.
			rep, err = kernel.Verify(kernel.Analytic{}, spheres, res.Points, a.tol)
		}
		if err != nil {
			log.Printf("Verify error: %v", err)
		} else {
			resp.Verified = rep.OK
			resp.MaxResidual = rep.MaxResidual()
		}
	}
	return resp
}

// Evaluate runs a scenario script and lists its intersections.
func (a *App) Evaluate(source string) EvalResponse {
	result := EvalResponse{
		Solves:   []SolveView{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	res, err := a.engine.EvaluateResult(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Message})
	}

	sc := res.Scene
	for _, rec := range sc.Solves {
		view := SolveView{
			Spheres: make([]string, 0, 3),
			Kind:    rec.Result.Kind.String(),
			Points:  append([]geom.Vec3{}, rec.Result.Points...),
		}
		for _, id := range rec.Spheres {
			view.Spheres = append(view.Spheres, sc.Get(id).Label())
		}
		result.Solves = append(result.Solves, view)
	}
	return result
}
