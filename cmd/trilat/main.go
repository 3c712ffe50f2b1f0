// Command trilat intersects three spheres from the command line, runs
// scenario scripts and solves survey files in bulk.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/trilat/pkg/batch"
	"github.com/chazu/trilat/pkg/config"
	"github.com/chazu/trilat/pkg/engine"
	"github.com/chazu/trilat/pkg/geom"
	"github.com/chazu/trilat/pkg/kernel"
	"github.com/chazu/trilat/pkg/kernel/sdfx"
	"github.com/chazu/trilat/pkg/monitoring"
	"github.com/chazu/trilat/pkg/solver"
)

// Exit codes.
const (
	exitOK     = 0
	exitSolver = 1 // structural solver error or failed rows/scripts
	exitUsage  = 2 // bad flags, arguments or input files
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "solve":
		return handleSolve(rest, stdout, stderr)
	case "run":
		return handleRun(rest, stdout, stderr)
	case "batch":
		return handleBatch(rest, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return exitUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `trilat - intersect three spheres

Usage: trilat <command> [options] [arguments]

Commands:
  solve x,y,z,r x,y,z,r x,y,z,r   Intersect three spheres given as center and radius
  run script.lisp                 Evaluate a scenario script
  batch -in file.csv [-out file]  Solve every row of a CSV or TSV survey file
  help                            Show this help message

Common Flags:
  -config <file>   JSON settings file (tolerances, eval timeout, separator)
  -json            Print results as JSON
  -verify          Check computed points against the spheres
  -v               Verbose diagnostics on stderr

Exit status is 0 on success (including spheres that do not meet), 1 when the
centers are collinear or coincident or rows fail, 2 on usage or input errors.
`)
}

// common holds the flags shared by every command.
type common struct {
	configPath string
	json       bool
	verify     bool
	verbose    bool

	cfg *config.Config
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *common) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := &common{}
	fs.StringVar(&c.configPath, "config", "", "JSON settings file")
	fs.BoolVar(&c.json, "json", false, "print results as JSON")
	fs.BoolVar(&c.verify, "verify", false, "check computed points against the spheres")
	fs.BoolVar(&c.verbose, "v", false, "verbose diagnostics")
	return fs, c
}

// setup loads the configuration and points the diagnostic logger at stderr.
func (c *common) setup(stderr io.Writer) error {
	monitoring.SetLogger(log.New(stderr, "", 0).Printf)
	monitoring.SetVerbose(c.verbose)

	c.cfg = &config.Config{}
	if c.configPath == "" {
		return nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	monitoring.Verbosef("loaded config %s", c.configPath)
	return nil
}

func (c *common) solver() *solver.Solver {
	return solver.New(c.cfg.SolverOptions())
}

// kernelFor picks sdfx unless a sphere has zero radius, which only the
// analytic kernel accepts.
func kernelFor(spheres [3]geom.Sphere) kernel.Kernel {
	for _, s := range spheres {
		if s.Radius == 0 {
			return kernel.Analytic{}
		}
	}
	return sdfx.New()
}

// parseSphere reads "x,y,z,r".
func parseSphere(arg string) (geom.Sphere, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 4 {
		return geom.Sphere{}, fmt.Errorf("sphere %q: want x,y,z,r", arg)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Sphere{}, fmt.Errorf("sphere %q: %w", arg, err)
		}
		v[i] = f
	}
	return geom.NewSphere(v[0], v[1], v[2], v[3])
}

type solveOutput struct {
	Spheres      [3]geom.Sphere `json:"spheres"`
	Result       solver.Result  `json:"result"`
	Verification *kernel.Report `json:"verification,omitempty"`
}

func handleSolve(args []string, stdout, stderr io.Writer) int {
	fs, c := newFlagSet("solve", stderr)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if err := c.setup(stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if fs.NArg() != 3 {
		fmt.Fprintln(stderr, "Error: solve needs exactly three spheres as x,y,z,r")
		return exitUsage
	}

	var out solveOutput
	for i, arg := range fs.Args() {
		s, err := parseSphere(arg)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		out.Spheres[i] = s
	}

	k := kernelFor(out.Spheres)
	if ok, err := kernel.CanMeet(k, out.Spheres); err == nil {
		monitoring.Verbosef("bounding boxes overlap: %t", ok)
	}

	res, err := c.solver().Solve(out.Spheres[0], out.Spheres[1], out.Spheres[2])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, solver.ErrCollinear) || errors.Is(err, solver.ErrDegenerate) {
			return exitSolver
		}
		return exitUsage
	}
	out.Result = res
	monitoring.Verbosef("discriminant %g", res.Discriminant)

	if c.verify && len(res.Points) > 0 {
		rep, err := kernel.Verify(k, out.Spheres, res.Points, c.cfg.GetVerifyTolerance())
		if err != nil {
			fmt.Fprintf(stderr, "Error: verify: %v\n", err)
			return exitSolver
		}
		out.Verification = &rep
	}

	if c.json {
		if err := writeJSON(stdout, out); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
	} else {
		printResult(stdout, res)
		if out.Verification != nil {
			fmt.Fprintf(stdout, "verified: %t (max residual %g)\n", out.Verification.OK, out.Verification.MaxResidual())
		}
	}
	if out.Verification != nil && !out.Verification.OK {
		return exitSolver
	}
	return exitOK
}

func printResult(w io.Writer, res solver.Result) {
	fmt.Fprintf(w, "result: %s\n", res.Kind)
	for i, p := range res.Points {
		fmt.Fprintf(w, "point %d: %s\n", i+1, p)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func handleRun(args []string, stdout, stderr io.Writer) int {
	fs, c := newFlagSet("run", stderr)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if err := c.setup(stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Error: run needs a script path")
		return exitUsage
	}

	src, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	eng := engine.NewEngine(engine.WithSolver(c.solver()), engine.WithTimeout(c.cfg.GetEvalTimeout()))
	res, err := eng.EvaluateResult(string(src))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitSolver
	}
	for _, e := range res.Errors {
		fmt.Fprintf(stderr, "%s: %v\n", fs.Arg(0), e)
	}
	if len(res.Errors) > 0 {
		return exitSolver
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(stderr, "%s: warning: %s\n", fs.Arg(0), w.Message)
	}

	sc := res.Scene
	if c.json {
		if err := writeJSON(stdout, sc); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		return exitOK
	}

	code := exitOK
	for _, rec := range sc.Solves {
		var labels []string
		var spheres [3]geom.Sphere
		for i, id := range rec.Spheres {
			s := sc.Get(id)
			labels = append(labels, s.Label())
			spheres[i] = s.Sphere
		}
		fmt.Fprintf(stdout, "intersect %s: %s", strings.Join(labels, " "), rec.Result.Kind)
		for _, p := range rec.Result.Points {
			fmt.Fprintf(stdout, " %s", p)
		}
		fmt.Fprintln(stdout)

		if c.verify && len(rec.Result.Points) > 0 {
			rep, err := kernel.Verify(kernelFor(spheres), spheres, rec.Result.Points, c.cfg.GetVerifyTolerance())
			if err != nil || !rep.OK {
				fmt.Fprintf(stderr, "verification failed for %s\n", strings.Join(labels, " "))
				code = exitSolver
			}
		}
	}
	return code
}

func handleBatch(args []string, stdout, stderr io.Writer) int {
	fs, c := newFlagSet("batch", stderr)
	in := fs.String("in", "", "input CSV or TSV file (required)")
	out := fs.String("out", "", "output file (default: rewrite the input after backing it up)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if err := c.setup(stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if *in == "" {
		fmt.Fprintln(stderr, "Error: -in is required")
		fs.Usage()
		return exitUsage
	}

	target := *out
	if target == "" {
		target = *in
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if filepath.Clean(target) == filepath.Clean(*in) {
		bak, err := batch.Backup(*in)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		monitoring.Verbosef("backup written to %s", bak)
	}

	var buf bytes.Buffer
	sum, err := batch.Process(bytes.NewReader(data), &buf, batch.Options{
		Separator:       batch.SeparatorFor(*in, c.cfg.GetCSVSeparator()),
		OutputSeparator: batch.SeparatorFor(target, c.cfg.GetCSVSeparator()),
		Solver:          c.solver(),
		Verify:          c.verify,
		VerifyTolerance: c.cfg.GetVerifyTolerance(),
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s: %v\n", *in, err)
		return exitUsage
	}
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	for _, re := range sum.Errors {
		fmt.Fprintf(stderr, "%s:%d: %v\n", *in, re.Line, re.Err)
	}
	if c.json {
		if err := writeJSON(stdout, sum); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
	} else {
		fmt.Fprintf(stdout, "%s: %d rows, %d two, %d one, %d none, %d failed, %d skipped\n",
			target, sum.Rows, sum.Two, sum.One, sum.None, sum.Failed, sum.Skipped)
	}
	if sum.Failed > 0 || len(sum.Errors) > 0 {
		return exitSolver
	}
	return exitOK
}
