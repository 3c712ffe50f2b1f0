package solver

import (
	"fmt"
	"math"

	"github.com/chazu/trilat/pkg/geom"
)

// Default tolerances.
const (
	DefaultTangencyTolerance  = 1e-12
	DefaultCollinearTolerance = 1e-12
)

// Options tunes the floating point comparisons made during a solve.
type Options struct {
	// TangencyTolerance is the tolerance on the discriminant, relative to
	// the magnitude of its terms, under which the spheres are taken to touch
	// in a single point.
	TangencyTolerance float64
	// CollinearTolerance is the relative tolerance under which the two terms
	// of a31*b1-b3 (or b31*a1-a3) are treated as cancelling.
	CollinearTolerance float64
}

// DefaultOptions returns the tolerances used by the package-level Solve.
func DefaultOptions() Options {
	return Options{
		TangencyTolerance:  DefaultTangencyTolerance,
		CollinearTolerance: DefaultCollinearTolerance,
	}
}

// Solver intersects sphere triples. It holds no mutable state and is safe
// for concurrent use.
type Solver struct {
	opts Options
}

// New returns a Solver using opts. Negative tolerances are clamped to zero,
// which makes every comparison exact.
func New(opts Options) *Solver {
	opts.TangencyTolerance = math.Max(opts.TangencyTolerance, 0)
	opts.CollinearTolerance = math.Max(opts.CollinearTolerance, 0)
	return &Solver{opts: opts}
}

// Options returns the solver's tolerances.
func (s *Solver) Options() Options { return s.opts }

var defaultSolver = New(DefaultOptions())

// Solve intersects three spheres with the default tolerances.
func Solve(s1, s2, s3 geom.Sphere) (Result, error) {
	return defaultSolver.Solve(s1, s2, s3)
}

// Solve intersects s1, s2 and s3. The second sphere is the reference that is
// subtracted from the other two.
//
// A negative discriminant is not an error: the result has Kind
// NoIntersection. Invalid spheres, coincident or collinear centers and a
// degenerate quadratic are returned as errors.
func (s *Solver) Solve(s1, s2, s3 geom.Sphere) (Result, error) {
	for i, sp := range []geom.Sphere{s1, s2, s3} {
		if err := sp.Validate(); err != nil {
			return Result{}, fmt.Errorf("sphere %d: %w", i+1, err)
		}
	}

	var st Steps
	st.Plane1, st.Plane3 = Reduce(s1, s2, s3)

	var err error
	if st.Y, err = SolveY(st.Plane1, st.Plane3, s.opts.CollinearTolerance); err != nil {
		return Result{}, err
	}
	if st.X, err = SolveX(st.Plane1, st.Plane3, s.opts.CollinearTolerance); err != nil {
		return Result{}, err
	}

	q := Substitute(s1, st.X, st.Y)
	st.Quadratic = q
	if err := q.check(); err != nil {
		return Result{}, err
	}

	d := q.Discriminant()
	res := Result{Discriminant: d, Steps: st, Points: []geom.Vec3{}}
	switch {
	case q.Tangent(s.opts.TangencyTolerance):
		res.Kind = OnePoint
		res.Points = append(res.Points, st.point(-q.B/(2*q.A)))
	case d < 0:
		res.Kind = NoIntersection
	default:
		rootD := math.Sqrt(d)
		res.Kind = TwoPoints
		res.Points = append(res.Points,
			st.point((-q.B+rootD)/(2*q.A)),
			st.point((-q.B-rootD)/(2*q.A)),
		)
	}
	return res, nil
}

func (st Steps) point(z float64) geom.Vec3 {
	return geom.Vec3{X: st.X.At(z), Y: st.Y.At(z), Z: z}
}
