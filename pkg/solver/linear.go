package solver

import (
	"github.com/chazu/trilat/pkg/geom"
	"gonum.org/v1/gonum/floats/scalar"
)

// Plane is the linear equation A*x + B*y + C*z = K left over after
// subtracting two sphere equations.
type Plane struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	K float64 `json:"k"`
}

// LinearRelation expresses one coordinate as Slope*z + Intercept.
type LinearRelation struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At evaluates the relation at z.
func (l LinearRelation) At(z float64) float64 {
	return l.Slope*z + l.Intercept
}

// Reduce subtracts the second sphere's equation from the first and from the
// third. The first plane carries (a1, b1, c1, k1), the second (a3, b3, c3, k3).
func Reduce(s1, s2, s3 geom.Sphere) (Plane, Plane) {
	return subtract(s1, s2), subtract(s3, s2)
}

func subtract(s, ref geom.Sphere) Plane {
	c, rc := s.Center, ref.Center
	return Plane{
		A: 2 * (rc.X - c.X),
		B: 2 * (rc.Y - c.Y),
		C: 2 * (rc.Z - c.Z),
		K: s.Radius*s.Radius - ref.Radius*ref.Radius -
			c.X*c.X + rc.X*rc.X -
			c.Y*c.Y + rc.Y*rc.Y -
			c.Z*c.Z + rc.Z*rc.Z,
	}
}

// SolveY eliminates x from the two planes and returns y = e*z + f.
// tol is the relative tolerance under which the two terms of a31*b1-b3 are
// considered equal.
func SolveY(p1, p3 Plane, tol float64) (LinearRelation, error) {
	switch {
	case p1.A == 0:
		if p1.B == 0 {
			return LinearRelation{}, &CollinearOrCoincidentCentersError{Coordinate: "y", Denominator: "b1"}
		}
		return LinearRelation{Slope: -p1.C / p1.B, Intercept: p1.K / p1.B}, nil
	case p3.A == 0:
		if p3.B == 0 {
			return LinearRelation{}, &CollinearOrCoincidentCentersError{Coordinate: "y", Denominator: "b3"}
		}
		return LinearRelation{Slope: -p3.C / p3.B, Intercept: p3.K / p3.B}, nil
	}

	a31 := p3.A / p1.A
	den := a31*p1.B - p3.B
	if scalar.EqualWithinRel(a31*p1.B, p3.B, tol) {
		return LinearRelation{}, &CollinearOrCoincidentCentersError{Coordinate: "y", Denominator: "a31*b1-b3", Value: den}
	}
	return LinearRelation{
		Slope:     -((a31*p1.C - p3.C) / den),
		Intercept: (a31*p1.K - p3.K) / den,
	}, nil
}

// SolveX eliminates y from the two planes and returns x = g*z + h.
func SolveX(p1, p3 Plane, tol float64) (LinearRelation, error) {
	switch {
	case p1.B == 0:
		if p1.A == 0 {
			return LinearRelation{}, &CollinearOrCoincidentCentersError{Coordinate: "x", Denominator: "a1"}
		}
		return LinearRelation{Slope: -p1.C / p1.A, Intercept: p1.K / p1.A}, nil
	case p3.B == 0:
		if p3.A == 0 {
			return LinearRelation{}, &CollinearOrCoincidentCentersError{Coordinate: "x", Denominator: "a3"}
		}
		return LinearRelation{Slope: -p3.C / p3.A, Intercept: p3.K / p3.A}, nil
	}

	b31 := p3.B / p1.B
	den := b31*p1.A - p3.A
	if scalar.EqualWithinRel(b31*p1.A, p3.A, tol) {
		return LinearRelation{}, &CollinearOrCoincidentCentersError{Coordinate: "x", Denominator: "b31*a1-a3", Value: den}
	}
	return LinearRelation{
		Slope:     -((b31*p1.C - p3.C) / den),
		Intercept: (b31*p1.K - p3.K) / den,
	}, nil
}
