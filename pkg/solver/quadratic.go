package solver

import (
	"math"

	"github.com/chazu/trilat/pkg/geom"
)

// Quadratic holds A*z^2 + B*z + C = 0.
type Quadratic struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`

	// cmag is the sum of the magnitudes of the terms that make up C. It
	// scales the tangency test when B and C both cancel to near zero.
	cmag float64
}

// Substitute writes x = g*z + h and y = e*z + f into the equation of s and
// collects the terms by power of z.
func Substitute(s geom.Sphere, x, y LinearRelation) Quadratic {
	x1, y1, z1, r1 := s.Center.X, s.Center.Y, s.Center.Z, s.Radius
	g, h := x.Slope, x.Intercept
	e, f := y.Slope, y.Intercept
	cmag := x1*x1 + y1*y1 + z1*z1 + math.Abs(2*x1*h) + math.Abs(2*y1*f) + h*h + f*f + r1*r1
	return Quadratic{
		A:    g*g + e*e + 1,
		B:    -2*x1*g - 2*y1*e - 2*z1 + 2*g*h + 2*e*f,
		C:    x1*x1 + y1*y1 + z1*z1 - 2*x1*h - 2*y1*f + h*h + f*f - r1*r1,
		cmag: cmag,
	}
}

// Discriminant returns B^2 - 4AC.
func (q Quadratic) Discriminant() float64 {
	return q.B*q.B - 4*q.A*q.C
}

// Tangent reports whether the discriminant is zero within the relative
// tolerance tol. The discriminant is compared against the magnitude of the
// terms it was computed from, so exact cancellation (D == 0) always counts.
func (q Quadratic) Tangent(tol float64) bool {
	d := q.Discriminant()
	if d == 0 {
		return true
	}
	scale := q.B*q.B + 4*math.Abs(q.A)*math.Max(math.Abs(q.C), q.cmag)
	return math.Abs(d) <= tol*scale
}

func (q Quadratic) check() error {
	if q.A == 0 || math.IsNaN(q.A) || math.IsInf(q.A, 0) {
		return &DegenerateConfigurationError{Coefficient: "A", Value: q.A}
	}
	if math.IsNaN(q.B) || math.IsInf(q.B, 0) {
		return &DegenerateConfigurationError{Coefficient: "B", Value: q.B}
	}
	if math.IsNaN(q.C) || math.IsInf(q.C, 0) {
		return &DegenerateConfigurationError{Coefficient: "C", Value: q.C}
	}
	return nil
}
