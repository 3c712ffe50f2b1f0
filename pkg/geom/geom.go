package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a point or displacement in 3-space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// V builds a Vec3 from its components.
func V(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func fromR3(v r3.Vec) Vec3 { return Vec3{X: v.X, Y: v.Y, Z: v.Z} }

// R3 converts v to the gonum representation.
func (v Vec3) R3() r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return fromR3(r3.Add(v.R3(), o.R3())) }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return fromR3(r3.Sub(v.R3(), o.R3())) }

// Scale returns f*v.
func (v Vec3) Scale(f float64) Vec3 { return fromR3(r3.Scale(f, v.R3())) }

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 { return r3.Norm(v.R3()) }

// Dist returns the Euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 { return r3.Norm(r3.Sub(v.R3(), o.R3())) }

// IsFinite reports whether every component is neither NaN nor infinite.
func (v Vec3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// ApproxEqual reports whether each component of v and o differs by at most
// tol, either absolutely or relative to the larger magnitude.
func (v Vec3) ApproxEqual(o Vec3, tol float64) bool {
	return scalar.EqualWithinAbsOrRel(v.X, o.X, tol, tol) &&
		scalar.EqualWithinAbsOrRel(v.Y, o.Y, tol, tol) &&
		scalar.EqualWithinAbsOrRel(v.Z, o.Z, tol, tol)
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Sphere is a sphere surface given by its center and radius.
// Values are immutable; construct them with NewSphere to get input checks.
type Sphere struct {
	Center Vec3    `json:"center"`
	Radius float64 `json:"radius"`
}

// InvalidSphereError reports a sphere that cannot take part in a solve.
type InvalidSphereError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidSphereError) Error() string {
	return fmt.Sprintf("invalid sphere: %s = %g: %s", e.Field, e.Value, e.Reason)
}

// NewSphere returns the sphere centered at (x, y, z) with radius r.
// All components must be finite and r must be non-negative.
func NewSphere(x, y, z, r float64) (Sphere, error) {
	s := Sphere{Center: V(x, y, z), Radius: r}
	if err := s.Validate(); err != nil {
		return Sphere{}, err
	}
	return s, nil
}

// Validate checks the sphere's components.
func (s Sphere) Validate() error {
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"x", s.Center.X},
		{"y", s.Center.Y},
		{"z", s.Center.Z},
		{"radius", s.Radius},
	} {
		if !isFinite(c.v) {
			return &InvalidSphereError{Field: c.name, Value: c.v, Reason: "must be finite"}
		}
	}
	if s.Radius < 0 {
		return &InvalidSphereError{Field: "radius", Value: s.Radius, Reason: "must be non-negative"}
	}
	return nil
}

// Residual returns |center - p| - radius: zero when p lies on the surface,
// negative inside, positive outside.
func (s Sphere) Residual(p Vec3) float64 {
	return s.Center.Dist(p) - s.Radius
}

func (s Sphere) String() string {
	return fmt.Sprintf("sphere%s r=%g", s.Center, s.Radius)
}
