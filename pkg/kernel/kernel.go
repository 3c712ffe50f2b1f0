// Package kernel defines the abstract geometry kernel used to check solver
// output independently of the closed-form algebra. Implementations (sdfx,
// analytic) evaluate signed distances to sphere solids behind this interface.
package kernel

import "github.com/chazu/trilat/pkg/geom"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
	// Distance returns the signed distance from p to the surface:
	// negative inside, zero on the surface, positive outside.
	Distance(p geom.Vec3) float64
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Sphere builds the solid ball of the given sphere.
	Sphere(s geom.Sphere) (Solid, error)
}

// Analytic implements Kernel with the closed-form sphere distance.
// It accepts zero radii, which SDF backends usually reject.
type Analytic struct{}

// Compile-time interface check.
var _ Kernel = Analytic{}

type analyticSolid struct {
	s geom.Sphere
}

func (a analyticSolid) BoundingBox() (min, max [3]float64) {
	c, r := a.s.Center, a.s.Radius
	return [3]float64{c.X - r, c.Y - r, c.Z - r}, [3]float64{c.X + r, c.Y + r, c.Z + r}
}

func (a analyticSolid) Distance(p geom.Vec3) float64 {
	return a.s.Residual(p)
}

// Sphere returns the solid for s.
func (Analytic) Sphere(s geom.Sphere) (Solid, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return analyticSolid{s: s}, nil
}
