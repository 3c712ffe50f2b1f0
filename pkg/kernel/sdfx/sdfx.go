// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"

	"github.com/chazu/trilat/pkg/geom"
	"github.com/chazu/trilat/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Distance evaluates the signed distance field at p.
func (s *sdfxSolid) Distance(p geom.Vec3) float64 {
	return s.s.Evaluate(toV3(p))
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

func toV3(p geom.Vec3) v3.Vec {
	return v3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Sphere creates a ball centered on the sphere's center. sdf.Sphere3D
// centers the ball at the origin, so it is translated into place.
// sdfx rejects zero radii; use kernel.Analytic for point spheres.
func (k *SdfxKernel) Sphere(s geom.Sphere) (kernel.Solid, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	ball, err := sdf.Sphere3D(s.Radius)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Sphere3D: %w", err)
	}
	m := sdf.Translate3d(toV3(s.Center))
	return &sdfxSolid{s: sdf.Transform3D(ball, m)}, nil
}
