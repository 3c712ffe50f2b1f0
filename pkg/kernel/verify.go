package kernel

import (
	"fmt"
	"math"

	"github.com/chazu/trilat/pkg/geom"
)

// Residual holds the signed distances from one point to each sphere.
type Residual struct {
	Point     geom.Vec3  `json:"point"`
	Distances [3]float64 `json:"distances"`
	OK        bool       `json:"ok"`
}

// Report is the outcome of Verify.
type Report struct {
	Residuals []Residual `json:"residuals"`
	Tolerance float64    `json:"tolerance"`
	OK        bool       `json:"ok"`
}

// MaxResidual returns the largest absolute distance in the report.
func (r Report) MaxResidual() float64 {
	var m float64
	for _, res := range r.Residuals {
		for _, d := range res.Distances {
			m = math.Max(m, math.Abs(d))
		}
	}
	return m
}

func build(k Kernel, spheres [3]geom.Sphere) ([3]Solid, error) {
	var solids [3]Solid
	for i, s := range spheres {
		solid, err := k.Sphere(s)
		if err != nil {
			return solids, fmt.Errorf("sphere %d: %w", i+1, err)
		}
		solids[i] = solid
	}
	return solids, nil
}

// Verify measures how far each point lies from each sphere surface. A point
// passes when every distance is within tol times the sphere's scale
// (max(1, radius)). The report is OK when every point passes.
func Verify(k Kernel, spheres [3]geom.Sphere, points []geom.Vec3, tol float64) (Report, error) {
	solids, err := build(k, spheres)
	if err != nil {
		return Report{}, err
	}

	rep := Report{Residuals: make([]Residual, 0, len(points)), Tolerance: tol, OK: true}
	for _, p := range points {
		res := Residual{Point: p, OK: true}
		for i, solid := range solids {
			d := solid.Distance(p)
			res.Distances[i] = d
			if math.IsNaN(d) || math.Abs(d) > tol*math.Max(1, spheres[i].Radius) {
				res.OK = false
			}
		}
		rep.OK = rep.OK && res.OK
		rep.Residuals = append(rep.Residuals, res)
	}
	return rep, nil
}

// CanMeet reports whether the bounding boxes of the three spheres overlap.
// Overlapping boxes are necessary for an intersection, not sufficient.
func CanMeet(k Kernel, spheres [3]geom.Sphere) (bool, error) {
	solids, err := build(k, spheres)
	if err != nil {
		return false, err
	}

	lo, hi := solids[0].BoundingBox()
	for _, s := range solids[1:] {
		smin, smax := s.BoundingBox()
		for a := 0; a < 3; a++ {
			lo[a] = math.Max(lo[a], smin[a])
			hi[a] = math.Min(hi[a], smax[a])
		}
	}
	for a := 0; a < 3; a++ {
		if lo[a] > hi[a] {
			return false, nil
		}
	}
	return true, nil
}
