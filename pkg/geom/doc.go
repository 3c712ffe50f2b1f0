// Package geom defines the value types shared by the trilateration solver
// and its callers: points in 3-space and spheres.
package geom
