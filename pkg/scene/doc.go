// Package scene holds the model produced by evaluating a scenario script:
// named spheres and the intersection solves performed on them.
package scene
