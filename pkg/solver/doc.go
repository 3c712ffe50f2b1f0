// Package solver computes the intersection of three spheres in closed form.
//
// Subtracting the second sphere's equation from the first and from the third
// leaves two plane equations whose common line passes through every
// intersection point. The line is written as x = g*z + h, y = e*z + f and
// substituted into the first sphere, which leaves a quadratic in z. The sign
// of its discriminant gives zero, one or two points.
//
// The elimination is a fixed sequence of guarded branches. A zero denominator
// in the branch taken is reported as a CollinearOrCoincidentCentersError
// instead of producing NaN or Inf coordinates.
package solver
