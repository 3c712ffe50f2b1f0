package solver

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrDegenerate = errors.New("degenerate configuration")
	ErrCollinear  = errors.New("collinear or coincident centers")
)

// DegenerateConfigurationError reports that substituting the line into the
// first sphere did not produce a usable quadratic.
type DegenerateConfigurationError struct {
	Coefficient string // "A", "B" or "C"
	Value       float64
}

func (e *DegenerateConfigurationError) Error() string {
	return fmt.Sprintf("%s: quadratic coefficient %s = %g", ErrDegenerate, e.Coefficient, e.Value)
}

func (e *DegenerateConfigurationError) Is(target error) bool { return target == ErrDegenerate }

// CollinearOrCoincidentCentersError reports a zero denominator in the
// elimination step that expresses Coordinate as a function of z.
type CollinearOrCoincidentCentersError struct {
	Coordinate  string // "y" or "x"
	Denominator string // e.g. "b1", "a31*b1-b3"
	Value       float64
}

func (e *CollinearOrCoincidentCentersError) Error() string {
	return fmt.Sprintf("%s: denominator %s = %g while solving %s in terms of z",
		ErrCollinear, e.Denominator, e.Value, e.Coordinate)
}

func (e *CollinearOrCoincidentCentersError) Is(target error) bool { return target == ErrCollinear }
