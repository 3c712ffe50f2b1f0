package scene

import (
	"fmt"
	"math"
)

// ValidationSeverity indicates whether a validation finding is blocking
// or merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocking
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	ID       ID                 // which element has the problem (zero if scene-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.ID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.ID.Short(), e.Message)
}

// ValidationResult separates blocking errors from warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether no blocking errors were found.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate runs every check on the scene. It never mutates sc.
func Validate(sc *Scene) ValidationResult {
	var all []ValidationError
	all = append(all, validateSpheres(sc)...)
	all = append(all, validateNames(sc)...)
	all = append(all, validateSolves(sc)...)

	var res ValidationResult
	for _, e := range all {
		if e.Severity == SeverityWarning {
			res.Warnings = append(res.Warnings, e)
		} else {
			res.Errors = append(res.Errors, e)
		}
	}
	return res
}

// validateSpheres checks each sphere's geometry.
func validateSpheres(sc *Scene) []ValidationError {
	var errs []ValidationError
	for _, s := range sc.OrderedSpheres() {
		if err := s.Sphere.Validate(); err != nil {
			errs = append(errs, ValidationError{
				ID:       s.ID,
				Message:  fmt.Sprintf("sphere %s: %v", s.Label(), err),
				Severity: SeverityError,
			})
			continue
		}
		if s.Sphere.Radius == 0 {
			errs = append(errs, ValidationError{
				ID:       s.ID,
				Message:  fmt.Sprintf("sphere %s has zero radius and degenerates to a point", s.Label()),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateNames checks that the name index agrees with the spheres.
func validateNames(sc *Scene) []ValidationError {
	var errs []ValidationError
	for name, id := range sc.NameIndex {
		s, ok := sc.Spheres[id]
		if !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references non-existent sphere %s", name, id.Short()),
				Severity: SeverityError,
			})
			continue
		}
		if s.Name != name {
			errs = append(errs, ValidationError{
				ID:       id,
				Message:  fmt.Sprintf("name index entry %q points at sphere named %q", name, s.Name),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateSolves checks references and warns about shared centers, which
// the solver rejects.
func validateSolves(sc *Scene) []ValidationError {
	var errs []ValidationError
	for _, rec := range sc.Solves {
		missing := false
		for i, id := range rec.Spheres {
			if _, ok := sc.Spheres[id]; !ok {
				missing = true
				errs = append(errs, ValidationError{
					ID:       rec.ID,
					Message:  fmt.Sprintf("sphere %d reference %s does not exist", i+1, id.Short()),
					Severity: SeverityError,
				})
			}
		}
		if missing {
			continue
		}
		for i := 0; i < 3; i++ {
			for j := i + 1; j < 3; j++ {
				a := sc.Spheres[rec.Spheres[i]].Sphere.Center
				b := sc.Spheres[rec.Spheres[j]].Sphere.Center
				if a.Dist(b) == 0 || math.IsNaN(a.Dist(b)) {
					errs = append(errs, ValidationError{
						ID:       rec.ID,
						Message:  fmt.Sprintf("spheres %d and %d share a center", i+1, j+1),
						Severity: SeverityWarning,
					})
				}
			}
		}
	}
	return errs
}
