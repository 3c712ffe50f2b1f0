package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/trilat/pkg/geom"
	"github.com/chazu/trilat/pkg/monitoring"
	"github.com/chazu/trilat/pkg/scene"
	"github.com/chazu/trilat/pkg/solver"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites scenario source before passing it to zygomys.
// It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: point-x -> point_x
//     zygomys reads a hyphen inside an identifier as the subtraction
//     operator, so builtins are registered in underscore form.
//
//  3. Line comments: ; and ;; become //, the comment syntax zygomys reads.
//
// All transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// ; line comments.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// alpha-alpha -> alpha_alpha, only between identifier characters so
		// that (- a b) and 1e-3 survive.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a geom.Vec3. Points returned by intersect use it too.
type sexpVec3 struct {
	vec geom.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSphere refers to a sphere already registered in the scene.
type sexpSphere struct {
	ref *scene.Sphere
}

func (s *sexpSphere) SexpString(ps *zygo.PrintState) string {
	c := s.ref.Sphere.Center
	if s.ref.Name != "" {
		return fmt.Sprintf("(sphere %q :at (vec3 %g %g %g) :radius %g)", s.ref.Name, c.X, c.Y, c.Z, s.ref.Sphere.Radius)
	}
	return fmt.Sprintf("(sphere %g %g %g %g)", c.X, c.Y, c.Z, s.ref.Sphere.Radius)
}
func (s *sexpSphere) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 accepts a vec3, or a sphere standing for its center.
func toVec3(s zygo.Sexp) (geom.Vec3, error) {
	switch v := s.(type) {
	case *sexpVec3:
		return v.vec, nil
	case *sexpSphere:
		return v.ref.Sphere.Center, nil
	}
	return geom.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toSphere(s zygo.Sexp) (*scene.Sphere, error) {
	if v, ok := s.(*sexpSphere); ok {
		return v.ref, nil
	}
	return nil, fmt.Errorf("expected sphere, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func float(v float64) zygo.Sexp { return &zygo.SexpFloat{Val: v} }

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scenario builtins into a zygomys environment.
// Spheres and intersections are recorded in sc as the script runs. The
// returned function reports the first error raised by a builtin, so callers
// can surface it unchanged rather than as reformatted by zygomys.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, sc *scene.Scene, slv *solver.Solver) (firstErr func() error) {
	var failed error
	add := func(name string, fn func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)) {
		env.AddFunction(name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			res, err := fn(env, name, args)
			if err != nil && failed == nil {
				failed = err
			}
			return res, err
		})
	}

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	add("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		var c [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: geom.V(c[0], c[1], c[2])}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere "name" :at (vec3 0 24 0) :radius 12)
	// (sphere "name" (vec3 0 24 0) 12)
	// (sphere 0 24 0 12)
	// -----------------------------------------------------------------------
	add("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		pos := pa.positional

		var sphereName string
		if len(pos) > 0 {
			if str, ok := pos[0].(*zygo.SexpStr); ok {
				sphereName = str.S
				pos = pos[1:]
			}
		}

		var (
			center               geom.Vec3
			radius               float64
			hasCenter, hasRadius bool
		)
		switch len(pos) {
		case 0:
		case 2:
			v, err := toVec3(pos[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: center: %w", err)
			}
			r, err := toFloat64(pos[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
			}
			center, radius, hasCenter, hasRadius = v, r, true, true
		case 4:
			var c [4]float64
			for i, field := range []string{"x", "y", "z", "radius"} {
				f, err := toFloat64(pos[i])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("sphere: %s: %w", field, err)
				}
				c[i] = f
			}
			center, radius, hasCenter, hasRadius = geom.V(c[0], c[1], c[2]), c[3], true, true
		default:
			return zygo.SexpNull, fmt.Errorf("sphere: expected x y z r, a center and radius, or :at and :radius; got %d positional arguments", len(pos))
		}

		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: at: %w", err)
			}
			center, hasCenter = vec, true
		}
		if v, ok := pa.kw["radius"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
			}
			radius, hasRadius = f, true
		}
		if !hasCenter {
			return zygo.SexpNull, fmt.Errorf("sphere: missing center (:at)")
		}
		if !hasRadius {
			return zygo.SexpNull, fmt.Errorf("sphere: missing :radius")
		}

		s, err := geom.NewSphere(center.X, center.Y, center.Z, radius)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		ref, err := sc.AddSphere(sphereName, s)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		return &sexpSphere{ref: ref}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere-ref "name")
	// -----------------------------------------------------------------------
	add("sphere_ref", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("sphere-ref requires a name argument")
		}

		sphereName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere-ref: name: %w", err)
		}
		ref := sc.Lookup(sphereName)
		if ref == nil {
			return zygo.SexpNull, fmt.Errorf("sphere-ref: no sphere named %q", sphereName)
		}
		return &sexpSphere{ref: ref}, nil
	})

	// -----------------------------------------------------------------------
	// (intersect s1 s2 s3) or (intersect (list s1 s2 s3))
	//
	// Returns the list of intersection points, empty when the spheres do
	// not meet. Structural solver errors abort the evaluation.
	// -----------------------------------------------------------------------
	add("intersect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		items := args
		if len(args) == 1 {
			var err error
			if items, err = sexpListToSlice(args[0]); err != nil {
				return zygo.SexpNull, fmt.Errorf("intersect: %w", err)
			}
		}
		if len(items) != 3 {
			return zygo.SexpNull, fmt.Errorf("intersect requires exactly 3 spheres, got %d", len(items))
		}

		var refs [3]*scene.Sphere
		var ids [3]scene.ID
		for i, item := range items {
			ref, err := toSphere(item)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("intersect: sphere %d: %w", i+1, err)
			}
			refs[i], ids[i] = ref, ref.ID
		}

		res, err := slv.Solve(refs[0].Sphere, refs[1].Sphere, refs[2].Sphere)
		sc.AddSolve(ids, res, err)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("intersect %s %s %s: %w", refs[0].Label(), refs[1].Label(), refs[2].Label(), err)
		}
		monitoring.Verbosef("engine: intersect %s %s %s: %s", refs[0].Label(), refs[1].Label(), refs[2].Label(), res.Kind)

		points := make([]zygo.Sexp, len(res.Points))
		for i, p := range res.Points {
			points[i] = &sexpVec3{vec: p}
		}
		return zygo.MakeList(points), nil
	})

	// -----------------------------------------------------------------------
	// (point-x p) (point-y p) (point-z p)
	// -----------------------------------------------------------------------
	for _, c := range []struct {
		name string
		get  func(geom.Vec3) float64
	}{
		{"point_x", func(v geom.Vec3) float64 { return v.X }},
		{"point_y", func(v geom.Vec3) float64 { return v.Y }},
		{"point_z", func(v geom.Vec3) float64 { return v.Z }},
	} {
		get, label := c.get, strings.ReplaceAll(c.name, "_", "-")
		add(c.name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly 1 argument, got %d", label, len(args))
			}
			v, err := toVec3(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			return float(get(v)), nil
		})
	}

	// -----------------------------------------------------------------------
	// (distance p q)
	// -----------------------------------------------------------------------
	add("distance", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("distance requires exactly 2 arguments, got %d", len(args))
		}
		p, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("distance: first: %w", err)
		}
		q, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("distance: second: %w", err)
		}
		return float(p.Dist(q)), nil
	})

	return func() error { return failed }
}
