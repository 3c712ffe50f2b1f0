package scene

import (
	"fmt"

	"github.com/chazu/trilat/pkg/geom"
	"github.com/chazu/trilat/pkg/solver"
)

// Sphere is a sphere declared by a script, optionally named.
type Sphere struct {
	ID     ID          `json:"id"`
	Name   string      `json:"name,omitempty"`
	Sphere geom.Sphere `json:"sphere"`
}

// Label returns the name, or the short ID for anonymous spheres.
func (s *Sphere) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID.Short()
}

// Solve records one intersection computed during evaluation. Err is the
// solver's structural error message, empty when Result is valid.
type Solve struct {
	ID      ID            `json:"id"`
	Spheres [3]ID         `json:"spheres"`
	Result  solver.Result `json:"result"`
	Err     string        `json:"error,omitempty"`
}

// Scene is produced fresh by every evaluation and not shared between them.
type Scene struct {
	Spheres   map[ID]*Sphere `json:"spheres"`
	Order     []ID           `json:"order"`
	NameIndex map[string]ID  `json:"name_index"`
	Solves    []*Solve       `json:"solves"`

	anon int
}

// New creates an empty Scene.
func New() *Scene {
	return &Scene{
		Spheres:   make(map[ID]*Sphere),
		NameIndex: make(map[string]ID),
	}
}

// AddSphere registers s under name. An empty name produces an anonymous
// sphere with a generated ID. Reusing a name is an error.
func (sc *Scene) AddSphere(name string, s geom.Sphere) (*Sphere, error) {
	var path string
	if name == "" {
		sc.anon++
		path = fmt.Sprintf("sphere/_anon_%d", sc.anon)
	} else {
		if _, exists := sc.NameIndex[name]; exists {
			return nil, fmt.Errorf("sphere %q already defined", name)
		}
		path = "sphere/" + name
	}

	node := &Sphere{ID: NewID(path), Name: name, Sphere: s}
	sc.Spheres[node.ID] = node
	sc.Order = append(sc.Order, node.ID)
	if name != "" {
		sc.NameIndex[name] = node.ID
	}
	return node, nil
}

// AddSolve appends a solve record for the given spheres.
func (sc *Scene) AddSolve(ids [3]ID, res solver.Result, err error) *Solve {
	rec := &Solve{
		ID:      NewID(fmt.Sprintf("intersect/%d", len(sc.Solves)+1)),
		Spheres: ids,
		Result:  res,
	}
	if err != nil {
		rec.Err = err.Error()
	}
	sc.Solves = append(sc.Solves, rec)
	return rec
}

// Lookup returns the sphere with the given name, or nil.
func (sc *Scene) Lookup(name string) *Sphere {
	id, ok := sc.NameIndex[name]
	if !ok {
		return nil
	}
	return sc.Spheres[id]
}

// Get returns the sphere with the given ID, or nil.
func (sc *Scene) Get(id ID) *Sphere {
	return sc.Spheres[id]
}

// OrderedSpheres returns spheres in declaration order.
func (sc *Scene) OrderedSpheres() []*Sphere {
	out := make([]*Sphere, 0, len(sc.Order))
	for _, id := range sc.Order {
		if s := sc.Spheres[id]; s != nil {
			out = append(out, s)
		}
	}
	return out
}

// SphereCount returns the number of spheres.
func (sc *Scene) SphereCount() int { return len(sc.Spheres) }

// SolveCount returns the number of recorded solves.
func (sc *Scene) SolveCount() int { return len(sc.Solves) }
