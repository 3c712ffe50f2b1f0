package solver

import (
	"fmt"

	"github.com/chazu/trilat/pkg/geom"
)

// Kind tells how many points the three spheres share.
type Kind int

const (
	NoIntersection Kind = iota // negative discriminant
	OnePoint                   // tangency, discriminant within tolerance of zero
	TwoPoints
)

func (k Kind) String() string {
	switch k {
	case NoIntersection:
		return "none"
	case OnePoint:
		return "one"
	case TwoPoints:
		return "two"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Steps records the intermediate values of one solve.
type Steps struct {
	Plane1    Plane          `json:"plane1"`
	Plane3    Plane          `json:"plane3"`
	Y         LinearRelation `json:"y"`
	X         LinearRelation `json:"x"`
	Quadratic Quadratic      `json:"quadratic"`
}

// Result is the outcome of a solve. Points holds zero, one or two entries
// according to Kind; for TwoPoints the root taken with +sqrt(D) comes first.
type Result struct {
	Kind         Kind        `json:"kind"`
	Points       []geom.Vec3 `json:"points"`
	Discriminant float64     `json:"discriminant"`
	Steps        Steps       `json:"steps"`
}
