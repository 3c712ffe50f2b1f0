package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/trilat/pkg/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	s1 := geom.Sphere{Center: geom.V(0, 24, 0), Radius: 12}
	s2 := geom.Sphere{Center: geom.V(24, 0, 0), Radius: 11}
	s3 := geom.Sphere{Center: geom.V(15, 15, 0), Radius: 14}

	p1, p3 := Reduce(s1, s2, s3)
	assert.Equal(t, Plane{A: 48, B: -48, C: 0, K: 23}, p1)
	assert.Equal(t, Plane{A: 18, B: -30, C: 0, K: 201}, p3)
}

func TestLinearRelationAt(t *testing.T) {
	l := LinearRelation{Slope: 2, Intercept: -1}
	assert.Equal(t, -1.0, l.At(0))
	assert.Equal(t, 5.0, l.At(3))
}

func TestSolveYBranches(t *testing.T) {
	tests := []struct {
		name   string
		p1, p3 Plane
		want   LinearRelation
	}{
		{
			name: "a1 zero uses plane 1",
			p1:   Plane{A: 0, B: 2, C: 4, K: 6},
			p3:   Plane{A: 1, B: 1, C: 1, K: 1},
			want: LinearRelation{Slope: -2, Intercept: 3},
		},
		{
			name: "a1 zero wins over a3 zero",
			p1:   Plane{A: 0, B: 4, C: 8, K: 4},
			p3:   Plane{A: 0, B: 1, C: 1, K: 1},
			want: LinearRelation{Slope: -2, Intercept: 1},
		},
		{
			name: "a3 zero uses plane 3",
			p1:   Plane{A: 1, B: 1, C: 1, K: 1},
			p3:   Plane{A: 0, B: 2, C: -6, K: 10},
			want: LinearRelation{Slope: 3, Intercept: 5},
		},
		{
			name: "general eliminates x",
			// x + y + z = 6 and 2x + 4y + 2z = 16 give y = 2.
			p1:   Plane{A: 1, B: 1, C: 1, K: 6},
			p3:   Plane{A: 2, B: 4, C: 2, K: 16},
			want: LinearRelation{Slope: 0, Intercept: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SolveY(tt.p1, tt.p3, DefaultCollinearTolerance)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Slope, got.Slope, 1e-12)
			assert.InDelta(t, tt.want.Intercept, got.Intercept, 1e-12)
		})
	}
}

func TestSolveXBranches(t *testing.T) {
	tests := []struct {
		name   string
		p1, p3 Plane
		want   LinearRelation
	}{
		{
			name: "b1 zero uses plane 1",
			p1:   Plane{A: 2, B: 0, C: 4, K: 6},
			p3:   Plane{A: 1, B: 1, C: 1, K: 1},
			want: LinearRelation{Slope: -2, Intercept: 3},
		},
		{
			name: "b3 zero uses plane 3",
			p1:   Plane{A: 1, B: 1, C: 1, K: 1},
			p3:   Plane{A: 2, B: 0, C: -6, K: 10},
			want: LinearRelation{Slope: 3, Intercept: 5},
		},
		{
			name: "general eliminates y",
			// x + y + z = 6 and 4x + 2y + 2z = 16 give x = 2.
			p1:   Plane{A: 1, B: 1, C: 1, K: 6},
			p3:   Plane{A: 4, B: 2, C: 2, K: 16},
			want: LinearRelation{Slope: 0, Intercept: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SolveX(tt.p1, tt.p3, DefaultCollinearTolerance)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Slope, got.Slope, 1e-12)
			assert.InDelta(t, tt.want.Intercept, got.Intercept, 1e-12)
		})
	}
}

func TestEliminationZeroDenominators(t *testing.T) {
	tests := []struct {
		name        string
		fn          func(p1, p3 Plane, tol float64) (LinearRelation, error)
		p1, p3      Plane
		denominator string
	}{
		{"y: b1", SolveY, Plane{A: 0, B: 0, C: 1, K: 1}, Plane{A: 1, B: 1, C: 1, K: 1}, "b1"},
		{"y: b3", SolveY, Plane{A: 1, B: 1, C: 1, K: 1}, Plane{A: 0, B: 0, C: 1, K: 1}, "b3"},
		{"y: a31*b1-b3", SolveY, Plane{A: 1, B: 2, C: 1, K: 1}, Plane{A: 2, B: 4, C: 0, K: 1}, "a31*b1-b3"},
		{"x: a1", SolveX, Plane{A: 0, B: 0, C: 1, K: 1}, Plane{A: 1, B: 1, C: 1, K: 1}, "a1"},
		{"x: a3", SolveX, Plane{A: 1, B: 1, C: 1, K: 1}, Plane{A: 0, B: 0, C: 1, K: 1}, "a3"},
		{"x: b31*a1-a3", SolveX, Plane{A: 2, B: 1, C: 1, K: 1}, Plane{A: 4, B: 2, C: 0, K: 1}, "b31*a1-a3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn(tt.p1, tt.p3, 0)
			require.Error(t, err)
			var cerr *CollinearOrCoincidentCentersError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.denominator, cerr.Denominator)
		})
	}
}

func TestEliminationToleranceCatchesRounding(t *testing.T) {
	// a31*b1 and b3 differ only by rounding in the last bit.
	p1 := Plane{A: 3, B: 0.1, C: 1, K: 1}
	p3 := Plane{A: 0.3, B: 0.1 * 0.1, C: 0, K: 1}
	a31 := p3.A / p1.A
	require.Less(t, math.Abs(a31*p1.B-p3.B), 1e-15)

	_, err := SolveY(p1, p3, DefaultCollinearTolerance)
	assert.True(t, errors.Is(err, ErrCollinear))
}

func TestQuadraticCheck(t *testing.T) {
	tests := []struct {
		name  string
		q     Quadratic
		coeff string
	}{
		{"zero A", Quadratic{A: 0, B: 1, C: 1}, "A"},
		{"nan A", Quadratic{A: math.NaN(), B: 1, C: 1}, "A"},
		{"inf B", Quadratic{A: 1, B: math.Inf(1), C: 1}, "B"},
		{"nan C", Quadratic{A: 1, B: 1, C: math.NaN()}, "C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.check()
			require.Error(t, err)
			var derr *DegenerateConfigurationError
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, tt.coeff, derr.Coefficient)
			assert.True(t, errors.Is(err, ErrDegenerate))
		})
	}
	assert.NoError(t, Quadratic{A: 1, B: 2, C: 3}.check())
}

func TestSubstitute(t *testing.T) {
	// Unit sphere at the origin with x = 0, y = 0: z^2 - 1 = 0.
	s := geom.Sphere{Center: geom.V(0, 0, 0), Radius: 1}
	q := Substitute(s, LinearRelation{}, LinearRelation{})
	assert.Equal(t, 1.0, q.A)
	assert.Equal(t, 0.0, q.B)
	assert.Equal(t, -1.0, q.C)
	assert.Equal(t, 4.0, q.Discriminant())
	assert.False(t, q.Tangent(DefaultTangencyTolerance))

	// Zero radius at the origin touches the z axis once.
	s.Radius = 0
	q = Substitute(s, LinearRelation{}, LinearRelation{})
	assert.True(t, q.Tangent(0))
}
