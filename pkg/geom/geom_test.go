package geom

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVec3Arithmetic(t *testing.T) {
	a := V(1, 2, 3)
	b := V(4, 6, 3)

	assert.Equal(t, V(5, 8, 6), a.Add(b))
	assert.Equal(t, V(3, 4, 0), b.Sub(a))
	assert.Equal(t, V(2, 4, 6), a.Scale(2))
	assert.InDelta(t, 5.0, a.Dist(b), 1e-12)
	assert.InDelta(t, 5.0, V(3, 4, 0).Norm(), 1e-12)
}

func TestVec3ApproxEqual(t *testing.T) {
	assert.True(t, V(1, 2, 3).ApproxEqual(V(1+1e-12, 2, 3-1e-12), 1e-9))
	assert.False(t, V(1, 2, 3).ApproxEqual(V(1.1, 2, 3), 1e-9))
	assert.True(t, V(0, 0, 0).ApproxEqual(V(1e-12, -1e-12, 0), 1e-9))
}

func TestVec3IsFinite(t *testing.T) {
	assert.True(t, V(1, 2, 3).IsFinite())
	assert.False(t, V(math.NaN(), 0, 0).IsFinite())
	assert.False(t, V(0, math.Inf(-1), 0).IsFinite())
}

func TestNewSphere(t *testing.T) {
	s, err := NewSphere(1, 2, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, V(1, 2, 3), s.Center)
	assert.Equal(t, 4.0, s.Radius)

	_, err = NewSphere(0, 0, 0, 0)
	assert.NoError(t, err, "zero radius is a point and is accepted")
}

func TestNewSphereRejects(t *testing.T) {
	tests := []struct {
		name    string
		x, y, z float64
		r       float64
		field   string
	}{
		{"negative radius", 0, 0, 0, -1, "radius"},
		{"nan x", math.NaN(), 0, 0, 1, "x"},
		{"inf y", 0, math.Inf(1), 0, 1, "y"},
		{"nan z", 0, 0, math.NaN(), 1, "z"},
		{"inf radius", 0, 0, 0, math.Inf(1), "radius"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSphere(tt.x, tt.y, tt.z, tt.r)
			require.Error(t, err)
			var invalid *InvalidSphereError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestSphereResidual(t *testing.T) {
	s := Sphere{Center: V(0, 0, 0), Radius: 5}
	assert.InDelta(t, 0.0, s.Residual(V(3, 4, 0)), 1e-12)
	assert.InDelta(t, -5.0, s.Residual(V(0, 0, 0)), 1e-12)
	assert.InDelta(t, 5.0, s.Residual(V(0, 0, 10)), 1e-12)
}
