package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoiseFieldDeterministic(t *testing.T) {
	a := NewNoiseField(32000)
	b := NewNoiseField(32000)

	for x := 0; x < 32; x++ {
		for z := 0; z < 32; z++ {
			fx, fz := float64(x)*0.013, float64(z)*0.017
			assert.Equal(t, a.Sample(fx, fz, 4, 0.5), b.Sample(fx, fz, 4, 0.5), "Sample(%d,%d) должен совпадать", x, z)
			assert.Equal(t, a.Sample3D(fx, 0.3, fz, 2, 0.5), b.Sample3D(fx, 0.3, fz, 2, 0.5))
		}
	}
}

func TestNoiseFieldRange(t *testing.T) {
	n := NewNoiseField(7)
	for x := -50; x < 50; x++ {
		for z := -50; z < 50; z += 3 {
			v := n.Sample(float64(x)*0.031, float64(z)*0.029, 5, 0.5)
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)

			v3 := n.Sample3D(float64(x)*0.1, float64(z)*0.1, 0.7, 3, 0.5)
			require.GreaterOrEqual(t, v3, 0.0)
			require.LessOrEqual(t, v3, 1.0)
		}
	}
}

func TestNoiseFieldZeroOctavesTreatedAsOne(t *testing.T) {
	n := NewNoiseField(1)
	assert.Equal(t, n.Sample(0.37, 0.81, 1, 0.5), n.Sample(0.37, 0.81, 0, 0.5))
}

func TestNoiseFieldSeedsDiffer(t *testing.T) {
	a := NewNoiseField(1)
	b := NewNoiseField(2)

	different := false
	for x := 0; x < 64 && !different; x++ {
		fx := float64(x) * 0.173
		if a.Sample(fx, fx*0.5, 3, 0.5) != b.Sample(fx, fx*0.5, 3, 0.5) {
			different = true
		}
	}
	assert.True(t, different, "разные сиды должны давать разный шум")
}

func TestMapRange(t *testing.T) {
	assert.Equal(t, 0, MapRange(0, 100))
	assert.Equal(t, 50, MapRange(0.5, 100))
	assert.Equal(t, 100, MapRange(1, 100))
	assert.Equal(t, 100, MapRange(1.7, 100))
	assert.Equal(t, 0, MapRange(-0.2, 100))
}
