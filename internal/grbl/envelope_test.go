package grbl

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_Contains(t *testing.T) {
	env := DefaultEnvelope()

	tests := []struct {
		name  string
		axis  Axis
		value float64
		want  bool
	}{
		{"x home", AxisX, 0, true},
		{"x far corner", AxisX, -420, true},
		{"x middle", AxisX, -210.5, true},
		{"x home plus tolerance", AxisX, 0 + env.Tolerance, true},
		{"x far minus tolerance", AxisX, -420 - env.Tolerance, true},
		{"x beyond far", AxisX, -420.1, false},
		{"x beyond home", AxisX, 0.1, false},
		{"y far corner", AxisY, -370, true},
		{"y beyond far", AxisY, -370.026, false},
		{"y positive", AxisY, 1, false},
		{"z home", AxisZ, 0, true},
		{"z plunge", AxisZ, -10, true},
		{"z above home", AxisZ, 0.001, false},
		{"z above home within tolerance", AxisZ, env.Tolerance, false},
		{"nan", AxisX, math.NaN(), false},
		{"inf", AxisZ, math.Inf(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, env.Contains(tt.axis, tt.value))
		})
	}
}

func TestEnvelope_CornerAccepted(t *testing.T) {
	env := DefaultEnvelope()

	x, err := env.Check(AxisX, -420.0)
	require.NoError(t, err)
	y, err := env.Check(AxisY, -370.0)
	require.NoError(t, err)
	assert.Equal(t, -420.0, x.Value())
	assert.Equal(t, AxisY, y.Axis())

	_, err = env.Check(AxisX, -420.1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfEnvelope))

	var envErr *EnvelopeError
	require.True(t, errors.As(err, &envErr))
	assert.Equal(t, AxisX, envErr.Axis)
	assert.Equal(t, -420.1, envErr.Value)
	assert.InDelta(t, -420.025, envErr.Min, 1e-9)
	assert.InDelta(t, 0.025, envErr.Max, 1e-9)
}

func TestEnvelope_InvertedOrdering(t *testing.T) {
	// Home need not be the numerically larger bound.
	env := Envelope{
		X:         Range{Home: -420, Far: 0},
		Y:         Range{Home: 0, Far: -370},
		Z:         Range{Home: 0, Far: -50},
		Tolerance: 0.025,
	}
	assert.True(t, env.Contains(AxisX, -100))
	assert.True(t, env.Contains(AxisX, 0.025))
	assert.False(t, env.Contains(AxisX, -420.03))
}

func TestEnvelope_ZFarLimit(t *testing.T) {
	env := DefaultEnvelope()
	env.Z.Far = -40

	assert.True(t, env.Contains(AxisZ, -40.025))
	assert.False(t, env.Contains(AxisZ, -40.1))
}

func TestEnvelope_CheckUnknownAxis(t *testing.T) {
	_, err := DefaultEnvelope().Check(Axis(7), 0)
	assert.Error(t, err)
	assert.Equal(t, "Axis(7)", Axis(7).String())
}

func TestEnvelope_Validate(t *testing.T) {
	require.NoError(t, DefaultEnvelope().Validate())

	bad := DefaultEnvelope()
	bad.Tolerance = -1
	assert.Error(t, bad.Validate())

	bad = DefaultEnvelope()
	bad.X.Far = 0
	assert.Error(t, bad.Validate())

	bad = DefaultEnvelope()
	bad.Y.Far = math.NaN()
	assert.Error(t, bad.Validate())

	bad = DefaultEnvelope()
	bad.Z.Far = 5
	assert.Error(t, bad.Validate())
}

func TestCoordinate_Word(t *testing.T) {
	c, err := DefaultEnvelope().Check(AxisX, -100)
	require.NoError(t, err)
	assert.Equal(t, "X-100.000", c.word())
}
