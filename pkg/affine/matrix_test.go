package affine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"rtcontour/internal/models"
	"rtcontour/pkg/rterr"
)

const tol = 1e-9

func assertPoint(t *testing.T, want, got models.Point) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
	assert.InDelta(t, want.Z, got.Z, tol, "z")
}

func TestParseAxes(t *testing.T) {
	for _, name := range []string{"roll", "pitch", "yaw"} {
		axis, err := ParseRotationAxis(name)
		require.NoError(t, err)
		assert.Equal(t, name, axis.String())
	}
	for _, name := range []string{"x", "y", "z"} {
		axis, err := ParseTranslationAxis(name)
		require.NoError(t, err)
		assert.Equal(t, name, axis.String())
	}

	_, err := ParseRotationAxis("x")
	assert.True(t, errors.Is(err, rterr.ErrInvalidArgument))
	_, err = ParseTranslationAxis("w")
	assert.True(t, errors.Is(err, rterr.ErrInvalidArgument))
	_, err = ParseTranslationAxis("xx")
	assert.True(t, errors.Is(err, rterr.ErrInvalidArgument))

	assert.False(t, RotationAxis(7).Valid())
	assert.False(t, TranslationAxis(-1).Valid())
	assert.Equal(t, "RotationAxis(7)", RotationAxis(7).String())
}

// TestRightHandedRotation checks the sign convention on the unit vectors
func TestRightHandedRotation(t *testing.T) {
	tests := []struct {
		axis RotationAxis
		in   models.Point
		want models.Point
	}{
		{Roll, models.Point{Y: 1}, models.Point{Z: 1}},
		{Pitch, models.Point{Z: 1}, models.Point{X: 1}},
		{Yaw, models.Point{X: 1}, models.Point{Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.axis.String(), func(t *testing.T) {
			tr := New(Rotation(tt.axis, 90))
			assertPoint(t, tt.want, tr.Apply(tt.in))
		})
	}
}

func TestRotationAboutOriginIsFixedPoint(t *testing.T) {
	origin := models.Point{X: 10, Y: -4, Z: 2.5}
	for _, axis := range []RotationAxis{Roll, Pitch, Yaw} {
		tr := RotationAbout(axis, 37, origin)
		assertPoint(t, origin, tr.Apply(origin))
	}

	// 180 degrees about z through (1, 1, 0) maps (2, 1, 5) to (0, 1, 5).
	tr := RotationAbout(Yaw, 180, models.Point{X: 1, Y: 1})
	assertPoint(t, models.Point{X: 0, Y: 1, Z: 5}, tr.Apply(models.Point{X: 2, Y: 1, Z: 5}))
}

func TestShift(t *testing.T) {
	p := models.Point{X: 1, Y: 1, Z: 1}
	origin := models.Point{X: 100, Y: 200, Z: -50}

	assertPoint(t, models.Point{X: 2, Y: 1, Z: 1}, ShiftAbout(X, 1, origin).Apply(p))
	assertPoint(t, models.Point{X: 1, Y: 2, Z: 1}, ShiftAbout(Y, 1, origin).Apply(p))
	assertPoint(t, models.Point{X: 1, Y: 1, Z: 2}, ShiftAbout(Z, 1, origin).Apply(p))
}

func TestZeroTransformsAreIdentity(t *testing.T) {
	s := models.NewSlice(models.ClosedPlanar,
		models.Point{X: -12.5, Y: 3.25, Z: 40},
		models.Point{X: 7, Y: 9.75, Z: 40},
		models.Point{X: 1e3, Y: -1e3, Z: 40},
	)
	origin := models.Point{X: 5, Y: 5, Z: 5}
	for _, tr := range []Transform{
		RotationAbout(Roll, 0, origin),
		RotationAbout(Pitch, 0, origin),
		RotationAbout(Yaw, 0, origin),
		ShiftAbout(X, 0, origin),
	} {
		out, err := tr.ApplySlice(s)
		require.NoError(t, err)
		require.Len(t, out.Data, len(s.Data))
		for i := range s.Data {
			assert.InDelta(t, s.Data[i], out.Data[i], 1e-6)
		}
	}
}

func TestFullTurn(t *testing.T) {
	p := models.Point{X: 3, Y: -8, Z: 12}
	tr := RotationAbout(Pitch, 360, models.Point{X: 1, Y: 2, Z: 3})
	assertPoint(t, p, tr.Apply(p))

	back := RotationAbout(Roll, 45, models.Point{}).Then(RotationAbout(Roll, -45, models.Point{}))
	assertPoint(t, p, back.Apply(p))
}

func TestApplySliceLeavesInputAlone(t *testing.T) {
	s := models.NewSlice(models.ClosedPlanar, models.Point{X: 1, Y: 2, Z: 3}, models.Point{X: 4, Y: 5, Z: 6})
	orig := append([]float64(nil), s.Data...)

	out, err := ShiftAbout(Z, 10, models.Point{}).ApplySlice(s)
	require.NoError(t, err)
	assert.Equal(t, orig, s.Data)
	assert.Equal(t, []float64{1, 2, 13, 4, 5, 16}, out.Data)
	assert.Equal(t, models.ClosedPlanar, out.GeometricType)
}

func TestApplySliceRejectsBrokenTriplets(t *testing.T) {
	_, err := New(Identity()).ApplySlice(models.Slice{Data: []float64{1, 2, 3, 4}})
	assert.True(t, errors.Is(err, rterr.ErrStructural))

	out, err := New(Identity()).ApplySlice(models.Slice{})
	require.NoError(t, err)
	assert.Empty(t, out.Data)
}

func TestComposeOrder(t *testing.T) {
	// Rotate first, then shift.
	m := Compose(Translation(10, 0, 0), Rotation(Yaw, 90))
	got := New(m).Apply(models.Point{X: 1})
	assertPoint(t, models.Point{X: 10, Y: 1}, got)

	assert.True(t, mat.EqualApprox(Compose(), Identity(), 0))
	assert.Panics(t, func() { New(mat.NewDense(3, 3, nil)) })
	assert.Panics(t, func() { Rotation(RotationAxis(5), 1) })
	assert.InDelta(t, 1.0, math.Abs(mat.Det(Rotation(Roll, 33))), tol)
}
