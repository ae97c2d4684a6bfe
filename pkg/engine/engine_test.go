package engine

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtcontour/internal/models"
	"rtcontour/pkg/affine"
	"rtcontour/pkg/rterr"
)

// testRecord builds a patient with a two-slice cube, a single-point
// structure and a reference marker declared last.
func testRecord(t *testing.T) *models.PatientRecord {
	t.Helper()
	square := func(z float64) models.Slice {
		return models.NewSlice(models.ClosedPlanar,
			models.Point{X: 10, Y: 10, Z: z},
			models.Point{X: -10, Y: 10, Z: z},
			models.Point{X: -10, Y: -10, Z: z},
			models.Point{X: 10, Y: -10, Z: z},
		)
	}
	set, err := models.NewStructureSet("RS", []*models.ROI{
		{Number: 1, Name: "cubo", Slices: []models.Slice{square(-5), square(5)}},
		{Number: 2, Name: "space", Slices: []models.Slice{
			models.NewSlice(models.ClosedPlanar,
				models.Point{X: 101.5, Y: -20.25, Z: 3},
				models.Point{X: 99, Y: -18, Z: 3},
				models.Point{X: 97.75, Y: -22.5, Z: 3},
			),
		}},
		{Number: 3, Name: "marker", Slices: []models.Slice{
			models.NewSlice(models.SinglePoint, models.Point{X: 1, Y: 1, Z: 1}),
		}},
		{Number: 4, Name: "Coord 1", Slices: []models.Slice{
			models.NewSlice(models.SinglePoint, models.Point{X: 0, Y: 0, Z: 0}),
		}},
	})
	require.NoError(t, err)
	return &models.PatientRecord{
		Patient:    models.Identity{Name: "Doe^Jane", BirthDate: "19600101", ID: "P-001"},
		Structures: set,
		Plan:       &models.Plan{Label: "plan"},
	}
}

func slices(t *testing.T, rec *models.PatientRecord, name string) []models.Slice {
	t.Helper()
	roi := rec.Structures.ByName(name)
	require.NotNil(t, roi, name)
	return roi.Slices
}

func assertSlicesNear(t *testing.T, want, got []models.Slice, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Len(t, got[i].Data, len(want[i].Data), "slice %d", i)
		for j := range want[i].Data {
			assert.InDelta(t, want[i].Data[j], got[i].Data[j], tol, "slice %d value %d", i, j)
		}
	}
}

func TestTranslateZeroIsIdentity(t *testing.T) {
	rec := testRecord(t)
	for _, axis := range []affine.TranslationAxis{affine.X, affine.Y, affine.Z} {
		for _, name := range rec.Structures.Names() {
			out, err := Translate(rec, name, 0, axis, nil)
			require.NoError(t, err)
			assertSlicesNear(t, slices(t, rec, name), slices(t, out, name), 1e-6)

			for _, other := range rec.Structures.Names() {
				if other == name {
					continue
				}
				assert.True(t, reflect.DeepEqual(rec.Structures.ByName(other), out.Structures.ByName(other)), other)
			}
		}
	}
}

func TestRotateZeroIsIdentity(t *testing.T) {
	rec := testRecord(t)
	for _, axis := range []affine.RotationAxis{affine.Roll, affine.Pitch, affine.Yaw} {
		for _, name := range rec.Structures.Names() {
			out, err := Rotate(rec, name, 0, axis, nil)
			require.NoError(t, err)
			assertSlicesNear(t, slices(t, rec, name), slices(t, out, name), 1e-6)
		}
	}
}

func TestTranslateRoundTrip(t *testing.T) {
	tests := []struct {
		a, b, c float64
		axis    affine.TranslationAxis
	}{
		{100, 20, -120, affine.X},
		{999, 1, -1000, affine.Y},
		{19, 21, -40, affine.Z},
		{100, -50, -50, affine.X},
		{300, -200, -100, affine.Y},
		{200, 0, -200, affine.Z},
	}
	rec := testRecord(t)
	origin := &models.Point{X: 4, Y: 5, Z: 6}
	for _, tt := range tests {
		out, err := Translate(rec, "space", tt.a, tt.axis, origin)
		require.NoError(t, err)
		out, err = Translate(out, "space", tt.b, tt.axis, origin)
		require.NoError(t, err)
		out, err = Translate(out, "space", tt.c, tt.axis, origin)
		require.NoError(t, err)
		assertSlicesNear(t, slices(t, rec, "space"), slices(t, out, "space"), 1e-6)
	}
}

func TestTranslateSinglePoint(t *testing.T) {
	rec := testRecord(t)
	tests := []struct {
		axis string
		want []float64
	}{
		{"x", []float64{2, 1, 1}},
		{"y", []float64{1, 2, 1}},
		{"z", []float64{1, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.axis, func(t *testing.T) {
			out, err := Default.Do(rec, Operation{Op: OpTranslate, Structure: "marker", Amount: 1, Axis: tt.axis})
			require.NoError(t, err)
			got := slices(t, out, "marker")[0].Data
			require.Len(t, got, 3)
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-5)
			}
		})
	}
}

func TestRotateAboutDefaultOrigin(t *testing.T) {
	rec := testRecord(t)
	out, err := Rotate(rec, "marker", 90, affine.Yaw, nil)
	require.NoError(t, err)
	assertSlicesNear(t, []models.Slice{{Data: []float64{-1, 1, 1}}}, slices(t, out, "marker"), 1e-9)

	origin := &models.Point{X: 1, Y: 0, Z: 1}
	out, err = Rotate(rec, "marker", 90, affine.Roll, origin)
	require.NoError(t, err)
	assertSlicesNear(t, []models.Slice{{Data: []float64{1, 0, 2}}}, slices(t, out, "marker"), 1e-9)
}

func TestValidationErrors(t *testing.T) {
	rec := testRecord(t)
	tests := []struct {
		name string
		op   Operation
		want error
	}{
		{"unknown structure", Operation{Op: OpTranslate, Structure: "nonexistent", Amount: 10, Axis: "x"}, rterr.ErrNotFound},
		{"bad axis", Operation{Op: OpTranslate, Structure: "cubo", Amount: 10, Axis: "w"}, rterr.ErrInvalidArgument},
		{"rotation axis on translate", Operation{Op: OpTranslate, Structure: "cubo", Amount: 10, Axis: "yaw"}, rterr.ErrInvalidArgument},
		{"delta too large", Operation{Op: OpTranslate, Structure: "marker", Amount: 1001, Axis: "x"}, rterr.ErrOutOfRange},
		{"delta as string", Operation{Op: OpTranslate, Structure: "cubo", Amount: "10", Axis: "x"}, rterr.ErrInvalidArgument},
		{"delta missing", Operation{Op: OpTranslate, Structure: "cubo", Axis: "x"}, rterr.ErrInvalidArgument},
		{"angle too large", Operation{Op: OpRotate, Structure: "cubo", Amount: 360.5, Axis: "roll"}, rterr.ErrOutOfRange},
		{"angle as string", Operation{Op: OpRotate, Structure: "cubo", Amount: "1", Axis: "roll"}, rterr.ErrInvalidArgument},
		{"bad rotation axis", Operation{Op: OpRotate, Structure: "cubo", Amount: 1, Axis: "x"}, rterr.ErrInvalidArgument},
		{"rotate origin of 4", Operation{Op: OpRotate, Structure: "cubo", Amount: 1, Axis: "yaw", Origin: []any{0.0, 0.0, 0.0, 1.0}}, rterr.ErrInvalidArgument},
		{"translate origin of 4", Operation{Op: OpTranslate, Structure: "cubo", Amount: 200.0, Axis: "z", Origin: []any{0.0, 1.0, 0.0, 2.0}}, rterr.ErrInvalidArgument},
		{"origin of 2", Operation{Op: OpTranslate, Structure: "cubo", Amount: 200.0, Axis: "x", Origin: []float64{0, 0}}, rterr.ErrInvalidArgument},
		{"origin not a list", Operation{Op: OpTranslate, Structure: "cubo", Amount: 200.0, Axis: "x", Origin: "0,0,0"}, rterr.ErrInvalidArgument},
		{"origin with text", Operation{Op: OpTranslate, Structure: "cubo", Amount: 200.0, Axis: "x", Origin: []any{0.0, "1", 0.0}}, rterr.ErrInvalidArgument},
		{"margin as string", Operation{Op: OpMargin, Structure: "cubo", Amount: "0.5"}, rterr.ErrInvalidArgument},
		{"margin unknown structure", Operation{Op: OpMargin, Structure: "error", Amount: 0.5}, rterr.ErrNotFound},
		{"unknown op", Operation{Op: "scale", Structure: "cubo", Amount: 2}, rterr.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Default.Do(rec, tt.op)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestValidInputs(t *testing.T) {
	rec := testRecord(t)
	for _, op := range []Operation{
		{Op: OpTranslate, Structure: "marker", Amount: 20.0, Axis: "x"},
		{Op: OpTranslate, Structure: "cubo", Amount: 200.1, Axis: "x"},
		{Op: OpTranslate, Structure: "cubo", Amount: -1000, Axis: "y"},
		{Op: OpTranslate, Structure: "cubo", Amount: 200.0, Axis: "x", Origin: []any{0.0, 1.0, 0.0}},
		{Op: OpTranslate, Structure: "cubo", Amount: 200.0, Axis: "z", Origin: []any{0, 0, 0}},
		{Op: OpRotate, Structure: "cubo", Amount: -360, Axis: "pitch"},
		{Op: OpMargin, Structure: "cubo", Amount: 2},
	} {
		_, err := Default.Do(rec, op)
		assert.NoError(t, err, op.String())
	}
}

func TestTypedValidation(t *testing.T) {
	rec := testRecord(t)

	_, err := Rotate(rec, "cubo", math.NaN(), affine.Yaw, nil)
	assert.True(t, errors.Is(err, rterr.ErrInvalidArgument))
	_, err = Translate(rec, "cubo", math.Inf(1), affine.X, nil)
	assert.True(t, errors.Is(err, rterr.ErrInvalidArgument))
	_, err = AddMargin(rec, "cubo", math.NaN())
	assert.True(t, errors.Is(err, rterr.ErrInvalidArgument))
	_, err = Rotate(rec, "cubo", 10, affine.RotationAxis(9), nil)
	assert.True(t, errors.Is(err, rterr.ErrInvalidArgument))
	_, err = Translate(rec, "cubo", 10, affine.TranslationAxis(3), nil)
	assert.True(t, errors.Is(err, rterr.ErrInvalidArgument))
	_, err = Translate(&models.PatientRecord{}, "cubo", 10, affine.X, nil)
	assert.True(t, errors.Is(err, rterr.ErrNotFound))
	_, err = Translate(rec, "cubo", 1, affine.X, &models.Point{X: math.NaN()})
	assert.True(t, errors.Is(err, rterr.ErrInvalidArgument))
	_, err = Rotate(rec, "cubo", 10, affine.Pitch, &models.Point{Z: math.Inf(-1)})
	assert.True(t, errors.Is(err, rterr.ErrInvalidArgument))

	tight := New(WithLimits(Limits{MaxAngle: 5, MaxDelta: 5}))
	_, err = tight.Rotate(rec, "cubo", 6, affine.Yaw, nil)
	assert.True(t, errors.Is(err, rterr.ErrOutOfRange))
	_, err = tight.Translate(rec, "cubo", -5.5, affine.Z, nil)
	assert.True(t, errors.Is(err, rterr.ErrOutOfRange))
}

func TestInputRecordIsNotModified(t *testing.T) {
	rec := testRecord(t)
	before := make(map[string][]float64)
	for _, roi := range rec.Structures.ROIs() {
		for _, s := range roi.Slices {
			before[roi.Name] = append(before[roi.Name], s.Data...)
		}
	}

	_, err := Rotate(rec, "cubo", 45, affine.Pitch, nil)
	require.NoError(t, err)
	_, err = Translate(rec, "cubo", 12, affine.Y, nil)
	require.NoError(t, err)
	_, err = AddMargin(rec, "cubo", -2)
	require.NoError(t, err)

	for _, roi := range rec.Structures.ROIs() {
		var got []float64
		for _, s := range roi.Slices {
			got = append(got, s.Data...)
		}
		assert.Equal(t, before[roi.Name], got, roi.Name)
	}
}

func TestStructuralSharing(t *testing.T) {
	rec := testRecord(t)
	out, err := Translate(rec, "cubo", 3, affine.X, nil)
	require.NoError(t, err)

	assert.NotSame(t, rec, out)
	assert.NotSame(t, rec.Structures, out.Structures)
	assert.NotSame(t, rec.Structures.ByName("cubo"), out.Structures.ByName("cubo"))
	assert.Same(t, rec.Structures.ByName("marker"), out.Structures.ByName("marker"))
	assert.Same(t, rec.Plan, out.Plan)
	assert.Equal(t, rec.Patient, out.Patient)
	assert.Equal(t, rec.Structures.Names(), out.Structures.Names())
}

func TestBrokenSliceAbortsWholeOperation(t *testing.T) {
	set, err := models.NewStructureSet("RS", []*models.ROI{
		{Name: "broken", Slices: []models.Slice{
			models.NewSlice(models.ClosedPlanar, models.Point{X: 1}, models.Point{Y: 1}),
			{Data: []float64{1, 2, 3, 4}},
		}},
		{Name: "iso", Slices: []models.Slice{models.NewSlice(models.SinglePoint, models.Point{})}},
	})
	require.NoError(t, err)
	rec := &models.PatientRecord{Structures: set}

	out, err := Rotate(rec, "broken", 10, affine.Yaw, nil)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, rterr.ErrStructural))
	assert.Contains(t, err.Error(), "slice 1")

	out, err = Translate(rec, "broken", 10, affine.X, nil)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, rterr.ErrStructural))
}

func TestMissingDefaultOrigin(t *testing.T) {
	set, err := models.NewStructureSet("RS", []*models.ROI{
		{Name: "body", Slices: []models.Slice{models.NewSlice(models.SinglePoint, models.Point{X: 1})}},
		{Name: "empty marker"},
	})
	require.NoError(t, err)
	rec := &models.PatientRecord{Structures: set}

	_, err = Translate(rec, "body", 1, affine.X, nil)
	assert.True(t, errors.Is(err, rterr.ErrStructural))

	out, err := Translate(rec, "body", 1, affine.X, &models.Point{})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 0}, slices(t, out, "body")[0].Data)
}

func TestAddMargin(t *testing.T) {
	rec := testRecord(t)

	out, err := AddMargin(rec, "marker", 0.7)
	require.NoError(t, err)
	got := slices(t, out, "marker")[0]
	assert.Equal(t, 4, got.NumPoints())
	assert.InDelta(t, 1.7, got.Point(0).Y, 1e-12)

	out, err = AddMargin(rec, "marker", -1.2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, slices(t, out, "marker")[0].Data)

	out, err = AddMargin(rec, "cubo", math.Sqrt2)
	require.NoError(t, err)
	p := slices(t, out, "cubo")[1].Point(0)
	assert.InDelta(t, 11, p.X, 1e-9)
	assert.InDelta(t, 11, p.Y, 1e-9)
	assert.Equal(t, 5.0, p.Z)

	set, err := models.NewStructureSet("RS", []*models.ROI{{Name: "hollow", Slices: []models.Slice{{}}}})
	require.NoError(t, err)
	_, err = AddMargin(&models.PatientRecord{Structures: set}, "hollow", 1)
	assert.True(t, errors.Is(err, rterr.ErrStructural))
}

func TestApplyScript(t *testing.T) {
	ops, err := LoadScript([]byte(`
operations:
  - op: translate
    structure: marker
    amount: 10
    axis: x
  - op: rotate
    structure: marker
    amount: 90.0
    axis: yaw
    origin: [0, 0, 0]
  - op: margin
    structure: cubo
    amount: -1
`))
	require.NoError(t, err)
	require.Len(t, ops, 3)

	rec := testRecord(t)
	out, err := Default.Apply(rec, ops...)
	require.NoError(t, err)
	assertSlicesNear(t, []models.Slice{{Data: []float64{-1, 11, 1}}}, slices(t, out, "marker"), 1e-9)

	ops = append(ops, Operation{Op: OpTranslate, Structure: "marker", Amount: "1", Axis: "x"})
	out, err = Default.Apply(rec, ops...)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, rterr.ErrInvalidArgument))
	assert.Contains(t, err.Error(), "operation 4")

	_, err = LoadScript([]byte("operations: []"))
	assert.True(t, errors.Is(err, rterr.ErrInvalidArgument))
}
