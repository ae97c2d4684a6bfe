// Package affine builds and applies 4x4 homogeneous transforms to contour
// points. Rotations follow the right-hand rule: a positive angle turns
// counter-clockwise when looking down the axis towards the origin.
//
// A transform about an arbitrary origin o is composed as
//
//	T(+o) · M · T(-o)
//
// so the point o is a fixed point of the result.
package affine

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"rtcontour/internal/models"
	"rtcontour/pkg/rterr"
)

// Identity returns the 4x4 identity matrix.
func Identity() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
}

// Translation returns the matrix moving points by (dx, dy, dz).
func Translation(dx, dy, dz float64) *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, dx,
		0, 1, 0, dy,
		0, 0, 1, dz,
		0, 0, 0, 1,
	})
}

// Shift returns the matrix moving points by delta along axis.
func Shift(axis TranslationAxis, delta float64) *mat.Dense {
	switch axis {
	case X:
		return Translation(delta, 0, 0)
	case Y:
		return Translation(0, delta, 0)
	case Z:
		return Translation(0, 0, delta)
	default:
		panic("affine: illegal translation axis")
	}
}

// Rotation returns the matrix rotating points by degrees about axis
// through the coordinate origin.
func Rotation(axis RotationAxis, degrees float64) *mat.Dense {
	rad := degrees * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)

	switch axis {
	case Roll:
		return mat.NewDense(4, 4, []float64{
			1, 0, 0, 0,
			0, c, -s, 0,
			0, s, c, 0,
			0, 0, 0, 1,
		})
	case Pitch:
		return mat.NewDense(4, 4, []float64{
			c, 0, s, 0,
			0, 1, 0, 0,
			-s, 0, c, 0,
			0, 0, 0, 1,
		})
	case Yaw:
		return mat.NewDense(4, 4, []float64{
			c, -s, 0, 0,
			s, c, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		})
	default:
		panic("affine: illegal rotation axis")
	}
}

// Compose multiplies ms left to right. The rightmost matrix is applied to
// a point first.
func Compose(ms ...mat.Matrix) *mat.Dense {
	out := Identity()
	for _, m := range ms {
		var next mat.Dense
		next.Mul(out, m)
		out = &next
	}
	return out
}

// About conjugates m so that it pivots on origin instead of (0, 0, 0).
func About(origin models.Point, m mat.Matrix) *mat.Dense {
	return Compose(
		Translation(origin.X, origin.Y, origin.Z),
		m,
		Translation(-origin.X, -origin.Y, -origin.Z),
	)
}

// Transform is a composed 4x4 homogeneous transform.
type Transform struct {
	m *mat.Dense
}

// New wraps a 4x4 matrix. It panics if m is not 4x4.
func New(m mat.Matrix) Transform {
	if r, c := m.Dims(); r != 4 || c != 4 {
		panic("affine: transform must be 4x4")
	}
	return Transform{m: mat.DenseCopyOf(m)}
}

// RotationAbout returns the rotation by degrees about axis through origin.
func RotationAbout(axis RotationAxis, degrees float64, origin models.Point) Transform {
	return Transform{m: About(origin, Rotation(axis, degrees))}
}

// ShiftAbout returns the shift by delta along axis, conjugated on origin.
// A pure shift commutes with the conjugation, so origin only affects
// rounding.
func ShiftAbout(axis TranslationAxis, delta float64, origin models.Point) Transform {
	return Transform{m: About(origin, Shift(axis, delta))}
}

// Matrix returns the underlying matrix.
func (t Transform) Matrix() mat.Matrix { return t.m }

// Then returns the transform applying t first and next second.
func (t Transform) Then(next Transform) Transform {
	return Transform{m: Compose(next.m, t.m)}
}

// Apply transforms a single point as (x, y, z, 1).
func (t Transform) Apply(p models.Point) models.Point {
	v := mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1})
	var out mat.VecDense
	out.MulVec(t.m, v)
	return models.Point{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// ApplySlice transforms every point of s and returns a new slice; s is
// left untouched. The triplet invariant is checked first.
func (t Transform) ApplySlice(s models.Slice) (models.Slice, error) {
	if len(s.Data)%3 != 0 {
		return models.Slice{}, rterr.Structural("", "slice has %d values, not a multiple of 3", len(s.Data))
	}
	n := s.NumPoints()
	out := models.Slice{GeometricType: s.GeometricType, Data: make([]float64, 3*n)}
	if n == 0 {
		return out, nil
	}

	// One 4xN product instead of N vector products.
	pts := mat.NewDense(4, n, nil)
	for j := 0; j < n; j++ {
		pts.Set(0, j, s.Data[3*j])
		pts.Set(1, j, s.Data[3*j+1])
		pts.Set(2, j, s.Data[3*j+2])
		pts.Set(3, j, 1)
	}
	var moved mat.Dense
	moved.Mul(t.m, pts)
	for j := 0; j < n; j++ {
		out.Data[3*j] = moved.At(0, j)
		out.Data[3*j+1] = moved.At(1, j)
		out.Data[3*j+2] = moved.At(2, j)
	}
	return out, nil
}
