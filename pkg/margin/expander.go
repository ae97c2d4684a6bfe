// Package margin grows or shrinks a planar contour by a signed distance.
//
// Each point of a slice is displaced along the line joining it to the
// slice centroid (the mean of the point x and y values). A positive margin
// moves the point away from the centroid, a negative margin towards it. The
// new position is found by intersecting that line with the circle of radius
// |margin| centred on the point:
//
//	x = x0 ± sqrt(margin² / (1 + m²)),  y = m·(x − x0) + y0
//
// where m is the slope of the centroid–point line. Points straight above or
// below the centroid (undefined slope) are moved along y only. The z value
// of every point is kept.
//
// A single-point contour grown by a positive margin becomes a diamond of
// four points; it is left alone for a zero or negative margin.
package margin

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"rtcontour/internal/models"
	"rtcontour/pkg/rterr"
)

// Centroid returns the mean x and y of the slice points.
func Centroid(s models.Slice) (xmean, ymean float64) {
	n := s.NumPoints()
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = s.Data[3*i]
		ys[i] = s.Data[3*i+1]
	}
	return stat.Mean(xs, nil), stat.Mean(ys, nil)
}

// Expand returns a new slice with margin applied to s.
func Expand(s models.Slice, margin float64) (models.Slice, error) {
	if len(s.Data)%3 != 0 {
		return models.Slice{}, rterr.Structural("add margin", "slice has %d values, not a multiple of 3", len(s.Data))
	}

	switch n := s.NumPoints(); {
	case n == 0:
		return models.Slice{}, rterr.Structural("add margin", "contour needs at least one point")
	case n == 1:
		return expandPoint(s, margin), nil
	default:
		return expandContour(s, margin), nil
	}
}

// expandPoint turns a single point into the diamond up, right, down, left.
func expandPoint(s models.Slice, margin float64) models.Slice {
	if margin <= 0 {
		return models.Slice{GeometricType: s.GeometricType, Data: append([]float64(nil), s.Data...)}
	}
	x, y, z := s.Data[0], s.Data[1], s.Data[2]
	return models.Slice{
		GeometricType: s.GeometricType,
		Data: []float64{
			x, y + margin, z,
			x + margin, y, z,
			x, y - margin, z,
			x - margin, y, z,
		},
	}
}

func expandContour(s models.Slice, margin float64) models.Slice {
	xmean, ymean := Centroid(s)
	n := s.NumPoints()
	out := models.Slice{GeometricType: s.GeometricType, Data: make([]float64, 3*n)}

	for i := 0; i < n; i++ {
		x0, y0, z0 := s.Data[3*i], s.Data[3*i+1], s.Data[3*i+2]
		x, y := displace(x0, y0, xmean, ymean, margin)
		out.Data[3*i] = x
		out.Data[3*i+1] = y
		out.Data[3*i+2] = z0
	}
	return out
}

// displace moves (x0, y0) by margin along the line through the centroid.
func displace(x0, y0, xmean, ymean, margin float64) (x, y float64) {
	if x0 == xmean {
		// Vertical line: the slope is undefined.
		if y0 >= ymean {
			return x0, y0 + margin
		}
		return x0, y0 - margin
	}

	m := (ymean - y0) / (xmean - x0)
	dx := math.Sqrt(margin * margin / (1 + m*m))

	x1, x2 := x0+dx, x0-dx
	y1 := m*(x1-x0) + y0
	y2 := m*(x2-x0) + y0
	d1 := math.Hypot(xmean-x1, ymean-y1)
	d2 := math.Hypot(xmean-x2, ymean-y2)

	if margin >= 0 {
		// Farther candidate; ties go to the first.
		if d1 >= d2 {
			return x1, y1
		}
		return x2, y2
	}
	// Nearer candidate; ties go to the first.
	if d1 <= d2 {
		return x1, y1
	}
	return x2, y2
}
