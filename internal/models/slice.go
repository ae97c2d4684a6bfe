package models

import (
	"fmt"

	"rtcontour/pkg/rterr"
)

// Geometric types a contour slice may declare
const (
	ClosedPlanar = "CLOSED_PLANAR"
	OpenPlanar   = "OPEN_PLANAR"
	SinglePoint  = "POINT"
)

// Point is a patient-space coordinate in millimetres
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Slice represents one contour of a structure: a flat sequence of
// x, y, z triplets. It is not necessarily a literal anatomical slice, but
// the order of slices within a structure is significant.
type Slice struct {
	// GeometricType is the declared contour type (CLOSED_PLANAR, POINT, ...)
	GeometricType string `yaml:"geometry,omitempty" json:"geometry,omitempty"`

	// Data is the flat point sequence; its length must be a multiple of 3
	Data []float64 `yaml:"data" json:"data"`
}

// NewSlice builds a slice from points, in order.
func NewSlice(geometricType string, points ...Point) Slice {
	data := make([]float64, 0, 3*len(points))
	for _, p := range points {
		data = append(data, p.X, p.Y, p.Z)
	}
	return Slice{GeometricType: geometricType, Data: data}
}

// NumPoints returns the number of complete triplets in the slice.
func (s Slice) NumPoints() int {
	return len(s.Data) / 3
}

// Point returns the i-th point. It panics if i is out of range.
func (s Slice) Point(i int) Point {
	return Point{X: s.Data[3*i], Y: s.Data[3*i+1], Z: s.Data[3*i+2]}
}

// Points unpacks the flat data into points.
func (s Slice) Points() []Point {
	pts := make([]Point, s.NumPoints())
	for i := range pts {
		pts[i] = s.Point(i)
	}
	return pts
}

// Validate checks the triplet invariant and that the slice is not empty.
func (s Slice) Validate() error {
	if len(s.Data)%3 != 0 {
		return rterr.Structural("", "slice has %d values, not a multiple of 3", len(s.Data))
	}
	if len(s.Data) == 0 {
		return rterr.Structural("", "contour needs at least one point")
	}
	return nil
}

// String renders the point count and type, e.g. "CLOSED_PLANAR(12)".
func (s Slice) String() string {
	return fmt.Sprintf("%s(%d)", s.GeometricType, s.NumPoints())
}
