// Package stats derives geometric and dosimetric summaries from a patient
// record: structure centres of mass and radii, MLC aperture areas, the
// prescription table and the closest approach between two structures.
package stats

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"rtcontour/internal/models"
	"rtcontour/pkg/engine"
	"rtcontour/pkg/margin"
	"rtcontour/pkg/rterr"
)

// Summary describes the geometry of one structure
type Summary struct {
	Name   string `json:"name"`
	Slices int    `json:"slices"`
	Points int    `json:"points"`

	// CenterOfMass is the mean of the per-slice centroids
	CenterOfMass models.Point `json:"centerOfMass"`

	// Radii are distances from the centre of mass to every contour point
	MaxRadius  float64 `json:"maxRadius"`
	MinRadius  float64 `json:"minRadius"`
	MeanRadius float64 `json:"meanRadius"`

	// DistanceToIso is the distance from the centre of mass to the
	// isocenter. It is only meaningful when HasIso is set.
	DistanceToIso float64 `json:"distanceToIso"`
	HasIso        bool    `json:"hasIso"`
}

// Isocenter returns the plan isocenter, falling back to the first point of
// the last-declared structure when no plan declares one.
func Isocenter(rec *models.PatientRecord) (models.Point, bool) {
	if rec == nil {
		return models.Point{}, false
	}
	if iso, ok := rec.Plan.Isocenter(); ok {
		return iso, true
	}
	p, err := engine.ReferencePoint(rec)
	if err != nil {
		return models.Point{}, false
	}
	return p, true
}

// Distance is the euclidean distance between a and b.
func Distance(a, b models.Point) float64 {
	return floats.Distance([]float64{a.X, a.Y, a.Z}, []float64{b.X, b.Y, b.Z}, 2)
}

// Summarize computes a Summary for each named structure, or for every
// structure when names is empty.
func Summarize(rec *models.PatientRecord, names ...string) ([]Summary, error) {
	if rec == nil || rec.Structures == nil {
		return nil, rterr.NotFound("stats", "record has no structure set")
	}
	if len(names) == 0 {
		names = rec.Structures.Names()
	}
	iso, hasIso := Isocenter(rec)

	out := make([]Summary, 0, len(names))
	for _, name := range names {
		roi := rec.Structures.ByName(name)
		if roi == nil {
			return nil, rterr.NotFound("stats", "no structure named %q", name)
		}
		s, err := summarize(roi)
		if err != nil {
			return nil, err
		}
		if hasIso {
			s.DistanceToIso = Distance(s.CenterOfMass, iso)
			s.HasIso = true
		}
		out = append(out, s)
	}
	return out, nil
}

func summarize(roi *models.ROI) (Summary, error) {
	s := Summary{Name: roi.Name, Slices: len(roi.Slices)}
	var cx, cy, cz []float64
	for i, sl := range roi.Slices {
		if err := sl.Validate(); err != nil {
			return s, rterr.WithOp(err, "stats", fmt.Sprintf("structure %q slice %d", roi.Name, i))
		}
		x, y := margin.Centroid(sl)
		cx = append(cx, x)
		cy = append(cy, y)
		cz = append(cz, meanAxis(sl, 2))
		s.Points += sl.NumPoints()
	}
	if s.Points == 0 {
		return s, rterr.Structural("stats", "structure %q has no contour points", roi.Name)
	}
	s.CenterOfMass = models.Point{
		X: stat.Mean(cx, nil),
		Y: stat.Mean(cy, nil),
		Z: stat.Mean(cz, nil),
	}

	radii := make([]float64, 0, s.Points)
	for _, sl := range roi.Slices {
		for _, p := range sl.Points() {
			radii = append(radii, Distance(p, s.CenterOfMass))
		}
	}
	s.MaxRadius = floats.Max(radii)
	s.MinRadius = floats.Min(radii)
	s.MeanRadius = stat.Mean(radii, nil)
	return s, nil
}

func meanAxis(sl models.Slice, axis int) float64 {
	n := sl.NumPoints()
	v := make([]float64, n)
	for i := 0; i < n; i++ {
		v[i] = sl.Data[3*i+axis]
	}
	return stat.Mean(v, nil)
}
