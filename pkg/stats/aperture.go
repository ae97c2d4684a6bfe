package stats

import (
	"math"

	"rtcontour/internal/models"
	"rtcontour/pkg/rterr"
)

// Aperture is the MLC opening of one control point
type Aperture struct {
	Beam            int     `json:"beam"`
	ControlPoint    int     `json:"controlPoint"`
	Area            float64 `json:"area"`
	GantryAngle     float64 `json:"gantryAngle"`
	GantryDirection string  `json:"gantryDirection"`
	TableAngle      float64 `json:"tableAngle"`
}

// ApertureAreas returns the leaf-pair opening area of every control point,
// the sum over leaves of leaf width times |A - B|. Gantry direction and
// table angle are taken from the first control point of each beam. All
// beams must carry the same number of leaves.
func ApertureAreas(plan *models.Plan) ([]Aperture, error) {
	if plan == nil {
		return nil, rterr.NotFound("apertures", "record has no plan")
	}
	leaves := -1
	var out []Aperture
	for _, beam := range plan.Beams {
		if len(beam.LeafBoundaries) < 2 {
			return nil, rterr.Structural("apertures", "beam %d has no leaf boundaries", beam.Number)
		}
		widths := make([]float64, len(beam.LeafBoundaries)-1)
		for i := range widths {
			widths[i] = math.Abs(beam.LeafBoundaries[i+1] - beam.LeafBoundaries[i])
		}
		if leaves < 0 {
			leaves = len(widths)
		} else if leaves != len(widths) {
			return nil, rterr.Structural("apertures", "beam %d has %d leaves, expected %d", beam.Number, len(widths), leaves)
		}
		if len(beam.ControlPoints) == 0 {
			continue
		}

		first := beam.ControlPoints[0]
		for _, cp := range beam.ControlPoints {
			if len(cp.LeafPositions) != 2*leaves {
				return nil, rterr.Structural("apertures", "beam %d control point %d has %d leaf positions, expected %d",
					beam.Number, cp.Index, len(cp.LeafPositions), 2*leaves)
			}
			area := 0.0
			for i, w := range widths {
				area += w * math.Abs(cp.LeafPositions[i]-cp.LeafPositions[leaves+i])
			}
			out = append(out, Aperture{
				Beam:            beam.Number,
				ControlPoint:    cp.Index,
				Area:            area,
				GantryAngle:     cp.GantryAngle,
				GantryDirection: first.GantryDirection,
				TableAngle:      first.TableAngle,
			})
		}
	}
	return out, nil
}
