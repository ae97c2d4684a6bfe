package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"rtcontour/internal/models"
	"rtcontour/pkg/rterr"
)

// vertex is a contour point stored in a k-d tree
type vertex models.Point

// Compare implements the kdtree.Comparable interface
func (p vertex) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(vertex)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

func (p vertex) Dims() int { return 3 }

// Distance returns the squared euclidean distance
func (p vertex) Distance(c kdtree.Comparable) float64 {
	q := c.(vertex)
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

// vertices satisfies kdtree.Interface
type vertices []vertex

func (p vertices) Index(i int) kdtree.Comparable         { return p[i] }
func (p vertices) Len() int                              { return len(p) }
func (p vertices) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p vertices) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(plane{vertices: p, Dim: d}, kdtree.MedianOfMedians(plane{vertices: p, Dim: d}))
}

// plane sorts vertices along one dimension
type plane struct {
	vertices
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.vertices[i].X < p.vertices[j].X
	case 1:
		return p.vertices[i].Y < p.vertices[j].Y
	case 2:
		return p.vertices[i].Z < p.vertices[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{vertices: p.vertices[start:end], Dim: p.Dim}
}

func (p plane) Swap(i, j int) {
	p.vertices[i], p.vertices[j] = p.vertices[j], p.vertices[i]
}

// Gap is the closest approach between two structures
type Gap struct {
	From     models.Point `json:"from"`
	To       models.Point `json:"to"`
	Distance float64      `json:"distance"`
}

func collect(set *models.StructureSet, name string) (vertices, error) {
	roi := set.ByName(name)
	if roi == nil {
		return nil, rterr.NotFound("proximity", "no structure named %q", name)
	}
	var pts vertices
	for i, sl := range roi.Slices {
		if err := sl.Validate(); err != nil {
			return nil, rterr.WithOp(err, "proximity", fmt.Sprintf("structure %q slice %d", name, i))
		}
		for _, p := range sl.Points() {
			pts = append(pts, vertex(p))
		}
	}
	if len(pts) == 0 {
		return nil, rterr.Structural("proximity", "structure %q has no contour points", name)
	}
	return pts, nil
}

// Proximity returns the pair of contour points, one from structure a and
// one from structure b, that lie closest together.
func Proximity(rec *models.PatientRecord, a, b string) (Gap, error) {
	if rec == nil || rec.Structures == nil {
		return Gap{}, rterr.NotFound("proximity", "record has no structure set")
	}
	from, err := collect(rec.Structures, a)
	if err != nil {
		return Gap{}, err
	}
	to, err := collect(rec.Structures, b)
	if err != nil {
		return Gap{}, err
	}

	tree := kdtree.New(to, false)
	best := Gap{Distance: math.Inf(1)}
	for _, p := range from {
		got, d := tree.Nearest(p)
		if got == nil || d >= best.Distance*best.Distance {
			continue
		}
		best = Gap{From: models.Point(p), To: models.Point(got.(vertex)), Distance: math.Sqrt(d)}
	}
	return best, nil
}
