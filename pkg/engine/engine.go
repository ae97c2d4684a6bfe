// Package engine applies rigid transforms and margins to one structure of
// a patient record.
//
// Every operation validates all of its inputs before touching any data and
// returns a new record; the input record is never modified. Only the
// targeted structure's slices are freshly allocated; every other structure,
// the plan and the dose are shared with the input. Records must therefore be
// treated as read-only by callers.
package engine

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"

	"rtcontour/internal/models"
	"rtcontour/pkg/affine"
	"rtcontour/pkg/margin"
	"rtcontour/pkg/rterr"
)

// Limits bound the magnitude of transform parameters
type Limits struct {
	// MaxAngle is the largest absolute rotation in degrees
	MaxAngle float64

	// MaxDelta is the largest absolute translation in millimetres
	MaxDelta float64
}

// DefaultLimits returns ±360° and ±1000 mm.
func DefaultLimits() Limits {
	return Limits{MaxAngle: 360, MaxDelta: 1000}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimits overrides the default parameter bounds.
func WithLimits(l Limits) Option {
	return func(e *Engine) { e.limits = l }
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine holds the configuration shared by the transform operations. It
// keeps no per-call state and is safe for concurrent use.
type Engine struct {
	limits Limits
	logger *log.Logger
}

// New creates an engine with default limits and a discarding logger.
func New(opts ...Option) *Engine {
	e := &Engine{
		limits: DefaultLimits(),
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limits returns the configured bounds.
func (e *Engine) Limits() Limits { return e.limits }

// Rotate turns every point of the named structure by degrees about axis.
// The pivot is origin, or the reference point when origin is nil.
func (e *Engine) Rotate(rec *models.PatientRecord, name string, degrees float64, axis affine.RotationAxis, origin *models.Point) (*models.PatientRecord, error) {
	const op = "rotate"
	if err := checkAmount(op, "angle", degrees, e.limits.MaxAngle, "°"); err != nil {
		return nil, err
	}
	if !axis.Valid() {
		return nil, rterr.InvalidArgument(op, "axis %v is not one of roll, pitch, yaw", axis)
	}
	idx, err := resolve(op, rec, name)
	if err != nil {
		return nil, err
	}
	o, err := pivot(op, rec, origin)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("rotating structure", "structure", name, "axis", axis, "angle", degrees, "origin", o)
	tr := affine.RotationAbout(axis, degrees, o)
	return rewrite(op, rec, idx, tr.ApplySlice)
}

// Translate shifts every point of the named structure by delta along axis.
func (e *Engine) Translate(rec *models.PatientRecord, name string, delta float64, axis affine.TranslationAxis, origin *models.Point) (*models.PatientRecord, error) {
	const op = "translate"
	if err := checkAmount(op, "delta", delta, e.limits.MaxDelta, " mm"); err != nil {
		return nil, err
	}
	if !axis.Valid() {
		return nil, rterr.InvalidArgument(op, "axis %v is not one of x, y, z", axis)
	}
	idx, err := resolve(op, rec, name)
	if err != nil {
		return nil, err
	}
	o, err := pivot(op, rec, origin)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("translating structure", "structure", name, "axis", axis, "delta", delta, "origin", o)
	tr := affine.ShiftAbout(axis, delta, o)
	return rewrite(op, rec, idx, tr.ApplySlice)
}

// AddMargin grows (positive) or shrinks (negative) every slice of the named
// structure by margin millimetres relative to the slice centroid.
func (e *Engine) AddMargin(rec *models.PatientRecord, name string, mm float64) (*models.PatientRecord, error) {
	const op = "add margin"
	if math.IsNaN(mm) || math.IsInf(mm, 0) {
		return nil, rterr.InvalidArgument(op, "margin must be a finite number, got %v", mm)
	}
	idx, err := resolve(op, rec, name)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("adding margin", "structure", name, "margin", mm)
	return rewrite(op, rec, idx, func(s models.Slice) (models.Slice, error) {
		return margin.Expand(s, mm)
	})
}

func checkAmount(op, what string, v, limit float64, unit string) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return rterr.InvalidArgument(op, "%s must be a finite number, got %v", what, v)
	}
	if math.Abs(v) > limit {
		return rterr.OutOfRange(op, "|%s| %v%s exceeds %v%s", what, v, unit, limit, unit)
	}
	return nil
}

func resolve(op string, rec *models.PatientRecord, name string) (int, error) {
	if rec == nil || rec.Structures == nil {
		return 0, rterr.NotFound(op, "record has no structure set")
	}
	idx, ok := rec.Structures.Lookup(name)
	if !ok {
		return 0, rterr.NotFound(op, "structure %q", name)
	}
	return idx, nil
}

// pivot returns origin, or the first point of the last-declared structure.
func pivot(op string, rec *models.PatientRecord, origin *models.Point) (models.Point, error) {
	if origin != nil {
		for _, v := range []float64{origin.X, origin.Y, origin.Z} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return models.Point{}, rterr.InvalidArgument(op, "origin must be 3 finite numbers, got %v", *origin)
			}
		}
		return *origin, nil
	}
	p, err := ReferencePoint(rec)
	if err != nil {
		return models.Point{}, rterr.WithOp(err, op, "default origin")
	}
	return p, nil
}

// ReferencePoint returns the conventional isocenter of a record: the first
// point of the last-declared structure.
func ReferencePoint(rec *models.PatientRecord) (models.Point, error) {
	if rec == nil || rec.Structures.Len() == 0 {
		return models.Point{}, rterr.NotFound("", "record has no structures")
	}
	ref := rec.Structures.Last()
	if len(ref.Slices) == 0 || len(ref.Slices[0].Data) < 3 {
		return models.Point{}, rterr.Structural("", "reference structure %q has no point", ref.Name)
	}
	return ref.Slices[0].Point(0), nil
}

// rewrite maps fn over every slice of structure idx and assembles the new
// record only once every slice succeeded.
func rewrite(op string, rec *models.PatientRecord, idx int, fn func(models.Slice) (models.Slice, error)) (*models.PatientRecord, error) {
	roi := rec.Structures.ROI(idx)
	slices := make([]models.Slice, len(roi.Slices))
	for i, s := range roi.Slices {
		out, err := fn(s)
		if err != nil {
			return nil, rterr.WithOp(err, op, fmt.Sprintf("structure %q slice %d", roi.Name, i))
		}
		slices[i] = out
	}

	set, err := rec.Structures.WithROI(idx, roi.WithSlices(slices))
	if err != nil {
		return nil, err
	}
	out := rec.Clone()
	out.Structures = set
	return out, nil
}
