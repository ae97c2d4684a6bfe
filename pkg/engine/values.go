package engine

import (
	"encoding/json"
	"math"

	"rtcontour/internal/models"
	"rtcontour/pkg/rterr"
)

// Number converts a dynamically typed parameter (decoded from YAML, JSON or
// a form) to float64. Integers and floats are accepted; anything else,
// including numeric strings, is an invalid argument.
func Number(op, what string, v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, rterr.InvalidArgument(op, "%s %q is not a number", what, n.String())
		}
	default:
		return 0, rterr.InvalidArgument(op, "%s must be a number, got %T", what, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, rterr.InvalidArgument(op, "%s must be a finite number, got %v", what, f)
	}
	return f, nil
}

// Origin converts a dynamically typed origin to a point. A nil value means
// "use the default origin" and yields a nil point. Otherwise the value must
// hold exactly three numbers.
func Origin(op string, v any) (*models.Point, error) {
	var xyz []any
	switch o := v.(type) {
	case nil:
		return nil, nil
	case models.Point:
		return &o, nil
	case *models.Point:
		return o, nil
	case []float64:
		for _, f := range o {
			xyz = append(xyz, f)
		}
	case []any:
		xyz = o
	default:
		return nil, rterr.InvalidArgument(op, "origin must be a list of 3 numbers, got %T", v)
	}

	if len(xyz) != 3 {
		return nil, rterr.InvalidArgument(op, "origin must have 3 components, got %d", len(xyz))
	}
	var c [3]float64
	for i, raw := range xyz {
		f, err := Number(op, "origin component", raw)
		if err != nil {
			return nil, err
		}
		c[i] = f
	}
	return &models.Point{X: c[0], Y: c[1], Z: c[2]}, nil
}
