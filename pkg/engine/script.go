package engine

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"rtcontour/internal/models"
	"rtcontour/pkg/affine"
	"rtcontour/pkg/rterr"
)

// Operation names accepted in scripts
const (
	OpRotate    = "rotate"
	OpTranslate = "translate"
	OpMargin    = "margin"
)

// Operation is one untyped transform request, as read from a script file,
// an HTTP body or command-line flags. Amount is the angle, delta or margin
// depending on Op; Origin is optional and only used by rotate/translate.
type Operation struct {
	Op        string `yaml:"op" json:"op"`
	Structure string `yaml:"structure" json:"structure"`
	Amount    any    `yaml:"amount" json:"amount"`
	Axis      string `yaml:"axis,omitempty" json:"axis,omitempty"`
	Origin    any    `yaml:"origin,omitempty" json:"origin,omitempty"`
}

func (o Operation) String() string {
	switch o.Op {
	case OpMargin:
		return fmt.Sprintf("margin %s by %v", o.Structure, o.Amount)
	default:
		return fmt.Sprintf("%s %s by %v along %s", o.Op, o.Structure, o.Amount, o.Axis)
	}
}

// Script is the on-disk form of an operation list
type Script struct {
	Operations []Operation `yaml:"operations" json:"operations"`
}

// LoadScript parses a YAML (or JSON) operation script.
func LoadScript(data []byte) ([]Operation, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("error parsing script: %w", err)
	}
	if len(s.Operations) == 0 {
		return nil, rterr.InvalidArgument("script", "no operations")
	}
	return s.Operations, nil
}

// Do validates and applies a single untyped operation.
func (e *Engine) Do(rec *models.PatientRecord, o Operation) (*models.PatientRecord, error) {
	switch o.Op {
	case OpRotate:
		angle, err := Number(o.Op, "angle", o.Amount)
		if err != nil {
			return nil, err
		}
		axis, err := affine.ParseRotationAxis(o.Axis)
		if err != nil {
			return nil, err
		}
		origin, err := Origin(o.Op, o.Origin)
		if err != nil {
			return nil, err
		}
		return e.Rotate(rec, o.Structure, angle, axis, origin)

	case OpTranslate:
		delta, err := Number(o.Op, "delta", o.Amount)
		if err != nil {
			return nil, err
		}
		axis, err := affine.ParseTranslationAxis(o.Axis)
		if err != nil {
			return nil, err
		}
		origin, err := Origin(o.Op, o.Origin)
		if err != nil {
			return nil, err
		}
		return e.Translate(rec, o.Structure, delta, axis, origin)

	case OpMargin:
		mm, err := Number(o.Op, "margin", o.Amount)
		if err != nil {
			return nil, err
		}
		return e.AddMargin(rec, o.Structure, mm)

	default:
		return nil, rterr.InvalidArgument("script", "unknown operation %q", o.Op)
	}
}

// Apply runs ops left to right, each on the result of the previous one.
// It stops at the first failure and returns no partial result.
func (e *Engine) Apply(rec *models.PatientRecord, ops ...Operation) (*models.PatientRecord, error) {
	cur := rec
	for i, o := range ops {
		next, err := e.Do(cur, o)
		if err != nil {
			return nil, fmt.Errorf("operation %d (%s): %w", i+1, o.Op, err)
		}
		cur = next
	}
	return cur, nil
}
