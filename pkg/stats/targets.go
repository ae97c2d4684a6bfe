package stats

import (
	"strings"

	"rtcontour/internal/models"
	"rtcontour/pkg/rterr"
)

// prefixLen is how many leading characters of a dose reference description
// must match the structure name.
const prefixLen = 4

// Target is one row of the prescription table
type Target struct {
	Name               string        `json:"name"`
	PrescriptionDose   float64       `json:"prescriptionDose"`
	ReferencePointDose float64       `json:"referencePointDose"`
	ReferencePoint     *models.Point `json:"referencePoint,omitempty"`

	// DistanceToIso is measured from the reference point
	DistanceToIso float64 `json:"distanceToIso"`

	// Structure is nil when no structure matched
	Structure *Summary `json:"structure,omitempty"`
}

func prefix(s string) string {
	r := []rune(s)
	if len(r) > prefixLen {
		r = r[:prefixLen]
	}
	return string(r)
}

// Targets joins the plan's dose references with structures. With no names
// each reference is matched to the structure of the same name; otherwise
// names gives one structure per reference, in order, and each must start
// with the first four characters of its reference description. References
// without a matching structure are reported as notices, and so is matching
// without names.
func Targets(rec *models.PatientRecord, names []string) ([]Target, []models.Notice, error) {
	if rec == nil || rec.Plan == nil {
		return nil, nil, rterr.NotFound("targets", "record has no plan")
	}
	if rec.Structures == nil {
		return nil, nil, rterr.NotFound("targets", "record has no structure set")
	}
	refs := rec.Plan.DoseReferences
	var notices []models.Notice
	if len(names) == 0 {
		if len(refs) > 0 {
			notices = append(notices, models.Notice{
				Kind:    models.UnverifiedTargets,
				Message: "no target names given, dose references may not have a matching structure",
			})
		}
		names = make([]string, len(refs))
		for i, ref := range refs {
			names[i] = ref.Description
		}
	} else if len(names) != len(refs) {
		return nil, nil, rterr.InvalidArgument("targets", "length of target names must be %d", len(refs))
	} else {
		for i, name := range names {
			if !strings.HasPrefix(name, prefix(refs[i].Description)) {
				return nil, nil, rterr.InvalidArgument("targets", "target %q does not match dose reference %q",
					name, refs[i].Description)
			}
		}
	}

	iso, hasIso := rec.Plan.Isocenter()
	out := make([]Target, 0, len(refs))
	for i, ref := range refs {
		t := Target{
			Name:               ref.Description,
			PrescriptionDose:   ref.PrescriptionDose,
			ReferencePointDose: ref.ReferencePointDose,
			ReferencePoint:     ref.ReferencePoint,
		}
		if ref.ReferencePoint != nil && hasIso {
			t.DistanceToIso = Distance(*ref.ReferencePoint, iso)
		}

		roi := rec.Structures.ByName(names[i])
		if roi == nil {
			notices = append(notices, models.Notice{
				Kind:    models.UnmatchedTarget,
				Field:   ref.Description,
				Message: "no structure named " + names[i],
			})
			out = append(out, t)
			continue
		}
		s, err := summarize(roi)
		if err != nil {
			return nil, nil, err
		}
		if hasIso {
			s.DistanceToIso = Distance(s.CenterOfMass, iso)
			s.HasIso = true
		}
		t.Structure = &s
		out = append(out, t)
	}
	return out, notices, nil
}
