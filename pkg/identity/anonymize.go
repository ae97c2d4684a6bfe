package identity

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"rtcontour/internal/models"
	"rtcontour/pkg/rterr"
)

// Options are the replacement values written by Anonymize. An empty field
// leaves the corresponding value untouched.
type Options struct {
	Name         string `yaml:"name" toml:"name" json:"name"`
	BirthDate    string `yaml:"birthDate" toml:"birth_date" json:"birthDate"`
	OperatorName string `yaml:"operatorName" toml:"operator_name" json:"operatorName"`
	CreationDate string `yaml:"creationDate" toml:"creation_date" json:"creationDate"`
}

// DefaultOptions returns the placeholder values used when none are configured.
func DefaultOptions() Options {
	return Options{
		Name:         "PatientName",
		BirthDate:    "19720101",
		OperatorName: "OperatorName",
		CreationDate: "19720101",
	}
}

// Anonymize returns a copy of rec with patient and operator details replaced
// according to opts. Sub-records whose header changes are copied; contour
// data stays shared. An empty record is returned as an unchanged copy with
// an EmptyRecord notice.
func Anonymize(rec *models.PatientRecord, opts Options) (*models.PatientRecord, []models.Notice, error) {
	if rec == nil {
		return nil, nil, rterr.InvalidArgument("anonymize", "no record")
	}
	out := rec.Clone()
	if rec.Empty() {
		return out, []models.Notice{{
			Kind:    models.EmptyRecord,
			Message: "record holds no patient data, nothing anonymized",
		}}, nil
	}

	if opts.Name != "" {
		out.Patient.Name = opts.Name
	}
	if opts.BirthDate != "" {
		out.Patient.BirthDate = opts.BirthDate
	}

	scrub := func(h models.Header) models.Header {
		if opts.OperatorName != "" {
			h.OperatorName = opts.OperatorName
		}
		if opts.CreationDate != "" {
			h.CreationDate = opts.CreationDate
		}
		return h
	}
	if out.Structures != nil {
		out.StructuresHeader = scrub(out.StructuresHeader)
	}
	if rec.Plan != nil {
		plan := *rec.Plan
		plan.Header = scrub(plan.Header)
		out.Plan = &plan
	}
	if rec.Dose != nil {
		dose := *rec.Dose
		dose.Header = scrub(dose.Header)
		out.Dose = &dose
	}
	return out, nil, nil
}

// NewUID returns a DICOM UID under the 2.25 root derived from a random UUID.
func NewUID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("error generating uid: %w", err)
	}
	return "2.25." + new(big.Int).SetBytes(u[:]).String(), nil
}

// Reissue returns a copy of rec in which every present sub-record carries
// fresh SOP and series instance UIDs.
func Reissue(rec *models.PatientRecord) (*models.PatientRecord, error) {
	if rec == nil {
		return nil, rterr.InvalidArgument("reissue", "no record")
	}
	fresh := func(h models.Header) (models.Header, error) {
		sop, err := NewUID()
		if err != nil {
			return h, err
		}
		series, err := NewUID()
		if err != nil {
			return h, err
		}
		h.SOPInstanceUID = sop
		h.SeriesInstanceUID = series
		return h, nil
	}

	out := rec.Clone()
	var err error
	if rec.Structures != nil {
		if out.StructuresHeader, err = fresh(rec.StructuresHeader); err != nil {
			return nil, err
		}
	}
	if rec.Plan != nil {
		plan := *rec.Plan
		if plan.Header, err = fresh(plan.Header); err != nil {
			return nil, err
		}
		out.Plan = &plan
	}
	if rec.Dose != nil {
		dose := *rec.Dose
		if dose.Header, err = fresh(dose.Header); err != nil {
			return nil, err
		}
		out.Dose = &dose
	}
	return out, nil
}
