// Package identity reconciles the patient identity of loaded documents into
// one PatientRecord and produces anonymized or re-identified copies of it.
package identity

import (
	"rtcontour/internal/models"
	"rtcontour/pkg/rterr"
)

// MaxDocuments is the number of modalities a record can hold.
const MaxDocuments = 3

// Merge builds a PatientRecord from one to three documents of distinct
// modalities. The first document's identity is kept. A different patient ID
// is an error; a different name or birth date yields a notice.
func Merge(docs ...*models.Document) (*models.PatientRecord, []models.Notice, error) {
	if len(docs) == 0 {
		return nil, nil, rterr.InvalidArgument("merge", "no documents")
	}
	if len(docs) > MaxDocuments {
		return nil, nil, rterr.InvalidArgument("merge", "at most %d documents, got %d", MaxDocuments, len(docs))
	}

	rec := &models.PatientRecord{}
	var notices []models.Notice
	seen := make(map[models.Modality]bool, len(docs))

	for i, doc := range docs {
		if doc == nil {
			return nil, nil, rterr.InvalidArgument("merge", "document %d is nil", i)
		}
		if !doc.Modality.Valid() {
			return nil, nil, rterr.InvalidArgument("merge", "modality %q not supported", doc.Modality)
		}
		if seen[doc.Modality] {
			return nil, nil, rterr.InvalidArgument("merge", "more than one %s document", doc.Modality)
		}
		seen[doc.Modality] = true

		if i == 0 {
			rec.Patient = doc.Patient
		} else {
			n, err := reconcile(rec.Patient, doc)
			if err != nil {
				return nil, nil, err
			}
			notices = append(notices, n...)
		}

		switch doc.Modality {
		case models.RTStruct:
			if doc.StructureSet == nil {
				return nil, nil, rterr.NotFound("merge", "%s document has no structure set", doc.Modality)
			}
			rec.Structures = doc.StructureSet
			rec.StructuresHeader = doc.Header
		case models.RTPlan:
			if doc.Plan == nil {
				return nil, nil, rterr.NotFound("merge", "%s document has no plan", doc.Modality)
			}
			plan := *doc.Plan
			plan.Header = doc.Header
			rec.Plan = &plan
		case models.RTDose:
			if doc.Dose == nil {
				return nil, nil, rterr.NotFound("merge", "%s document has no dose", doc.Modality)
			}
			dose := *doc.Dose
			dose.Header = doc.Header
			rec.Dose = &dose
		}
	}
	return rec, notices, nil
}

func reconcile(kept models.Identity, doc *models.Document) ([]models.Notice, error) {
	if doc.Patient.ID != kept.ID {
		return nil, rterr.IdentityMismatch("merge", "%s document belongs to patient %q, not %q",
			doc.Modality, doc.Patient.ID, kept.ID)
	}
	var notices []models.Notice
	if doc.Patient.Name != kept.Name {
		notices = append(notices, models.Notice{
			Kind:    models.IdentityAdvisory,
			Field:   "name",
			Message: "patient name of " + string(doc.Modality) + " document differs",
			Kept:    kept.Name,
			Ignored: doc.Patient.Name,
		})
	}
	if doc.Patient.BirthDate != kept.BirthDate {
		notices = append(notices, models.Notice{
			Kind:    models.IdentityAdvisory,
			Field:   "birthDate",
			Message: "patient birth date of " + string(doc.Modality) + " document differs",
			Kept:    kept.BirthDate,
			Ignored: doc.Patient.BirthDate,
		})
	}
	return notices, nil
}

// Split returns one document per sub-record of rec, in RTSTRUCT, RTPLAN,
// RTDOSE order, each carrying the record's identity.
func Split(rec *models.PatientRecord) []*models.Document {
	if rec == nil {
		return nil
	}
	var docs []*models.Document
	if rec.Structures != nil {
		docs = append(docs, &models.Document{
			Modality:     models.RTStruct,
			Patient:      rec.Patient,
			Header:       rec.StructuresHeader,
			StructureSet: rec.Structures,
		})
	}
	if rec.Plan != nil {
		docs = append(docs, &models.Document{
			Modality: models.RTPlan,
			Patient:  rec.Patient,
			Header:   rec.Plan.Header,
			Plan:     rec.Plan,
		})
	}
	if rec.Dose != nil {
		docs = append(docs, &models.Document{
			Modality: models.RTDose,
			Patient:  rec.Patient,
			Header:   rec.Dose.Header,
			Dose:     rec.Dose,
		})
	}
	return docs
}
