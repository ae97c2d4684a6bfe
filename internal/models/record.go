package models

// Modality identifies the kind of a radiotherapy document
type Modality string

const (
	RTStruct Modality = "RTSTRUCT"
	RTPlan   Modality = "RTPLAN"
	RTDose   Modality = "RTDOSE"
)

// Valid reports whether m is a supported modality.
func (m Modality) Valid() bool {
	switch m {
	case RTStruct, RTPlan, RTDose:
		return true
	}
	return false
}

// Identity holds the patient identification fields shared by all documents
type Identity struct {
	Name      string `yaml:"name" json:"name"`
	BirthDate string `yaml:"birthDate" json:"birthDate"`
	ID        string `yaml:"id" json:"id"`
}

// Header holds the per-document fields that are not patient identity
type Header struct {
	SOPInstanceUID    string `yaml:"sopInstanceUID,omitempty" json:"sopInstanceUID,omitempty"`
	SeriesInstanceUID string `yaml:"seriesInstanceUID,omitempty" json:"seriesInstanceUID,omitempty"`
	OperatorName      string `yaml:"operatorName,omitempty" json:"operatorName,omitempty"`
	CreationDate      string `yaml:"creationDate,omitempty" json:"creationDate,omitempty"`
}

// ControlPoint is one delivery state of a beam
type ControlPoint struct {
	Index           int     `yaml:"index" json:"index"`
	GantryAngle     float64 `yaml:"gantryAngle" json:"gantryAngle"`
	GantryDirection string  `yaml:"gantryDirection,omitempty" json:"gantryDirection,omitempty"`
	TableAngle      float64 `yaml:"tableAngle" json:"tableAngle"`

	// Isocenter is only present where the document declares it, normally
	// on the first control point of each beam
	Isocenter *Point `yaml:"isocenter,omitempty" json:"isocenter,omitempty"`

	// LeafPositions are the MLC leaf positions: bank A followed by bank B
	LeafPositions []float64 `yaml:"leafPositions,omitempty" json:"leafPositions,omitempty"`
}

// Beam is a treatment beam with its control points
type Beam struct {
	Number int    `yaml:"number" json:"number"`
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`

	// LeafBoundaries are the MLC leaf position boundaries (leaves + 1 values)
	LeafBoundaries []float64 `yaml:"leafBoundaries,omitempty" json:"leafBoundaries,omitempty"`

	ControlPoints []ControlPoint `yaml:"controlPoints" json:"controlPoints"`
}

// DoseReference is a prescription entry of a plan
type DoseReference struct {
	Description        string  `yaml:"description" json:"description"`
	PrescriptionDose   float64 `yaml:"prescriptionDose" json:"prescriptionDose"`
	ReferencePointDose float64 `yaml:"referencePointDose,omitempty" json:"referencePointDose,omitempty"`
	ReferencePoint     *Point  `yaml:"referencePoint,omitempty" json:"referencePoint,omitempty"`
}

// Plan is the treatment plan sub-record
type Plan struct {
	Header `yaml:"-" json:"-"`

	Label          string          `yaml:"label,omitempty" json:"label,omitempty"`
	Beams          []Beam          `yaml:"beams" json:"beams"`
	DoseReferences []DoseReference `yaml:"doseReferences,omitempty" json:"doseReferences,omitempty"`
}

// Isocenter returns the isocenter of the first beam's first control point.
func (p *Plan) Isocenter() (Point, bool) {
	if p == nil || len(p.Beams) == 0 || len(p.Beams[0].ControlPoints) == 0 {
		return Point{}, false
	}
	iso := p.Beams[0].ControlPoints[0].Isocenter
	if iso == nil {
		return Point{}, false
	}
	return *iso, true
}

// Dose is the dose grid sub-record. It is carried through unchanged.
type Dose struct {
	Header `yaml:"-" json:"-"`

	Units       string  `yaml:"units,omitempty" json:"units,omitempty"`
	Type        string  `yaml:"type,omitempty" json:"type,omitempty"`
	Summation   string  `yaml:"summation,omitempty" json:"summation,omitempty"`
	GridScaling float64 `yaml:"gridScaling,omitempty" json:"gridScaling,omitempty"`
	Rows        int     `yaml:"rows,omitempty" json:"rows,omitempty"`
	Columns     int     `yaml:"columns,omitempty" json:"columns,omitempty"`
	Frames      int     `yaml:"frames,omitempty" json:"frames,omitempty"`
}

// PatientRecord groups the sub-records of one patient: at most one per
// modality. A record is never mutated once built; transforms return a new
// record that may share unmodified sub-structures with its input.
type PatientRecord struct {
	Patient Identity

	// Structures is nil when no RTSTRUCT was loaded
	Structures *StructureSet

	// StructuresHeader is the RTSTRUCT document header
	StructuresHeader Header

	Plan *Plan
	Dose *Dose
}

// Clone returns a shallow copy: new top-level references, shared
// sub-records.
func (r *PatientRecord) Clone() *PatientRecord {
	cp := *r
	return &cp
}

// Empty reports whether the record holds no identity and no sub-record.
func (r *PatientRecord) Empty() bool {
	return r.Patient == (Identity{}) && r.Structures == nil && r.Plan == nil && r.Dose == nil
}

// Document is a single modality document as exchanged with the codec.
// Exactly one of StructureSet, Plan and Dose is set, matching Modality.
type Document struct {
	Modality     Modality      `yaml:"modality" json:"modality"`
	Patient      Identity      `yaml:"patient" json:"patient"`
	Header       Header        `yaml:"header,omitempty" json:"header,omitempty"`
	StructureSet *StructureSet `yaml:"structureSet,omitempty" json:"structureSet,omitempty"`
	Plan         *Plan         `yaml:"plan,omitempty" json:"plan,omitempty"`
	Dose         *Dose         `yaml:"dose,omitempty" json:"dose,omitempty"`
}
