package models

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"rtcontour/pkg/rterr"
)

// ROI is a named region of interest: an ordered sequence of contour slices
type ROI struct {
	// Number is the ROI number declared by the source document
	Number int `yaml:"number" json:"number"`

	// Name is unique within a structure set
	Name string `yaml:"name" json:"name"`

	// Color is the display colour as RGB
	Color [3]int `yaml:"color,omitempty" json:"color,omitempty"`

	// Slices are the contours in document order
	Slices []Slice `yaml:"contours" json:"contours"`
}

// WithSlices returns a copy of r holding slices instead of its own.
func (r *ROI) WithSlices(slices []Slice) *ROI {
	cp := *r
	cp.Slices = slices
	return &cp
}

// NumPoints returns the total number of points across all slices.
func (r *ROI) NumPoints() int {
	n := 0
	for _, s := range r.Slices {
		n += s.NumPoints()
	}
	return n
}

// StructureSet is an ordered, name-unique collection of ROIs.
//
// A StructureSet is immutable once built. The name index is built by
// NewStructureSet and rebuilt only by the structural edits Add, Remove and
// Rename, each of which returns a new set. WithROI swaps one ROI for another
// of the same name and shares the index with its receiver.
type StructureSet struct {
	// Label is the structure set label of the source document
	Label string

	rois  []*ROI
	index map[string]int
}

// NewStructureSet builds a set from rois in declaration order.
// Duplicate or empty names are rejected.
func NewStructureSet(label string, rois []*ROI) (*StructureSet, error) {
	index, err := buildIndex(rois)
	if err != nil {
		return nil, err
	}
	return &StructureSet{Label: label, rois: rois, index: index}, nil
}

func buildIndex(rois []*ROI) (map[string]int, error) {
	index := make(map[string]int, len(rois))
	for i, roi := range rois {
		if roi == nil {
			return nil, rterr.InvalidArgument("structure set", "ROI %d is nil", i)
		}
		if roi.Name == "" {
			return nil, rterr.InvalidArgument("structure set", "ROI %d has no name", i)
		}
		if _, dup := index[roi.Name]; dup {
			return nil, rterr.InvalidArgument("structure set", "duplicate structure name %q", roi.Name)
		}
		index[roi.Name] = i
	}
	return index, nil
}

// Len returns the number of ROIs.
func (s *StructureSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rois)
}

// Lookup resolves a structure name to its position.
func (s *StructureSet) Lookup(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	if s.index == nil {
		for i, roi := range s.rois {
			if roi.Name == name {
				return i, true
			}
		}
		return 0, false
	}
	i, ok := s.index[name]
	return i, ok
}

// ROI returns the ROI at position i.
func (s *StructureSet) ROI(i int) *ROI {
	return s.rois[i]
}

// ByName returns the named ROI, or nil.
func (s *StructureSet) ByName(name string) *ROI {
	i, ok := s.Lookup(name)
	if !ok {
		return nil
	}
	return s.rois[i]
}

// ROIs returns the ROIs in order. The returned slice is a copy; the ROIs
// themselves are shared and must not be modified.
func (s *StructureSet) ROIs() []*ROI {
	if s == nil {
		return nil
	}
	out := make([]*ROI, len(s.rois))
	copy(out, s.rois)
	return out
}

// Names returns the structure names in declaration order.
func (s *StructureSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.rois))
	for i, roi := range s.rois {
		names[i] = roi.Name
	}
	return names
}

// Last returns the last-declared ROI, conventionally the reference marker.
func (s *StructureSet) Last() *ROI {
	if s.Len() == 0 {
		return nil
	}
	return s.rois[len(s.rois)-1]
}

// WithROI returns a new set where position i holds roi. The name must not
// change; use Rename for that.
func (s *StructureSet) WithROI(i int, roi *ROI) (*StructureSet, error) {
	if i < 0 || i >= len(s.rois) {
		return nil, rterr.NotFound("structure set", "no ROI at position %d", i)
	}
	if roi.Name != s.rois[i].Name {
		return nil, rterr.InvalidArgument("structure set", "ROI %q cannot replace %q", roi.Name, s.rois[i].Name)
	}
	rois := make([]*ROI, len(s.rois))
	copy(rois, s.rois)
	rois[i] = roi
	return &StructureSet{Label: s.Label, rois: rois, index: s.index}, nil
}

// Add returns a new set with roi appended.
func (s *StructureSet) Add(roi *ROI) (*StructureSet, error) {
	rois := append(s.ROIs(), roi)
	return NewStructureSet(s.Label, rois)
}

// Remove returns a new set without the named ROI.
func (s *StructureSet) Remove(name string) (*StructureSet, error) {
	i, ok := s.Lookup(name)
	if !ok {
		return nil, rterr.NotFound("structure set", "structure %q", name)
	}
	rois := make([]*ROI, 0, len(s.rois)-1)
	rois = append(rois, s.rois[:i]...)
	rois = append(rois, s.rois[i+1:]...)
	return NewStructureSet(s.Label, rois)
}

// Rename returns a new set where the ROI called from is called to.
func (s *StructureSet) Rename(from, to string) (*StructureSet, error) {
	i, ok := s.Lookup(from)
	if !ok {
		return nil, rterr.NotFound("structure set", "structure %q", from)
	}
	rois := s.ROIs()
	renamed := *rois[i]
	renamed.Name = to
	rois[i] = &renamed
	return NewStructureSet(s.Label, rois)
}

// structureSetWire is the serialized shape of a StructureSet.
type structureSetWire struct {
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
	ROIs  []*ROI `yaml:"rois" json:"rois"`
}

// MarshalYAML implements yaml.Marshaler.
func (s *StructureSet) MarshalYAML() (interface{}, error) {
	return s.toWire(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler and builds the name index.
func (s *StructureSet) UnmarshalYAML(value *yaml.Node) error {
	var w structureSetWire
	if err := value.Decode(&w); err != nil {
		return err
	}
	return s.fromWire(w)
}

// MarshalJSON implements json.Marshaler.
func (s *StructureSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.toWire())
}

func (s *StructureSet) toWire() structureSetWire {
	rois := s.rois
	if rois == nil {
		rois = []*ROI{}
	}
	return structureSetWire{Label: s.Label, ROIs: rois}
}

// UnmarshalJSON implements json.Unmarshaler and builds the name index.
func (s *StructureSet) UnmarshalJSON(data []byte) error {
	var w structureSetWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return s.fromWire(w)
}

func (s *StructureSet) fromWire(w structureSetWire) error {
	built, err := NewStructureSet(w.Label, w.ROIs)
	if err != nil {
		return err
	}
	*s = *built
	return nil
}
