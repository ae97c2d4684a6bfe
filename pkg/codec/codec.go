// Package codec reads and writes single-modality radiotherapy documents.
//
// Two encodings are supported, YAML and JSON, sharing one document shape.
// Every decoded document is checked against an embedded JSON schema before
// it is turned into a models.Document, so structural problems in a file are
// reported with the offending field instead of surfacing later inside a
// transform.
package codec

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"rtcontour/internal/models"
	"rtcontour/pkg/rterr"
)

//go:embed schema.json
var schemaJSON []byte

// Format is a document encoding
type Format int

const (
	YAML Format = iota
	JSON
)

func (f Format) String() string {
	if f == JSON {
		return "json"
	}
	return "yaml"
}

// Ext returns the file extension used for f, with the dot.
func (f Format) Ext() string {
	if f == JSON {
		return ".json"
	}
	return ".yaml"
}

// ParseFormat maps "yaml", "yml" or "json" to a format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	}
	return YAML, rterr.InvalidArgument("codec", "unknown format %q", s)
}

// FormatFromPath picks JSON for .json files and YAML otherwise.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func documentSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Validate checks a generic decoded document against the schema.
func Validate(raw any) error {
	s, err := documentSchema()
	if err != nil {
		return fmt.Errorf("error loading document schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return rterr.InvalidArgument("decode", "document is not valid JSON data: %v", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return rterr.InvalidArgument("decode", "document failed validation: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Decode parses and validates one document.
func Decode(data []byte, f Format) (*models.Document, error) {
	var raw any
	var err error
	if f == JSON {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, rterr.InvalidArgument("decode", "error parsing %s document: %v", f, err)
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}

	doc := &models.Document{}
	if f == JSON {
		err = json.Unmarshal(data, doc)
	} else {
		err = yaml.Unmarshal(data, doc)
	}
	if err != nil {
		return nil, rterr.WithOp(err, "decode", "document")
	}
	if err := CheckPayload(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CheckPayload verifies that exactly the sub-record matching the modality
// is present.
func CheckPayload(doc *models.Document) error {
	if !doc.Modality.Valid() {
		return rterr.InvalidArgument("decode", "modality %q not supported", doc.Modality)
	}
	present := []bool{doc.StructureSet != nil, doc.Plan != nil, doc.Dose != nil}
	for i, m := range []models.Modality{models.RTStruct, models.RTPlan, models.RTDose} {
		if m == doc.Modality && !present[i] {
			return rterr.InvalidArgument("decode", "%s document has no %s payload", doc.Modality, m)
		}
		if m != doc.Modality && present[i] {
			return rterr.InvalidArgument("decode", "%s document carries a %s payload", doc.Modality, m)
		}
	}
	return nil
}

// Encode serializes a document.
func Encode(doc *models.Document, f Format) ([]byte, error) {
	if err := CheckPayload(doc); err != nil {
		return nil, err
	}
	if f == JSON {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("error encoding json document: %w", err)
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("error encoding yaml document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("error encoding yaml document: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadFile decodes the document at path, choosing the format by extension.
func ReadFile(path string) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading document: %w", err)
	}
	doc, err := Decode(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// WriteFile encodes doc to path, creating the directory if needed.
func WriteFile(path string, doc *models.Document) error {
	data, err := Encode(doc, FormatFromPath(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing document: %w", err)
	}
	return nil
}
