package engine

import (
	"rtcontour/internal/models"
	"rtcontour/pkg/affine"
)

// Default is the engine used by the package-level helpers.
var Default = New()

// Rotate calls Default.Rotate.
func Rotate(rec *models.PatientRecord, name string, degrees float64, axis affine.RotationAxis, origin *models.Point) (*models.PatientRecord, error) {
	return Default.Rotate(rec, name, degrees, axis, origin)
}

// Translate calls Default.Translate.
func Translate(rec *models.PatientRecord, name string, delta float64, axis affine.TranslationAxis, origin *models.Point) (*models.PatientRecord, error) {
	return Default.Translate(rec, name, delta, axis, origin)
}

// AddMargin calls Default.AddMargin.
func AddMargin(rec *models.PatientRecord, name string, mm float64) (*models.PatientRecord, error) {
	return Default.AddMargin(rec, name, mm)
}
