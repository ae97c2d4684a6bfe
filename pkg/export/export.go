// Package export writes structure contours and beam parameters as xlsx
// workbooks.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"rtcontour/internal/models"
	"rtcontour/pkg/rterr"
)

const maxSheetName = 31

// workbook wraps an excelize file whose default sheet is renamed on first use.
type workbook struct {
	f     *excelize.File
	used  map[string]bool
	count int
}

func newWorkbook() *workbook {
	return &workbook{f: excelize.NewFile(), used: make(map[string]bool)}
}

// sheet creates a sheet named after title, made unique and legal.
func (wb *workbook) sheet(title string) (string, error) {
	name := sheetName(title)
	base := name
	for i := 2; wb.used[strings.ToLower(name)]; i++ {
		suffix := " (" + strconv.Itoa(i) + ")"
		trimmed := []rune(base)
		if len(trimmed)+len(suffix) > maxSheetName {
			trimmed = trimmed[:maxSheetName-len(suffix)]
		}
		name = string(trimmed) + suffix
	}
	wb.used[strings.ToLower(name)] = true

	if wb.count == 0 {
		if err := wb.f.SetSheetName(wb.f.GetSheetName(0), name); err != nil {
			return "", fmt.Errorf("error naming sheet %q: %w", name, err)
		}
	} else if _, err := wb.f.NewSheet(name); err != nil {
		return "", fmt.Errorf("error creating sheet %q: %w", name, err)
	}
	wb.count++
	return name, nil
}

func (wb *workbook) write(w io.Writer) error {
	wb.f.SetActiveSheet(0)
	if err := wb.f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// sheetName replaces characters excel forbids and truncates to 31 runes.
func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, title)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Sheet"
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	return name
}

// Structures writes one sheet per structure. Each contour slice n occupies
// three columns x{n}, y{n} and z{n} in millimetres, one row per point.
// With no names every structure is exported, in declaration order.
func Structures(rec *models.PatientRecord, names []string, w io.Writer) error {
	if rec == nil || rec.Structures == nil {
		return rterr.NotFound("export structures", "record has no structure set")
	}
	set := rec.Structures
	if len(names) == 0 {
		names = set.Names()
	}
	rois := make([]*models.ROI, 0, len(names))
	for _, name := range names {
		roi := set.ByName(name)
		if roi == nil {
			return rterr.NotFound("export structures", "no structure named %q", name)
		}
		rois = append(rois, roi)
	}

	wb := newWorkbook()
	defer wb.f.Close()
	for _, roi := range rois {
		sheet, err := wb.sheet(roi.Name)
		if err != nil {
			return err
		}
		for n, s := range roi.Slices {
			if err := s.Validate(); err != nil {
				return rterr.WithOp(err, "export structures", fmt.Sprintf("structure %q slice %d", roi.Name, n))
			}
			if err := writeSlice(wb.f, sheet, n, s); err != nil {
				return err
			}
		}
	}
	return wb.write(w)
}

func writeSlice(f *excelize.File, sheet string, n int, s models.Slice) error {
	k := s.NumPoints()
	cols := [3][]any{make([]any, 0, k+1), make([]any, 0, k+1), make([]any, 0, k+1)}
	for axis, label := range []string{"x", "y", "z"} {
		cols[axis] = append(cols[axis], fmt.Sprintf("%s%d [mm]", label, n+1))
	}
	for i := 0; i < k; i++ {
		for axis := 0; axis < 3; axis++ {
			cols[axis] = append(cols[axis], s.Data[3*i+axis])
		}
	}
	for axis := 0; axis < 3; axis++ {
		cell, err := excelize.CoordinatesToCellName(3*n+axis+1, 1)
		if err != nil {
			return fmt.Errorf("error addressing slice %d: %w", n, err)
		}
		if err := f.SetSheetCol(sheet, cell, &cols[axis]); err != nil {
			return fmt.Errorf("error writing slice %d: %w", n, err)
		}
	}
	return nil
}

// Beams writes one sheet per beam of the plan, one row per control point:
// the gantry angle and direction, the table angle of the first control point
// and the MLC leaf positions.
func Beams(rec *models.PatientRecord, w io.Writer) error {
	if rec == nil || rec.Plan == nil {
		return rterr.NotFound("export beams", "record has no plan")
	}
	if len(rec.Plan.Beams) == 0 {
		return rterr.NotFound("export beams", "plan has no beams")
	}
	wb := newWorkbook()
	defer wb.f.Close()
	for _, beam := range rec.Plan.Beams {
		sheet, err := wb.sheet("Beam " + strconv.Itoa(beam.Number))
		if err != nil {
			return err
		}
		table := 0.0
		if len(beam.ControlPoints) > 0 {
			table = beam.ControlPoints[0].TableAngle
		}
		for i, cp := range beam.ControlPoints {
			row := []any{
				"ControlPoint" + strconv.Itoa(cp.Index),
				"GantryAngle", cp.GantryAngle,
				"GantryDirection", cp.GantryDirection,
				"TableDirection", table,
				"MLC",
			}
			for _, leaf := range cp.LeafPositions {
				row = append(row, leaf)
			}
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return fmt.Errorf("error addressing control point %d: %w", i, err)
			}
			if err := wb.f.SetSheetRow(sheet, cell, &row); err != nil {
				return fmt.Errorf("error writing control point %d: %w", i, err)
			}
		}
	}
	return wb.write(w)
}
