// Package report renders an order's results as an xlsx workbook: one
// patient sheet followed by one sheet per result group.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/results"
)

const (
	PatientSheet = "Paciente"
	FlatSheet    = "Resultados"
	ContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxSheetName = 31
)

// ResultHeader is the column header of every group sheet.
var ResultHeader = []string{
	"Código",
	"Prueba",
	"Resultado",
	"Unidad",
	"Valores de referencia",
	"Fecha",
}

var columnWidths = []float64{14, 40, 18, 12, 28, 20}

// Filename returns the download name for an order's workbook.
func Filename(orderID string) string {
	return fmt.Sprintf("resultados-orden-%s.xlsx", sanitize(orderID, "sin-id"))
}

// WriteResults writes the workbook for view to w.
func WriteResults(w io.Writer, view *results.View, card results.PatientCard) error {
	f, err := build(view, card)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Bytes renders the workbook in memory.
func Bytes(view *results.View, card results.PatientCard) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, view, card); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveResults writes the workbook to path.
func SaveResults(path string, view *results.View, card results.PatientCard) error {
	f, err := build(view, card)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func build(view *results.View, card results.PatientCard) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", PatientSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writePatient(f, view, card, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	used := map[string]bool{strings.ToLower(PatientSheet): true}
	for _, g := range view.Groups {
		name := uniqueName(sanitize(g.Name, g.Key), used)
		rows := make([][]string, 0, len(g.Rows))
		for _, r := range g.Rows {
			rows = append(rows, []string{
				normalize.Value(r.Code, ""),
				normalize.Value(r.Name, ""),
				r.Value,
				normalize.Value(r.Unit, ""),
				r.ReferenceRange,
				normalize.Value(r.OrderDate, ""),
			})
		}
		if err := writeTable(f, name, rows, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	if len(view.Flat) > 0 {
		name := uniqueName(FlatSheet, used)
		rows := make([][]string, 0, len(view.Flat))
		for _, r := range view.Flat {
			rows = append(rows, []string{r.Code, r.Name, r.Value, r.Unit, r.ReferenceRange, ""})
		}
		if err := writeTable(f, name, rows, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writePatient(f *excelize.File, view *results.View, card results.PatientCard, style int) error {
	pairs := [][2]string{
		{"Orden", view.OrderID},
		{"Paciente", card.Name},
		{"Identificación", card.Identification},
		{"Sexo/Edad", card.SexAge},
		{"Administradora", card.Insurer},
		{"Teléfono", card.Phone},
		{"Médico", card.Physician},
		{"Fecha de la orden", card.OrderDate},
	}
	if view.Order != nil && view.Order.Number != "" {
		pairs = append(pairs, [2]string{"Número de orden", view.Order.Number})
	}

	for i, p := range pairs {
		row := i + 1
		if err := f.SetSheetRow(PatientSheet, fmt.Sprintf("A%d", row), &[]interface{}{p[0], p[1]}); err != nil {
			return fmt.Errorf("failed to write patient row %d: %w", row, err)
		}
		cell := fmt.Sprintf("A%d", row)
		if err := f.SetCellStyle(PatientSheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set patient style: %w", err)
		}
	}
	if err := f.SetColWidth(PatientSheet, "A", "A", 22); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(PatientSheet, "B", "B", 40); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, rows [][]string, style int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	for col, header := range ResultHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheet, name, name, columnWidths[col]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range rows {
		values := make([]interface{}, len(r))
		for j, v := range r {
			values[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}

// sanitize makes s usable as a sheet or file name.
func sanitize(s, fallback string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(s))
	s = strings.Trim(s, "'")
	if s == "" {
		s = fallback
	}
	if s == "" {
		s = "Grupo"
	}
	if r := []rune(s); len(r) > maxSheetName {
		s = string(r[:maxSheetName])
	}
	return s
}

// uniqueName suffixes name until it is unused. Sheet names compare
// case-insensitively.
func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		base := []rune(name)
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
