package laboratory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ehr/patientflow/internal/domain/labtemplate"
	"github.com/ehr/patientflow/internal/platform/apperr"
)

const reportSheet = "Lab Results"

var reportHeader = []string{"Test", "Field", "Value", "Unit"}

// reportRow is one field of a lab result in the exported workbook.
type reportRow struct {
	Test  string
	Field string
	Value string
	Unit  string
	// Numeric is set when Value parsed as a number field.
	Numeric *float64
}

// Export renders a patient's lab results for a department as an XLSX
// workbook. Tests follow catalogue order and fields follow template order.
func (s *Service) Export(ctx context.Context, patientID, dept string) ([]byte, error) {
	if patientID == "" {
		return nil, apperr.Validation("patient id is required")
	}
	res, err := s.backend.LabResults(ctx, patientID, dept)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, apperr.NotFound("lab results", patientID)
	}
	return writeReport(patientID, dept, s.reportRows(res), time.Now())
}

func (s *Service) reportRows(res labtemplate.StructuredResult) []reportRow {
	var tests []string
	for _, name := range s.registry.Names() {
		if _, ok := res[name]; ok {
			tests = append(tests, name)
		}
	}
	for _, name := range res.Tests() {
		if !s.registry.Has(name) {
			tests = append(tests, name)
		}
	}

	var rows []reportRow
	for _, test := range tests {
		values := res[test]
		done := make(map[string]bool, len(values))
		if tpl, err := s.registry.Resolve(test); err == nil {
			for _, f := range tpl.Fields {
				v, ok := values[f.Label()]
				if !ok {
					continue
				}
				done[f.Label()] = true
				row := reportRow{Test: test, Field: f.Label(), Value: v, Unit: labtemplate.Unit(f)}
				if f.Type() == labtemplate.TypeNumber {
					if n, err := strconv.ParseFloat(v, 64); err == nil {
						row.Numeric = &n
					}
				}
				rows = append(rows, row)
			}
		}

		var extra []string
		for field := range values {
			if !done[field] {
				extra = append(extra, field)
			}
		}
		sort.Strings(extra)
		for _, field := range extra {
			rows = append(rows, reportRow{Test: test, Field: field, Value: values[field]})
		}
	}
	return rows
}

func writeReport(patientID, dept string, rows []reportRow, generated time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	meta := [][2]string{
		{"Patient", patientID},
		{"Department", dept},
		{"Generated", generated.UTC().Format(time.RFC3339)},
	}
	for i, m := range meta {
		if err := f.SetSheetRow(reportSheet, fmt.Sprintf("A%d", i+1), &[]interface{}{m[0], m[1]}); err != nil {
			return nil, fmt.Errorf("write report metadata: %w", err)
		}
	}

	headerRow := len(meta) + 2
	for col, h := range reportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, headerRow)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(reportSheet, cell, h); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(reportSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("style header %s: %w", cell, err)
		}
	}

	for i, r := range rows {
		var value interface{} = r.Value
		if r.Numeric != nil {
			value = *r.Numeric
		}
		cell, err := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err != nil {
			return nil, fmt.Errorf("row cell: %w", err)
		}
		if err := f.SetSheetRow(reportSheet, cell, &[]interface{}{r.Test, r.Field, value, r.Unit}); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	for col, width := range []float64{24, 24, 18, 12} {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(reportSheet, name, name, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	if err := f.SetPanes(reportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
