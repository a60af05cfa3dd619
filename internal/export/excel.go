package export

import (
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		return "Datos"
	}
	if rs := []rune(name); len(rs) > maxSheetName {
		name = string(rs[:maxSheetName])
	}
	return name
}

// WriteExcel writes a single sheet with the headers in row 1.
func WriteExcel(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	if len(t.Headers) > 0 {
		style, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"2980B9"}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
			return err
		}
		lastCol, _ := excelize.ColumnNumberToName(len(t.Headers))
		if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
			return err
		}
	}
	return f.Write(w)
}
