package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ExportFormat is a download file format.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts "csv", "xlsx", or "" meaning csv.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the format.
func (f ExportFormat) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FilteredExportName is the base file name of an explorer export.
const FilteredExportName = "projects_filtered"

// ExportFileName names the download of a project view table:
// "{id}_main.csv", "{id}_similar_by_title.xlsx" and so on.
func ExportFileName(id string, kind NestedKind, format ExportFormat) string {
	return fmt.Sprintf("%s_%s.%s", id, kind, format)
}

// Export writes t to w in format.
func Export(w io.Writer, t Table, format ExportFormat) error {
	if format == FormatXLSX {
		return WriteXLSX(w, t, "projects")
	}
	return WriteCSV(w, t)
}

// WriteCSV writes t as comma-separated text: a header row, then one row per
// table row with every value rendered as text. The output is UTF-8 with a
// byte-order mark so spreadsheet programs detect the encoding.
//
// Line breaks inside a value are quoted and kept, but a CSV reader returns
// "\r\n" inside a quoted field as "\n", so a round trip preserves cell text
// up to that normalization.
func WriteCSV(w io.Writer, t Table) error {
	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bw)

	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Strings() {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return bw.Close()
}

// WriteXLSX writes t as a single-sheet workbook with a bold header row.
// A value longer than excelize.TotalCellChars characters fails the export
// with a *CellTooLongError instead of being cut short.
func WriteXLSX(w io.Writer, t Table, sheet string) error {
	rows := t.Strings()
	if err := checkCellLengths(t.Columns, rows); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, s := range row {
			cells[j] = s
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if len(t.Columns) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return fmt.Errorf("header style: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func checkCellLengths(columns []string, rows [][]string) error {
	for _, c := range columns {
		if n := utf8.RuneCountInString(c); n > excelize.TotalCellChars {
			return &CellTooLongError{Column: c, Length: n}
		}
	}
	for i, row := range rows {
		for j, s := range row {
			if len(s) <= excelize.TotalCellChars {
				continue
			}
			if n := utf8.RuneCountInString(s); n > excelize.TotalCellChars {
				col := ""
				if j < len(columns) {
					col = columns[j]
				}
				return &CellTooLongError{Row: i + 1, Column: col, Length: n}
			}
		}
	}
	return nil
}
