package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/projview/internal/jsonval"
)

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	if !bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatalf("csv output does not start with a byte order mark: %q", data[:min(8, len(data))])
	}
	rows, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	if err != nil {
		t.Fatalf("csv.ReadAll() error: %v", err)
	}
	return rows
}

// Exporting and reading back yields the header and the displayed text of
// every cell.
func TestWriteCSV_RoundTrip(t *testing.T) {
	tbl := Flatten(records(t, `[
		{"project_id":1,"title":"Alpha, \"quoted\"","note":"line1\nline2","tags":["a","b"],"score":1.50},
		{"project_id":"P2","title":"ไทย — unicode","flag":true,"missing":null}
	]`))

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}

	rows := readCSV(t, buf.Bytes())
	if len(rows) != 1+tbl.Len() {
		t.Fatalf("len(rows) = %d, want %d", len(rows), 1+tbl.Len())
	}
	if !reflect.DeepEqual(rows[0], tbl.Columns) {
		t.Errorf("header = %v, want %v", rows[0], tbl.Columns)
	}
	if !reflect.DeepEqual(rows[1:], tbl.Strings()) {
		t.Errorf("rows = %q, want %q", rows[1:], tbl.Strings())
	}
	if rows[1][4] != "1.50" {
		t.Errorf("score = %q, want %q", rows[1][4], "1.50")
	}
}

// A CSV reader turns CRLF inside a quoted field into LF; everything else in
// the cell survives.
func TestWriteCSV_LineBreaks(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "lf kept", value: "x\ny", want: "x\ny"},
		{name: "crlf read back as lf", value: "x\r\ny", want: "x\ny"},
		{name: "lone cr kept", value: "x\ry", want: "x\ry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := NewTable([]string{"note"}, [][]jsonval.Value{{jsonval.StringValue(tt.value)}})

			var buf bytes.Buffer
			if err := WriteCSV(&buf, tbl); err != nil {
				t.Fatalf("WriteCSV() error: %v", err)
			}
			if !bytes.Contains(buf.Bytes(), []byte(tt.value)) {
				t.Errorf("WriteCSV() output %q does not hold %q verbatim", buf.Bytes(), tt.value)
			}

			rows := readCSV(t, buf.Bytes())
			if got := rows[1][0]; got != tt.want {
				t.Errorf("read back %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteCSV_EmptyTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, NewTable([]string{"field", "value"}, nil)); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}
	rows := readCSV(t, buf.Bytes())
	want := [][]string{{"field", "value"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestWriteXLSX(t *testing.T) {
	tbl := Flatten(records(t, `[{"project_id":1,"title":"Alpha"},{"project_id":2,"owner":{"name":"Bo"}}]`))

	var buf bytes.Buffer
	if err := Export(&buf, tbl, FormatXLSX); err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader() error: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{"projects"}) {
		t.Fatalf("GetSheetList() = %v, want [projects]", got)
	}
	rows, err := f.GetRows("projects")
	if err != nil {
		t.Fatalf("GetRows() error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}

	want := [][]string{
		{"project_id", "title", "owner.name"},
		{"1", "Alpha"},
		{"2", "", "Bo"},
	}
	for i := range want {
		if got := trimTrailingEmpty(rows[i]); !reflect.DeepEqual(got, want[i]) {
			t.Errorf("row %d = %q, want %q", i, got, want[i])
		}
	}

	styleID, err := f.GetCellStyle("projects", "A1")
	if err != nil {
		t.Fatalf("GetCellStyle() error: %v", err)
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		t.Fatalf("GetStyle() error: %v", err)
	}
	if style.Font == nil || !style.Font.Bold {
		t.Error("header row is not bold")
	}
}

func TestWriteXLSX_CellTooLong(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		value   string
		wantErr bool
		wantRow int
		wantCol string
	}{
		{
			name:    "at the limit",
			columns: []string{"objective"},
			value:   strings.Repeat("a", excelize.TotalCellChars),
		},
		{
			name:    "multibyte at the limit",
			columns: []string{"objective"},
			value:   strings.Repeat("ไ", excelize.TotalCellChars),
		},
		{
			name:    "one over",
			columns: []string{"objective"},
			value:   strings.Repeat("a", excelize.TotalCellChars+1),
			wantErr: true,
			wantRow: 1,
			wantCol: "objective",
		},
		{
			name:    "long header",
			columns: []string{strings.Repeat("h", excelize.TotalCellChars+1)},
			value:   "x",
			wantErr: true,
			wantRow: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := NewTable(tt.columns, [][]jsonval.Value{{jsonval.StringValue(tt.value)}})

			var buf bytes.Buffer
			err := WriteXLSX(&buf, tbl, "projects")

			if !tt.wantErr {
				if err != nil {
					t.Fatalf("WriteXLSX() error: %v", err)
				}
				return
			}
			var cellErr *CellTooLongError
			if !errors.As(err, &cellErr) {
				t.Fatalf("WriteXLSX() error = %v, want *CellTooLongError", err)
			}
			if cellErr.Row != tt.wantRow {
				t.Errorf("Row = %d, want %d", cellErr.Row, tt.wantRow)
			}
			if tt.wantCol != "" && cellErr.Column != tt.wantCol {
				t.Errorf("Column = %q, want %q", cellErr.Column, tt.wantCol)
			}
			if buf.Len() != 0 {
				t.Errorf("WriteXLSX() wrote %d bytes before failing", buf.Len())
			}
			if code := MapError(err).Code; code != "EXP003" {
				t.Errorf("MapError().Code = %q, want EXP003", code)
			}
		})
	}
}

func trimTrailingEmpty(row []string) []string {
	for len(row) > 0 && row[len(row)-1] == "" {
		row = row[:len(row)-1]
	}
	return row
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    ExportFormat
		wantErr bool
	}{
		{input: "", want: FormatCSV},
		{input: "csv", want: FormatCSV},
		{input: "xlsx", want: FormatXLSX},
		{input: "pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseExportFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseExportFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseExportFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExportFileName(t *testing.T) {
	tests := []struct {
		kind   NestedKind
		format ExportFormat
		want   string
	}{
		{KindSimilarByTitle, FormatXLSX, "P1_similar_by_title.xlsx"},
		{KindMain, FormatCSV, "P1_main.csv"},
	}

	for _, tt := range tests {
		if got := ExportFileName("P1", tt.kind, tt.format); got != tt.want {
			t.Errorf("ExportFileName(P1, %s, %s) = %q, want %q", tt.kind, tt.format, got, tt.want)
		}
	}
}
