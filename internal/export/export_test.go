package export

import (
	"bytes"
	"encoding/csv"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mcncl/jsontab/internal/errors"
	"github.com/mcncl/jsontab/internal/flattener"
	"github.com/mcncl/jsontab/internal/models"
	"github.com/mcncl/jsontab/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func tableFor(t *testing.T, input string) *models.Table {
	t.Helper()
	doc, err := parser.ParseString(input)
	require.NoError(t, err)
	table, err := flattener.NewFlattener().Flatten(doc.Root)
	require.NoError(t, err)
	return table
}

func readCSV(t *testing.T, data string, comma rune) [][]string {
	t.Helper()
	r := csv.NewReader(strings.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSV(t *testing.T) {
	table := tableFor(t, `[
		{"id": 1, "user": {"name": "Ann", "tags": ["a", "b"]}, "active": true},
		{"id": 2, "user": {"name": "Bob"}, "note": null}
	]`)

	var buf bytes.Buffer
	require.NoError(t, NewExporter(Options{}).WriteCSV(&buf, table))

	records := readCSV(t, buf.String(), ',')
	require.Len(t, records, 3)
	assert.Equal(t, table.Columns, records[0])
	assert.Equal(t, []string{"id", "user_name", "user_tags", "active", "note"}, records[0])
	assert.Equal(t, []string{"1", "Ann", `["a","b"]`, "true", ""}, records[1])
	assert.Equal(t, []string{"2", "Bob", "", "", ""}, records[2])
}

func TestWriteCSV_Quoting(t *testing.T) {
	table := tableFor(t, `{"text": "a, \"quoted\"\nvalue", "plain": "x"}`)

	var buf bytes.Buffer
	require.NoError(t, NewExporter(Options{}).WriteCSV(&buf, table))

	assert.True(t, strings.HasPrefix(buf.String(), "text,plain\n"))
	records := readCSV(t, buf.String(), ',')
	require.Len(t, records, 2)
	assert.Equal(t, "a, \"quoted\"\nvalue", records[1][0])
}

func TestWriteCSV_Delimiter(t *testing.T) {
	table := tableFor(t, `{"a": "x;y", "b": 2}`)

	var buf bytes.Buffer
	require.NoError(t, NewExporter(Options{Delimiter: ';'}).WriteCSV(&buf, table))

	assert.Equal(t, "a;b\n\"x;y\";2\n", buf.String())
}

func TestWriteCSV_BOM(t *testing.T) {
	table := tableFor(t, `{"a": 1}`)

	var buf bytes.Buffer
	require.NoError(t, NewExporter(Options{BOM: true}).WriteCSV(&buf, table))
	assert.Equal(t, "\uFEFFa\n1\n", buf.String())

	buf.Reset()
	require.NoError(t, NewExporter(Options{}).WriteCSV(&buf, table))
	assert.Equal(t, "a\n1\n", buf.String())
}

func TestWriteCSV_NoColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExporter(Options{}).WriteCSV(&buf, tableFor(t, `[]`)))
	assert.Empty(t, buf.String())
}

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteXLSX(t *testing.T) {
	table := tableFor(t, `[
		{"id": 1, "name": "Ann", "score": 9.5},
		{"id": 2, "name": null, "score": 7}
	]`)
	depth := 3
	exp := NewExporter(Options{
		SummarySheet:       true,
		ColumnDetailsSheet: true,
		Metadata: Metadata{
			Source:      "people.json",
			Separator:   "_",
			MaxDepth:    &depth,
			ArrayMode:   "string",
			ConvertedAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		},
	})

	var buf bytes.Buffer
	require.NoError(t, exp.WriteXLSX(&buf, table))

	f := openWorkbook(t, buf.Bytes())
	assert.Equal(t, []string{SheetData, SheetSummary, SheetColumnDetails}, f.GetSheetList())

	rows, err := f.GetRows(SheetData)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "name", "score"}, rows[0])
	assert.Equal(t, []string{"1", "Ann", "9.5"}, rows[1])
	assert.Equal(t, []string{"2", "", "7"}, rows[2])

	cellType, err := f.GetCellType(SheetData, "A2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)
	assert.NotEqual(t, excelize.CellTypeInlineString, cellType)

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	metrics := map[string]string{}
	for _, row := range summary[1:] {
		require.Len(t, row, 2)
		metrics[row[0]] = row[1]
	}
	assert.Equal(t, []string{"Metric", "Value"}, summary[0])
	assert.Equal(t, "people.json", metrics["Source File"])
	assert.Equal(t, "2", metrics["Total Rows"])
	assert.Equal(t, "3", metrics["Total Columns"])
	assert.Equal(t, "1", metrics["Missing Values"])
	assert.Equal(t, "1", metrics["Complete Rows"])
	assert.Equal(t, "2024-03-01 12:30:00", metrics["Conversion Date"])
	assert.Equal(t, `"_"`, metrics["Separator Used"])
	assert.Equal(t, "3", metrics["Max Depth Used"])
	assert.Equal(t, "string", metrics["Array Mode"])

	details, err := f.GetRows(SheetColumnDetails)
	require.NoError(t, err)
	require.Len(t, details, 4)
	assert.Equal(t, []string{"Column_Name", "Data_Type", "Non_Null_Count", "Null_Count", "Unique_Values", "Sample_Value"}, details[0])
	assert.Equal(t, []string{"name", "string", "1", "1", "1", "Ann"}, details[2])
	assert.Equal(t, []string{"score", "float", "2", "0", "2", "9.5"}, details[3])
}

func TestWriteXLSX_DataOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExporter(Options{}).WriteXLSX(&buf, tableFor(t, `{"a": "x"}`)))

	f := openWorkbook(t, buf.Bytes())
	assert.Equal(t, []string{SheetData}, f.GetSheetList())
}

func TestWriteXLSX_RejectsOverlongCell(t *testing.T) {
	long := strings.Repeat("x", 40000)
	table := &models.Table{
		Columns: []string{"id", "blob"},
		Rows: []models.Row{
			{"id": models.NumberCell("1"), "blob": models.StringCell("short")},
			{"id": models.NumberCell("2"), "blob": models.StringCell(long)},
		},
	}

	var buf bytes.Buffer
	err := NewExporter(Options{}).WriteXLSX(&buf, table)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrCellTooLong))
	assert.Contains(t, err.Error(), "B3")
	assert.Contains(t, err.Error(), `"blob"`)

	var appErr *errors.AppError
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, errors.ErrorTypeExport, appErr.Type)
	assert.Zero(t, buf.Len())
}

func TestWriteXLSX_CellAtLimitIsKept(t *testing.T) {
	exact := strings.Repeat("é", excelize.TotalCellChars)
	table := &models.Table{
		Columns: []string{"blob"},
		Rows:    []models.Row{{"blob": models.StringCell(exact)}},
	}

	var buf bytes.Buffer
	require.NoError(t, NewExporter(Options{}).WriteXLSX(&buf, table))

	rows, err := openWorkbook(t, buf.Bytes()).GetRows(SheetData)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, exact, rows[1][0])
}

func TestWriteFile_OverlongCellLeavesNothingBehind(t *testing.T) {
	table := &models.Table{
		Columns: []string{"blob"},
		Rows:    []models.Row{{"blob": models.StringCell(strings.Repeat("y", excelize.TotalCellChars+1))}},
	}
	path := filepath.Join(t.TempDir(), "out.xlsx")

	err := NewExporter(Options{}).WriteFile(path, FormatXLSX, table)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrCellTooLong))
	assert.NoFileExists(t, path)
}

func TestWriteXLSX_UnboundedDepthAndEmptyColumn(t *testing.T) {
	table := &models.Table{
		Columns: []string{"a"},
		Rows:    []models.Row{{"a": models.NullCell()}},
	}
	exp := NewExporter(Options{SummarySheet: true, ColumnDetailsSheet: true})

	var buf bytes.Buffer
	require.NoError(t, exp.WriteXLSX(&buf, table))
	f := openWorkbook(t, buf.Bytes())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	metrics := map[string]string{}
	for _, row := range summary[1:] {
		if len(row) == 2 {
			metrics[row[0]] = row[1]
		}
	}
	assert.Equal(t, "All levels", metrics["Max Depth Used"])
	assert.Equal(t, "stdin", metrics["Source File"])

	details, err := f.GetRows(SheetColumnDetails)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, []string{"a", "empty", "0", "1", "0", "N/A"}, details[1])
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		name string
		cell models.Cell
		want interface{}
	}{
		{"null", models.NullCell(), nil},
		{"bool", models.BoolCell(true), true},
		{"integer", models.NumberCell("42"), int64(42)},
		{"negative integer", models.NumberCell("-7"), int64(-7)},
		{"float", models.NumberCell("2.50"), 2.5},
		{"exponent", models.NumberCell("1e3"), 1000.0},
		{"long integer", models.NumberCell("12345678901234567890"), "12345678901234567890"},
		{"string", models.StringCell("007"), "007"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cellValue(tt.cell))
		})
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		explicit string
		path     string
		want     Format
		wantErr  bool
	}{
		{"", "", FormatCSV, false},
		{"", "out.csv", FormatCSV, false},
		{"", "out.XLSX", FormatXLSX, false},
		{"", "out.txt", FormatCSV, false},
		{"csv", "out.xlsx", FormatCSV, false},
		{"XLSX", "", FormatXLSX, false},
		{"parquet", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.explicit+"|"+tt.path, func(t *testing.T) {
			got, err := ResolveFormat(tt.explicit, tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, stderrors.Is(err, errors.ErrUnsupportedFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatExtension(t *testing.T) {
	assert.Equal(t, ".csv", FormatCSV.Extension())
	assert.Equal(t, ".xlsx", FormatXLSX.Extension())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	table := tableFor(t, `{"a": 1}`)
	exp := NewExporter(Options{})

	path := filepath.Join(dir, "nested", "out.csv")
	require.NoError(t, exp.WriteFile(path, FormatCSV, table))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(data))

	// Overwrites an existing file.
	require.NoError(t, exp.WriteFile(path, FormatCSV, tableFor(t, `{"b": 2}`)))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b\n2\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFile_FailureLeavesNothingBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	err := NewExporter(Options{}).WriteFile(path, Format("bin"), tableFor(t, `{"a": 1}`))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedFormat))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
