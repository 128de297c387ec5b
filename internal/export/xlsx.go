package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mcncl/jsontab/internal/errors"
	"github.com/mcncl/jsontab/internal/models"
	"github.com/mcncl/jsontab/internal/summary"
	"github.com/xuri/excelize/v2"
)

// Sheet names written to workbooks.
const (
	SheetData          = "Data"
	SheetSummary       = "Summary"
	SheetColumnDetails = "Column_Details"
)

// Excel keeps 15 significant digits; longer integers are written as text.
const maxExactDigits = 15

// WriteXLSX writes a workbook with the table on the Data sheet and, when
// enabled, Summary and Column_Details sheets.
func (e *Exporter) WriteXLSX(w io.Writer, table *models.Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetData); err != nil {
		return errors.NewExportError("failed to create data sheet", err)
	}
	if err := writeDataSheet(f, table); err != nil {
		return errors.NewExportError("failed to write data sheet", err)
	}

	if e.opts.SummarySheet || e.opts.ColumnDetailsSheet {
		stats := summary.Analyze(table)
		if e.opts.SummarySheet {
			if err := writeSheet(f, SheetSummary, e.summaryRows(stats)); err != nil {
				return errors.NewExportError("failed to write summary sheet", err)
			}
		}
		if e.opts.ColumnDetailsSheet {
			if err := writeSheet(f, SheetColumnDetails, columnDetailRows(stats)); err != nil {
				return errors.NewExportError("failed to write column details sheet", err)
			}
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return errors.NewOutputError("failed to write workbook", err)
	}
	return nil
}

func writeDataSheet(f *excelize.File, table *models.Table) error {
	if len(table.Columns) == 0 {
		return nil
	}
	sw, err := f.NewStreamWriter(SheetData)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(table.Columns))
	for j, col := range table.Columns {
		if err := checkCellLength(1, j, col); err != nil {
			return err
		}
		header[j] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	values := make([]interface{}, len(table.Columns))
	for i, row := range table.Rows {
		for j, col := range table.Columns {
			v := cellValue(row[col])
			if text, ok := v.(string); ok {
				if err := checkCellLength(i+2, j, text); err != nil {
					return fmt.Errorf("column %q: %w", col, err)
				}
			}
			values[j] = v
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, values); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// checkCellLength rejects text excelize would silently cut to
// excelize.TotalCellChars characters.
func checkCellLength(row, col int, text string) error {
	n := utf8.RuneCountInString(text)
	if n <= excelize.TotalCellChars {
		return nil
	}
	axis, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return err
	}
	return fmt.Errorf("cell %s has %d characters, limit is %d: %w", axis, n, excelize.TotalCellChars, errors.ErrCellTooLong)
}

// cellValue maps a cell to the Go value excelize stores with the matching
// cell type. Nulls stay blank.
func cellValue(cell models.Cell) interface{} {
	switch cell.Kind() {
	case models.Null:
		return nil
	case models.Bool:
		return cell.Bool()
	case models.Number:
		literal := cell.String()
		if !strings.ContainsAny(literal, ".eE") {
			digits := strings.TrimPrefix(literal, "-")
			if len(digits) <= maxExactDigits {
				if n, err := strconv.ParseInt(literal, 10, 64); err == nil {
					return n
				}
			}
			return literal
		}
		if v, err := strconv.ParseFloat(literal, 64); err == nil && !math.IsInf(v, 0) {
			return v
		}
		return literal
	default:
		return cell.String()
	}
}

func writeSheet(f *excelize.File, name string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(name, axis, &r); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) summaryRows(s summary.Summary) [][]interface{} {
	meta := e.opts.Metadata

	source := meta.Source
	if source == "" {
		source = "stdin"
	}
	maxDepth := "All levels"
	if meta.MaxDepth != nil {
		maxDepth = strconv.Itoa(*meta.MaxDepth)
	}
	arrayMode := meta.ArrayMode
	if arrayMode == "" {
		arrayMode = "string"
	}
	convertedAt := ""
	if !meta.ConvertedAt.IsZero() {
		convertedAt = meta.ConvertedAt.Format("2006-01-02 15:04:05")
	}

	return [][]interface{}{
		{"Metric", "Value"},
		{"Source File", source},
		{"Total Rows", s.Rows},
		{"Total Columns", s.Columns},
		{"Missing Values", s.MissingValues},
		{"Complete Rows", s.CompleteRows},
		{"Column Collisions", s.Collisions},
		{"Conversion Date", convertedAt},
		{"Separator Used", fmt.Sprintf("%q", meta.Separator)},
		{"Max Depth Used", maxDepth},
		{"Array Mode", arrayMode},
	}
}

func columnDetailRows(s summary.Summary) [][]interface{} {
	rows := [][]interface{}{
		{"Column_Name", "Data_Type", "Non_Null_Count", "Null_Count", "Unique_Values", "Sample_Value"},
	}
	for _, c := range s.ColumnStats {
		sample := c.Sample
		if c.NonNullCount == 0 {
			sample = "N/A"
		}
		rows = append(rows, []interface{}{c.Name, c.DataType, c.NonNullCount, c.NullCount, c.UniqueValues, sample})
	}
	return rows
}
