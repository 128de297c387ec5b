package export

import (
	"encoding/csv"
	"io"

	"github.com/mcncl/jsontab/internal/errors"
	"github.com/mcncl/jsontab/internal/models"
)

const utf8BOM = "\uFEFF"

// WriteCSV writes a header row followed by one line per table row. Null
// cells are empty fields. A table without columns produces no output.
func (e *Exporter) WriteCSV(w io.Writer, table *models.Table) error {
	if e.opts.BOM {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return errors.NewOutputError("failed to write CSV byte order mark", err)
		}
	}
	if len(table.Columns) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	cw.Comma = e.opts.Delimiter

	if err := cw.Write(table.Columns); err != nil {
		return errors.NewExportError("failed to write CSV header", err)
	}

	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for j, col := range table.Columns {
			record[j] = row[col].String()
		}
		if err := cw.Write(record); err != nil {
			return errors.NewExportError("failed to write CSV row", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.NewOutputError("failed to flush CSV output", err)
	}
	return nil
}
