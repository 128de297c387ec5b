package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcncl/jsontab/internal/errors"
	"github.com/mcncl/jsontab/internal/models"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ParseFormat accepts csv or xlsx in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnsupportedFormat, s)
	}
}

// ResolveFormat picks the output format: an explicit name wins, then the
// extension of path, then CSV.
func ResolveFormat(explicit, path string) (Format, error) {
	if strings.TrimSpace(explicit) != "" {
		return ParseFormat(explicit)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return FormatCSV, nil
	}
}

// Metadata describes a conversion for the summary sheet.
type Metadata struct {
	Source      string
	Separator   string
	MaxDepth    *int
	ArrayMode   string
	ConvertedAt time.Time
}

// Options controls how tables are written.
type Options struct {
	// Delimiter separates CSV fields; zero means ','.
	Delimiter rune
	// BOM prefixes CSV output with a UTF-8 byte order mark.
	BOM                bool
	SummarySheet       bool
	ColumnDetailsSheet bool
	Metadata           Metadata
}

// Exporter writes flattened tables as CSV or XLSX.
type Exporter struct {
	opts Options
}

// NewExporter creates an Exporter.
func NewExporter(opts Options) *Exporter {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &Exporter{opts: opts}
}

// Write encodes table to w in the given format.
func (e *Exporter) Write(w io.Writer, format Format, table *models.Table) error {
	switch format {
	case FormatCSV:
		return e.WriteCSV(w, table)
	case FormatXLSX:
		return e.WriteXLSX(w, table)
	default:
		return errors.NewExportError(fmt.Sprintf("cannot write format %q", format), errors.ErrUnsupportedFormat)
	}
}

// WriteFile writes table to path. The data goes to a temporary file in the
// same directory that is renamed over path only once it is complete, so a
// failed conversion never leaves a partial file behind.
func (e *Exporter) WriteFile(path string, format Format, table *models.Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewOutputError(fmt.Sprintf("failed to create directory '%s'", dir), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.NewOutputError(fmt.Sprintf("failed to create file in '%s'", dir), err)
	}
	tmpName := tmp.Name()

	if err := e.Write(tmp, format, table); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
	}
	// Remove dest first for Windows compat (os.Rename fails if dest exists on Windows).
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		_ = os.Remove(tmpName)
		return errors.NewOutputError(fmt.Sprintf("failed to replace file '%s'", path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
	}
	return nil
}
