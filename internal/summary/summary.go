// Package summary derives descriptive metadata from a flattened table.
package summary

import (
	"strings"

	"github.com/mcncl/jsontab/internal/models"
)

// Column data types reported by Analyze.
const (
	TypeEmpty  = "empty"
	TypeBool   = "bool"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeString = "string"
	TypeMixed  = "mixed"
)

// ColumnStats describes one column of a table.
type ColumnStats struct {
	Name         string
	DataType     string
	NonNullCount int
	NullCount    int
	UniqueValues int
	// Sample is the first non-null value, empty when the column has none.
	Sample string
}

// Summary describes a whole table.
type Summary struct {
	Rows          int
	Columns       int
	MissingValues int
	CompleteRows  int
	Collisions    int
	ColumnStats   []ColumnStats
}

// Analyze computes summary statistics in one pass over the table.
func Analyze(table *models.Table) Summary {
	s := Summary{
		Rows:       len(table.Rows),
		Columns:    len(table.Columns),
		Collisions: len(table.Collisions),
	}

	stats := make([]ColumnStats, len(table.Columns))
	uniques := make([]map[string]struct{}, len(table.Columns))
	kinds := make([]string, len(table.Columns))
	for j, col := range table.Columns {
		stats[j].Name = col
		uniques[j] = make(map[string]struct{})
	}

	for _, row := range table.Rows {
		complete := true
		for j, col := range table.Columns {
			cell := row[col]
			if cell.IsNull() {
				stats[j].NullCount++
				s.MissingValues++
				complete = false
				continue
			}
			stats[j].NonNullCount++
			text := cell.String()
			if stats[j].NonNullCount == 1 {
				stats[j].Sample = text
			}
			uniques[j][text] = struct{}{}
			kinds[j] = mergeType(kinds[j], cellType(cell))
		}
		if complete {
			s.CompleteRows++
		}
	}

	for j := range stats {
		stats[j].UniqueValues = len(uniques[j])
		if kinds[j] == "" {
			stats[j].DataType = TypeEmpty
		} else {
			stats[j].DataType = kinds[j]
		}
	}
	s.ColumnStats = stats
	return s
}

func cellType(cell models.Cell) string {
	switch cell.Kind() {
	case models.Bool:
		return TypeBool
	case models.Number:
		if strings.ContainsAny(cell.String(), ".eE") {
			return TypeFloat
		}
		return TypeInt
	default:
		return TypeString
	}
}

// mergeType widens int to float; any other disagreement is mixed.
func mergeType(current, next string) string {
	switch {
	case current == "", current == next:
		return next
	case current == TypeInt && next == TypeFloat, current == TypeFloat && next == TypeInt:
		return TypeFloat
	default:
		return TypeMixed
	}
}
