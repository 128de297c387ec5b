package summary

import (
	"testing"

	"github.com/mcncl/jsontab/internal/flattener"
	"github.com/mcncl/jsontab/internal/models"
	"github.com/mcncl/jsontab/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	doc, err := parser.ParseString(`[
		{"id": 1, "name": "ann", "score": 9.5, "active": true, "mixed": 1},
		{"id": 2, "name": "bob", "score": 7, "mixed": "x"},
		{"id": 3, "name": "ann", "score": null, "active": false, "mixed": null}
	]`)
	require.NoError(t, err)
	table, err := flattener.NewFlattener().Flatten(doc.Root)
	require.NoError(t, err)

	s := Analyze(table)

	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 5, s.Columns)
	assert.Equal(t, 3, s.MissingValues) // bob.active, score null, mixed null
	assert.Equal(t, 1, s.CompleteRows)
	assert.Equal(t, 0, s.Collisions)

	byName := map[string]ColumnStats{}
	for _, c := range s.ColumnStats {
		byName[c.Name] = c
	}

	assert.Equal(t, ColumnStats{Name: "id", DataType: TypeInt, NonNullCount: 3, UniqueValues: 3, Sample: "1"}, byName["id"])
	assert.Equal(t, ColumnStats{Name: "name", DataType: TypeString, NonNullCount: 3, UniqueValues: 2, Sample: "ann"}, byName["name"])
	assert.Equal(t, TypeFloat, byName["score"].DataType)
	assert.Equal(t, 1, byName["score"].NullCount)
	assert.Equal(t, TypeBool, byName["active"].DataType)
	assert.Equal(t, TypeMixed, byName["mixed"].DataType)

	// ColumnStats follows table column order.
	var names []string
	for _, c := range s.ColumnStats {
		names = append(names, c.Name)
	}
	assert.Equal(t, table.Columns, names)
}

func TestAnalyze_EmptyColumn(t *testing.T) {
	table := &models.Table{
		Columns: []string{"a"},
		Rows:    []models.Row{{}, {"a": models.NullCell()}},
	}

	s := Analyze(table)
	require.Len(t, s.ColumnStats, 1)
	assert.Equal(t, TypeEmpty, s.ColumnStats[0].DataType)
	assert.Equal(t, 2, s.ColumnStats[0].NullCount)
	assert.Equal(t, "", s.ColumnStats[0].Sample)
	assert.Equal(t, 0, s.CompleteRows)
}

func TestAnalyze_EmptyTable(t *testing.T) {
	s := Analyze(&models.Table{})
	assert.Equal(t, Summary{ColumnStats: []ColumnStats{}}, s)
}
