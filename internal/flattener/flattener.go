package flattener

import (
	"fmt"
	"strings"

	"github.com/mcncl/jsontab/internal/config"
	"github.com/mcncl/jsontab/internal/errors"
	"github.com/mcncl/jsontab/internal/models"
)

// entry is one cell of a record under construction.
type entry struct {
	column string
	cell   models.Cell
}

// fragment is a partial record: cells in the order they were produced.
type fragment []entry

// Flattener turns nested JSON values into tables.
type Flattener struct {
	opts Options
}

// NewFlattener creates a Flattener with default options.
func NewFlattener() *Flattener {
	return &Flattener{opts: DefaultOptions()}
}

// NewFlattenerWithOptions creates a Flattener with explicit options.
func NewFlattenerWithOptions(opts Options) *Flattener {
	return &Flattener{opts: opts}
}

// NewFlattenerWithConfig creates a Flattener from a loaded configuration.
func NewFlattenerWithConfig(cfg *config.Config) (*Flattener, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, errors.NewConfigError("invalid flattening options", err)
	}
	return NewFlattenerWithOptions(opts), nil
}

// Options returns the options in effect.
func (f *Flattener) Options() Options {
	return f.opts
}

// Flatten converts root into a table. An object root is a single record;
// each element of an array root is a record. Any other root fails with
// ErrInvalidRootShape.
func (f *Flattener) Flatten(root models.Value) (*models.Table, error) {
	var records []fragment

	switch root.Kind() {
	case models.Object:
		records = f.flattenObject(root, 0, nil)
	case models.Array:
		for _, item := range root.Items() {
			switch item.Kind() {
			case models.Object:
				records = append(records, f.flattenObject(item, 0, nil)...)
			default:
				records = append(records, fragment{{column: ValueColumn, cell: item.Cell()}})
			}
		}
	default:
		return nil, errors.NewFlattenError(
			fmt.Sprintf("cannot build a table from a top-level %s", root.Kind()),
			errors.ErrInvalidRootShape,
		)
	}

	table := buildTable(records)
	if f.opts.DropEmptyColumns {
		dropEmptyColumns(table)
	}
	return table, nil
}

// FlattenDocument flattens a parsed document.
func (f *Flattener) FlattenDocument(doc models.Document) (*models.Table, error) {
	return f.Flatten(doc.Root)
}

// flattenObject returns one or more records for obj. More than one only
// happens in ArrayAsRows mode.
func (f *Flattener) flattenObject(obj models.Value, depth int, path []string) []fragment {
	records := []fragment{{}}
	for _, m := range obj.Members() {
		memberPath := make([]string, len(path)+1)
		copy(memberPath, path)
		memberPath[len(path)] = f.opts.KeyCase.Apply(m.Key)

		records = cross(records, f.flattenMember(m.Value, depth, memberPath))
	}
	return records
}

func (f *Flattener) flattenMember(v models.Value, depth int, path []string) []fragment {
	column := strings.Join(path, f.opts.Separator)

	if f.opts.MaxDepth != nil && depth >= *f.opts.MaxDepth {
		return []fragment{{{column: column, cell: models.StringCell(v.Render())}}}
	}

	switch v.Kind() {
	case models.Object:
		return f.flattenObject(v, depth+1, path)
	case models.Array:
		if f.opts.ArrayMode == ArrayAsRows && allObjects(v) {
			var out []fragment
			for _, item := range v.Items() {
				out = append(out, f.flattenObject(item, depth+1, path)...)
			}
			return out
		}
		return []fragment{{{column: column, cell: models.StringCell(v.CompactJSON())}}}
	default:
		return []fragment{{{column: column, cell: v.Cell()}}}
	}
}

// allObjects reports whether arr is non-empty and holds only objects.
func allObjects(arr models.Value) bool {
	items := arr.Items()
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if item.Kind() != models.Object {
			return false
		}
	}
	return true
}

// cross appends every fragment of right to every fragment of left.
func cross(left, right []fragment) []fragment {
	if len(right) == 1 {
		for i := range left {
			left[i] = append(left[i], right[0]...)
		}
		return left
	}
	out := make([]fragment, 0, len(left)*len(right))
	for _, l := range left {
		for _, r := range right {
			rec := make(fragment, 0, len(l)+len(r))
			rec = append(rec, l...)
			rec = append(rec, r...)
			out = append(out, rec)
		}
	}
	return out
}

// buildTable materializes records into rows and collects the column union
// in first-seen order.
func buildTable(records []fragment) *models.Table {
	table := &models.Table{
		Columns: []string{},
		Rows:    make([]models.Row, 0, len(records)),
	}
	seen := make(map[string]struct{})

	for i, rec := range records {
		row := make(models.Row, len(rec))
		for _, e := range rec {
			if _, dup := row[e.column]; dup {
				table.Collisions = append(table.Collisions, models.Collision{Row: i, Column: e.column})
			}
			row[e.column] = e.cell
			if _, ok := seen[e.column]; !ok {
				seen[e.column] = struct{}{}
				table.Columns = append(table.Columns, e.column)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// dropEmptyColumns removes columns that are null or "" in every row.
func dropEmptyColumns(table *models.Table) {
	kept := table.Columns[:0]
	for _, col := range table.Columns {
		empty := true
		for _, row := range table.Rows {
			if !row[col].IsEmpty() {
				empty = false
				break
			}
		}
		if !empty {
			kept = append(kept, col)
			continue
		}
		for _, row := range table.Rows {
			delete(row, col)
		}
	}
	table.Columns = kept
}
