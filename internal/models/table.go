package models

// Cell is a single scalar table value: null, boolean, number or string.
type Cell struct {
	kind    Kind
	boolean bool
	text    string
}

// NullCell returns an empty cell.
func NullCell() Cell { return Cell{} }

// BoolCell returns a boolean cell.
func BoolCell(b bool) Cell { return Cell{kind: Bool, boolean: b} }

// NumberCell returns a number cell holding a JSON number literal.
func NumberCell(literal string) Cell { return Cell{kind: Number, text: literal} }

// StringCell returns a string cell.
func StringCell(s string) Cell { return Cell{kind: String, text: s} }

// Kind reports Null, Bool, Number or String.
func (c Cell) Kind() Kind { return c.kind }

// IsNull reports whether the cell is null.
func (c Cell) IsNull() bool { return c.kind == Null }

// IsEmpty reports whether the cell is null or an empty string.
func (c Cell) IsEmpty() bool {
	return c.kind == Null || (c.kind == String && c.text == "")
}

// Bool returns the boolean payload.
func (c Cell) Bool() bool { return c.boolean }

// String renders the cell the way it is written to delimited output.
func (c Cell) String() string {
	switch c.kind {
	case Bool:
		if c.boolean {
			return "true"
		}
		return "false"
	case Number, String:
		return c.text
	default:
		return ""
	}
}

// Row maps column names to cells. Columns absent from a row are null.
type Row map[string]Cell

// Collision records a column written more than once within a single row,
// which happens when distinct key paths join to the same column name.
// The later value replaces the earlier one.
type Collision struct {
	Row    int
	Column string
}

// Table is the result of flattening one JSON document.
type Table struct {
	Columns    []string
	Rows       []Row
	Collisions []Collision
}

// Cell returns the cell at row i and the named column, null if absent.
func (t *Table) Cell(i int, column string) Cell {
	if i < 0 || i >= len(t.Rows) {
		return NullCell()
	}
	return t.Rows[i][column]
}

// Records materializes every row in column order.
func (t *Table) Records() [][]Cell {
	out := make([][]Cell, len(t.Rows))
	for i, row := range t.Rows {
		rec := make([]Cell, len(t.Columns))
		for j, col := range t.Columns {
			rec[j] = row[col]
		}
		out[i] = rec
	}
	return out
}

// RenameColumns applies exact-name renames to the header, every row and the
// recorded collisions. A rename onto an existing column name is skipped.
func (t *Table) RenameColumns(mapping map[string]string) {
	if len(mapping) == 0 {
		return
	}
	present := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		present[c] = struct{}{}
	}
	for i, col := range t.Columns {
		to, ok := mapping[col]
		if !ok || to == col {
			continue
		}
		if _, taken := present[to]; taken {
			continue
		}
		delete(present, col)
		present[to] = struct{}{}
		t.Columns[i] = to
		for _, row := range t.Rows {
			if cell, ok := row[col]; ok {
				delete(row, col)
				row[to] = cell
			}
		}
		for j := range t.Collisions {
			if t.Collisions[j].Column == col {
				t.Collisions[j].Column = to
			}
		}
	}
}
