package domain

import "strings"

// RawRow maps a source column name to its untouched text cell.
type RawRow map[string]string

// RawTable is a parsed source spreadsheet with original column names intact.
// Every cell is kept as text; numeric interpretation happens later.
type RawTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewRawTable builds a table from column names and positional rows.
func NewRawTable(columns []string, rows [][]string) *RawTable {
	return &RawTable{Columns: columns, Rows: rows}
}

// Len returns the number of data rows.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, compared
// case-insensitively, or -1 when the table has no such column.
func (t *RawTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

// Cell returns the text at row i, column idx. Short rows yield "".
func (t *RawTable) Cell(i, idx int) string {
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return ""
	}
	row := t.Rows[i]
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Row returns row i as a RawRow keyed by the original column names.
func (t *RawTable) Row(i int) RawRow {
	out := make(RawRow, len(t.Columns))
	for idx, c := range t.Columns {
		out[c] = t.Cell(i, idx)
	}
	return out
}

// Subset returns a table sharing the columns of t with only the given rows.
func (t *RawTable) Subset(indexes []int) *RawTable {
	rows := make([][]string, 0, len(indexes))
	for _, i := range indexes {
		rows = append(rows, t.Rows[i])
	}
	return &RawTable{Columns: t.Columns, Rows: rows}
}
