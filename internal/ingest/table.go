// Package ingest turns uploaded CSV bytes into validated equipment rows.
//
// The stages run in order: Parse decodes the delimited text into a Table,
// ValidateColumns checks the header, and Clean drops incomplete or
// non-numeric rows.
package ingest

// Table is a decoded CSV: a header plus untyped rows. It only lives for
// the duration of one ingestion.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

func newTable(header []string, rows [][]string) *Table {
	t := &Table{Columns: header, Rows: rows, index: make(map[string]int, len(header))}
	for i, name := range header {
		t.index[name] = i
	}
	return t
}

// NewTable builds a Table from a header and rows. The header must not
// contain duplicates; use Parse for untrusted input.
func NewTable(header []string, rows [][]string) *Table {
	return newTable(header, rows)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Cell returns the value of column name in row i, and false when the
// column is absent or the row is short.
func (t *Table) Cell(i int, name string) (string, bool) {
	col, ok := t.index[name]
	if !ok || i < 0 || i >= len(t.Rows) || col >= len(t.Rows[i]) {
		return "", false
	}
	return t.Rows[i][col], true
}
