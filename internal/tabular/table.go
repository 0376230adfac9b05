// Package tabular turns uploaded spreadsheets into a typed table with an
// explicit required-column contract.
package tabular

import (
	"fmt"
	"strings"
)

// MissingColumnsError lists required columns absent from a table header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing columns: %s", strings.Join(e.Columns, ", "))
}

// Table is a header plus string cells. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// New builds a Table, padding short rows with empty cells. The first
// occurrence of a duplicated header name wins.
func New(columns []string, rows [][]string) *Table {
	t := &Table{
		Columns: columns,
		Rows:    make([][]string, 0, len(rows)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, ok := t.index[c]; !ok {
			t.index[c] = i
		}
	}
	for _, r := range rows {
		if len(r) < len(columns) {
			padded := make([]string, len(columns))
			copy(padded, r)
			r = padded
		}
		t.Rows = append(t.Rows, r[:len(columns)])
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Missing returns the names in required that the header lacks, in the order given.
func (t *Table) Missing(required []string) []string {
	var missing []string
	for _, c := range required {
		if _, ok := t.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// Select checks that every required column is present and returns each row's
// cells reordered to match required. No row is touched if a column is missing.
func (t *Table) Select(required []string) ([][]string, error) {
	if missing := t.Missing(required); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	positions := make([]int, len(required))
	for i, c := range required {
		positions[i] = t.index[c]
	}
	out := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells := make([]string, len(positions))
		for i, p := range positions {
			cells[i] = row[p]
		}
		out[r] = cells
	}
	return out, nil
}
