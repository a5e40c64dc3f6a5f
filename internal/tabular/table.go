// Package tabular holds warehouse query results and converts them into
// values that always encode with encoding/json.
package tabular

import (
	"fmt"
)

// Table is an ordered set of columns and rows. Every row has one value per
// column.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func New(columns []string, rows [][]any) (Table, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return Table{}, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
	}
	if columns == nil {
		columns = []string{}
	}
	if rows == nil {
		rows = [][]any{}
	}
	return Table{Columns: columns, Rows: rows}, nil
}

func (t Table) Len() int {
	return len(t.Rows)
}

func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

func (t Table) ColumnIndex(name string) (int, bool) {
	for i, column := range t.Columns {
		if column == name {
			return i, true
		}
	}
	return -1, false
}

// Value returns the raw value of column name in row i.
func (t Table) Value(i int, name string) (any, bool) {
	idx, ok := t.ColumnIndex(name)
	if !ok || i < 0 || i >= len(t.Rows) {
		return nil, false
	}
	return t.Rows[i][idx], true
}

// Head returns a table with at most n leading rows.
func (t Table) Head(n int) Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// Records returns one JSON-safe map per row, keyed by column name.
func (t Table) Records() []map[string]any {
	out := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := make(map[string]any, len(t.Columns))
		for i, column := range t.Columns {
			record[column] = SafeValue(row[i])
		}
		out = append(out, record)
	}
	return out
}

// SafeRows returns a copy of the rows with every value passed through
// SafeValue.
func (t Table) SafeRows() [][]any {
	out := make([][]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		converted := make([]any, len(row))
		for i, value := range row {
			converted[i] = SafeValue(value)
		}
		out = append(out, converted)
	}
	return out
}

// Safe returns a JSON-safe copy of the table.
func (t Table) Safe() Table {
	columns := t.Columns
	if columns == nil {
		columns = []string{}
	}
	return Table{Columns: columns, Rows: t.SafeRows()}
}
