package dataset

import (
	"fmt"
	"math"
)

// Record is a single row keyed by column name. A nil value is a null.
type Record map[string]any

// Dataset is an immutable, ordered table of records with a fixed column list.
type Dataset struct {
	columns []string
	index   map[string]int
	rows    []Record
}

// New builds a dataset. Rows are copied so later changes by the caller
// don't leak in. Missing keys in a row read as null.
func New(columns []string, rows []Record) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)

	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c] = i
	}

	copied := make([]Record, len(rows))
	for i, r := range rows {
		rec := make(Record, len(cols))
		for _, c := range cols {
			rec[c] = r[c]
		}
		copied[i] = rec
	}

	return &Dataset{columns: cols, index: index, rows: copied}
}

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	if d == nil {
		return nil
	}
	cols := make([]string, len(d.columns))
	copy(cols, d.columns)
	return cols
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Empty reports whether the dataset has no rows.
func (d *Dataset) Empty() bool {
	return d.Len() == 0
}

// HasColumn reports whether name is one of the dataset's columns.
func (d *Dataset) HasColumn(name string) bool {
	if d == nil {
		return false
	}
	_, ok := d.index[name]
	return ok
}

// Value returns the value at row i, column col. Unknown columns read as null.
func (d *Dataset) Value(i int, col string) any {
	return d.rows[i][col]
}

// IsNull reports whether the value at row i, column col is null.
func (d *Dataset) IsNull(i int, col string) bool {
	return IsNull(d.Value(i, col))
}

// Row returns a copy of row i.
func (d *Dataset) Row(i int) Record {
	rec := make(Record, len(d.columns))
	for k, v := range d.rows[i] {
		rec[k] = v
	}
	return rec
}

// Head returns a dataset with at most the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if d == nil {
		return New(nil, nil)
	}
	if n > len(d.rows) {
		n = len(d.rows)
	}
	if n < 0 {
		n = 0
	}
	return New(d.columns, d.rows[:n])
}

// Label renders a value the way it's shown in group labels and tables.
func Label(v any) string {
	if IsNull(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

// IsNull reports whether v is a null value. NaN floats count as null.
func IsNull(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	}
	return false
}
