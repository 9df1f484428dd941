// Package results holds the in-memory label table: ordered columns, ordered
// rows keyed by row id, and nullable cells. It reads and writes the pandas
// "columns" JSON layout used by every persisted result file.
package results

import (
	"fmt"
	"math"
	"strconv"

	"github.com/straye-as/labelling-app/internal/domain"
)

// Table is an ordered row/column table. A cell that was never set, or set to
// nil, is null.
type Table struct {
	columns  []string
	colIndex map[string]int
	rowIDs   []string
	rowIndex map[string]int
	cells    map[string]map[string]any
}

// Row is a read-only view of one table row
type Row struct {
	ID     string
	values map[string]any
}

// New creates an empty table with the given columns
func New(columns ...string) *Table {
	t := &Table{
		colIndex: make(map[string]int),
		rowIndex: make(map[string]int),
		cells:    make(map[string]map[string]any),
	}
	for _, c := range columns {
		t.EnsureColumn(c)
	}
	return t
}

// Columns returns the column names in order
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// RowIDs returns the row ids in order
func (t *Table) RowIDs() []string {
	out := make([]string, len(t.rowIDs))
	copy(out, t.rowIDs)
	return out
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rowIDs)
}

// HasColumn reports whether col exists
func (t *Table) HasColumn(col string) bool {
	_, ok := t.colIndex[col]
	return ok
}

// HasRow reports whether a row with id exists
func (t *Table) HasRow(id string) bool {
	_, ok := t.rowIndex[id]
	return ok
}

// EnsureColumn appends col when it does not exist yet
func (t *Table) EnsureColumn(col string) {
	if _, ok := t.colIndex[col]; ok {
		return
	}
	t.colIndex[col] = len(t.columns)
	t.columns = append(t.columns, col)
	t.cells[col] = make(map[string]any)
}

// DropColumn removes col and its values
func (t *Table) DropColumn(col string) {
	idx, ok := t.colIndex[col]
	if !ok {
		return
	}
	t.columns = append(t.columns[:idx], t.columns[idx+1:]...)
	delete(t.colIndex, col)
	delete(t.cells, col)
	for i := idx; i < len(t.columns); i++ {
		t.colIndex[t.columns[i]] = i
	}
}

// AddRow appends a row. Unknown columns in values are added to the table.
// Adding an existing id overwrites the given cells.
func (t *Table) AddRow(id string, values map[string]any) {
	if _, ok := t.rowIndex[id]; !ok {
		t.rowIndex[id] = len(t.rowIDs)
		t.rowIDs = append(t.rowIDs, id)
	}
	for col, v := range values {
		t.EnsureColumn(col)
		t.setCell(col, id, v)
	}
}

// AddRowOrdered appends a row whose values follow cols, keeping column order
// for columns not seen before
func (t *Table) AddRowOrdered(id string, cols []string, values []any) {
	if _, ok := t.rowIndex[id]; !ok {
		t.rowIndex[id] = len(t.rowIDs)
		t.rowIDs = append(t.rowIDs, id)
	}
	for i, col := range cols {
		t.EnsureColumn(col)
		if i < len(values) {
			t.setCell(col, id, values[i])
		}
	}
}

func (t *Table) setCell(col, id string, v any) {
	if v == nil {
		delete(t.cells[col], id)
		return
	}
	t.cells[col][id] = v
}

// Get returns the value of a cell. ok is false for null cells, unknown rows and
// unknown columns.
func (t *Table) Get(rowID, col string) (any, bool) {
	values, ok := t.cells[col]
	if !ok {
		return nil, false
	}
	v, ok := values[rowID]
	return v, ok
}

// GetString returns the cell as a string, or "" when null
func (t *Table) GetString(rowID, col string) string {
	v, ok := t.Get(rowID, col)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// Set writes a cell, adding col when needed. The row must exist.
func (t *Table) Set(rowID, col string, v any) error {
	if _, ok := t.rowIndex[rowID]; !ok {
		return fmt.Errorf("%w: row %s", domain.ErrNotFound, rowID)
	}
	t.EnsureColumn(col)
	t.setCell(col, rowID, v)
	return nil
}

// Append adds v to the list held in a cell. A null cell becomes a one-element
// list; a non-list cell is an error.
func (t *Table) Append(rowID, col string, v any) error {
	current, ok := t.Get(rowID, col)
	if !ok {
		return t.Set(rowID, col, []any{v})
	}
	list, isList := current.([]any)
	if !isList {
		return fmt.Errorf("%w: cell %s/%s is not a list", domain.ErrInvalidInput, rowID, col)
	}
	next := make([]any, len(list), len(list)+1)
	copy(next, list)
	return t.Set(rowID, col, append(next, v))
}

// Count returns the number of non-null cells in col
func (t *Table) Count(col string) int {
	return len(t.cells[col])
}

// Column returns the values of col in row order, nil for null cells
func (t *Table) Column(col string) []any {
	out := make([]any, len(t.rowIDs))
	values := t.cells[col]
	for i, id := range t.rowIDs {
		out[i] = values[id]
	}
	return out
}

// Floats returns col as numbers in row order. Null or non-numeric cells are NaN.
func (t *Table) Floats(col string) []float64 {
	out := make([]float64, len(t.rowIDs))
	for i, id := range t.rowIDs {
		v, ok := t.Get(id, col)
		if !ok {
			out[i] = math.NaN()
			continue
		}
		f, ok := ToFloat(v)
		if !ok {
			f = math.NaN()
		}
		out[i] = f
	}
	return out
}

// IsNumeric reports whether every non-null cell in col is a number and at
// least one is present
func (t *Table) IsNumeric(col string) bool {
	values, ok := t.cells[col]
	if !ok || len(values) == 0 {
		return false
	}
	for _, v := range values {
		switch v.(type) {
		case float64, float32, int, int64, int32:
		default:
			return false
		}
	}
	return true
}

// Row returns a view of one row
func (t *Table) Row(id string) (Row, bool) {
	if _, ok := t.rowIndex[id]; !ok {
		return Row{}, false
	}
	values := make(map[string]any, len(t.columns))
	for _, col := range t.columns {
		if v, ok := t.cells[col][id]; ok {
			values[col] = v
		}
	}
	return Row{ID: id, values: values}, true
}

// RowAt returns the row at position i
func (t *Table) RowAt(i int) (Row, bool) {
	if i < 0 || i >= len(t.rowIDs) {
		return Row{}, false
	}
	return t.Row(t.rowIDs[i])
}

// Clone returns a deep copy of the table structure. Cell values are shared.
func (t *Table) Clone() *Table {
	c := New(t.columns...)
	for _, id := range t.rowIDs {
		c.rowIndex[id] = len(c.rowIDs)
		c.rowIDs = append(c.rowIDs, id)
	}
	for col, values := range t.cells {
		for id, v := range values {
			c.cells[col][id] = v
		}
	}
	return c
}

// Select returns a new table holding only the given rows, in the given order.
// Unknown ids are skipped.
func (t *Table) Select(ids []string) *Table {
	c := New(t.columns...)
	for _, id := range ids {
		if _, ok := t.rowIndex[id]; !ok {
			continue
		}
		if _, dup := c.rowIndex[id]; dup {
			continue
		}
		c.rowIndex[id] = len(c.rowIDs)
		c.rowIDs = append(c.rowIDs, id)
		for col, values := range t.cells {
			if v, ok := values[id]; ok {
				c.cells[col][id] = v
			}
		}
	}
	return c
}

// Reindex renumbers the rows "0".."n-1" keeping their order
func (t *Table) Reindex() {
	renamed := make(map[string]string, len(t.rowIDs))
	for i, id := range t.rowIDs {
		renamed[id] = strconv.Itoa(i)
	}
	for col, values := range t.cells {
		next := make(map[string]any, len(values))
		for id, v := range values {
			next[renamed[id]] = v
		}
		t.cells[col] = next
	}
	t.rowIndex = make(map[string]int, len(t.rowIDs))
	for i := range t.rowIDs {
		t.rowIDs[i] = strconv.Itoa(i)
		t.rowIndex[t.rowIDs[i]] = i
	}
}

// Get returns the value of col, ok is false when null
func (r Row) Get(col string) (any, bool) {
	v, ok := r.values[col]
	return v, ok
}

// String returns the value of col formatted as text, "" when null
func (r Row) String(col string) string {
	v, ok := r.values[col]
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// Has reports whether col holds a non-null value
func (r Row) Has(col string) bool {
	_, ok := r.values[col]
	return ok
}

// ToFloat converts numeric cell values and numeric strings to float64
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// FormatValue renders a cell for display. Whole floats print without decimals.
func FormatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	default:
		return fmt.Sprint(n)
	}
}
