// Package table provides the in-memory tabular record set passed between
// pipeline stages.
//
// A RecordSet is an ordered sequence of rows sharing one insertion-ordered
// column list. Cell values are typed scalars: float64 for numeric columns,
// string for text columns, time.Time for timestamp columns. A nil cell is
// the missing marker, distinct from zero and the empty string.
//
// Stages never share a record set: each stage consumes one set and produces
// a new one, so a failure mid-stage cannot corrupt the caller's copy.
package table

import (
	"time"

	"github.com/strata-etl/strata/pkg/errors"
)

// ColumnType is the declared logical type of a column, fixed per run.
type ColumnType string

const (
	// Numeric columns hold float64 cells
	Numeric ColumnType = "numeric"
	// Text columns hold string cells
	Text ColumnType = "text"
	// Timestamp columns hold time.Time cells
	Timestamp ColumnType = "timestamp"
)

// Column describes one column of a record set.
type Column struct {
	Name string
	Type ColumnType
}

// Row maps column name to cell value. A nil value is the missing marker.
type Row map[string]interface{}

// RecordSet is an ordered collection of uniform-schema rows.
type RecordSet struct {
	columns []Column
	index   map[string]int // column name -> position in columns
	rows    []Row
}

// New creates an empty record set with the given columns.
func New(columns ...Column) *RecordSet {
	set := &RecordSet{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, col := range columns {
		set.addColumn(col)
	}
	return set
}

func (s *RecordSet) addColumn(col Column) {
	if _, exists := s.index[col.Name]; exists {
		return
	}
	s.index[col.Name] = len(s.columns)
	s.columns = append(s.columns, col)
}

// Columns returns the column list in insertion order.
func (s *RecordSet) Columns() []Column {
	cols := make([]Column, len(s.columns))
	copy(cols, s.columns)
	return cols
}

// ColumnNames returns the column names in insertion order.
func (s *RecordSet) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, col := range s.columns {
		names[i] = col.Name
	}
	return names
}

// HasColumn reports whether the named column exists.
func (s *RecordSet) HasColumn(name string) bool {
	_, ok := s.index[name]
	return ok
}

// ColumnType returns the declared type of the named column.
func (s *RecordSet) ColumnType(name string) (ColumnType, bool) {
	i, ok := s.index[name]
	if !ok {
		return "", false
	}
	return s.columns[i].Type, true
}

// NumericColumns returns the names of numeric columns in column order.
func (s *RecordSet) NumericColumns() []string {
	var names []string
	for _, col := range s.columns {
		if col.Type == Numeric {
			names = append(names, col.Name)
		}
	}
	return names
}

// TextColumns returns the names of text columns in column order.
func (s *RecordSet) TextColumns() []string {
	var names []string
	for _, col := range s.columns {
		if col.Type == Text {
			names = append(names, col.Name)
		}
	}
	return names
}

// NumRows returns the row count.
func (s *RecordSet) NumRows() int {
	return len(s.rows)
}

// Append adds a row. Cells for columns absent from the row are filled with
// the missing marker; keys not in the column list are dropped.
func (s *RecordSet) Append(row Row) {
	normalized := make(Row, len(s.columns))
	for _, col := range s.columns {
		normalized[col.Name] = row[col.Name]
	}
	s.rows = append(s.rows, normalized)
}

// Value returns the cell at (rowIdx, column). A nil return is the missing
// marker or an out-of-range access.
func (s *RecordSet) Value(rowIdx int, column string) interface{} {
	if rowIdx < 0 || rowIdx >= len(s.rows) {
		return nil
	}
	return s.rows[rowIdx][column]
}

// SetValue overwrites the cell at (rowIdx, column). Out-of-range or unknown
// columns are ignored.
func (s *RecordSet) SetValue(rowIdx int, column string, value interface{}) {
	if rowIdx < 0 || rowIdx >= len(s.rows) {
		return
	}
	if _, ok := s.index[column]; !ok {
		return
	}
	s.rows[rowIdx][column] = value
}

// Row returns a copy of the row at rowIdx, nil if out of range.
func (s *RecordSet) Row(rowIdx int) Row {
	if rowIdx < 0 || rowIdx >= len(s.rows) {
		return nil
	}
	row := make(Row, len(s.columns))
	for k, v := range s.rows[rowIdx] {
		row[k] = v
	}
	return row
}

// Clone returns a deep copy. Stage boundaries hand over clones so each stage
// exclusively owns the set it works on.
func (s *RecordSet) Clone() *RecordSet {
	out := New(s.columns...)
	out.rows = make([]Row, 0, len(s.rows))
	for _, row := range s.rows {
		copied := make(Row, len(row))
		for k, v := range row {
			copied[k] = v
		}
		out.rows = append(out.rows, copied)
	}
	return out
}

// Filter returns a new record set containing the rows for which keep returns
// true, preserving order.
func (s *RecordSet) Filter(keep func(rowIdx int) bool) *RecordSet {
	out := New(s.columns...)
	for i, row := range s.rows {
		if keep(i) {
			copied := make(Row, len(row))
			for k, v := range row {
				copied[k] = v
			}
			out.rows = append(out.rows, copied)
		}
	}
	return out
}

// AddColumn appends a new column populated per row by fill. Appending an
// existing column name is a no-op returning a config error.
func (s *RecordSet) AddColumn(col Column, fill func(rowIdx int) interface{}) error {
	if _, exists := s.index[col.Name]; exists {
		return errors.New(errors.ErrorTypeData, "column already exists").WithDetail("column", col.Name)
	}
	s.addColumn(col)
	for i, row := range s.rows {
		row[col.Name] = fill(i)
	}
	return nil
}

// NumericValue extracts the cell at (rowIdx, column) as float64. The second
// return is false for a missing cell. Malformed cells (non-nil, non-float64)
// return an error; numeric columns are normalized to float64 at extraction.
func (s *RecordSet) NumericValue(rowIdx int, column string) (float64, bool, error) {
	v := s.Value(rowIdx, column)
	if v == nil {
		return 0, false, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, false, errors.New(errors.ErrorTypeData, "malformed numeric cell").
			WithDetail("column", column).
			WithDetail("row", rowIdx).
			WithDetail("value", v)
	}
	return f, true, nil
}

// CellsEqual compares two cell values null-aware: two missing markers are
// equal, a missing marker never equals a present value.
func CellsEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	default:
		return a == b
	}
}

// RowsEqual reports whether two rows of this set are value-wise equal across
// all columns, null-aware.
func (s *RecordSet) RowsEqual(i, j int) bool {
	if i < 0 || j < 0 || i >= len(s.rows) || j >= len(s.rows) {
		return false
	}
	for _, col := range s.columns {
		if !CellsEqual(s.rows[i][col.Name], s.rows[j][col.Name]) {
			return false
		}
	}
	return true
}
