package schema

import (
	"fmt"

	"github.com/go-sluice/sluice"
)

// schema is an ordered mapping from column names to column types,
// describing the rows an operator emits.
type schema struct {
	columns []sluice.Column
	byName  map[string]int
}

// CreateSchema is a factory for Schemas
func CreateSchema() sluice.Schema {
	return &schema{
		columns: []sluice.Column{},
		byName:  make(map[string]int),
	}
}

// Equals returns nil iff this and another Schema are equivalent
func (s *schema) Equals(otherSchema sluice.Schema) error {
	if s.NumColumns() != otherSchema.NumColumns() {
		return fmt.Errorf("Schemas have unequal numbers of columns")
	}
	other := otherSchema.Columns()
	for i, col := range s.columns {
		if col.Name != other[i].Name {
			return fmt.Errorf("Column %d names do not match", i)
		}
		if col.Type != other[i].Type {
			return fmt.Errorf("Column %s types do not match", col.Name)
		}
	}
	return nil
}

// Clone returns a copy of this Schema
func (s *schema) Clone() sluice.Schema {
	newColumns := make([]sluice.Column, len(s.columns))
	copy(newColumns, s.columns)
	newByName := make(map[string]int, len(s.byName))
	for k, v := range s.byName {
		newByName[k] = v
	}
	return &schema{columns: newColumns, byName: newByName}
}

// NumColumns returns the number of columns in this Schema
func (s *schema) NumColumns() int {
	return len(s.columns)
}

// HasColumn returns true iff this Schema contains a column with the given name
func (s *schema) HasColumn(colName string) bool {
	_, ok := s.byName[colName]
	return ok
}

// GetColumnType returns the ColumnType of the column with the given name
func (s *schema) GetColumnType(colName string) (sluice.ColumnType, error) {
	idx, ok := s.byName[colName]
	if !ok {
		return "", fmt.Errorf("Schema does not contain column %s", colName)
	}
	return s.columns[idx].Type, nil
}

// CreateColumn appends a new column to this Schema
func (s *schema) CreateColumn(colName string, colType sluice.ColumnType) (sluice.Schema, error) {
	if _, ok := s.byName[colName]; ok {
		return nil, fmt.Errorf("Schema already contains column %s", colName)
	}
	s.byName[colName] = len(s.columns)
	s.columns = append(s.columns, sluice.Column{Name: colName, Type: colType})
	return s, nil
}

// Columns returns the columns of this Schema in order
func (s *schema) Columns() []sluice.Column {
	columns := make([]sluice.Column, len(s.columns))
	copy(columns, s.columns)
	return columns
}

// ColumnNames returns the names of the columns of this Schema in order
func (s *schema) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, col := range s.columns {
		names[i] = col.Name
	}
	return names
}

// ForEachColumn runs a function for each column in this Schema, in order
func (s *schema) ForEachColumn(fn func(idx int, col sluice.Column) error) error {
	for i, col := range s.columns {
		if err := fn(i, col); err != nil {
			return err
		}
	}
	return nil
}
