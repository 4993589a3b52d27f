package sluice

// ColumnType describes the data type of a column in a Schema
type ColumnType string

const (
	// Int64ColumnType is a 64-bit signed integer column
	Int64ColumnType ColumnType = "int64"
	// Float64ColumnType is a 64-bit floating point column
	Float64ColumnType ColumnType = "float64"
	// BoolColumnType is a boolean column
	BoolColumnType ColumnType = "bool"
	// StringColumnType is a variable-length string column
	StringColumnType ColumnType = "string"
	// BytesColumnType is a variable-length binary column
	BytesColumnType ColumnType = "bytes"
	// TimestampColumnType is a nanosecond-precision timestamp column
	TimestampColumnType ColumnType = "timestamp"
)

// Column is a named, typed column within a Schema
type Column struct {
	Name string
	Type ColumnType
}

// Schema describes the ordered, typed columns of the rows an Operator
// emits. Schemas are fixed by the optimizer and treated as given here;
// lowering only copies and serializes them.
type Schema interface {
	Equals(otherSchema Schema) error
	Clone() Schema
	NumColumns() int
	HasColumn(colName string) bool
	GetColumnType(colName string) (colType ColumnType, err error)
	CreateColumn(colName string, colType ColumnType) (newSchema Schema, err error)
	Columns() []Column
	ColumnNames() []string
	ForEachColumn(fn func(idx int, col Column) error) error
}
