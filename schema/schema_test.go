package schema

import (
	"testing"

	"github.com/go-sluice/sluice"
	"github.com/stretchr/testify/require"
)

func TestSchemaEqualityBasic(t *testing.T) {
	schema1 := CreateSchema()
	_, err := schema1.CreateColumn("col1", sluice.Int64ColumnType)
	require.Nil(t, err)
	_, err = schema1.CreateColumn("col2", sluice.StringColumnType)
	require.Nil(t, err)
	_, err = schema1.CreateColumn("col3", sluice.TimestampColumnType)
	require.Nil(t, err)

	schema2 := CreateSchema()
	_, err = schema2.CreateColumn("col1", sluice.Int64ColumnType)
	require.Nil(t, err)
	_, err = schema2.CreateColumn("col2", sluice.StringColumnType)
	require.Nil(t, err)
	_, err = schema2.CreateColumn("col3", sluice.TimestampColumnType)
	require.Nil(t, err)

	require.Nil(t, schema1.Equals(schema2))
}

func TestSchemaEqualityDifferentTypes(t *testing.T) {
	schema1 := CreateSchema()
	_, err := schema1.CreateColumn("col1", sluice.Int64ColumnType)
	require.Nil(t, err)
	_, err = schema1.CreateColumn("col2", sluice.Float64ColumnType)
	require.Nil(t, err)

	schema2 := CreateSchema()
	_, err = schema2.CreateColumn("col1", sluice.Int64ColumnType)
	require.Nil(t, err)
	_, err = schema2.CreateColumn("col2", sluice.StringColumnType)
	require.Nil(t, err)

	require.NotNil(t, schema1.Equals(schema2))
}

func TestSchemaEqualityOrder(t *testing.T) {
	schema1 := CreateSchema()
	_, err := schema1.CreateColumn("col1", sluice.Int64ColumnType)
	require.Nil(t, err)
	_, err = schema1.CreateColumn("col2", sluice.StringColumnType)
	require.Nil(t, err)

	schema2 := CreateSchema()
	_, err = schema2.CreateColumn("col2", sluice.StringColumnType)
	require.Nil(t, err)
	_, err = schema2.CreateColumn("col1", sluice.Int64ColumnType)
	require.Nil(t, err)

	require.NotNil(t, schema1.Equals(schema2))
}

func TestSchemaDuplicateColumn(t *testing.T) {
	schema1 := CreateSchema()
	_, err := schema1.CreateColumn("col1", sluice.Int64ColumnType)
	require.Nil(t, err)
	_, err = schema1.CreateColumn("col1", sluice.Int64ColumnType)
	require.NotNil(t, err)
}

func TestSchemaCloneIsIndependent(t *testing.T) {
	schema1 := CreateSchema()
	_, err := schema1.CreateColumn("col1", sluice.Int64ColumnType)
	require.Nil(t, err)

	schema2 := schema1.Clone()
	require.Nil(t, schema1.Equals(schema2))

	_, err = schema2.CreateColumn("col2", sluice.BytesColumnType)
	require.Nil(t, err)
	require.Equal(t, 1, schema1.NumColumns())
	require.Equal(t, 2, schema2.NumColumns())
	require.False(t, schema1.HasColumn("col2"))
	require.True(t, schema2.HasColumn("col2"))
}

func TestSchemaGetColumnType(t *testing.T) {
	schema1 := CreateSchema()
	_, err := schema1.CreateColumn("col1", sluice.BoolColumnType)
	require.Nil(t, err)

	colType, err := schema1.GetColumnType("col1")
	require.Nil(t, err)
	require.Equal(t, sluice.BoolColumnType, colType)

	_, err = schema1.GetColumnType("missing")
	require.NotNil(t, err)
}

func TestSchemaForEachColumn(t *testing.T) {
	schema1 := CreateSchema()
	_, err := schema1.CreateColumn("col1", sluice.Int64ColumnType)
	require.Nil(t, err)
	_, err = schema1.CreateColumn("col2", sluice.StringColumnType)
	require.Nil(t, err)

	visited := []string{}
	err = schema1.ForEachColumn(func(idx int, col sluice.Column) error {
		visited = append(visited, col.Name)
		return nil
	})
	require.Nil(t, err)
	require.Equal(t, []string{"col1", "col2"}, visited)
}
