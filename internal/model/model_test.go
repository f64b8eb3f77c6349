package model

import (
	"testing"

	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cols() []Column {
	return []Column{
		{Name: "id", UDTName: "int4", Position: 0},
		{Name: "name", UDTName: "text", Position: 1},
	}
}

func TestTemplateRow(t *testing.T) {
	row := TemplateRow(cols())

	assert.True(t, row.IsTemplate())
	require.Len(t, row.Cells, 2)
	assert.Equal(t, 1, row.Cells[1].Position)
	assert.True(t, row.Cells[0].Value.IsNull())
	assert.False(t, row.Cells[0].Dirty)
}

func TestResultSet_RemoveRows(t *testing.T) {
	rs := &ResultSet{Rows: []Row{
		{Identity: "(0,1)"},
		{Identity: "(0,2)"},
		{Identity: "(0,3)"},
	}}

	n := rs.RemoveRows([]string{"(0,1)", "(0,3)", "(9,9)"})

	assert.Equal(t, 2, n)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, "(0,2)", rs.Rows[0].Identity)
}

func TestResultSet_ReplaceRow(t *testing.T) {
	rs := &ResultSet{Rows: []Row{{Identity: "(0,1)"}}}

	require.NoError(t, rs.ReplaceRow(0, Row{Identity: "(0,7)"}))
	assert.Equal(t, "(0,7)", rs.Rows[0].Identity)
	assert.Error(t, rs.ReplaceRow(3, Row{}))
}

func TestResultSet_Mutable(t *testing.T) {
	var nilRS *ResultSet
	assert.False(t, nilRS.Mutable())
	assert.False(t, (&ResultSet{}).Mutable())
	assert.True(t, (&ResultSet{Context: &TableRef{Schema: "public", Table: "users"}}).Mutable())
}

func TestParseEditedText(t *testing.T) {
	assert.Equal(t, codec.Null(), ParseEditedText(""))
	assert.Equal(t, codec.Null(), ParseEditedText("NULL"))
	assert.Equal(t, codec.Actual("null"), ParseEditedText("null"))
	assert.Equal(t, codec.Actual("Bob"), ParseEditedText("Bob"))
}

func TestFilterOperator_TakesValue(t *testing.T) {
	assert.False(t, OpIsNull.TakesValue())
	assert.False(t, OpIsNotNull.TakesValue())
	assert.True(t, OpContains.TakesValue())
}

func TestRow_CloneIsIndependent(t *testing.T) {
	row := Row{Identity: "(0,1)", Cells: []Cell{{Value: codec.Actual("a")}}}
	c := row.Clone()
	c.Cells[0].Value = codec.Actual("b")

	assert.Equal(t, codec.Actual("a"), row.Cells[0].Value)
}
