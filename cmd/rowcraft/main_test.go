package main

import (
	"bytes"
	"testing"

	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/koustreak/rowcraft/internal/config"
	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	f, err := parseFilter("name contains ann lee")
	require.NoError(t, err)
	assert.Equal(t, model.Filter{Column: "name", Operator: model.OpContains, Value: "ann lee"}, f)

	f, err = parseFilter("deleted_at isNull")
	require.NoError(t, err)
	assert.Equal(t, model.OpIsNull, f.Operator)

	_, err = parseFilter("age greaterThan")
	assert.True(t, errs.IsInvalidInput(err))

	_, err = parseFilter("name")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"name=Ann", "expr=a=b", "note="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "Ann", "expr": "a=b", "note": ""}, got)

	_, err = parseAssignments([]string{"=x"})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestParseTableRef(t *testing.T) {
	cfg = config.Default()

	ref, err := parseTableRef("sales.orders")
	require.NoError(t, err)
	assert.Equal(t, model.TableRef{Schema: "sales", Table: "orders"}, ref)

	ref, err = parseTableRef("users")
	require.NoError(t, err)
	assert.Equal(t, "public", ref.Schema)

	_, err = parseTableRef("sales.")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestBrowseParams(t *testing.T) {
	cfg = config.Default()
	browseLimit, browseSort, browseFilter = 0, "name:DESC", "id greaterThan 10"
	t.Cleanup(func() { browseLimit, browseSort, browseFilter = 0, "", "" })

	p, err := browseParams("users")
	require.NoError(t, err)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, model.Desc, p.Sort.Direction)
	assert.Equal(t, "10", p.Filter.Value)
}

func TestPrintResult(t *testing.T) {
	cols := []model.Column{{Name: "id"}, {Name: "name", Position: 1}}
	rs := &model.ResultSet{
		Columns: cols,
		Rows: []model.Row{{
			Identity: "(0,1)",
			Cells: []model.Cell{
				{Column: cols[0], Value: codec.Actual("1")},
				{Column: cols[1], Value: codec.Null(), Position: 1},
			},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, rs, true))
	out := buf.String()
	assert.Contains(t, out, "ROW")
	assert.Contains(t, out, "(0,1)")
	assert.Contains(t, out, codec.Null().Display())
	assert.Contains(t, out, "(1 rows)")
}
