package edit

import (
	"context"
	"testing"

	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	identity string
	cells    []model.Cell
}

// fakeMutator records submissions and answers with canned rows or errors.
type fakeMutator struct {
	inserts []call
	updates []call
	row     model.Row
	err     error
}

func (f *fakeMutator) InsertRow(_ context.Context, _ model.TableRef, cells []model.Cell) (model.Row, error) {
	f.inserts = append(f.inserts, call{cells: cells})
	return f.row, f.err
}

func (f *fakeMutator) UpdateRow(_ context.Context, _ model.TableRef, identity string, cells []model.Cell) (model.Row, error) {
	f.updates = append(f.updates, call{identity: identity, cells: cells})
	return f.row, f.err
}

var columns = []model.Column{
	{Name: "id", UDTName: "int4", Position: 0},
	{Name: "name", UDTName: "text", Position: 1},
	{Name: "shape", UDTName: "int4range", Position: 2},
}

func row(identity string, values ...codec.CellValue) model.Row {
	r := model.Row{Identity: identity}
	for i, v := range values {
		r.Cells = append(r.Cells, model.Cell{Column: columns[i], Value: v, Position: i})
	}
	return r
}

func resultSet() *model.ResultSet {
	return &model.ResultSet{
		Columns: columns,
		Rows: []model.Row{
			row("(0,1)", codec.Actual("1"), codec.Actual("Ann"), codec.Unsupported()),
			row("(0,2)", codec.Actual("2"), codec.Null(), codec.Unsupported()),
		},
		Context: &model.TableRef{Schema: "public", Table: "users"},
	}
}

func TestTransitions(t *testing.T) {
	s := NewSession(resultSet(), &fakeMutator{})
	assert.Equal(t, ModeNone, s.Mode())

	require.NoError(t, s.BeginInsert())
	assert.Equal(t, ModeInserting, s.Mode())

	err := s.BeginUpdate(0)
	assert.True(t, errs.IsInvalidTransition(err), "inserting to updating must pass through none")

	s.Cancel()
	require.NoError(t, s.BeginUpdate(0))
	assert.Equal(t, ModeUpdating, s.Mode())
	assert.Equal(t, 0, s.RowIndex())

	assert.True(t, errs.IsInvalidTransition(s.BeginInsert()))
}

func TestBeginRequiresTableContext(t *testing.T) {
	rs := resultSet()
	rs.Context = nil
	s := NewSession(rs, &fakeMutator{})

	assert.True(t, errs.IsInvalidInput(s.BeginInsert()))
	assert.True(t, errs.IsInvalidInput(s.BeginUpdate(0)))
	assert.Equal(t, ModeNone, s.Mode())
}

func TestSetText_OutsideEdit(t *testing.T) {
	s := NewSession(resultSet(), &fakeMutator{})
	assert.True(t, errs.IsInvalidTransition(s.SetText(0, "x")))

	require.NoError(t, s.BeginUpdate(1))
	assert.True(t, errs.IsInvalidInput(s.SetText(9, "x")))
}

func TestDiff_Update(t *testing.T) {
	s := NewSession(resultSet(), &fakeMutator{})
	require.NoError(t, s.BeginUpdate(0))

	require.NoError(t, s.SetText(0, "1"))     // unchanged
	require.NoError(t, s.SetText(1, "NULL"))  // Ann -> NULL
	require.NoError(t, s.SetText(2, "[1,5)")) // current value unsupported

	dirty, err := s.Diff()
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, "name", dirty[0].Column.Name)
	assert.True(t, dirty[0].Dirty)
	assert.Equal(t, codec.Null(), dirty[0].Value)
}

func TestDiff_EmptyStringIsNull(t *testing.T) {
	s := NewSession(resultSet(), &fakeMutator{})
	require.NoError(t, s.BeginUpdate(1))

	require.NoError(t, s.SetText(1, ""))
	dirty, err := s.Diff()
	require.NoError(t, err)
	assert.Empty(t, dirty, "NULL staged over NULL is not a change")

	require.NoError(t, s.SetText(1, "null"))
	dirty, err = s.Diff()
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, codec.Actual("null"), dirty[0].Value, "only the exact sentinel means NULL")
}

func TestCommit_Update(t *testing.T) {
	rs := resultSet()
	mut := &fakeMutator{row: row("(0,7)", codec.Actual("1"), codec.Actual("ANN"), codec.Unsupported())}
	s := NewSession(rs, mut)

	require.NoError(t, s.BeginUpdate(0))
	require.NoError(t, s.SetText(1, "Ann B"))
	require.NoError(t, s.Commit(context.Background()))

	require.Len(t, mut.updates, 1)
	assert.Equal(t, "(0,1)", mut.updates[0].identity)
	require.Len(t, mut.updates[0].cells, 1)
	assert.Equal(t, codec.Actual("Ann B"), mut.updates[0].cells[0].Value)

	assert.Equal(t, ModeNone, s.Mode())
	assert.Equal(t, "(0,7)", rs.Rows[0].Identity, "identity refreshed from the server")
	assert.Equal(t, codec.Actual("ANN"), rs.Rows[0].Cells[1].Value, "changed cell takes the server value")
	assert.False(t, rs.Rows[0].Cells[1].Dirty)
	assert.Equal(t, codec.Unsupported(), rs.Rows[0].Cells[2].Value)
}

func TestCommit_UpdateNothingChanged(t *testing.T) {
	mut := &fakeMutator{}
	s := NewSession(resultSet(), mut)
	require.NoError(t, s.BeginUpdate(0))

	err := s.Commit(context.Background())
	assert.True(t, errs.IsNothingToUpdate(err))
	assert.Empty(t, mut.updates)
	assert.Equal(t, ModeUpdating, s.Mode())
}

func TestCommit_Insert(t *testing.T) {
	rs := resultSet()
	mut := &fakeMutator{row: row("(0,3)", codec.Actual("3"), codec.Actual("Cy"), codec.Unsupported())}
	s := NewSession(rs, mut)

	require.NoError(t, s.BeginInsert())
	draft := s.Draft()
	assert.True(t, draft.IsTemplate())
	require.NoError(t, s.SetText(1, "Cy"))
	require.NoError(t, s.Commit(context.Background()))

	require.Len(t, mut.inserts, 1)
	assert.Len(t, mut.inserts[0].cells, 3)
	require.Len(t, rs.Rows, 3)
	assert.Equal(t, "(0,3)", rs.Rows[2].Identity)
	assert.Equal(t, ModeNone, s.Mode())
}

func TestCommit_FailureStaysInMode(t *testing.T) {
	t.Run("column attributed", func(t *testing.T) {
		mut := &fakeMutator{err: errs.Server("null value violates not-null constraint", "name", nil)}
		s := NewSession(resultSet(), mut)

		require.NoError(t, s.BeginInsert())
		err := s.Commit(context.Background())
		require.Error(t, err)

		assert.Equal(t, ModeInserting, s.Mode())
		e := s.Errors()
		assert.Nil(t, e.Row)
		require.Contains(t, e.Columns, "name")
		assert.True(t, errs.IsQueryFailed(e.Columns["name"]))
	})

	t.Run("row level", func(t *testing.T) {
		rs := resultSet()
		mut := &fakeMutator{err: errs.Server("deadlock detected", "", nil)}
		s := NewSession(rs, mut)

		require.NoError(t, s.BeginUpdate(0))
		require.NoError(t, s.SetText(1, "Zed"))
		require.Error(t, s.Commit(context.Background()))

		assert.Equal(t, ModeUpdating, s.Mode())
		assert.Empty(t, s.Errors().Columns)
		assert.NotNil(t, s.Errors().Row)
		assert.Equal(t, codec.Actual("Ann"), rs.Rows[0].Cells[1].Value, "local state untouched")

		mut.err = nil
		mut.row = row("(0,9)", codec.Actual("1"), codec.Actual("Zed"), codec.Unsupported())
		require.NoError(t, s.Commit(context.Background()))
		assert.True(t, s.Errors().Empty())
	})
}

func TestCommit_WithoutEdit(t *testing.T) {
	s := NewSession(resultSet(), &fakeMutator{})
	assert.True(t, errs.IsInvalidTransition(s.Commit(context.Background())))
}
