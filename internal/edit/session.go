// Package edit tracks one in-progress row edit against a result set.
//
// A Session moves between three modes: None, Inserting (a blank template
// row) and Updating (an existing row, edited in place). Commit submits the
// smallest possible change through a Mutator and reconciles the result set
// with what the server returned. A Session has a single writer, the UI
// context driving the edit, and takes no locks.
//
// Usage:
//
//	s := edit.NewSession(rs, st)
//	_ = s.BeginUpdate(3)
//	_ = s.SetText(1, "new name")
//	if err := s.Commit(ctx); err != nil {
//	    fieldErrs := s.Errors().Columns
//	}
package edit

import (
	"context"

	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/model"
)

// Mode is the state of a Session.
type Mode int

const (
	ModeNone Mode = iota
	ModeInserting
	ModeUpdating
)

func (m Mode) String() string {
	switch m {
	case ModeInserting:
		return "inserting"
	case ModeUpdating:
		return "updating"
	default:
		return "none"
	}
}

// Mutator submits row changes. *store.Store satisfies it.
type Mutator interface {
	InsertRow(ctx context.Context, ref model.TableRef, cells []model.Cell) (model.Row, error)
	UpdateRow(ctx context.Context, ref model.TableRef, identity string, cells []model.Cell) (model.Row, error)
}

// Errors is the outcome of the last failed commit, split by attribution.
type Errors struct {
	Columns map[string]error // server errors naming a column
	Row     error            // everything else
}

// Empty reports whether no error is recorded.
func (e Errors) Empty() bool {
	return e.Row == nil && len(e.Columns) == 0
}

// Session is the edit state machine for one result set.
type Session struct {
	rs  *model.ResultSet
	mut Mutator

	mode  Mode
	index int       // row being updated
	draft model.Row // working copy the user edits
	errs  Errors
}

// NewSession returns a Session in ModeNone.
func NewSession(rs *model.ResultSet, mut Mutator) *Session {
	return &Session{rs: rs, mut: mut, index: -1}
}

func (s *Session) Mode() Mode { return s.mode }

// RowIndex is the index of the row being updated, or -1.
func (s *Session) RowIndex() int { return s.index }

// Draft returns a copy of the row being edited.
func (s *Session) Draft() model.Row { return s.draft.Clone() }

// Errors returns the errors of the last failed commit.
func (s *Session) Errors() Errors { return s.errs }

func (s *Session) begin() error {
	if s.mode != ModeNone {
		return errs.Newf(errs.ErrKindInvalidTransition, "cannot begin an edit while %s", s.mode)
	}
	if !s.rs.Mutable() {
		return errs.New(errs.ErrKindInvalidInput, "result set has no table context")
	}
	return nil
}

// BeginInsert starts editing a blank row that will be appended on commit.
func (s *Session) BeginInsert() error {
	if err := s.begin(); err != nil {
		return err
	}
	s.mode = ModeInserting
	s.index = -1
	s.draft = model.TemplateRow(s.rs.Columns)
	s.errs = Errors{}
	return nil
}

// BeginUpdate starts editing row i in place.
func (s *Session) BeginUpdate(i int) error {
	if err := s.begin(); err != nil {
		return err
	}
	if i < 0 || i >= len(s.rs.Rows) {
		return errs.Newf(errs.ErrKindInvalidInput, "row index %d out of range [0,%d)", i, len(s.rs.Rows))
	}
	s.mode = ModeUpdating
	s.index = i
	s.draft = s.rs.Rows[i].Clone()
	s.errs = Errors{}
	return nil
}

// SetText stages what the user typed into the cell at position. An empty
// string or the NULL sentinel stages NULL.
func (s *Session) SetText(position int, text string) error {
	if s.mode == ModeNone {
		return errs.New(errs.ErrKindInvalidTransition, "no edit in progress")
	}
	if position < 0 || position >= len(s.draft.Cells) {
		return errs.Newf(errs.ErrKindInvalidInput, "cell position %d out of range [0,%d)", position, len(s.draft.Cells))
	}
	s.draft.Cells[position].Value = model.ParseEditedText(text)
	return nil
}

// Diff returns the cells Commit would submit. While inserting that is every
// submittable cell of the draft. While updating it is each cell whose
// staged value differs from the row's current one; cells whose current
// value is Unsupported or Unparseable are never part of it.
func (s *Session) Diff() ([]model.Cell, error) {
	switch s.mode {
	case ModeInserting:
		var cells []model.Cell
		for _, c := range s.draft.Cells {
			if c.Value.Submittable() {
				cells = append(cells, c)
			}
		}
		return cells, nil

	case ModeUpdating:
		current := s.rs.Rows[s.index]
		var dirty []model.Cell
		for i, c := range s.draft.Cells {
			was := current.Cells[i].Value
			if !was.Submittable() || c.Value.Equal(was) {
				continue
			}
			c.Dirty = true
			dirty = append(dirty, c)
		}
		return dirty, nil
	}
	return nil, errs.New(errs.ErrKindInvalidTransition, "no edit in progress")
}

// Commit submits the edit. On success the result set is reconciled and the
// session returns to ModeNone. On failure the session stays in its mode and
// Errors reports the failure.
func (s *Session) Commit(ctx context.Context) error {
	cells, err := s.Diff()
	if err != nil {
		return err
	}
	ref := *s.rs.Context

	switch s.mode {
	case ModeInserting:
		row, err := s.mut.InsertRow(ctx, ref, cells)
		if err != nil {
			return s.fail(err)
		}
		s.rs.AppendRow(row)

	case ModeUpdating:
		if len(cells) == 0 {
			return s.fail(errs.New(errs.ErrKindNothingToUpdate, "no changed cells to update"))
		}
		current := s.rs.Rows[s.index]
		row, err := s.mut.UpdateRow(ctx, ref, current.Identity, cells)
		if err != nil {
			return s.fail(err)
		}
		if err := s.rs.ReplaceRow(s.index, merge(current, row, cells)); err != nil {
			return s.fail(err)
		}
	}

	s.reset()
	return nil
}

// merge copies the server's values for the changed cells into current and
// adopts the server's identity. Unchanged cells keep their local values.
func merge(current, server model.Row, changed []model.Cell) model.Row {
	staged := make(map[string]model.Cell, len(changed))
	for _, c := range changed {
		staged[c.Column.Name] = c
	}

	out := current.Clone()
	out.Identity = server.Identity
	for i, c := range out.Cells {
		sc, ok := staged[c.Column.Name]
		if !ok {
			continue
		}
		if fromServer, ok := server.Cell(c.Column.Name); ok {
			out.Cells[i].Value = fromServer.Value
		} else {
			out.Cells[i].Value = sc.Value
		}
		out.Cells[i].Dirty = false
	}
	return out
}

func (s *Session) fail(err error) error {
	s.errs = Errors{}
	if col, ok := errs.ColumnOf(err); ok {
		s.errs.Columns = map[string]error{col: err}
	} else {
		s.errs.Row = err
	}
	return err
}

// Cancel discards the edit and returns to ModeNone.
func (s *Session) Cancel() {
	s.reset()
}

func (s *Session) reset() {
	s.mode = ModeNone
	s.index = -1
	s.draft = model.Row{}
	s.errs = Errors{}
}
