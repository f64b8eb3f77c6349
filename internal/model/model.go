// Package model holds the typed result data handed to the rendering layer:
// columns, cells, rows, result sets and the parameters of a table browse.
package model

import (
	"fmt"

	"github.com/koustreak/rowcraft/internal/codec"
)

// NullSentinel is the edited text that means "set this cell to NULL".
const NullSentinel = "NULL"

// ForeignKeyTarget is the column a foreign key points at.
type ForeignKeyTarget struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Column string `json:"column"`
}

func (f ForeignKeyTarget) String() string {
	return fmt.Sprintf("%s.%s.%s", f.Schema, f.Table, f.Column)
}

// Column describes one visible column of a result. Position is the 0-based
// display index, independent of the server's ordinal numbering.
type Column struct {
	Name       string            `json:"name"`
	DataType   string            `json:"data_type"`
	UDTName    string            `json:"udt_name"`
	Category   codec.Category    `json:"category"`
	Position   int               `json:"position"`
	ForeignKey *ForeignKeyTarget `json:"foreign_key,omitempty"`
}

// Cell is one value in a row.
type Cell struct {
	Column   Column
	Value    codec.CellValue
	Position int
	Dirty    bool
}

// Row is an ordered list of cells plus the server's physical locator for
// the row. Identity is empty for rows that cannot be mutated (ad-hoc query
// results, the insert template).
type Row struct {
	Identity string
	Cells    []Cell
}

// TemplateRow returns the blank row an insert starts from: every cell NULL,
// no identity.
func TemplateRow(columns []Column) Row {
	cells := make([]Cell, len(columns))
	for i, c := range columns {
		cells[i] = Cell{Column: c, Value: codec.Null(), Position: c.Position}
	}
	return Row{Cells: cells}
}

// IsTemplate reports whether r has no server identity yet.
func (r Row) IsTemplate() bool {
	return r.Identity == ""
}

// Cell returns the cell for a column name.
func (r Row) Cell(name string) (Cell, bool) {
	for _, c := range r.Cells {
		if c.Column.Name == name {
			return c, true
		}
	}
	return Cell{}, false
}

// Clone returns a deep copy of r's cell slice.
func (r Row) Clone() Row {
	cells := make([]Cell, len(r.Cells))
	copy(cells, r.Cells)
	return Row{Identity: r.Identity, Cells: cells}
}

// TableRef names a table.
type TableRef struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

func (t TableRef) String() string {
	return t.Schema + "." + t.Table
}

// ResultSet is the outcome of one query execution. Context is set when the
// rows came from a single table; only then may they be mutated.
type ResultSet struct {
	Columns []Column
	Rows    []Row
	Context *TableRef
}

// Mutable reports whether rows of rs may be inserted, updated or deleted.
func (rs *ResultSet) Mutable() bool {
	return rs != nil && rs.Context != nil
}

// AppendRow adds a row returned by the server after an insert.
func (rs *ResultSet) AppendRow(r Row) {
	rs.Rows = append(rs.Rows, r)
}

// ReplaceRow swaps the row at index i.
func (rs *ResultSet) ReplaceRow(i int, r Row) error {
	if i < 0 || i >= len(rs.Rows) {
		return fmt.Errorf("row index %d out of range [0,%d)", i, len(rs.Rows))
	}
	rs.Rows[i] = r
	return nil
}

// RemoveRows drops every row whose identity is in ids and returns how many
// were removed.
func (rs *ResultSet) RemoveRows(ids []string) int {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := rs.Rows[:0]
	removed := 0
	for _, r := range rs.Rows {
		if _, ok := drop[r.Identity]; ok && r.Identity != "" {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	rs.Rows = kept
	return removed
}

// ParseEditedText maps what a user typed into a cell value. An empty string
// or the NULL sentinel means NULL.
func ParseEditedText(text string) codec.CellValue {
	if text == "" || text == NullSentinel {
		return codec.Null()
	}
	return codec.Actual(text)
}
