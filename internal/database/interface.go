package database

import (
	"context"

	"github.com/koustreak/rowcraft/internal/codec"
)

// Conn is the single contract rowcraft needs from a database connection:
// run one SQL text and hand back raw column values. Pooling, TLS and
// authentication live entirely behind it.
//
// Execute returns a categorised *errs.Error on failure: connection,
// SSL-unsupported, server (optionally column-attributed) or unknown.
type Conn interface {
	// Execute runs sql and returns its rows. Statements that produce no
	// rows return a Result with no fields.
	Execute(ctx context.Context, sql string) (*Result, error)

	// Close releases every resource held by the connection.
	Close()
}

// Field describes one column of a Result.
type Field struct {
	Name     string
	TypeName string       // underlying type name, e.g. "int4", "timetz"
	Format   codec.Format // wire format the values arrived in
}

// Result is the raw outcome of Execute. A nil value in a row is SQL NULL.
type Result struct {
	Fields []Field
	Rows   [][][]byte

	// RowsAffected is the server's count for INSERT, UPDATE and DELETE, or
	// the number of rows returned for a select.
	RowsAffected int64
}

// FieldIndex returns the index of the first field called name, or -1.
func (r *Result) FieldIndex(name string) int {
	for i, f := range r.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
