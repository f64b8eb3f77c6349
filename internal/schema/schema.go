// Package schema introspects table structure through catalog queries.
//
// Every query is read-only and goes through database.Conn, so it may run
// concurrently with any other statement. Catalog values are decoded with the
// same codec as user data.
package schema

import "context"

// Reader is the interface for introspecting a database schema
type Reader interface {
	// ListTables returns base tables grouped by schema, user schemas first
	ListTables(ctx context.Context) ([]Schema, error)

	// DescribeColumns returns the columns of a table in display order
	DescribeColumns(ctx context.Context, schema, table string) ([]ColumnDefinition, error)

	// FetchIndexes returns every index defined on a table
	FetchIndexes(ctx context.Context, schema, table string) ([]IndexDefinition, error)

	// FetchConstraints returns the recognised constraints of a table
	FetchConstraints(ctx context.Context, schema, table string) ([]ConstraintDefinition, error)

	// FetchTableStructure returns columns, indexes and constraints together
	FetchTableStructure(ctx context.Context, schema, table string) (*TableStructure, error)
}
