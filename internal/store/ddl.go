package store

import (
	"context"

	"github.com/koustreak/rowcraft/internal/model"
	"github.com/koustreak/rowcraft/internal/query"
	"github.com/koustreak/rowcraft/internal/schema"
)

// ddl runs a statement produced by build, or returns the build error.
func (s *Store) ddl(ctx context.Context, sql string, err error) error {
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, sql)
	return err
}

// AddColumn adds col to the table.
func (s *Store) AddColumn(ctx context.Context, ref model.TableRef, col schema.ColumnDefinition) error {
	sql, err := query.AddColumn(ref, col)
	return s.ddl(ctx, sql, err)
}

// DropColumn drops a column, with CASCADE when cascade is set.
func (s *Store) DropColumn(ctx context.Context, ref model.TableRef, name string, cascade bool) error {
	sql, err := query.DropColumn(ref, name, cascade)
	return s.ddl(ctx, sql, err)
}

// RenameColumn renames column from to to.
func (s *Store) RenameColumn(ctx context.Context, ref model.TableRef, from, to string) error {
	sql, err := query.RenameColumn(ref, from, to)
	return s.ddl(ctx, sql, err)
}

// AlterColumnType changes a column's type, converting existing values with
// using when it is non-nil.
func (s *Store) AlterColumnType(ctx context.Context, ref model.TableRef, name, newType string, using *string) error {
	sql, err := query.AlterColumnType(ref, name, newType, using)
	return s.ddl(ctx, sql, err)
}

// AlterColumnNullability sets or drops NOT NULL on a column.
func (s *Store) AlterColumnNullability(ctx context.Context, ref model.TableRef, name string, nullable bool) error {
	sql, err := query.AlterColumnNullability(ref, name, nullable)
	return s.ddl(ctx, sql, err)
}

// AlterColumnDefault sets the column default, or drops it when def is nil.
func (s *Store) AlterColumnDefault(ctx context.Context, ref model.TableRef, name string, def *string) error {
	sql, err := query.AlterColumnDefault(ref, name, def)
	return s.ddl(ctx, sql, err)
}

// CreateIndex creates idx on the table, optionally CONCURRENTLY.
func (s *Store) CreateIndex(ctx context.Context, ref model.TableRef, idx schema.IndexDefinition, concurrently bool) error {
	sql, err := query.CreateIndex(ref, idx, concurrently)
	return s.ddl(ctx, sql, err)
}

// DropIndex drops the named index in schemaName, optionally CONCURRENTLY.
func (s *Store) DropIndex(ctx context.Context, schemaName, name string, concurrently bool) error {
	sql, err := query.DropIndex(schemaName, name, concurrently)
	return s.ddl(ctx, sql, err)
}

// AddConstraint adds a primary key, unique, check or foreign key constraint.
// Exclusion constraints are refused before anything is sent.
func (s *Store) AddConstraint(ctx context.Context, ref model.TableRef, c schema.ConstraintDefinition) error {
	sql, err := query.AddConstraint(ref, c)
	return s.ddl(ctx, sql, err)
}

// DropConstraint drops the named constraint from the table.
func (s *Store) DropConstraint(ctx context.Context, ref model.TableRef, name string) error {
	sql, err := query.DropConstraint(ref, name)
	return s.ddl(ctx, sql, err)
}
