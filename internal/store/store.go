// Package store is the data-access surface handed to the rendering layer.
//
// A Store is built around an explicit database.Conn; it never reaches for a
// global connection. It turns structured requests into SQL through the query
// package, runs them, and decodes the raw rows into typed result sets with
// the codec registry. Nothing is retried.
package store

import (
	"context"
	"time"

	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/koustreak/rowcraft/internal/database"
	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/logger"
	"github.com/koustreak/rowcraft/internal/model"
	"github.com/koustreak/rowcraft/internal/query"
	"github.com/koustreak/rowcraft/internal/schema"
	"golang.org/x/sync/errgroup"
)

// Store runs queries, mutations and DDL against one connection.
// It is safe for concurrent use.
type Store struct {
	conn    database.Conn
	reader  schema.Reader
	reg     *codec.Registry
	log     *logger.Logger
	timeout time.Duration
}

// Option customises a Store.
type Option func(*Store)

// WithQueryTimeout bounds every statement. Zero means no deadline.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithReader replaces the Postgres introspector used for describe calls.
func WithReader(r schema.Reader) Option {
	return func(s *Store) { s.reader = r }
}

// New returns a Store over conn. A nil reg uses codec.DefaultRegistry and a
// nil log discards output.
func New(conn database.Conn, reg *codec.Registry, log *logger.Logger, opts ...Option) *Store {
	if reg == nil {
		reg = codec.DefaultRegistry()
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{conn: conn, reg: reg, log: log}
	for _, opt := range opts {
		opt(s)
	}
	if s.reader == nil {
		s.reader = schema.NewPgIntrospector(&loggedConn{s}, reg)
	}
	return s
}

// Close closes the underlying connection.
func (s *Store) Close() {
	s.conn.Close()
}

// exec runs one statement under the store's deadline and logs it.
func (s *Store) exec(ctx context.Context, sql string) (*database.Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.conn.Execute(ctx, sql)
	s.log.Statement(sql, time.Since(start), err)
	return res, err
}

// loggedConn routes introspection queries through Store.exec so they share
// the deadline and statement log.
type loggedConn struct{ s *Store }

func (c *loggedConn) Execute(ctx context.Context, sql string) (*database.Result, error) {
	return c.s.exec(ctx, sql)
}

func (c *loggedConn) Close() {}

// Execute runs arbitrary SQL text. The result has no table context, so its
// rows cannot be edited.
func (s *Store) Execute(ctx context.Context, sql string) (*model.ResultSet, error) {
	res, err := s.exec(ctx, sql)
	if err != nil {
		return nil, err
	}

	cols := make([]model.Column, len(res.Fields))
	idx := make([]int, len(res.Fields))
	for i, f := range res.Fields {
		cols[i] = model.Column{
			Name:     f.Name,
			DataType: f.TypeName,
			UDTName:  f.TypeName,
			Category: codec.CategoryOf(f.TypeName),
			Position: i,
		}
		idx[i] = i
	}

	rows, err := s.decodeRows(res, cols, idx, -1)
	if err != nil {
		return nil, err
	}
	return &model.ResultSet{Columns: cols, Rows: rows}, nil
}

// Select fetches one page of a table. The select and the column describe run
// concurrently and are combined once both finish; the identity column is
// removed from the visible columns and kept on each row.
func (s *Store) Select(ctx context.Context, params model.QueryParameters) (*model.ResultSet, error) {
	sql, err := query.Select(params)
	if err != nil {
		return nil, err
	}
	ref := *params.Target

	res, cols, err := s.execDescribed(ctx, ref, sql)
	if err != nil {
		return nil, err
	}

	rows, err := s.tableRows(res, cols)
	if err != nil {
		return nil, err
	}
	return &model.ResultSet{Columns: cols, Rows: rows, Context: &ref}, nil
}

// execDescribed runs sql and describes ref concurrently.
func (s *Store) execDescribed(ctx context.Context, ref model.TableRef, sql string) (*database.Result, []model.Column, error) {
	var (
		res  *database.Result
		defs []schema.ColumnDefinition
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res, err = s.exec(gctx, sql)
		return err
	})
	g.Go(func() error {
		var err error
		defs, err = s.reader.DescribeColumns(gctx, ref.Schema, ref.Table)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return res, schema.Columns(defs), nil
}

// tableRows aligns a table result with its described columns by name and
// pulls the identity column out of each row.
func (s *Store) tableRows(res *database.Result, cols []model.Column) ([]model.Row, error) {
	identity := res.FieldIndex(query.IdentityColumn)
	if identity < 0 {
		return nil, errs.New(errs.ErrKindQueryFailed, "result has no row identity column")
	}
	if len(res.Fields)-1 != len(cols) {
		return nil, errs.Newf(errs.ErrKindQueryFailed,
			"row shape mismatch: %d result columns for %d described columns", len(res.Fields)-1, len(cols))
	}

	idx := make([]int, len(cols))
	for i, c := range cols {
		j := res.FieldIndex(c.Name)
		if j < 0 || j == identity {
			return nil, errs.Newf(errs.ErrKindQueryFailed, "row shape mismatch: column %q missing from result", c.Name)
		}
		idx[i] = j
	}
	return s.decodeRows(res, cols, idx, identity)
}

// decodeRows builds typed rows. idx maps each column to its field index and
// identity is the identity field index, or -1.
func (s *Store) decodeRows(res *database.Result, cols []model.Column, idx []int, identity int) ([]model.Row, error) {
	rows := make([]model.Row, 0, len(res.Rows))
	for n, raw := range res.Rows {
		if len(raw) != len(res.Fields) {
			return nil, errs.Newf(errs.ErrKindQueryFailed,
				"row shape mismatch: row %d has %d values for %d columns", n, len(raw), len(res.Fields))
		}

		row := model.Row{Cells: make([]model.Cell, len(cols))}
		for i, c := range cols {
			f := res.Fields[idx[i]]
			row.Cells[i] = model.Cell{
				Column:   c,
				Value:    s.reg.Decode(raw[idx[i]], f.TypeName, f.Format),
				Position: c.Position,
			}
		}
		if identity >= 0 {
			row.Identity = string(raw[identity])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DescribeTable returns the column definitions of a table.
func (s *Store) DescribeTable(ctx context.Context, ref model.TableRef) ([]schema.ColumnDefinition, error) {
	return s.reader.DescribeColumns(ctx, ref.Schema, ref.Table)
}

// FetchTableStructure returns columns, indexes and constraints of a table.
func (s *Store) FetchTableStructure(ctx context.Context, ref model.TableRef) (*schema.TableStructure, error) {
	return s.reader.FetchTableStructure(ctx, ref.Schema, ref.Table)
}

// ListTables returns the base tables of the database grouped by schema.
func (s *Store) ListTables(ctx context.Context) ([]schema.Schema, error) {
	return s.reader.ListTables(ctx)
}
