// Package postgres implements database.Conn on a pgx connection pool.
//
// Each statement is prepared first so the result column types are known
// before execution; the types decoded in binary by the codec registry are
// then requested in binary format and everything else in text.
package postgres

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/koustreak/rowcraft/internal/database"
)

// Conn is a PostgreSQL implementation of database.Conn backed by pgxpool.
// It is safe for concurrent use by multiple goroutines.
type Conn struct {
	pool  *pgxpool.Pool
	reg   *codec.Registry
	types *typeNames
}

// New connects to PostgreSQL using the provided Config and returns a Conn.
// It pings before returning. A nil reg uses codec.DefaultRegistry.
func New(ctx context.Context, cfg *database.Config, reg *codec.Registry) (*Conn, error) {
	if reg == nil {
		reg = codec.DefaultRegistry()
	}

	pool, err := buildPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c := &Conn{pool: pool, reg: reg, types: newTypeNames()}
	if err := c.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return c, nil
}

// Ping verifies the database is reachable by acquiring and releasing a connection.
func (c *Conn) Ping(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool.
func (c *Conn) Close() {
	c.pool.Close()
}

// Execute implements database.Conn.
func (c *Conn) Execute(ctx context.Context, sql string) (*database.Result, error) {
	pc, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, mapError(err, "failed to acquire connection")
	}
	defer pc.Release()

	conn := pc.Conn().PgConn()

	sd, err := conn.Prepare(ctx, "", sql, nil)
	if isMultiCommand(err) {
		return c.execSimple(ctx, conn, sql)
	}
	if err != nil {
		return nil, mapError(err, "failed to prepare statement")
	}

	if missing := c.types.missing(sd.Fields); len(missing) > 0 {
		if err := c.types.resolve(ctx, conn, missing); err != nil {
			return nil, mapError(err, "failed to resolve result types")
		}
		if sd, err = conn.Prepare(ctx, "", sql, nil); err != nil {
			return nil, mapError(err, "failed to prepare statement")
		}
	}

	formats := make([]int16, len(sd.Fields))
	for i, f := range sd.Fields {
		formats[i] = int16(c.reg.PreferredFormat(c.typeName(f.DataTypeOID)))
	}

	res := conn.ExecPrepared(ctx, "", nil, nil, formats).Read()
	if res.Err != nil {
		return nil, mapError(res.Err, "statement failed")
	}
	return c.toResult(sd.Fields, res.Rows, formats, res.CommandTag), nil
}

// execSimple runs multi-statement text over the simple protocol. Only the
// last statement's rows are returned, all in text format.
func (c *Conn) execSimple(ctx context.Context, conn *pgconn.PgConn, sql string) (*database.Result, error) {
	results, err := conn.Exec(ctx, sql).ReadAll()
	if err != nil {
		return nil, mapError(err, "statement failed")
	}
	if len(results) == 0 {
		return &database.Result{}, nil
	}
	last := results[len(results)-1]
	if missing := c.types.missing(last.FieldDescriptions); len(missing) > 0 {
		if err := c.types.resolve(ctx, conn, missing); err != nil {
			return nil, mapError(err, "failed to resolve result types")
		}
	}
	return c.toResult(last.FieldDescriptions, last.Rows, nil, last.CommandTag), nil
}

// toResult names each field's type. formats, when given, are the result
// formats requested at execution and override the described ones.
func (c *Conn) toResult(fields []pgconn.FieldDescription, rows [][][]byte, formats []int16, tag pgconn.CommandTag) *database.Result {
	out := &database.Result{
		Fields:       make([]database.Field, len(fields)),
		Rows:         rows,
		RowsAffected: tag.RowsAffected(),
	}
	for i, f := range fields {
		format := f.Format
		if i < len(formats) {
			format = formats[i]
		}
		out.Fields[i] = database.Field{
			Name:     f.Name,
			TypeName: c.typeName(f.DataTypeOID),
			Format:   codec.Format(format),
		}
	}
	return out
}

func (c *Conn) typeName(oid uint32) string {
	if n, ok := c.types.name(oid); ok {
		return n
	}
	return "oid:" + strconv.FormatUint(uint64(oid), 10)
}
