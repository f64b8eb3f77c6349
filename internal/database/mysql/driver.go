// Package mysql implements database.Conn for MySQL profiles.
//
// MySQL has no physical row locator, so results from this driver never carry
// a table context: they feed the ad-hoc query console only. Every value
// arrives in text format.
package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/koustreak/rowcraft/internal/database"
)

// Conn is a MySQL implementation of database.Conn backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Conn struct {
	db *sql.DB
}

// New opens a MySQL connection pool using the provided Config and pings it.
func New(ctx context.Context, cfg *database.Config) (*Conn, error) {
	db, err := buildPool(cfg)
	if err != nil {
		return nil, err
	}

	c := &Conn{db: db}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := c.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Conn) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (c *Conn) Close() {
	_ = c.db.Close()
}

// Execute implements database.Conn.
func (c *Conn) Execute(ctx context.Context, query string) (*database.Result, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err, "statement failed")
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, mapError(err, "failed to read column types")
	}

	res := &database.Result{Fields: make([]database.Field, len(types))}
	for i, t := range types {
		res.Fields[i] = database.Field{
			Name:     t.Name(),
			TypeName: strings.ToLower(t.DatabaseTypeName()),
			Format:   codec.FormatText,
		}
	}

	for rows.Next() {
		raw := make([]sql.RawBytes, len(types))
		dest := make([]any, len(types))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, mapError(err, "failed to scan row")
		}

		// RawBytes point into the driver buffer; copy before the next row.
		row := make([][]byte, len(raw))
		for i, b := range raw {
			if b != nil {
				row[i] = append([]byte{}, b...)
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error during row iteration")
	}
	res.RowsAffected = int64(len(res.Rows))
	return res, nil
}
