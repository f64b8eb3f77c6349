// Package dbtest provides a scripted database.Conn for package tests.
//
// Usage:
//
//	conn := dbtest.New()
//	conn.On("SELECT *, ctid", dbtest.Text([]string{"id", "ctid"}, []string{"int4", "tid"},
//	    []string{"1", "(0,1)"}))
//	conn.Fail("DELETE", errs.Server("permission denied", "", nil))
package dbtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/koustreak/rowcraft/internal/database"
	"github.com/koustreak/rowcraft/internal/errs"
)

type rule struct {
	contains string
	result   *database.Result
	err      error
	block    bool
}

// Conn answers Execute from rules matched by substring, in registration
// order. It is safe for the concurrent calls the store issues.
type Conn struct {
	mu       sync.Mutex
	rules    []rule
	executed []string
	closed   bool
}

// New returns an empty scripted connection.
func New() *Conn {
	return &Conn{}
}

// On answers statements containing substr with res.
func (c *Conn) On(substr string, res *database.Result) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, rule{contains: substr, result: res})
	return c
}

// Fail answers statements containing substr with err.
func (c *Conn) Fail(substr string, err error) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, rule{contains: substr, err: err})
	return c
}

// Block makes statements containing substr wait until their context ends.
func (c *Conn) Block(substr string) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, rule{contains: substr, block: true})
	return c
}

// Execute implements database.Conn.
func (c *Conn) Execute(ctx context.Context, sql string) (*database.Result, error) {
	c.mu.Lock()
	c.executed = append(c.executed, sql)
	var matched *rule
	for i := range c.rules {
		if strings.Contains(sql, c.rules[i].contains) {
			matched = &c.rules[i]
			break
		}
	}
	c.mu.Unlock()

	if matched == nil {
		return &database.Result{}, nil
	}
	if matched.block {
		<-ctx.Done()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errs.Wrap(errs.ErrKindTimeout, "statement timed out", ctx.Err())
		}
		return nil, errs.Wrap(errs.ErrKindCanceled, "statement cancelled", ctx.Err())
	}
	if matched.err != nil {
		return nil, matched.err
	}
	return matched.result, nil
}

// Close implements database.Conn.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Executed returns every statement seen so far.
func (c *Conn) Executed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.executed))
	copy(out, c.executed)
	return out
}

// ExecutedMatching returns the statements containing substr.
func (c *Conn) ExecutedMatching(substr string) []string {
	var out []string
	for _, s := range c.Executed() {
		if strings.Contains(s, substr) {
			out = append(out, s)
		}
	}
	return out
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Text builds a text-format result. A row value of Null becomes SQL NULL.
func Text(names, types []string, rows ...[]string) *database.Result {
	res := &database.Result{Fields: make([]database.Field, len(names))}
	for i, n := range names {
		res.Fields[i] = database.Field{Name: n, TypeName: types[i], Format: codec.FormatText}
	}
	for _, r := range rows {
		raw := make([][]byte, len(r))
		for i, v := range r {
			if v != Null {
				raw[i] = []byte(v)
			}
		}
		res.Rows = append(res.Rows, raw)
	}
	return res
}

// Null marks a NULL value in Text rows.
const Null = "\x00<null>"
