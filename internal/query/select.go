// Package query synthesizes the SQL text the store executes: browse
// selects, row mutations addressed by physical row identity, and DDL.
//
// Statements are plain text. Values are inlined as quoted literals through
// codec.EncodeLiteral and identifiers are always double-quoted, because the
// connection contract carries one SQL string and no bind parameters.
//
// Usage:
//
//	sql, err := query.Select(model.QueryParameters{
//	    Target: &model.TableRef{Schema: "public", Table: "users"},
//	    Filter: &model.Filter{Column: "email", Operator: model.OpEndsWith, Value: "@example.com"},
//	    Sort:   &model.Sort{Column: "id", Direction: model.Desc},
//	    Limit:  100,
//	})
package query

import (
	"fmt"
	"strings"

	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/model"
)

// IdentityColumn is the system column used as row identity. It is appended
// to every browse select and every RETURNING list.
const IdentityColumn = "ctid"

// comparisons is the allowlist of filter operators that compare against a
// value. Anything outside this map and the null checks is rejected.
var comparisons = map[model.FilterOperator]string{
	model.OpEquals:         "=",
	model.OpGreaterThan:    ">",
	model.OpLessThan:       "<",
	model.OpGreaterOrEqual: ">=",
	model.OpLessOrEqual:    "<=",
}

// Select builds the browse statement for one page of a table:
//
//	SELECT *, ctid FROM "s"."t" [WHERE ...] [ORDER BY "c" ASC|DESC] [LIMIT n OFFSET m]
func Select(p model.QueryParameters) (string, error) {
	if p.Target == nil {
		return "", errs.New(errs.ErrKindInvalidInput, "select requires a target table")
	}
	if p.Limit < 0 || p.Offset < 0 {
		return "", errs.Newf(errs.ErrKindInvalidInput, "negative limit or offset (%d, %d)", p.Limit, p.Offset)
	}

	var sb strings.Builder
	sb.WriteString("SELECT *, ")
	sb.WriteString(IdentityColumn)
	sb.WriteString(" FROM ")
	sb.WriteString(qualified(*p.Target))

	// --- WHERE ---
	if p.Filter != nil {
		where, err := FilterClause(*p.Filter)
		if err != nil {
			return "", err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	// --- ORDER BY ---
	if p.Sort != nil {
		dir, err := direction(p.Sort.Direction)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", quoteIdent(p.Sort.Column), dir)
	}

	// --- LIMIT / OFFSET ---
	if p.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", p.Limit, p.Offset)
	} else if p.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", p.Offset)
	}

	return sb.String(), nil
}

func direction(d model.SortDirection) (string, error) {
	switch d {
	case model.Asc, "":
		return "ASC", nil
	case model.Desc:
		return "DESC", nil
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported sort direction: %q", d)
}

// FilterClause renders a single filter as a WHERE predicate. The null checks
// ignore Filter.Value.
func FilterClause(f model.Filter) (string, error) {
	if f.Column == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "filter requires a column")
	}
	col := quoteIdent(f.Column)

	switch f.Operator {
	case model.OpIsNull:
		return col + " IS NULL", nil
	case model.OpIsNotNull:
		return col + " IS NOT NULL", nil
	case model.OpContains:
		return col + "::text LIKE " + codec.QuoteLiteral("%"+escapeLike(f.Value)+"%"), nil
	case model.OpStartsWith:
		return col + "::text LIKE " + codec.QuoteLiteral(escapeLike(f.Value)+"%"), nil
	case model.OpEndsWith:
		return col + "::text LIKE " + codec.QuoteLiteral("%"+escapeLike(f.Value)), nil
	}

	op, ok := comparisons[f.Operator]
	if !ok {
		return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported filter operator: %q", f.Operator)
	}
	return fmt.Sprintf("%s %s %s", col, op, codec.QuoteLiteral(f.Value)), nil
}

// escapeLike escapes LIKE wildcards so the value matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// quoteIdent wraps a SQL identifier in double-quotes (ANSI standard).
// This safely handles reserved words and mixed-case names.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// qualified renders "schema"."table".
func qualified(t model.TableRef) string {
	if t.Schema == "" {
		return quoteIdent(t.Table)
	}
	return quoteIdent(t.Schema) + "." + quoteIdent(t.Table)
}

func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
