package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/koustreak/rowcraft/internal/database"
	"github.com/koustreak/rowcraft/internal/model"
	"golang.org/x/sync/errgroup"
)

// PgIntrospector implements Reader for PostgreSQL using information_schema
// and pg_catalog.
type PgIntrospector struct {
	conn database.Conn
	reg  *codec.Registry
}

// NewPgIntrospector creates a new Postgres schema introspector. A nil
// registry means codec.DefaultRegistry.
func NewPgIntrospector(conn database.Conn, reg *codec.Registry) *PgIntrospector {
	if reg == nil {
		reg = codec.DefaultRegistry()
	}
	return &PgIntrospector{conn: conn, reg: reg}
}

// ListTables returns all base tables grouped by schema. User schemas come
// first, then information_schema and the pg_* system schemas; each group
// and each table list is alphabetical.
func (p *PgIntrospector) ListTables(ctx context.Context) ([]Schema, error) {
	const q = `
		SELECT table_schema::text AS table_schema, table_name::text AS table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		ORDER BY table_schema, table_name`

	res, err := p.conn.Execute(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	recs, err := decodeRecords(p.reg, res, "table_schema", "table_name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	index := make(map[string]int)
	var schemas []Schema
	for _, r := range recs {
		name := r.str("table_schema")
		i, ok := index[name]
		if !ok {
			i = len(schemas)
			index[name] = i
			schemas = append(schemas, Schema{Name: name})
		}
		schemas[i].Tables = append(schemas[i].Tables, Table{Schema: name, Name: r.str("table_name")})
	}

	sortSchemas(schemas)
	return schemas, nil
}

// IsSystemSchema reports whether name is a catalog schema rather than a
// user namespace.
func IsSystemSchema(name string) bool {
	return name == "information_schema" || strings.HasPrefix(name, "pg_")
}

func sortSchemas(schemas []Schema) {
	sort.SliceStable(schemas, func(i, j int) bool {
		si, sj := IsSystemSchema(schemas[i].Name), IsSystemSchema(schemas[j].Name)
		if si != sj {
			return !si
		}
		return schemas[i].Name < schemas[j].Name
	})
	for _, s := range schemas {
		sort.SliceStable(s.Tables, func(i, j int) bool {
			return s.Tables[i].Name < s.Tables[j].Name
		})
	}
}

// DescribeColumns returns column details for a single table. The foreign key
// target of each column is resolved with string_agg over the constraint
// views; Position is renumbered from 0 in ordinal order.
func (p *PgIntrospector) DescribeColumns(ctx context.Context, schema, table string) ([]ColumnDefinition, error) {
	s, t := codec.QuoteLiteral(schema), codec.QuoteLiteral(table)
	q := `
		SELECT
			c.column_name::text                AS column_name,
			c.data_type::text                  AS data_type,
			c.udt_name::text                   AS udt_name,
			c.ordinal_position::int            AS ordinal_position,
			c.is_nullable = 'YES'              AS is_nullable,
			c.column_default::text             AS column_default,
			c.character_maximum_length::int    AS max_length,
			c.numeric_precision::int           AS numeric_precision,
			c.numeric_scale::int               AS numeric_scale,
			COALESCE(pk.is_pk, false)          AS is_primary_key,
			fk.target                          AS foreign_key
		FROM information_schema.columns c

		-- Primary key check
		LEFT JOIN (
			SELECT DISTINCT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
				AND tc.table_name = kcu.table_name
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_schema = ` + s + `
			  AND tc.table_name   = ` + t + `
		) pk ON pk.column_name = c.column_name

		-- Foreign key target, packed as schema<US>table<US>column
		LEFT JOIN (
			SELECT
				kcu.column_name,
				string_agg(
					ccu.table_schema || chr(31) || ccu.table_name || chr(31) || ccu.column_name,
					chr(30) ORDER BY tc.constraint_name
				)::text AS target
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
				AND tc.table_name = kcu.table_name
			JOIN information_schema.constraint_column_usage ccu
				ON ccu.constraint_name = tc.constraint_name
				AND ccu.constraint_schema = tc.constraint_schema
			WHERE tc.constraint_type = 'FOREIGN KEY'
			  AND tc.table_schema = ` + s + `
			  AND tc.table_name   = ` + t + `
			GROUP BY kcu.column_name
		) fk ON fk.column_name = c.column_name

		WHERE c.table_schema = ` + s + ` AND c.table_name = ` + t + `
		ORDER BY c.ordinal_position`

	res, err := p.conn.Execute(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("describe columns %s.%s: %w", schema, table, err)
	}
	recs, err := decodeRecords(p.reg, res,
		"column_name", "data_type", "udt_name", "ordinal_position", "is_nullable",
		"column_default", "max_length", "numeric_precision", "numeric_scale",
		"is_primary_key", "foreign_key")
	if err != nil {
		return nil, fmt.Errorf("describe columns %s.%s: %w", schema, table, err)
	}

	cols := make([]ColumnDefinition, 0, len(recs))
	for i, r := range recs {
		col := ColumnDefinition{
			Name:         r.str("column_name"),
			DataType:     r.str("data_type"),
			UDTName:      r.str("udt_name"),
			Category:     codec.CategoryOf(r.str("udt_name")),
			Position:     i,
			Ordinal:      r.integer("ordinal_position"),
			IsNullable:   r.boolean("is_nullable"),
			Default:      r.optStr("column_default"),
			MaxLength:    r.optInt("max_length"),
			Precision:    r.optInt("numeric_precision"),
			Scale:        r.optInt("numeric_scale"),
			IsPrimaryKey: r.boolean("is_primary_key"),
		}
		if fk := parseTarget(r.str("foreign_key")); fk != nil {
			col.IsForeignKey = true
			col.ForeignKey = fk
		}
		cols = append(cols, col)
	}
	return cols, nil
}

// parseTarget reads the first target of an aggregated foreign key value.
func parseTarget(packed string) *ForeignKeyTarget {
	if packed == "" {
		return nil
	}
	first, _, _ := strings.Cut(packed, "\x1e")
	parts := strings.Split(first, listSep)
	if len(parts) != 3 {
		return nil
	}
	return &ForeignKeyTarget{Schema: parts[0], Table: parts[1], Column: parts[2]}
}

// FetchIndexes returns every index on a table, including the one backing the
// primary key.
func (p *PgIntrospector) FetchIndexes(ctx context.Context, schema, table string) ([]IndexDefinition, error) {
	q := `
		SELECT
			i.relname::text                               AS index_name,
			t.relname::text                               AS table_name,
			string_agg(a.attname::text, chr(31) ORDER BY k.n) AS columns,
			ix.indisunique                                AS is_unique,
			ix.indisprimary                               AS is_primary,
			am.amname::text                               AS method,
			pg_get_indexdef(ix.indexrelid)                AS definition
		FROM pg_catalog.pg_index ix
		JOIN pg_catalog.pg_class t ON t.oid = ix.indrelid
		JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_catalog.pg_am am ON am.oid = i.relam
		CROSS JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, n)
		LEFT JOIN pg_catalog.pg_attribute a
			ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = ` + codec.QuoteLiteral(schema) + `
		  AND t.relname = ` + codec.QuoteLiteral(table) + `
		GROUP BY i.relname, t.relname, ix.indisunique, ix.indisprimary, am.amname, ix.indexrelid
		ORDER BY i.relname`

	res, err := p.conn.Execute(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch indexes %s.%s: %w", schema, table, err)
	}
	recs, err := decodeRecords(p.reg, res,
		"index_name", "table_name", "columns", "is_unique", "is_primary", "method", "definition")
	if err != nil {
		return nil, fmt.Errorf("fetch indexes %s.%s: %w", schema, table, err)
	}

	indexes := make([]IndexDefinition, 0, len(recs))
	for _, r := range recs {
		indexes = append(indexes, IndexDefinition{
			Name:       r.str("index_name"),
			Table:      r.str("table_name"),
			Columns:    r.list("columns"),
			IsUnique:   r.boolean("is_unique"),
			IsPrimary:  r.boolean("is_primary"),
			Method:     r.str("method"),
			Definition: r.str("definition"),
		})
	}
	return indexes, nil
}

// constraintKinds maps pg_constraint.contype to a ConstraintKind. Other codes
// (constraint triggers, not-null entries) are not listed.
var constraintKinds = map[string]ConstraintKind{
	"p": ConstraintPrimaryKey,
	"f": ConstraintForeignKey,
	"u": ConstraintUnique,
	"c": ConstraintCheck,
	"x": ConstraintExclusion,
}

// referentialActions maps pg_constraint.confdeltype / confupdtype codes.
var referentialActions = map[string]ReferentialAction{
	"a": ActionNoAction,
	"r": ActionRestrict,
	"c": ActionCascade,
	"n": ActionSetNull,
	"d": ActionSetDefault,
}

// FetchConstraints returns the constraints of a table. Rows whose kind is not
// recognised are dropped.
func (p *PgIntrospector) FetchConstraints(ctx context.Context, schema, table string) ([]ConstraintDefinition, error) {
	q := `
		SELECT
			con.conname::text AS constraint_name,
			con.contype::text AS constraint_type,
			(
				SELECT string_agg(a.attname::text, chr(31) ORDER BY k.n)
				FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, n)
				JOIN pg_catalog.pg_attribute a
					ON a.attrelid = con.conrelid AND a.attnum = k.attnum
			) AS columns,
			CASE WHEN con.contype = 'c'
				THEN pg_get_expr(con.conbin, con.conrelid)
			END AS check_expression,
			fn.nspname::text AS foreign_schema,
			ft.relname::text AS foreign_table,
			(
				SELECT string_agg(a.attname::text, chr(31) ORDER BY k.n)
				FROM unnest(con.confkey) WITH ORDINALITY AS k(attnum, n)
				JOIN pg_catalog.pg_attribute a
					ON a.attrelid = con.confrelid AND a.attnum = k.attnum
			) AS foreign_columns,
			CASE WHEN con.contype = 'f' THEN con.confdeltype::text END AS on_delete,
			CASE WHEN con.contype = 'f' THEN con.confupdtype::text END AS on_update
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class t ON t.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
		LEFT JOIN pg_catalog.pg_class ft ON ft.oid = con.confrelid
		LEFT JOIN pg_catalog.pg_namespace fn ON fn.oid = ft.relnamespace
		WHERE n.nspname = ` + codec.QuoteLiteral(schema) + `
		  AND t.relname = ` + codec.QuoteLiteral(table) + `
		ORDER BY con.conname`

	res, err := p.conn.Execute(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch constraints %s.%s: %w", schema, table, err)
	}
	recs, err := decodeRecords(p.reg, res,
		"constraint_name", "constraint_type", "columns", "check_expression",
		"foreign_schema", "foreign_table", "foreign_columns", "on_delete", "on_update")
	if err != nil {
		return nil, fmt.Errorf("fetch constraints %s.%s: %w", schema, table, err)
	}

	constraints := make([]ConstraintDefinition, 0, len(recs))
	for _, r := range recs {
		kind, ok := constraintKinds[r.str("constraint_type")]
		if !ok {
			continue
		}
		c := ConstraintDefinition{
			Name:            r.str("constraint_name"),
			Kind:            kind,
			Columns:         r.list("columns"),
			CheckExpression: r.optStr("check_expression"),
		}
		if kind == ConstraintForeignKey {
			c.ForeignColumns = r.list("foreign_columns")
			target := &ForeignKeyTarget{Schema: r.str("foreign_schema"), Table: r.str("foreign_table")}
			if len(c.ForeignColumns) > 0 {
				target.Column = c.ForeignColumns[0]
			}
			c.ForeignKey = target
			c.OnDelete = action(r.str("on_delete"))
			c.OnUpdate = action(r.str("on_update"))
		}
		constraints = append(constraints, c)
	}
	return constraints, nil
}

func action(code string) *ReferentialAction {
	a, ok := referentialActions[code]
	if !ok {
		return nil
	}
	return &a
}

// FetchTableStructure runs the column, index and constraint fetches
// concurrently and combines them once all three complete.
func (p *PgIntrospector) FetchTableStructure(ctx context.Context, schema, table string) (*TableStructure, error) {
	var st TableStructure
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cols, err := p.DescribeColumns(gctx, schema, table)
		st.Columns = cols
		return err
	})
	g.Go(func() error {
		idx, err := p.FetchIndexes(gctx, schema, table)
		st.Indexes = idx
		return err
	})
	g.Go(func() error {
		cons, err := p.FetchConstraints(gctx, schema, table)
		st.Constraints = cons
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

// Columns converts schema column definitions into the result column shape.
func Columns(defs []ColumnDefinition) []model.Column {
	cols := make([]model.Column, len(defs))
	for i, d := range defs {
		cols[i] = model.Column{
			Name:       d.Name,
			DataType:   d.DataType,
			UDTName:    d.UDTName,
			Category:   d.Category,
			Position:   d.Position,
			ForeignKey: d.ForeignKey,
		}
	}
	return cols
}
