package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/model"
	"github.com/koustreak/rowcraft/internal/schema"
)

// typeName accepts type spellings such as "integer", "varchar(255)",
// "numeric(10, 2)", "timestamp(3) with time zone", "public.mood" or "text[]".
var typeName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_ .]*(\(\s*\d+\s*(,\s*\d+\s*)?\))?[A-Za-z ]*(\[\d*\])*$`)

// indexMethods is the allowlist of access methods for CreateIndex.
var indexMethods = map[string]bool{
	"btree":  true,
	"hash":   true,
	"gist":   true,
	"spgist": true,
	"gin":    true,
	"brin":   true,
}

func alterTable(target model.TableRef) string {
	return "ALTER TABLE " + qualified(target)
}

func checkType(t string) error {
	if !typeName.MatchString(strings.TrimSpace(t)) {
		return errs.Newf(errs.ErrKindInvalidInput, "invalid column type: %q", t)
	}
	return nil
}

func checkName(what, name string) error {
	if name == "" {
		return errs.Newf(errs.ErrKindInvalidInput, "%s name is required", what)
	}
	return nil
}

// AddColumn builds ALTER TABLE ... ADD COLUMN from a column definition.
// Name, DataType, IsNullable and Default are used; Default is SQL text and
// is inserted verbatim.
func AddColumn(target model.TableRef, col schema.ColumnDefinition) (string, error) {
	if err := checkName("column", col.Name); err != nil {
		return "", err
	}
	if err := checkType(col.DataType); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s ADD COLUMN %s %s", alterTable(target), quoteIdent(col.Name), strings.TrimSpace(col.DataType))
	if !col.IsNullable {
		sb.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(*col.Default)
	}
	return sb.String(), nil
}

// DropColumn builds ALTER TABLE ... DROP COLUMN.
func DropColumn(target model.TableRef, name string, cascade bool) (string, error) {
	if err := checkName("column", name); err != nil {
		return "", err
	}
	stmt := alterTable(target) + " DROP COLUMN " + quoteIdent(name)
	if cascade {
		stmt += " CASCADE"
	}
	return stmt, nil
}

// RenameColumn builds ALTER TABLE ... RENAME COLUMN.
func RenameColumn(target model.TableRef, from, to string) (string, error) {
	if err := checkName("column", from); err != nil {
		return "", err
	}
	if err := checkName("new column", to); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s RENAME COLUMN %s TO %s", alterTable(target), quoteIdent(from), quoteIdent(to)), nil
}

// AlterColumnType builds ALTER COLUMN ... TYPE with an optional USING
// expression.
func AlterColumnType(target model.TableRef, name, newType string, using *string) (string, error) {
	if err := checkName("column", name); err != nil {
		return "", err
	}
	if err := checkType(newType); err != nil {
		return "", err
	}
	stmt := fmt.Sprintf("%s ALTER COLUMN %s TYPE %s", alterTable(target), quoteIdent(name), strings.TrimSpace(newType))
	if using != nil && *using != "" {
		stmt += " USING " + *using
	}
	return stmt, nil
}

// AlterColumnNullability builds ALTER COLUMN ... SET/DROP NOT NULL.
func AlterColumnNullability(target model.TableRef, name string, nullable bool) (string, error) {
	if err := checkName("column", name); err != nil {
		return "", err
	}
	action := "SET NOT NULL"
	if nullable {
		action = "DROP NOT NULL"
	}
	return fmt.Sprintf("%s ALTER COLUMN %s %s", alterTable(target), quoteIdent(name), action), nil
}

// AlterColumnDefault builds ALTER COLUMN ... SET DEFAULT, or DROP DEFAULT
// when def is nil.
func AlterColumnDefault(target model.TableRef, name string, def *string) (string, error) {
	if err := checkName("column", name); err != nil {
		return "", err
	}
	action := "DROP DEFAULT"
	if def != nil {
		action = "SET DEFAULT " + *def
	}
	return fmt.Sprintf("%s ALTER COLUMN %s %s", alterTable(target), quoteIdent(name), action), nil
}

// CreateIndex builds CREATE [UNIQUE] INDEX [CONCURRENTLY] from an index
// definition. Name, Columns, IsUnique and Method are used; an empty Method
// means btree.
func CreateIndex(target model.TableRef, idx schema.IndexDefinition, concurrently bool) (string, error) {
	if err := checkName("index", idx.Name); err != nil {
		return "", err
	}
	if len(idx.Columns) == 0 {
		return "", errs.New(errs.ErrKindInvalidInput, "index requires at least one column")
	}
	method := strings.ToLower(idx.Method)
	if method == "" {
		method = "btree"
	}
	if !indexMethods[method] {
		return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported index method: %q", idx.Method)
	}

	var sb strings.Builder
	sb.WriteString("CREATE ")
	if idx.IsUnique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	if concurrently {
		sb.WriteString("CONCURRENTLY ")
	}
	fmt.Fprintf(&sb, "%s ON %s USING %s (%s)", quoteIdent(idx.Name), qualified(target), method, quoteIdents(idx.Columns))
	return sb.String(), nil
}

// DropIndex builds DROP INDEX [CONCURRENTLY] "schema"."name".
func DropIndex(schemaName, name string, concurrently bool) (string, error) {
	if err := checkName("index", name); err != nil {
		return "", err
	}
	stmt := "DROP INDEX "
	if concurrently {
		stmt += "CONCURRENTLY "
	}
	return stmt + qualified(model.TableRef{Schema: schemaName, Table: name}), nil
}

// AddConstraint builds ALTER TABLE ... ADD CONSTRAINT. Exclusion constraints
// are refused.
func AddConstraint(target model.TableRef, c schema.ConstraintDefinition) (string, error) {
	if err := checkName("constraint", c.Name); err != nil {
		return "", err
	}

	var body string
	switch c.Kind {
	case schema.ConstraintPrimaryKey, schema.ConstraintUnique:
		if len(c.Columns) == 0 {
			return "", errs.Newf(errs.ErrKindInvalidInput, "%s constraint requires columns", c.Kind)
		}
		body = fmt.Sprintf("%s (%s)", c.Kind, quoteIdents(c.Columns))

	case schema.ConstraintCheck:
		if c.CheckExpression == nil || strings.TrimSpace(*c.CheckExpression) == "" {
			return "", errs.New(errs.ErrKindInvalidInput, "CHECK constraint requires an expression")
		}
		body = fmt.Sprintf("CHECK (%s)", *c.CheckExpression)

	case schema.ConstraintForeignKey:
		fk, err := foreignKeyBody(c)
		if err != nil {
			return "", err
		}
		body = fk

	case schema.ConstraintExclusion:
		return "", errs.New(errs.ErrKindInvalidInput, "exclusion constraints cannot be added from a definition")

	default:
		return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported constraint kind: %q", c.Kind)
	}

	return fmt.Sprintf("%s ADD CONSTRAINT %s %s", alterTable(target), quoteIdent(c.Name), body), nil
}

func foreignKeyBody(c schema.ConstraintDefinition) (string, error) {
	if len(c.Columns) == 0 || c.ForeignKey == nil || c.ForeignKey.Table == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "FOREIGN KEY constraint requires columns and a target table")
	}
	refCols := c.ForeignColumns
	if len(refCols) == 0 && c.ForeignKey.Column != "" {
		refCols = []string{c.ForeignKey.Column}
	}
	if len(refCols) != len(c.Columns) {
		return "", errs.Newf(errs.ErrKindInvalidInput,
			"FOREIGN KEY has %d columns but references %d", len(c.Columns), len(refCols))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "FOREIGN KEY (%s) REFERENCES %s (%s)",
		quoteIdents(c.Columns),
		qualified(model.TableRef{Schema: c.ForeignKey.Schema, Table: c.ForeignKey.Table}),
		quoteIdents(refCols))

	for _, ra := range []struct {
		clause string
		action *schema.ReferentialAction
	}{{"ON DELETE", c.OnDelete}, {"ON UPDATE", c.OnUpdate}} {
		if ra.action == nil {
			continue
		}
		if !ra.action.Valid() {
			return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported referential action: %q", *ra.action)
		}
		fmt.Fprintf(&sb, " %s %s", ra.clause, *ra.action)
	}
	return sb.String(), nil
}

// DropConstraint builds ALTER TABLE ... DROP CONSTRAINT.
func DropConstraint(target model.TableRef, name string) (string, error) {
	if err := checkName("constraint", name); err != nil {
		return "", err
	}
	return alterTable(target) + " DROP CONSTRAINT " + quoteIdent(name), nil
}
