package query

import (
	"strings"

	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/model"
)

const returning = " RETURNING *, " + IdentityColumn

// Insert builds an INSERT carrying every cell of a new row; NULL cells are
// sent as NULL. Unsupported and Unparseable cells are never submitted.
func Insert(target model.TableRef, cells []model.Cell) (string, error) {
	if target.Table == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "insert requires a target table")
	}

	var cols, vals []string
	for _, c := range cells {
		if !c.Value.Submittable() {
			continue
		}
		cols = append(cols, quoteIdent(c.Column.Name))
		vals = append(vals, codec.EncodeLiteral(c.Value))
	}
	if len(cols) == 0 {
		return "", errs.New(errs.ErrKindInvalidInput, "insert has no submittable cells")
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(qualified(target))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(strings.Join(vals, ", "))
	sb.WriteString(")")
	sb.WriteString(returning)
	return sb.String(), nil
}

// Update builds an UPDATE touching only dirty, submittable cells of the row
// at identity. An empty diff is refused with NothingToUpdate.
func Update(target model.TableRef, identity string, cells []model.Cell) (string, error) {
	if target.Table == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "update requires a target table")
	}
	if identity == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "update requires a row identity")
	}

	var sets []string
	for _, c := range cells {
		if !c.Dirty || !c.Value.Submittable() {
			continue
		}
		sets = append(sets, quoteIdent(c.Column.Name)+" = "+codec.EncodeLiteral(c.Value))
	}
	if len(sets) == 0 {
		return "", errs.New(errs.ErrKindNothingToUpdate, "no changed cells to update")
	}

	return "UPDATE " + qualified(target) +
		" SET " + strings.Join(sets, ", ") +
		" WHERE " + IdentityColumn + " = " + codec.QuoteLiteral(identity) +
		returning, nil
}

// Delete builds one DELETE for a batch of rows. Identities are deduplicated,
// keeping first-seen order.
func Delete(target model.TableRef, identities []string) (string, error) {
	if target.Table == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "delete requires a target table")
	}

	seen := make(map[string]struct{}, len(identities))
	var lits []string
	for _, id := range identities {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		lits = append(lits, codec.QuoteLiteral(id))
	}
	if len(lits) == 0 {
		return "", errs.New(errs.ErrKindInvalidInput, "delete requires at least one row identity")
	}

	return "DELETE FROM " + qualified(target) +
		" WHERE " + IdentityColumn + " IN (" + strings.Join(lits, ", ") + ")", nil
}
