package schema

import (
	"strconv"
	"strings"

	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/koustreak/rowcraft/internal/database"
	"github.com/koustreak/rowcraft/internal/errs"
)

// listSep separates names packed into one aggregated catalog value. It is
// chr(31) on the server side and cannot appear in an unquoted identifier.
const listSep = "\x1f"

// record is one decoded catalog row keyed by column name.
type record map[string]codec.CellValue

// decodeRecords decodes every row of res and checks that the columns a
// caller reads are present and that each row is as wide as the field list.
func decodeRecords(reg *codec.Registry, res *database.Result, want ...string) ([]record, error) {
	for _, name := range want {
		if res.FieldIndex(name) < 0 {
			return nil, errs.Newf(errs.ErrKindQueryFailed, "catalog row shape mismatch: missing column %q", name)
		}
	}

	out := make([]record, 0, len(res.Rows))
	for i, raw := range res.Rows {
		if len(raw) != len(res.Fields) {
			return nil, errs.Newf(errs.ErrKindQueryFailed,
				"catalog row shape mismatch: row %d has %d values for %d columns", i, len(raw), len(res.Fields))
		}
		rec := make(record, len(raw))
		for j, f := range res.Fields {
			rec[f.Name] = reg.Decode(raw[j], f.TypeName, f.Format)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r record) str(name string) string {
	v := r[name]
	if v.Kind != codec.KindActual {
		return ""
	}
	return v.Text
}

func (r record) optStr(name string) *string {
	v := r[name]
	if v.Kind != codec.KindActual {
		return nil
	}
	s := v.Text
	return &s
}

func (r record) boolean(name string) bool {
	return r.str(name) == "true"
}

func (r record) integer(name string) int {
	n, _ := strconv.Atoi(r.str(name))
	return n
}

func (r record) optInt(name string) *int {
	v := r[name]
	if v.Kind != codec.KindActual {
		return nil
	}
	n, err := strconv.Atoi(v.Text)
	if err != nil {
		return nil
	}
	return &n
}

func (r record) list(name string) []string {
	s := r.str(name)
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}
