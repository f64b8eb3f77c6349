package postgres

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const typeNamesQuery = `SELECT oid::text, typname::text FROM pg_catalog.pg_type WHERE oid = ANY($1::oid[])`

// typeNames resolves type OIDs to catalog names. Built-in types come from
// pgtype; everything else (enums, domains, extension types) is looked up in
// pg_type once and cached for the life of the pool.
type typeNames struct {
	mu     sync.RWMutex
	known  *pgtype.Map
	extras map[uint32]string
}

func newTypeNames() *typeNames {
	return &typeNames{known: pgtype.NewMap(), extras: make(map[uint32]string)}
}

// name returns the cached name for oid.
func (t *typeNames) name(oid uint32) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if typ, ok := t.known.TypeForOID(oid); ok {
		return typ.Name, true
	}
	n, ok := t.extras[oid]
	return n, ok
}

// missing returns the OIDs among fields with no cached name.
func (t *typeNames) missing(fields []pgconn.FieldDescription) []uint32 {
	var out []uint32
	seen := make(map[uint32]bool)
	for _, f := range fields {
		if _, ok := t.name(f.DataTypeOID); !ok && !seen[f.DataTypeOID] {
			seen[f.DataTypeOID] = true
			out = append(out, f.DataTypeOID)
		}
	}
	return out
}

// resolve looks up oids on pc and caches the answers. It issues an unnamed
// extended-protocol statement, so callers must re-prepare afterwards.
func (t *typeNames) resolve(ctx context.Context, pc *pgconn.PgConn, oids []uint32) error {
	parts := make([]string, len(oids))
	for i, o := range oids {
		parts[i] = strconv.FormatUint(uint64(o), 10)
	}
	param := []byte("{" + strings.Join(parts, ",") + "}")

	res := pc.ExecParams(ctx, typeNamesQuery, [][]byte{param}, nil, nil, nil).Read()
	if res.Err != nil {
		return res.Err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, row := range res.Rows {
		if len(row) != 2 {
			continue
		}
		oid, err := strconv.ParseUint(string(row[0]), 10, 32)
		if err != nil {
			continue
		}
		t.extras[uint32(oid)] = string(row[1])
	}
	return nil
}
