package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/koustreak/rowcraft/internal/database"
	"github.com/koustreak/rowcraft/internal/database/dbtest"
	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/export"
	"github.com/koustreak/rowcraft/internal/filestore/fstest"
	"github.com/koustreak/rowcraft/internal/logger"
	"github.com/koustreak/rowcraft/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const null = dbtest.Null

func describeUsers() *database.Result {
	return dbtest.Text(
		[]string{
			"column_name", "data_type", "udt_name", "ordinal_position", "is_nullable",
			"column_default", "max_length", "numeric_precision", "numeric_scale",
			"is_primary_key", "foreign_key",
		},
		[]string{"text", "text", "text", "int4", "bool", "text", "int4", "int4", "int4", "bool", "text"},
		[]string{"id", "integer", "int4", "1", "f", null, null, "32", "0", "t", null},
		[]string{"name", "text", "text", "2", "t", null, null, null, null, "f", null},
	)
}

func userRows(rows ...[]string) *database.Result {
	res := dbtest.Text([]string{"id", "name", "ctid"}, []string{"int4", "text", "tid"}, rows...)
	res.RowsAffected = int64(len(rows))
	return res
}

func newServer(conn *dbtest.Conn, exp *export.Exporter) *Server {
	return New(store.New(conn, nil, nil), exp, nil, 50)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(dbtest.New(), nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSelect(t *testing.T) {
	conn := dbtest.New().
		On("information_schema.columns", describeUsers()).
		On(`SELECT *, ctid FROM "public"."users"`, userRows(
			[]string{"1", "Ann", "(0,1)"},
			[]string{"2", null, "(0,2)"},
		))

	rec := do(t, newServer(conn, nil), http.MethodPost, "/tables/public/users/select",
		`{"sort":{"column":"name","direction":"desc"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got resultJSON
	decode(t, rec, &got)
	require.Len(t, got.Columns, 2)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "(0,1)", got.Rows[0].Identity)
	assert.Equal(t, cellJSON{Kind: "actual", Text: "Ann"}, got.Rows[0].Cells[1])
	assert.Equal(t, cellJSON{Kind: "null"}, got.Rows[1].Cells[1])
	require.NotNil(t, got.Context)
	assert.Equal(t, "users", got.Context.Table)

	stmts := conn.ExecutedMatching("SELECT *, ctid")
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], `ORDER BY "name" DESC`)
	assert.Contains(t, stmts[0], "LIMIT 50", "page size applies when no limit is given")
}

func TestExecute(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		conn := dbtest.New().On("SELECT 1", dbtest.Text([]string{"one"}, []string{"int4"}, []string{"1"}))
		rec := do(t, newServer(conn, nil), http.MethodPost, "/query", `{"sql":"SELECT 1 AS one"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var got resultJSON
		decode(t, rec, &got)
		assert.Nil(t, got.Context)
		assert.Equal(t, "", got.Rows[0].Identity)
	})

	t.Run("missing sql", func(t *testing.T) {
		rec := do(t, newServer(dbtest.New(), nil), http.MethodPost, "/query", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body errorJSON
		decode(t, rec, &body)
		assert.Equal(t, "invalid_input", body.Kind)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := do(t, newServer(dbtest.New(), nil), http.MethodPost, "/query", `{"query":"SELECT 1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestInsert(t *testing.T) {
	conn := dbtest.New().
		On("information_schema.columns", describeUsers()).
		On(`INSERT INTO "public"."users"`, userRows([]string{"7", "Bo", "(0,9)"}))

	rec := do(t, newServer(conn, nil), http.MethodPost, "/tables/public/users/rows", `{"values":{"name":"Bo"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got rowJSON
	decode(t, rec, &got)
	assert.Equal(t, "(0,9)", got.Identity)
	assert.Equal(t, []string{
		`INSERT INTO "public"."users" ("id", "name") VALUES (NULL, 'Bo') RETURNING *, ctid`,
	}, conn.ExecutedMatching("INSERT"))
}

func TestInsert_UnknownColumn(t *testing.T) {
	conn := dbtest.New().On("information_schema.columns", describeUsers())

	rec := do(t, newServer(conn, nil), http.MethodPost, "/tables/public/users/rows", `{"values":{"nickname":"B"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, conn.ExecutedMatching("INSERT"))
}

func TestUpdate(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		conn := dbtest.New().
			On("information_schema.columns", describeUsers()).
			On("UPDATE", userRows([]string{"1", "Cy", "(0,5)"}))

		rec := do(t, newServer(conn, nil), http.MethodPatch, "/tables/public/users/rows",
			`{"identity":"(0,1)","values":{"name":"Cy"}}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		assert.Equal(t, []string{
			`UPDATE "public"."users" SET "name" = 'Cy' WHERE ctid = '(0,1)' RETURNING *, ctid`,
		}, conn.ExecutedMatching("UPDATE"))
	})

	t.Run("row gone", func(t *testing.T) {
		conn := dbtest.New().
			On("information_schema.columns", describeUsers()).
			On("UPDATE", userRows())

		rec := do(t, newServer(conn, nil), http.MethodPatch, "/tables/public/users/rows",
			`{"identity":"(0,1)","values":{"name":"Cy"}}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("column attributed failure", func(t *testing.T) {
		conn := dbtest.New().
			On("information_schema.columns", describeUsers()).
			Fail("UPDATE", errs.Server("value too long for type character varying(3)", "name", nil))

		rec := do(t, newServer(conn, nil), http.MethodPatch, "/tables/public/users/rows",
			`{"identity":"(0,1)","values":{"name":"Cynthia"}}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var body errorJSON
		decode(t, rec, &body)
		assert.Equal(t, "name", body.Column)
		assert.Equal(t, "query_failed", body.Kind)
	})

	t.Run("nothing to update", func(t *testing.T) {
		conn := dbtest.New().On("information_schema.columns", describeUsers())

		rec := do(t, newServer(conn, nil), http.MethodPatch, "/tables/public/users/rows", `{"identity":"(0,1)"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestDelete(t *testing.T) {
	conn := dbtest.New().On("DELETE", &database.Result{RowsAffected: 2})

	rec := do(t, newServer(conn, nil), http.MethodDelete, "/tables/public/users/rows",
		`{"identities":["(0,1)","(0,2)"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":2}`, rec.Body.String())
}

func TestPreview(t *testing.T) {
	conn := dbtest.New()
	rec := do(t, newServer(conn, nil), http.MethodPost, "/tables/public/users/rows/preview",
		`{"op":"delete","identities":["(0,3)"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sql":"DELETE FROM \"public\".\"users\" WHERE ctid IN ('(0,3)')"}`, rec.Body.String())
	assert.Empty(t, conn.Executed(), "previews never run")

	rec = do(t, newServer(conn, nil), http.MethodPost, "/tables/public/users/rows/preview", `{"op":"merge"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlterColumn(t *testing.T) {
	conn := dbtest.New()
	rec := do(t, newServer(conn, nil), http.MethodPatch, "/tables/public/users/columns/name",
		`{"nullable":false,"rename_to":"full_name"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	assert.Equal(t, []string{
		`ALTER TABLE "public"."users" ALTER COLUMN "name" SET NOT NULL`,
		`ALTER TABLE "public"."users" RENAME COLUMN "name" TO "full_name"`,
	}, conn.Executed())

	rec = do(t, newServer(conn, nil), http.MethodPatch, "/tables/public/users/columns/name", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDropIndex(t *testing.T) {
	conn := dbtest.New()
	rec := do(t, newServer(conn, nil), http.MethodDelete, "/schemas/public/indexes/users_name_idx?concurrently=true", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{`DROP INDEX CONCURRENTLY "public"."users_name_idx"`}, conn.Executed())
}

func TestDDLPermissionDenied(t *testing.T) {
	conn := dbtest.New().Fail("DROP", errs.New(errs.ErrKindPermissionDenied, "must be owner of table users"))
	rec := do(t, newServer(conn, nil), http.MethodDelete, "/tables/public/users/constraints/users_pkey", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExport(t *testing.T) {
	files := fstest.New()
	exp := export.New(files, "exports", "", nil)
	conn := dbtest.New().On("SELECT", dbtest.Text([]string{"n"}, []string{"int4"}, []string{"1"}, []string{"2"}))
	srv := newServer(conn, exp)

	rec := do(t, srv, http.MethodPost, "/exports", `{"sql":"SELECT n FROM t","format":"csv","name":"nums"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res export.Result
	decode(t, rec, &res)
	assert.Equal(t, 2, res.Rows)
	assert.True(t, strings.HasPrefix(res.Key, "nums-"))

	body, ok := files.Content("exports", res.Key)
	require.True(t, ok)
	assert.Equal(t, "n\n1\n2\n", string(body))

	rec = do(t, srv, http.MethodGet, "/exports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), res.Key)

	rec = do(t, srv, http.MethodGet, "/exports/"+res.Key, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got export.Result
	decode(t, rec, &got)
	assert.Equal(t, 2, got.Rows)

	rec = do(t, srv, http.MethodGet, "/exports/missing.csv", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExport_NotConfigured(t *testing.T) {
	rec := do(t, newServer(dbtest.New(), nil), http.MethodPost, "/exports", `{"sql":"SELECT 1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestsAreLogged(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(&logger.Config{Level: "info", Format: "json", Output: buf})
	srv := New(store.New(dbtest.New(), nil, nil), nil, log, 0)

	do(t, srv, http.MethodGet, "/health", "")
	out := buf.String()
	assert.Contains(t, out, `"path":"/health"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, `"request_id"`)
}

func TestServerErrorsAreLogged(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(&logger.Config{Level: "info", Format: "json", Output: buf})
	conn := dbtest.New().Fail("SELECT", errs.New(errs.ErrKindConnectionFailed, "server closed the connection"))
	srv := New(store.New(conn, nil, nil), nil, log, 0)

	rec := do(t, srv, http.MethodPost, "/query", `{"sql":"SELECT 1"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	out := buf.String()
	assert.Contains(t, out, `"message":"request failed"`)
	assert.Contains(t, out, `"kind":"connection_failed"`)
	assert.Contains(t, out, `"path":"/query"`)
	assert.Contains(t, out, "server closed the connection")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(errs.ErrKindTimeout))
	assert.Equal(t, http.StatusBadGateway, statusFor(errs.ErrKindConnectionFailed))
	assert.Equal(t, http.StatusConflict, statusFor(errs.ErrKindInvalidTransition))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errs.ErrKindUnknown))
}
