package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/export"
	"github.com/koustreak/rowcraft/internal/logger"
	"github.com/koustreak/rowcraft/internal/model"
	"github.com/koustreak/rowcraft/internal/schema"
)

func loggerFrom(r *http.Request) *logger.Logger {
	return logger.FromContext(r.Context())
}

func tableRef(r *http.Request) model.TableRef {
	return model.TableRef{Schema: chi.URLParam(r, "schema"), Table: chi.URLParam(r, "table")}
}

func boolQuery(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

type executeRequest struct {
	SQL string `json:"sql"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.SQL == "" {
		writeError(w, r, errs.New(errs.ErrKindInvalidInput, "sql is required"))
		return
	}
	rs, err := s.store.Execute(r.Context(), req.SQL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderResult(rs))
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	schemas, err := s.store.ListTables(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schemas)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	defs, err := s.store.DescribeTable(r.Context(), tableRef(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, defs)
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.FetchTableStructure(r.Context(), tableRef(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// selectParams reads a browse request for the table in the path. A missing
// limit falls back to the configured page size.
func (s *Server) selectParams(r *http.Request) (model.QueryParameters, error) {
	var params model.QueryParameters
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &params); err != nil {
			return params, err
		}
	}
	ref := tableRef(r)
	params.Target = &ref
	if params.Limit == 0 {
		params.Limit = s.pageSize
	}
	return params, nil
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	params, err := s.selectParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rs, err := s.store.Select(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderResult(rs))
}

// rowRequest carries edited cell text keyed by column name. Empty text and
// "NULL" mean NULL.
type rowRequest struct {
	Identity   string            `json:"identity,omitempty"`
	Identities []string          `json:"identities,omitempty"`
	Values     map[string]string `json:"values,omitempty"`
}

// cells describes the table and turns edited text into cells. Every cell is
// returned for an insert; only the named ones, marked dirty, for an update.
func (s *Server) cells(ctx context.Context, ref model.TableRef, values map[string]string, all bool) ([]model.Cell, error) {
	defs, err := s.store.DescribeTable(ctx, ref)
	if err != nil {
		return nil, err
	}
	tmpl := model.TemplateRow(schema.Columns(defs))

	seen := 0
	var out []model.Cell
	for _, c := range tmpl.Cells {
		text, ok := values[c.Column.Name]
		if ok {
			c.Value = model.ParseEditedText(text)
			c.Dirty = true
			seen++
		}
		if ok || all {
			out = append(out, c)
		}
	}
	if seen != len(values) {
		for name := range values {
			if _, ok := tmpl.Cell(name); !ok {
				return nil, errs.Newf(errs.ErrKindInvalidInput, "unknown column %q in %s", name, ref)
			}
		}
	}
	return out, nil
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req rowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ref := tableRef(r)
	cells, err := s.cells(r.Context(), ref, req.Values, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	row, err := s.store.InsertRow(r.Context(), ref, cells)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, renderRow(row))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req rowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ref := tableRef(r)
	cells, err := s.cells(r.Context(), ref, req.Values, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	row, err := s.store.UpdateRow(r.Context(), ref, req.Identity, cells)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderRow(row))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req rowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.store.DeleteRows(r.Context(), tableRef(r), req.Identities)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

type previewRequest struct {
	rowRequest
	Op string `json:"op"`
}

// handlePreview renders the statement an insert, update or delete
// would run, without running it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ref := tableRef(r)

	var (
		sql string
		err error
	)
	switch req.Op {
	case "insert":
		var cells []model.Cell
		if cells, err = s.cells(r.Context(), ref, req.Values, true); err == nil {
			sql, err = s.store.PreviewInsert(ref, cells)
		}
	case "update":
		var cells []model.Cell
		if cells, err = s.cells(r.Context(), ref, req.Values, false); err == nil {
			sql, err = s.store.PreviewUpdate(ref, req.Identity, cells)
		}
	case "delete":
		sql, err = s.store.PreviewDelete(ref, req.Identities)
	default:
		err = errs.Newf(errs.ErrKindInvalidInput, "unknown preview op %q", req.Op)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sql": sql})
}

func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	var col schema.ColumnDefinition
	if err := decodeJSON(r, &col); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.AddColumn(r.Context(), tableRef(r), col); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDropColumn(w http.ResponseWriter, r *http.Request) {
	err := s.store.DropColumn(r.Context(), tableRef(r), chi.URLParam(r, "column"), boolQuery(r, "cascade"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// alterColumnRequest lists the changes to apply to one column. They run in
// field order, with the rename last so earlier steps see the old name.
type alterColumnRequest struct {
	Type        *string `json:"type,omitempty"`
	Using       *string `json:"using,omitempty"`
	Nullable    *bool   `json:"nullable,omitempty"`
	Default     *string `json:"default,omitempty"`
	DropDefault bool    `json:"drop_default,omitempty"`
	RenameTo    *string `json:"rename_to,omitempty"`
}

func (s *Server) handleAlterColumn(w http.ResponseWriter, r *http.Request) {
	var req alterColumnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Type == nil && req.Nullable == nil && req.Default == nil && !req.DropDefault && req.RenameTo == nil {
		writeError(w, r, errs.New(errs.ErrKindInvalidInput, "no column change requested"))
		return
	}
	if req.Default != nil && req.DropDefault {
		writeError(w, r, errs.New(errs.ErrKindInvalidInput, "default and drop_default are exclusive"))
		return
	}

	ctx, ref, name := r.Context(), tableRef(r), chi.URLParam(r, "column")
	steps := []func() error{}
	if req.Type != nil {
		steps = append(steps, func() error { return s.store.AlterColumnType(ctx, ref, name, *req.Type, req.Using) })
	}
	if req.Nullable != nil {
		steps = append(steps, func() error { return s.store.AlterColumnNullability(ctx, ref, name, *req.Nullable) })
	}
	if req.Default != nil || req.DropDefault {
		steps = append(steps, func() error { return s.store.AlterColumnDefault(ctx, ref, name, req.Default) })
	}
	if req.RenameTo != nil {
		steps = append(steps, func() error { return s.store.RenameColumn(ctx, ref, name, *req.RenameTo) })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			writeError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

type createIndexRequest struct {
	Index        schema.IndexDefinition `json:"index"`
	Concurrently bool                   `json:"concurrently"`
}

func (s *Server) handleCreateIndex(w http.ResponseWriter, r *http.Request) {
	var req createIndexRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.CreateIndex(r.Context(), tableRef(r), req.Index, req.Concurrently); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDropIndex(w http.ResponseWriter, r *http.Request) {
	err := s.store.DropIndex(r.Context(), chi.URLParam(r, "schema"), chi.URLParam(r, "name"), boolQuery(r, "concurrently"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddConstraint(w http.ResponseWriter, r *http.Request) {
	var c schema.ConstraintDefinition
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.AddConstraint(r.Context(), tableRef(r), c); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDropConstraint(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DropConstraint(r.Context(), tableRef(r), chi.URLParam(r, "name")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exportRequest exports either an ad-hoc statement or a table browse.
type exportRequest struct {
	SQL    string                 `json:"sql,omitempty"`
	Select *model.QueryParameters `json:"select,omitempty"`
	Format string                 `json:"format"`
	Name   string                 `json:"name,omitempty"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, r, errs.New(errs.ErrKindNotFound, "export is not configured"))
		return
	}
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var rs *model.ResultSet
	switch {
	case req.SQL != "" && req.Select != nil:
		err = errs.New(errs.ErrKindInvalidInput, "sql and select are exclusive")
	case req.SQL != "":
		rs, err = s.store.Execute(r.Context(), req.SQL)
	case req.Select != nil:
		rs, err = s.store.Select(r.Context(), *req.Select)
	default:
		err = errs.New(errs.ErrKindInvalidInput, "sql or select is required")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.exporter.Export(r.Context(), rs, format, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, r, errs.New(errs.ErrKindNotFound, "export is not configured"))
		return
	}
	objs, err := s.exporter.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, objs)
}

func (s *Server) handleLookupExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, r, errs.New(errs.ErrKindNotFound, "export is not configured"))
		return
	}
	res, err := s.exporter.Lookup(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
