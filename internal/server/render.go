package server

import (
	"encoding/json"
	"net/http"

	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/model"
)

type cellJSON struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

type rowJSON struct {
	Identity string     `json:"identity,omitempty"`
	Cells    []cellJSON `json:"cells"`
}

type resultJSON struct {
	Columns []model.Column  `json:"columns"`
	Rows    []rowJSON       `json:"rows"`
	Context *model.TableRef `json:"context,omitempty"`
}

func renderRow(r model.Row) rowJSON {
	out := rowJSON{Identity: r.Identity, Cells: make([]cellJSON, len(r.Cells))}
	for i, c := range r.Cells {
		out.Cells[i] = cellJSON{Kind: c.Value.Kind.String(), Text: c.Value.Text}
	}
	return out
}

func renderResult(rs *model.ResultSet) resultJSON {
	out := resultJSON{Columns: rs.Columns, Rows: make([]rowJSON, len(rs.Rows)), Context: rs.Context}
	if out.Columns == nil {
		out.Columns = []model.Column{}
	}
	for i, r := range rs.Rows {
		out.Rows[i] = renderRow(r)
	}
	return out
}

type errorJSON struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Column string `json:"column,omitempty"`
}

func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindNothingToUpdate, errs.ErrKindInvalidTransition:
		return http.StatusConflict
	case errs.ErrKindQueryFailed:
		return http.StatusUnprocessableEntity
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindConnectionFailed, errs.ErrKindSSLUnsupported:
		return http.StatusBadGateway
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindCanceled:
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	body := errorJSON{Error: err.Error(), Kind: kind.String()}
	if col, ok := errs.ColumnOf(err); ok {
		body.Column = col
	}
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		loggerFrom(r).ErrorWith("request failed", err, map[string]any{
			"kind":   kind.String(),
			"method": r.Method,
			"path":   r.URL.Path,
		})
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err)
	}
	return nil
}
