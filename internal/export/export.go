// Package export writes result sets to the object store as CSV or JSON
// lines.
//
// NULL cells are written as an empty CSV field or a JSON null. Unsupported
// and Unparseable cells carry no value and are written the same way.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/koustreak/rowcraft/internal/errs"
	"github.com/koustreak/rowcraft/internal/filestore"
	"github.com/koustreak/rowcraft/internal/logger"
	"github.com/koustreak/rowcraft/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV       Format = "csv"
	FormatJSONLines Format = "jsonl"
)

const urlExpiry = 24 * time.Hour

// ParseFormat accepts "csv", "jsonl" and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "":
		return FormatCSV, nil
	case "jsonl", "json", "ndjson":
		return FormatJSONLines, nil
	}
	return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported export format: %q", s)
}

func (f Format) contentType() string {
	if f == FormatJSONLines {
		return "application/x-ndjson"
	}
	return "text/csv"
}

// Result describes a finished export.
type Result struct {
	Bucket string                `json:"bucket"`
	Key    string                `json:"key"`
	Rows   int                   `json:"rows"`
	URL    string                `json:"url,omitempty"`
	Object *filestore.ObjectInfo `json:"object"`
}

// Exporter uploads result sets to one bucket.
type Exporter struct {
	files  filestore.Store
	bucket string
	prefix string
	log    *logger.Logger
	now    func() time.Time
}

// New returns an Exporter writing under prefix in bucket.
func New(files filestore.Store, bucket, prefix string, log *logger.Logger) *Exporter {
	if log == nil {
		log = logger.Nop()
	}
	return &Exporter{files: files, bucket: bucket, prefix: prefix, log: log, now: time.Now}
}

// Export streams rs to the object store. name is the base of the object key;
// when empty it is derived from the result's table context. The returned
// URL is presigned for a day.
func (e *Exporter) Export(ctx context.Context, rs *model.ResultSet, format Format, name string) (*Result, error) {
	if rs == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "nothing to export")
	}
	if err := e.files.EnsureBucket(ctx, e.bucket); err != nil {
		return nil, err
	}

	key := e.key(rs, format, name)

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(Write(pw, rs, format))
	}()

	info, err := e.files.PutObject(ctx, e.bucket, key, pr, filestore.PutOptions{
		ContentType: format.contentType(),
		Size:        -1,
		Metadata:    metadata(rs, format),
	})
	// Unblocks the writer if the upload stopped reading early.
	pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		e.log.With().Str("bucket", e.bucket).Str("key", key).Err(err).Logger().Error("export failed")
		return nil, err
	}

	res := &Result{Bucket: e.bucket, Key: key, Rows: len(rs.Rows), Object: info}
	res.URL = e.presign(ctx, key)

	e.log.InfoWith("export written", map[string]any{"bucket": e.bucket, "key": key, "rows": res.Rows})
	return res, nil
}

// List returns previous exports under the exporter's prefix, newest first.
func (e *Exporter) List(ctx context.Context) ([]filestore.ObjectInfo, error) {
	objs, err := e.files.ListObjects(ctx, e.bucket, filestore.ListOptions{Prefix: e.prefix, Recursive: true})
	if err != nil {
		return nil, err
	}
	out := objs[:0]
	for _, o := range objs {
		if !o.IsDir {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	return out, nil
}

// Lookup describes an earlier export and issues a fresh download URL.
func (e *Exporter) Lookup(ctx context.Context, key string) (*Result, error) {
	if !strings.HasPrefix(key, e.prefix) {
		return nil, errs.Newf(errs.ErrKindNotFound, "export %q not found", key)
	}
	info, err := e.files.StatObject(ctx, e.bucket, key)
	if err != nil {
		return nil, err
	}
	res := &Result{Bucket: e.bucket, Key: key, Object: info, URL: e.presign(ctx, key)}
	res.Rows, _ = strconv.Atoi(info.Metadata[metaRows])
	return res, nil
}

func (e *Exporter) presign(ctx context.Context, key string) string {
	url, err := e.files.PresignGetURL(ctx, e.bucket, key, urlExpiry)
	if err != nil {
		e.log.With().Str("key", key).Err(err).Logger().Warn("presign failed")
		return ""
	}
	return url
}

// Object metadata keys written with every export.
const (
	metaRows   = "rows"
	metaSource = "source"
	metaFormat = "format"
)

func metadata(rs *model.ResultSet, format Format) map[string]string {
	m := map[string]string{
		metaRows:   strconv.Itoa(len(rs.Rows)),
		metaFormat: string(format),
	}
	if rs.Context != nil {
		m[metaSource] = rs.Context.String()
	}
	return m
}

var unsafeKey = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (e *Exporter) key(rs *model.ResultSet, format Format, name string) string {
	if name == "" {
		name = "query"
		if rs.Context != nil {
			name = rs.Context.Schema + "." + rs.Context.Table
		}
	}
	name = strings.Trim(unsafeKey.ReplaceAllString(name, "_"), "._")
	if name == "" {
		name = "export"
	}
	return fmt.Sprintf("%s%s-%s.%s", e.prefix, name, e.now().UTC().Format("20060102T150405Z"), format)
}

// Write encodes rs to w in the given format.
func Write(w io.Writer, rs *model.ResultSet, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rs)
	case FormatJSONLines:
		return WriteJSONLines(w, rs)
	}
	return errs.Newf(errs.ErrKindInvalidInput, "unsupported export format: %q", format)
}

// WriteCSV writes a header of column names followed by one record per row.
func WriteCSV(w io.Writer, rs *model.ResultSet) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(rs.Columns))
	for _, r := range rs.Rows {
		for i := range record {
			record[i] = ""
			if i < len(r.Cells) && r.Cells[i].Value.Kind == codec.KindActual {
				record[i] = r.Cells[i].Value.Text
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSONLines writes one JSON object per row, keys in column order.
func WriteJSONLines(w io.Writer, rs *model.ResultSet) error {
	keys := make([][]byte, len(rs.Columns))
	for i, c := range rs.Columns {
		k, err := json.Marshal(c.Name)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	var line []byte
	for _, r := range rs.Rows {
		line = append(line[:0], '{')
		for i, k := range keys {
			if i > 0 {
				line = append(line, ',')
			}
			line = append(line, k...)
			line = append(line, ':')

			if i < len(r.Cells) && r.Cells[i].Value.Kind == codec.KindActual {
				v, err := json.Marshal(r.Cells[i].Value.Text)
				if err != nil {
					return err
				}
				line = append(line, v...)
			} else {
				line = append(line, "null"...)
			}
		}
		line = append(line, '}', '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}
