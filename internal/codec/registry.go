package codec

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Format is the wire encoding a column value arrived in. The numeric values
// match the Postgres protocol format codes.
type Format int16

const (
	FormatText   Format = 0
	FormatBinary Format = 1
)

// Decoder turns the raw bytes of a non-NULL value into a CellValue.
type Decoder func(raw []byte, format Format) CellValue

type entry struct {
	decode Decoder
	wire   Format
}

// Registry maps normalised type names to decoders. Names without an entry
// go through the fallback decoder.
type Registry struct {
	entries  map[string]entry
	fallback Decoder
}

// NewRegistry returns an empty registry. A nil fallback uses the generic
// text decoder, which yields Unsupported for bytes it cannot render.
func NewRegistry(fallback Decoder) *Registry {
	if fallback == nil {
		fallback = decodeGeneric
	}
	return &Registry{entries: make(map[string]entry), fallback: fallback}
}

// Register binds dec to every name. wire is the format a connection should
// request for columns of these types.
func (r *Registry) Register(dec Decoder, wire Format, names ...string) {
	for _, n := range names {
		r.entries[Normalize(n)] = entry{decode: dec, wire: wire}
	}
}

// Lookup returns the decoder registered for typeName.
func (r *Registry) Lookup(typeName string) (Decoder, bool) {
	e, ok := r.entries[Normalize(typeName)]
	return e.decode, ok
}

// PreferredFormat reports the wire format to request for typeName.
// Unregistered types are always requested as text.
func (r *Registry) PreferredFormat(typeName string) Format {
	if e, ok := r.entries[Normalize(typeName)]; ok {
		return e.wire
	}
	return FormatText
}

// Decode converts raw into a CellValue. A nil raw is NULL. The result is
// always one of the four variants.
func (r *Registry) Decode(raw []byte, typeName string, format Format) (v CellValue) {
	if raw == nil {
		return Null()
	}

	// A panicking decoder degrades only this cell.
	defer func() {
		if recover() != nil {
			v = Unparseable()
		}
	}()

	if e, ok := r.entries[Normalize(typeName)]; ok {
		return e.decode(raw, format)
	}
	return r.fallback(raw, format)
}

// Normalize lower-cases and trims a type name so catalog spellings and
// driver spellings share one registry key.
func Normalize(typeName string) string {
	return strings.ToLower(strings.TrimSpace(typeName))
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// DefaultRegistry returns the shared registry holding the fixed type table.
// It is built once and must not be mutated by callers; use NewRegistry and
// Register for a customised table.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewRegistry(nil)
		registerDefaults(defaultReg)
	})
	return defaultReg
}

// Decode decodes with the default registry.
func Decode(raw []byte, typeName string, format Format) CellValue {
	return DefaultRegistry().Decode(raw, typeName, format)
}

func registerDefaults(r *Registry) {
	r.Register(decodeText, FormatText,
		"varchar", "character varying", "text", "char", "character", "bpchar",
		"name", "citext", "date", "uuid",
		"timestamp", "timestamp without time zone",
		"timestamptz", "timestamp with time zone")
	r.Register(decodeBool, FormatBinary, "bool", "boolean")
	r.Register(intDecoder(2), FormatBinary, "int2", "smallint", "smallserial")
	r.Register(intDecoder(4), FormatBinary, "int4", "int", "integer", "serial")
	r.Register(intDecoder(8), FormatBinary, "int8", "bigint", "bigserial")
	r.Register(floatDecoder(32), FormatBinary, "float4", "real")
	r.Register(floatDecoder(64), FormatBinary, "float8", "double precision")
	r.Register(decodeNumeric, FormatText, "numeric", "decimal", "money")
	r.Register(decodeText, FormatBinary, "json")
	r.Register(decodeJSONB, FormatBinary, "jsonb")
	r.Register(decodeTime, FormatBinary, "time", "time without time zone")
	r.Register(decodeTimeTZ, FormatBinary, "timetz", "time with time zone")
	r.Register(decodeBytea, FormatBinary, "bytea")
	r.Register(decodeUnsupported, FormatText,
		"int4range", "int8range", "numrange", "tsrange", "tstzrange", "daterange",
		"int4multirange", "int8multirange", "nummultirange",
		"tsmultirange", "tstzmultirange", "datemultirange")
}

// decodeGeneric renders printable UTF-8 and gives up on anything else.
func decodeGeneric(raw []byte, _ Format) CellValue {
	if !printable(raw) {
		return Unsupported()
	}
	return Actual(string(raw))
}

func decodeUnsupported([]byte, Format) CellValue {
	return Unsupported()
}

func printable(raw []byte) bool {
	if !utf8.Valid(raw) {
		return false
	}
	for _, r := range string(raw) {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return false
		}
	}
	return true
}
