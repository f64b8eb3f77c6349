package codec

import "strings"

// Category groups type names for presentation (alignment, editors).
type Category string

const (
	CategoryText     Category = "text"
	CategoryNumeric  Category = "numeric"
	CategoryBoolean  Category = "boolean"
	CategoryDateTime Category = "datetime"
	CategoryJSON     Category = "json"
	CategoryBinary   Category = "binary"
	CategoryRange    Category = "range"
	CategoryArray    Category = "array"
	CategoryOther    Category = "other"
)

var categories = map[string]Category{
	"varchar": CategoryText, "character varying": CategoryText, "text": CategoryText,
	"char": CategoryText, "character": CategoryText, "bpchar": CategoryText,
	"name": CategoryText, "citext": CategoryText, "uuid": CategoryText,

	"int2": CategoryNumeric, "smallint": CategoryNumeric, "int4": CategoryNumeric,
	"int": CategoryNumeric, "integer": CategoryNumeric, "int8": CategoryNumeric,
	"bigint": CategoryNumeric, "float4": CategoryNumeric, "real": CategoryNumeric,
	"float8": CategoryNumeric, "double precision": CategoryNumeric,
	"numeric": CategoryNumeric, "decimal": CategoryNumeric, "money": CategoryNumeric,
	"serial": CategoryNumeric, "bigserial": CategoryNumeric, "smallserial": CategoryNumeric,

	"bool": CategoryBoolean, "boolean": CategoryBoolean,

	"date": CategoryDateTime, "time": CategoryDateTime, "timetz": CategoryDateTime,
	"timestamp": CategoryDateTime, "timestamptz": CategoryDateTime,
	"time without time zone": CategoryDateTime, "time with time zone": CategoryDateTime,
	"timestamp without time zone": CategoryDateTime, "timestamp with time zone": CategoryDateTime,
	"interval": CategoryDateTime,

	"json": CategoryJSON, "jsonb": CategoryJSON,

	"bytea": CategoryBinary,
}

// CategoryOf classifies a type name. Array types are spelled with a leading
// underscore in the catalog ("_int4") or a trailing "[]" in DDL.
func CategoryOf(typeName string) Category {
	n := Normalize(typeName)
	if strings.HasPrefix(n, "_") || strings.HasSuffix(n, "[]") || n == "array" {
		return CategoryArray
	}
	if strings.HasSuffix(n, "range") {
		return CategoryRange
	}
	if c, ok := categories[n]; ok {
		return c
	}
	return CategoryOther
}
