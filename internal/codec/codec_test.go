package codec

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func be64(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func timetz(micros int64, west int32) []byte {
	b := be64(micros)
	z := make([]byte, 4)
	binary.BigEndian.PutUint32(z, uint32(west))
	return append(b, z...)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		typeName string
		format   Format
		expected CellValue
	}{
		{"nil is null", nil, "int4", FormatBinary, Null()},
		{"text", []byte("Alice"), "text", FormatText, Actual("Alice")},
		{"varchar upper-case type", []byte("x"), "VARCHAR", FormatText, Actual("x")},
		{"invalid utf8 text", []byte{0xff, 0xfe}, "text", FormatText, Unparseable()},
		{"date text", []byte("2024-02-29"), "date", FormatText, Actual("2024-02-29")},
		{"bool binary true", []byte{1}, "bool", FormatBinary, Actual("true")},
		{"bool binary false", []byte{0}, "boolean", FormatBinary, Actual("false")},
		{"bool text", []byte("t"), "bool", FormatText, Actual("true")},
		{"bool garbage", []byte{7}, "bool", FormatBinary, Unparseable()},
		{"int2 binary", []byte{0xff, 0xfe}, "int2", FormatBinary, Actual("-2")},
		{"int4 binary", []byte{0, 0, 0, 42}, "int4", FormatBinary, Actual("42")},
		{"int8 binary", be64(9000000000), "int8", FormatBinary, Actual("9000000000")},
		{"int4 wrong width", []byte{0, 42}, "integer", FormatBinary, Unparseable()},
		{"int text", []byte(" 17 "), "bigint", FormatText, Actual("17")},
		{"int text garbage", []byte("abc"), "int4", FormatText, Unparseable()},
		{"float8 binary", be64(4612811918334230528), "float8", FormatBinary, Actual("2.5")},
		{"float4 text", []byte("1.5"), "float4", FormatText, Actual("1.5")},
		{"numeric text", []byte("12345678901234567890.000001"), "numeric", FormatText, Actual("12345678901234567890.000001")},
		{"numeric nan", []byte("NaN"), "numeric", FormatText, Actual("NaN")},
		{"numeric garbage", []byte("1.2.3"), "numeric", FormatText, Unparseable()},
		{"money", []byte("$1,000.00"), "money", FormatText, Actual("$1,000.00")},
		{"json", []byte(`{"a":1}`), "json", FormatBinary, Actual(`{"a":1}`)},
		{"range is unsupported", []byte("[1,5)"), "int4range", FormatText, Unsupported()},
		{"tstzrange is unsupported", []byte("anything"), "tstzrange", FormatText, Unsupported()},
		{"bytea binary", []byte("hi"), "bytea", FormatBinary, Actual("aGk=")},
		{"bytea hex text", []byte(`\x6869`), "bytea", FormatText, Actual("aGk=")},
		{"bytea bad hex", []byte(`\xzz`), "bytea", FormatText, Unparseable()},
		{"unknown printable", []byte("happy"), "mood", FormatText, Actual("happy")},
		{"unknown binary garbage", []byte{0x00, 0x01}, "point", FormatBinary, Unsupported()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Decode(tt.raw, tt.typeName, tt.format))
		})
	}
}

func TestDecode_JSONBVersionGate(t *testing.T) {
	v1 := []byte{0x01, '{', '"', 'a', '"', ':', '1', '}'}
	assert.Equal(t, Actual(`{"a":1}`), Decode(v1, "jsonb", FormatBinary))

	v2 := []byte{0x02, '{', '}'}
	assert.Equal(t, Unparseable(), Decode(v2, "jsonb", FormatBinary))

	assert.Equal(t, Unparseable(), Decode([]byte{}, "jsonb", FormatBinary))
	assert.Equal(t, Actual(`[1]`), Decode([]byte(`[1]`), "jsonb", FormatText))
}

func TestDecode_Time(t *testing.T) {
	assert.Equal(t, Actual("12:34:56"), Decode(be64(45296000000), "time", FormatBinary))
	assert.Equal(t, Actual("12:34:56.000250"), Decode(be64(45296000250), "time", FormatBinary))
	assert.Equal(t, Actual("00:00:00"), Decode(be64(0), "time", FormatBinary))
	assert.Equal(t, Actual("24:00:00"), Decode(be64(86400000000), "time", FormatBinary))
	assert.Equal(t, Unparseable(), Decode(be64(-1), "time", FormatBinary))
	assert.Equal(t, Unparseable(), Decode([]byte{1, 2, 3}, "time", FormatBinary))
}

func TestDecode_TimeTZOffsetInversion(t *testing.T) {
	ten := int64(10 * 3600 * 1_000_000)

	tests := []struct {
		name     string
		west     int32
		expected string
	}{
		{"east of utc", -3600, "10:00:00+01:00"},
		{"west of utc", 18000, "10:00:00-05:00"},
		{"utc", 0, "10:00:00+00:00"},
		{"half hour", -19800, "10:00:00+05:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Actual(tt.expected), Decode(timetz(ten, tt.west), "timetz", FormatBinary))
		})
	}

	assert.Equal(t, Unparseable(), Decode(be64(ten), "timetz", FormatBinary))
}

// Every registered type name must tolerate arbitrary bytes.
func TestDecode_Totality(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0xff},
		{0x01, 0x02, 0x03},
		be64(-1),
		timetz(-5, 1<<30),
		[]byte(strings.Repeat("9", 400)),
		{0xc3, 0x28},
	}

	reg := DefaultRegistry()
	for name := range reg.entries {
		for _, format := range []Format{FormatText, FormatBinary} {
			for _, raw := range inputs {
				v := reg.Decode(raw, name, format)
				assert.Contains(t,
					[]Kind{KindActual, KindNull, KindUnsupported, KindUnparseable},
					v.Kind, "type %s", name)
			}
		}
	}
}

func TestRegistry_FallbackAndPanicGuard(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(func([]byte, Format) CellValue { panic("boom") }, FormatBinary, "explodes")

	assert.Equal(t, Unparseable(), reg.Decode([]byte("x"), "explodes", FormatBinary))
	assert.Equal(t, Actual("x"), reg.Decode([]byte("x"), "whatever", FormatText))
	assert.Equal(t, FormatBinary, reg.PreferredFormat(" EXPLODES "))
	assert.Equal(t, FormatText, reg.PreferredFormat("whatever"))
}

func TestPreferredFormat_Defaults(t *testing.T) {
	reg := DefaultRegistry()
	for _, name := range []string{"bool", "int4", "float8", "jsonb", "json", "time", "timetz", "bytea"} {
		assert.Equal(t, FormatBinary, reg.PreferredFormat(name), name)
	}
	for _, name := range []string{"text", "date", "timestamptz", "uuid", "numeric", "tsrange", "hstore"} {
		assert.Equal(t, FormatText, reg.PreferredFormat(name), name)
	}
}

func TestEncodeLiteral(t *testing.T) {
	assert.Equal(t, "NULL", EncodeLiteral(Null()))
	assert.Equal(t, "'Bob'", EncodeLiteral(Actual("Bob")))
	assert.Equal(t, "''", EncodeLiteral(Actual("")))
	assert.Equal(t, "'O''Brien'", EncodeLiteral(Actual("O'Brien")))
}

func TestEncodeLiteral_RoundTrip(t *testing.T) {
	lit := EncodeLiteral(Actual("42"))
	require.Equal(t, "'42'", lit)

	inner := strings.Trim(lit, "'")
	assert.Equal(t, Actual("42"), Decode([]byte(inner), "int4", FormatText))
}

func TestCellValue(t *testing.T) {
	assert.True(t, Actual("a").Submittable())
	assert.True(t, Null().Submittable())
	assert.False(t, Unsupported().Submittable())
	assert.False(t, Unparseable().Submittable())

	assert.True(t, Actual("a").Equal(Actual("a")))
	assert.False(t, Actual("a").Equal(Actual("b")))
	assert.True(t, Null().Equal(CellValue{Kind: KindNull, Text: "ignored"}))
	assert.False(t, Null().Equal(Actual("NULL")))
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryNumeric, CategoryOf("INT4"))
	assert.Equal(t, CategoryDateTime, CategoryOf("timestamp with time zone"))
	assert.Equal(t, CategoryArray, CategoryOf("_text"))
	assert.Equal(t, CategoryRange, CategoryOf("tsrange"))
	assert.Equal(t, CategoryOther, CategoryOf("point"))
}
