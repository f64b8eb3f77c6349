package codec

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgtype"
)

const (
	jsonbVersion   = 1
	microsPerSec   = int64(1_000_000)
	microsPerDay   = 24 * 3600 * microsPerSec
	timeWireLen    = 8
	timetzWireLen  = 12
	maxOffsetSecs  = 16 * 3600
	byteaHexPrefix = `\x`
)

func decodeText(raw []byte, _ Format) CellValue {
	if !utf8.Valid(raw) {
		return Unparseable()
	}
	return Actual(string(raw))
}

func decodeBool(raw []byte, format Format) CellValue {
	if format == FormatBinary {
		if len(raw) != 1 {
			return Unparseable()
		}
		switch raw[0] {
		case 0:
			return Actual("false")
		case 1:
			return Actual("true")
		}
		return Unparseable()
	}

	switch strings.ToLower(strings.TrimSpace(string(raw))) {
	case "t", "true":
		return Actual("true")
	case "f", "false":
		return Actual("false")
	}
	return Unparseable()
}

// intDecoder decodes a signed integer of the given byte width.
func intDecoder(width int) Decoder {
	return func(raw []byte, format Format) CellValue {
		if format == FormatText {
			n, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, width*8)
			if err != nil {
				return Unparseable()
			}
			return Actual(strconv.FormatInt(n, 10))
		}

		if len(raw) != width {
			return Unparseable()
		}
		var n int64
		switch width {
		case 2:
			n = int64(int16(binary.BigEndian.Uint16(raw)))
		case 4:
			n = int64(int32(binary.BigEndian.Uint32(raw)))
		default:
			n = int64(binary.BigEndian.Uint64(raw))
		}
		return Actual(strconv.FormatInt(n, 10))
	}
}

// floatDecoder decodes an IEEE 754 value of 32 or 64 bits.
func floatDecoder(bits int) Decoder {
	return func(raw []byte, format Format) CellValue {
		var f float64
		if format == FormatText {
			v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), bits)
			if err != nil {
				return Unparseable()
			}
			f = v
		} else {
			switch {
			case bits == 32 && len(raw) == 4:
				f = float64(math.Float32frombits(binary.BigEndian.Uint32(raw)))
			case bits == 64 && len(raw) == 8:
				f = math.Float64frombits(binary.BigEndian.Uint64(raw))
			default:
				return Unparseable()
			}
		}
		return Actual(formatFloat(f, bits))
	}
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// decodeNumeric keeps the server's text so arbitrary precision survives.
// Binary numerics are expanded through pgtype.
func decodeNumeric(raw []byte, format Format) CellValue {
	if format == FormatBinary {
		var n pgtype.Numeric
		if err := pgtype.NewMap().Scan(pgtype.NumericOID, pgtype.BinaryFormatCode, raw, &n); err != nil {
			return Unparseable()
		}
		v, err := n.Value()
		if err != nil {
			return Unparseable()
		}
		s, ok := v.(string)
		if !ok {
			return Unparseable()
		}
		return Actual(s)
	}

	s := strings.TrimSpace(string(raw))
	switch s {
	case "NaN", "Infinity", "-Infinity":
		return Actual(s)
	}
	// money carries a currency symbol and grouping; keep it verbatim
	if strings.ContainsAny(s, "$€£¥,") {
		return decodeText(raw, format)
	}
	if _, ok := new(big.Float).SetString(s); !ok {
		return Unparseable()
	}
	return Actual(s)
}

// decodeJSONB accepts only envelope version 1.
func decodeJSONB(raw []byte, format Format) CellValue {
	if format == FormatText {
		return decodeText(raw, format)
	}
	if len(raw) == 0 || raw[0] != jsonbVersion {
		return Unparseable()
	}
	return decodeText(raw[1:], format)
}

func decodeTime(raw []byte, format Format) CellValue {
	if format == FormatText {
		return decodeText(raw, format)
	}
	if len(raw) != timeWireLen {
		return Unparseable()
	}
	micros := int64(binary.BigEndian.Uint64(raw))
	s, ok := formatMicros(micros)
	if !ok {
		return Unparseable()
	}
	return Actual(s)
}

// decodeTimeTZ reads the time part followed by the zone as seconds west of
// UTC, which is rendered as a conventional east-positive offset.
func decodeTimeTZ(raw []byte, format Format) CellValue {
	if format == FormatText {
		return decodeText(raw, format)
	}
	if len(raw) != timetzWireLen {
		return Unparseable()
	}
	micros := int64(binary.BigEndian.Uint64(raw[:8]))
	west := int64(int32(binary.BigEndian.Uint32(raw[8:])))

	s, ok := formatMicros(micros)
	if !ok || west > maxOffsetSecs || west < -maxOffsetSecs {
		return Unparseable()
	}
	return Actual(s + formatOffset(-west))
}

// formatMicros renders microseconds since midnight as HH:MM:SS[.ffffff].
// 24:00:00 is a legal Postgres time value.
func formatMicros(micros int64) (string, bool) {
	if micros < 0 || micros > microsPerDay {
		return "", false
	}
	secs := micros / microsPerSec
	frac := micros % microsPerSec
	hms := fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
	if frac == 0 {
		return hms, true
	}
	return fmt.Sprintf("%s.%06d", hms, frac), true
}

func formatOffset(east int64) string {
	sign := '+'
	if east < 0 {
		sign = '-'
		east = -east
	}
	return fmt.Sprintf("%c%02d:%02d", sign, east/3600, (east%3600)/60)
}

func decodeBytea(raw []byte, format Format) CellValue {
	if format == FormatBinary {
		return Actual(base64.StdEncoding.EncodeToString(raw))
	}
	s := string(raw)
	if !strings.HasPrefix(s, byteaHexPrefix) {
		return Unparseable()
	}
	b, err := hex.DecodeString(s[len(byteaHexPrefix):])
	if err != nil {
		return Unparseable()
	}
	return Actual(base64.StdEncoding.EncodeToString(b))
}
