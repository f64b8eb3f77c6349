package codec

import "strings"

// EncodeLiteral renders v as SQL literal text: NULL for the null value,
// otherwise the text in single quotes with embedded quotes doubled.
//
// Unsupported and Unparseable values encode as their display markers; the
// query package refuses to submit them, so reaching this path means a caller
// bypassed that check.
func EncodeLiteral(v CellValue) string {
	if v.Kind == KindNull {
		return "NULL"
	}
	return QuoteLiteral(v.Display())
}

// QuoteLiteral wraps s in single quotes, doubling any quote inside it.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
