// Package codec maps raw column bytes to display-safe cell values and back
// to SQL literal text.
//
// A decoded value is always one of four variants: Actual, Null, Unsupported
// (the type has no decoder) or Unparseable (the type has a decoder but the
// bytes were malformed). Decoding never fails and never panics, so a single
// bad cell cannot abort a fetch.
package codec

// Kind is the variant tag of a CellValue.
type Kind int

const (
	KindActual Kind = iota
	KindNull
	KindUnsupported
	KindUnparseable
)

func (k Kind) String() string {
	switch k {
	case KindActual:
		return "actual"
	case KindNull:
		return "null"
	case KindUnsupported:
		return "unsupported"
	case KindUnparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// CellValue is the decoded content of one cell. Text is only meaningful for
// KindActual.
type CellValue struct {
	Kind Kind
	Text string
}

// Actual returns a value holding display text.
func Actual(text string) CellValue { return CellValue{Kind: KindActual, Text: text} }

// Null returns the SQL NULL value.
func Null() CellValue { return CellValue{Kind: KindNull} }

// Unsupported marks a value whose type has no decoder.
func Unsupported() CellValue { return CellValue{Kind: KindUnsupported} }

// Unparseable marks a value whose type is known but whose bytes did not decode.
func Unparseable() CellValue { return CellValue{Kind: KindUnparseable} }

func (v CellValue) IsNull() bool { return v.Kind == KindNull }

// Submittable reports whether v may appear in an INSERT or UPDATE.
// Unsupported and Unparseable cells are never round-tripped to the server.
func (v CellValue) Submittable() bool {
	return v.Kind == KindActual || v.Kind == KindNull
}

// Display is the text a grid shows for v.
func (v CellValue) Display() string {
	switch v.Kind {
	case KindActual:
		return v.Text
	case KindNull:
		return "NULL"
	case KindUnsupported:
		return "<unsupported>"
	default:
		return "<unparseable>"
	}
}

// Equal reports whether two values have the same variant and text.
func (v CellValue) Equal(o CellValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	return v.Kind != KindActual || v.Text == o.Text
}

