package dtaselect

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the inferred scalar type of a column.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "string"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "string":
		return KindString, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	}
	return KindString, fmt.Errorf("dtaselect: unknown kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Value is a single table cell. Only the field matching Kind is meaningful.
// Valid is false for cells left unfilled by a short row.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Str   string
	Valid bool
}

// IntValue returns a valid int cell.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i, Valid: true} }

// FloatValue returns a valid float cell.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f, Valid: true} }

// StringValue returns a valid string cell.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s, Valid: true} }

// NullValue returns an unfilled cell of kind k.
func NullValue(k Kind) Value { return Value{Kind: k} }

// Format renders the cell the way it is written to a report.
// Null cells render as the empty string.
func (v Value) Format() string {
	if !v.Valid {
		return ""
	}
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return formatFloat(v.Float)
	default:
		return v.Str
	}
}

// String implements fmt.Stringer.
func (v Value) String() string { return v.Format() }

// Equal reports whether two cells hold the same kind and value.
// NaN equals NaN so that parsed tables compare equal to their re-parse.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Valid != o.Valid {
		return false
	}
	if !v.Valid {
		return true
	}
	switch v.Kind {
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		if math.IsNaN(v.Float) && math.IsNaN(o.Float) {
			return true
		}
		return v.Float == o.Float
	default:
		return v.Str == o.Str
	}
}

// Any returns the cell as a plain Go value (int64, float64, string) or nil.
func (v Value) Any() any {
	if !v.Valid {
		return nil
	}
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	default:
		return v.Str
	}
}

// formatFloat writes the shortest representation that parses back to f.
// Integral values keep a trailing ".0" so the column re-infers as float.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
