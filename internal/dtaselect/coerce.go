package dtaselect

import (
	"errors"
	"strconv"
)

// Coerce converts a column of text to the most specific kind every value
// accepts. Float is tried first; an all-float column whose values are also
// all base-10 integers narrows to int. Otherwise the column stays string.
// The decision is made for the whole column, never per cell.
func Coerce(values []string) ([]Value, Kind) {
	raw := make([]Value, len(values))
	for i, s := range values {
		raw[i] = StringValue(s)
	}
	return coerceCells(raw)
}

// Convert parses every value as kind and fails on the first value that does
// not fit. Converting to KindString never fails.
func Convert(column string, values []string, kind Kind) ([]Value, error) {
	out := make([]Value, len(values))
	for i, s := range values {
		v, ok := parseCell(s, kind)
		if !ok {
			return nil, &CoercionError{Column: column, Row: i, Value: s, Kind: kind}
		}
		out[i] = v
	}
	return out, nil
}

// ParseValue parses a single cell as kind. It reports false when s is not a
// valid rendering of kind.
func ParseValue(s string, kind Kind) (Value, bool) {
	return parseCell(s, kind)
}

// coerceCells is Coerce over raw string cells, some of which may be null.
// Null cells are ignored when inferring and stay null in the result.
func coerceCells(raw []Value) ([]Value, Kind) {
	kind := inferKind(raw)
	out, ok := convertCells(raw, kind)
	if !ok {
		out, _ = convertCells(raw, KindString)
		kind = KindString
	}
	return out, kind
}

// coerceLossless is coerceCells, but falls back to string when the coerced
// column would not render back to exactly the source text.
func coerceLossless(raw []Value) ([]Value, Kind) {
	out, kind := coerceCells(raw)
	if kind == KindString {
		return out, kind
	}
	for i, v := range out {
		if v.Valid && v.Format() != raw[i].Str {
			out, _ = convertCells(raw, KindString)
			return out, KindString
		}
	}
	return out, kind
}

func inferKind(raw []Value) Kind {
	valid := 0
	allInt := true
	for _, v := range raw {
		if !v.Valid {
			continue
		}
		valid++
		if _, ok := parseFloat(v.Str); !ok {
			return KindString
		}
		if allInt {
			if _, err := strconv.ParseInt(v.Str, 10, 64); err != nil {
				allInt = false
			}
		}
	}
	switch {
	case valid == 0:
		return KindString
	case allInt:
		return KindInt
	default:
		return KindFloat
	}
}

func convertCells(raw []Value, kind Kind) ([]Value, bool) {
	out := make([]Value, len(raw))
	for i, c := range raw {
		if !c.Valid {
			out[i] = NullValue(kind)
			continue
		}
		v, ok := parseCell(c.Str, kind)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func parseCell(s string, kind Kind) (Value, bool) {
	switch kind {
	case KindInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, false
		}
		return IntValue(i), true
	case KindFloat:
		f, ok := parseFloat(s)
		if !ok {
			return Value{}, false
		}
		return FloatValue(f), true
	default:
		return StringValue(s), true
	}
}

// parseFloat accepts out-of-range values as +/-Inf.
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}
