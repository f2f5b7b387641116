package dtaselect

import "fmt"

// FormatError reports a structural violation of the filter report format.
// Line is 1-based; zero means the error is not tied to a single line.
type FormatError struct {
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("dtaselect: format error at line %d: %s", e.Line, e.Reason)
	}
	return "dtaselect: format error: " + e.Reason
}

// CoercionError reports a value that cannot be represented in a column's kind.
// Row is 0-based; -1 means the value was not taken from a table row.
type CoercionError struct {
	Column string
	Row    int
	Value  string
	Kind   Kind
}

func (e *CoercionError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("dtaselect: coercion error: column %q row %d: cannot use %q as %s",
			e.Column, e.Row, e.Value, e.Kind)
	}
	return fmt.Sprintf("dtaselect: coercion error: column %q: cannot use %q as %s",
		e.Column, e.Value, e.Kind)
}

// ConsistencyError reports peptide and protein tables whose protein groups do
// not correspond.
type ConsistencyError struct {
	Group  int
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("dtaselect: consistency error: protein group %d: %s", e.Group, e.Reason)
}

func formatErrorf(line int, format string, args ...any) *FormatError {
	return &FormatError{Line: line, Reason: fmt.Sprintf(format, args...)}
}
