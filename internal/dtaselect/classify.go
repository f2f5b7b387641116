package dtaselect

import (
	"strings"
	"unicode"
)

// RowKind tells a protein row from a peptide row in the data section.
type RowKind uint8

const (
	ProteinRow RowKind = iota
	PeptideRow
)

func (k RowKind) String() string {
	if k == PeptideRow {
		return "peptide"
	}
	return "protein"
}

// Classify decides the kind of a data row from its first field. Peptide rows
// start with an empty field, a field containing '*' (unique marker) or a
// numeric redundancy count. Everything else names a protein locus.
func Classify(fields []string) RowKind {
	if len(fields) == 0 {
		return PeptideRow
	}
	first := fields[0]
	if first == "" || strings.Contains(first, "*") || isNumeric(first) {
		return PeptideRow
	}
	return ProteinRow
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

// splitFields splits a line on tabs after trimming trailing whitespace.
func splitFields(line string) []string {
	return strings.Split(strings.TrimRightFunc(line, unicode.IsSpace), "\t")
}
