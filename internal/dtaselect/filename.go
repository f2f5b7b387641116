package dtaselect

import (
	"strings"
)

// Names of the peptide columns derived from the composite FileName field.
const (
	ColFileName = "FileName"
	ColLowScan  = "LowScan"
	ColHighScan = "HighScan"
	ColCharge   = "Charge"
)

var derivedColumns = [4]string{ColFileName, ColLowScan, ColHighScan, ColCharge}

// FileNameParts holds the four components of a composite peptide FileName
// such as "run01.1234.1234.2".
type FileNameParts struct {
	File     string
	LowScan  string
	HighScan string
	Charge   string
}

// SplitFileName splits a composite FileName on '.'. It requires exactly four
// components.
func SplitFileName(s string) (FileNameParts, error) {
	p, ok := splitFileName(s)
	if !ok {
		return FileNameParts{}, badFileName(0, s)
	}
	return p, nil
}

func splitFileName(s string) (FileNameParts, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return FileNameParts{}, false
	}
	return FileNameParts{File: parts[0], LowScan: parts[1], HighScan: parts[2], Charge: parts[3]}, true
}

func badFileName(line int, s string) *FormatError {
	return formatErrorf(line, "file name %q has %d '.'-separated parts, want 4", s, strings.Count(s, ".")+1)
}

// JoinFileName is the inverse of SplitFileName.
func JoinFileName(p FileNameParts) string {
	return p.File + "." + p.LowScan + "." + p.HighScan + "." + p.Charge
}

// decomposeFileNames replaces the composite FileName column of a raw peptide
// table with the four derived columns, appended after the remaining columns.
// Each derived column is coerced on its own and kept as text if coercion would
// not reproduce the source components exactly.
func decomposeFileNames(fields []Field, cols [][]Value, lines []int) ([]Field, [][]Value, error) {
	at := -1
	for i, f := range fields {
		if f.Name == ColFileName {
			at = i
			break
		}
	}
	if at < 0 {
		return nil, nil, formatErrorf(0, "peptide header has no %s column", ColFileName)
	}

	src := cols[at]
	parts := [4][]Value{}
	for k := range parts {
		parts[k] = make([]Value, len(src))
	}
	for r, v := range src {
		if !v.Valid {
			return nil, nil, formatErrorf(lines[r], "peptide row has no %s value", ColFileName)
		}
		p, ok := splitFileName(v.Str)
		if !ok {
			return nil, nil, badFileName(lines[r], v.Str)
		}
		parts[0][r] = StringValue(p.File)
		parts[1][r] = StringValue(p.LowScan)
		parts[2][r] = StringValue(p.HighScan)
		parts[3][r] = StringValue(p.Charge)
	}

	outFields := make([]Field, 0, len(fields)+3)
	outCols := make([][]Value, 0, len(cols)+3)
	outFields = append(outFields, fields[:at]...)
	outFields = append(outFields, fields[at+1:]...)
	outCols = append(outCols, cols[:at]...)
	outCols = append(outCols, cols[at+1:]...)

	for k, name := range derivedColumns {
		vals, kind := coerceLossless(parts[k])
		outFields = append(outFields, Field{Name: name, Kind: kind, Categorical: name == ColFileName})
		outCols = append(outCols, vals)
	}
	return outFields, outCols, nil
}

// composeFileName rebuilds the composite field of one peptide row.
func composeFileName(s Schema, row Row) (string, error) {
	var p [4]string
	for k, name := range derivedColumns {
		v, ok := s.Value(row, name)
		if !ok {
			return "", formatErrorf(0, "peptide table has no %s column", name)
		}
		p[k] = v.Format()
	}
	return JoinFileName(FileNameParts{File: p[0], LowScan: p[1], HighScan: p[2], Charge: p[3]}), nil
}
