// Package dtaselect converts DTASelect filter reports to typed tables and back.
//
// A filter report is a tab-delimited text file with no explicit record-type
// markers. It has three sections:
//
//   - Header: free-form lines up to and including the peptide column header
//     (the line whose first field is "Unique"). The protein column header
//     (first field "Locus") is also part of this section.
//   - Data: protein rows, each followed by the peptide rows that support it.
//   - Info: summary lines starting at the first line whose second field is
//     "Proteins".
//
// # Parsing
//
// [Parse] runs a single pass over the lines with the pure transition function
// [Step]. Data rows are classified by [Classify]: a row whose first field is
// empty, contains '*', or is numeric is a peptide row; anything else is a
// protein row. A protein row that follows a run of peptide rows starts a new
// protein group; consecutive protein rows share a group.
//
// After the pass every column is coerced to a single [Kind] by [Coerce], and
// the composite peptide FileName column ("scan.low.high.charge") is split into
// FileName, LowScan, HighScan and Charge.
//
// # Serializing
//
// [Write] re-emits the report. The interleave of protein and peptide lines is
// derived from each row's protein group, not from any stored line order, so
// tables can be filtered or extended before writing:
//
//	r, err := dtaselect.ParseFile("DTASelect-filter.txt")
//	if err != nil {
//	    return err
//	}
//	r.Peptides = r.Peptides.Filter(func(row dtaselect.Row) bool {
//	    xc, _ := r.Peptides.Schema.Value(row, "XCorr")
//	    return xc.Float >= 2.5
//	})
//	out, err := dtaselect.Serialize(r)
//
// # Errors
//
// Structural problems are reported as [*FormatError], forced type conversions
// as [*CoercionError] and serializer inputs whose groups do not line up as
// [*ConsistencyError].
package dtaselect

// Version is the library version.
const Version = "0.2.0"
