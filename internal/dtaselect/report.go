package dtaselect

import "fmt"

// Report holds the four artifacts of a parsed filter file.
type Report struct {
	// Header holds the lines before the data section, verbatim. The last line
	// is the peptide column header.
	Header   []string
	Peptides *Table
	Proteins *Table
	// Trailer holds the info section, starting with the "Proteins" marker line.
	Trailer []string
}

// Clone returns a deep copy of the report.
func (r *Report) Clone() *Report {
	return &Report{
		Header:   append([]string(nil), r.Header...),
		Peptides: r.Peptides.Clone(),
		Proteins: r.Proteins.Clone(),
		Trailer:  append([]string(nil), r.Trailer...),
	}
}

// RemoveGroup drops a protein group: its protein rows and every peptide row
// that references it. It reports how many rows of each table were removed.
func (r *Report) RemoveGroup(group int) (proteins, peptides int, err error) {
	keep := func(row Row) bool { return row.Group != group }

	before := r.Proteins.Len()
	kept := r.Proteins.Filter(keep)
	proteins = before - kept.Len()
	if proteins == 0 {
		return 0, 0, fmt.Errorf("dtaselect: protein group %d not found", group)
	}
	r.Proteins = kept

	before = r.Peptides.Len()
	r.Peptides = r.Peptides.Filter(keep)
	peptides = before - r.Peptides.Len()
	return proteins, peptides, nil
}

// Summary is a compact description of a report.
type Summary struct {
	HeaderLines  int      `json:"headerLines"`
	TrailerLines int      `json:"trailerLines"`
	Proteins     int      `json:"proteins"`
	Peptides     int      `json:"peptides"`
	Groups       int      `json:"groups"`
	ScanFiles    []string `json:"scanFiles"`
}

// Summarize counts the report's rows and groups.
func (r *Report) Summarize() Summary {
	return Summary{
		HeaderLines:  len(r.Header),
		TrailerLines: len(r.Trailer),
		Proteins:     r.Proteins.Len(),
		Peptides:     r.Peptides.Len(),
		Groups:       len(r.Proteins.Groups()),
		ScanFiles:    r.Peptides.Levels(ColFileName),
	}
}
