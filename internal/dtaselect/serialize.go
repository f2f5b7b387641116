package dtaselect

import (
	"bufio"
	"io"
	"sort"
	"strings"
)

// Serialize renders a report as filter text.
func Serialize(r *Report) (string, error) {
	var b strings.Builder
	if err := Write(&b, r); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Write renders a report to w. Header lines come first, then each run of
// protein rows sharing a group followed by that group's peptide rows, then the
// trailer lines. Every line ends in '\n'.
//
// The protein/peptide interleave is rebuilt from Row.Group alone. Peptide rows
// keep their table order within a group, wherever they sit in the table.
// Nothing is written if the tables are inconsistent.
func Write(w io.Writer, r *Report) error {
	if r.Proteins == nil || r.Peptides == nil {
		return formatErrorf(0, "report is missing its protein or peptide table")
	}
	proteinLines := renderTable(r.Proteins, allColumns(r.Proteins.Schema), nil)
	peptideLines, err := renderPeptides(r.Peptides)
	if err != nil {
		return err
	}
	order, err := mergeOrder(r.Proteins, r.Peptides)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for _, line := range r.Header {
		writeLine(bw, line)
	}
	for _, ref := range order {
		if ref.peptide {
			writeLine(bw, peptideLines[ref.row])
		} else {
			writeLine(bw, proteinLines[ref.row])
		}
	}
	for _, line := range r.Trailer {
		writeLine(bw, line)
	}
	return bw.Flush()
}

func writeLine(bw *bufio.Writer, line string) {
	bw.WriteString(line)
	bw.WriteByte('\n')
}

// lineRef points at one rendered data line.
type lineRef struct {
	peptide bool
	row     int
}

// mergeOrder emits protein groups in the order they first appear in the
// protein table. Each group's protein rows, in table order, are followed by
// all peptide rows of that group, so rows appended to either table still land
// under their group.
func mergeOrder(proteins, peptides *Table) ([]lineRef, error) {
	buckets := make(map[int][]int)
	for i, row := range peptides.Rows {
		buckets[row.Group] = append(buckets[row.Group], i)
	}

	var groups []int
	members := make(map[int][]int)
	for i, row := range proteins.Rows {
		if _, ok := members[row.Group]; !ok {
			groups = append(groups, row.Group)
		}
		members[row.Group] = append(members[row.Group], i)
	}

	order := make([]lineRef, 0, proteins.Len()+peptides.Len())
	for _, group := range groups {
		for _, p := range members[group] {
			order = append(order, lineRef{row: p})
		}
		for _, p := range buckets[group] {
			order = append(order, lineRef{peptide: true, row: p})
		}
		delete(buckets, group)
	}

	if len(buckets) > 0 {
		orphans := make([]int, 0, len(buckets))
		for g := range buckets {
			orphans = append(orphans, g)
		}
		sort.Ints(orphans)
		return nil, &ConsistencyError{Group: orphans[0], Reason: "peptide rows reference a group with no protein row"}
	}
	return order, nil
}

// renderPeptides renders peptide rows with the composite FileName restored
// as the second column.
func renderPeptides(t *Table) ([]string, error) {
	derived := make(map[int]bool, len(derivedColumns))
	for _, name := range derivedColumns {
		i := t.Schema.Index(name)
		if i < 0 {
			return nil, formatErrorf(0, "peptide table has no %s column", name)
		}
		derived[i] = true
	}

	var others []int
	for i := range t.Schema.Fields {
		if !derived[i] {
			others = append(others, i)
		}
	}

	composite := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		s, err := composeFileName(t.Schema, row)
		if err != nil {
			return nil, err
		}
		composite[r] = s
	}

	// Column -1 stands for the composite FileName.
	layout := make([]int, 0, len(others)+1)
	if len(others) > 0 {
		layout = append(layout, others[0], -1)
		layout = append(layout, others[1:]...)
	} else {
		layout = append(layout, -1)
	}
	return renderTable(t, layout, composite), nil
}

func allColumns(s Schema) []int {
	cols := make([]int, s.Len())
	for i := range cols {
		cols[i] = i
	}
	return cols
}

// renderTable renders each row as tab-joined cells in layout order.
// A layout entry of -1 takes the row's value from extra. Trailing null cells
// are left out so short source rows are written back unchanged.
func renderTable(t *Table, layout []int, extra []string) []string {
	lines := make([]string, len(t.Rows))
	var b strings.Builder
	for r, row := range t.Rows {
		end := len(layout)
		for end > 0 {
			col := layout[end-1]
			if col < 0 || (col < len(row.Cells) && row.Cells[col].Valid) {
				break
			}
			end--
		}

		b.Reset()
		for k, col := range layout[:end] {
			if k > 0 {
				b.WriteByte('\t')
			}
			if col < 0 {
				b.WriteString(extra[r])
				continue
			}
			if col < len(row.Cells) {
				b.WriteString(row.Cells[col].Format())
			}
		}
		lines[r] = strings.ReplaceAll(b.String(), "\r", "")
	}
	return lines
}
