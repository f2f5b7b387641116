package dtaselect

// Phase is the section of the report the parser is in.
type Phase uint8

const (
	PhaseHeader Phase = iota
	PhaseData
	PhaseInfo
)

func (p Phase) String() string {
	switch p {
	case PhaseData:
		return "data"
	case PhaseInfo:
		return "info"
	default:
		return "header"
	}
}

// First fields that mark the two column header lines, and the second field
// that marks the start of the info section.
const (
	proteinHeaderMarker = "Locus"
	peptideHeaderMarker = "Unique"
	infoMarker          = "Proteins"
)

// State is the parser state carried between lines.
type State struct {
	Phase Phase
	// Group is the protein group assigned to the next data row.
	Group int
	// PeptideRun counts peptide rows seen since the last protein row.
	PeptideRun int
}

// Target says where a line ends up.
type Target uint8

const (
	ToHeader Target = iota
	ToTrailer
	ToProteins
	ToPeptides
)

// HeaderKind marks a line that declares a table's columns.
type HeaderKind uint8

const (
	NoHeader HeaderKind = iota
	ProteinHeader
	PeptideHeader
)

// Emission is what one line contributes to the report.
type Emission struct {
	Target Target
	// Declares is set when the line also defines a table's columns from Fields.
	Declares HeaderKind
	Line     string
	Fields   []string
	// Group is the protein group of a data row.
	Group int
}

// Step is the parser's transition function. It classifies one line given the
// current state and returns the next state with the line's emission.
//
// Rules, in order: a "Locus" line declares the protein columns; a "Unique"
// line declares the peptide columns, lands in the header and switches to the
// data phase; a line whose second field is "Proteins" switches to the info
// phase before dispatch, so it lands in the trailer itself. The info phase is
// terminal.
func Step(s State, line string) (State, Emission) {
	fields := splitFields(line)
	em := Emission{Line: line, Fields: fields}

	if fields[0] == proteinHeaderMarker {
		em.Declares = ProteinHeader
	}
	if fields[0] == peptideHeaderMarker {
		em.Declares = PeptideHeader
		em.Target = ToHeader
		s.Phase = PhaseData
		return s, em
	}
	if len(fields) > 1 && fields[1] == infoMarker {
		s.Phase = PhaseInfo
	}

	switch s.Phase {
	case PhaseHeader:
		em.Target = ToHeader
	case PhaseInfo:
		em.Target = ToTrailer
	case PhaseData:
		if Classify(fields) == PeptideRow {
			em.Target = ToPeptides
			em.Group = s.Group
			s.PeptideRun++
			break
		}
		if s.PeptideRun != 0 {
			s.Group++
			s.PeptideRun = 0
		}
		em.Target = ToProteins
		em.Group = s.Group
	}
	return s, em
}

// rawTable accumulates a table's rows before coercion.
type rawTable struct {
	names    []string
	declared bool
	rows     [][]string
	groups   []int
	lines    []int
}

func (t *rawTable) declare(fields []string) {
	t.names = append([]string(nil), fields...)
	t.declared = true
}

func (t *rawTable) add(fields []string, group, line int) {
	t.rows = append(t.rows, fields)
	t.groups = append(t.groups, group)
	t.lines = append(t.lines, line)
}

// columns zips rows with the column names positionally. Short rows leave
// trailing cells null; fields past the last column are dropped.
func (t *rawTable) columns() ([]Field, [][]Value) {
	fields := make([]Field, len(t.names))
	cols := make([][]Value, len(t.names))
	for j, name := range t.names {
		fields[j] = Field{Name: name, Kind: KindString}
		col := make([]Value, len(t.rows))
		for r, row := range t.rows {
			if j < len(row) {
				col[r] = StringValue(row[j])
			} else {
				col[r] = NullValue(KindString)
			}
		}
		cols[j] = col
	}
	return fields, cols
}

// Parse builds a report from the lines of a filter file.
func Parse(lines []string) (*Report, error) {
	var (
		st       State
		header   []string
		trailer  []string
		proteins rawTable
		peptides rawTable
	)

	for i, line := range lines {
		lineNo := i + 1
		var em Emission
		st, em = Step(st, line)

		switch em.Declares {
		case ProteinHeader:
			proteins.declare(em.Fields)
		case PeptideHeader:
			peptides.declare(em.Fields)
		}

		switch em.Target {
		case ToHeader:
			header = append(header, line)
		case ToTrailer:
			trailer = append(trailer, line)
		case ToProteins:
			if !proteins.declared {
				return nil, formatErrorf(lineNo, "protein row before the %q column header", proteinHeaderMarker)
			}
			proteins.add(em.Fields, em.Group, lineNo)
		case ToPeptides:
			if len(proteins.rows) == 0 {
				return nil, formatErrorf(lineNo, "peptide row before the first protein row")
			}
			peptides.add(em.Fields, em.Group, lineNo)
		}
	}

	if !peptides.declared {
		return nil, formatErrorf(0, "peptide column header (first field %q) not found", peptideHeaderMarker)
	}
	if !proteins.declared {
		return nil, formatErrorf(0, "protein column header (first field %q) not found", proteinHeaderMarker)
	}

	protFields, protCols := proteins.columns()
	coerceColumns(protFields, protCols)
	protTable := buildTable(protFields, protCols, proteins.groups)

	pepFields, pepCols := peptides.columns()
	pepFields, pepCols, err := decomposeFileNames(pepFields, pepCols, peptides.lines)
	if err != nil {
		return nil, err
	}
	// The derived filename columns come last and are already coerced.
	n := len(pepFields) - len(derivedColumns)
	coerceColumns(pepFields[:n], pepCols[:n])
	pepTable := buildTable(pepFields, pepCols, peptides.groups)

	if last := len(trailer) - 1; last >= 0 && trailer[last] == "" {
		trailer = trailer[:last]
	}

	return &Report{
		Header:   header,
		Peptides: pepTable,
		Proteins: protTable,
		Trailer:  trailer,
	}, nil
}

func coerceColumns(fields []Field, cols [][]Value) {
	for j := range cols {
		cols[j], fields[j].Kind = coerceCells(cols[j])
	}
}

// buildTable transposes coerced columns into rows tagged with their groups.
func buildTable(fields []Field, cols [][]Value, groups []int) *Table {
	rows := make([]Row, len(groups))
	for r := range rows {
		cells := make([]Value, len(cols))
		for j := range cols {
			cells[j] = cols[j][r]
		}
		rows[r] = Row{Cells: cells, Group: groups[r]}
	}
	return &Table{Schema: newSchema(fields), Rows: rows}
}
