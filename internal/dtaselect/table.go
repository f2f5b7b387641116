package dtaselect

import (
	"fmt"
	"sort"
)

// ProteinGroup is the name of the synthetic column that links peptide rows to
// protein rows. It is carried on [Row.Group] rather than in [Row.Cells].
const ProteinGroup = "ProteinGroup"

// Field describes one column of a table.
type Field struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	Categorical bool   `json:"categorical,omitempty"`
}

// Schema is the ordered column set of a table, resolved once from a header line.
type Schema struct {
	Fields []Field
	index  map[string]int
}

// NewSchema builds a schema with one string field per name.
// When names repeat, lookups by name resolve to the first occurrence.
func NewSchema(names []string) Schema {
	fields := make([]Field, len(names))
	for i, n := range names {
		fields[i] = Field{Name: n, Kind: KindString}
	}
	return newSchema(fields)
}

// NewSchemaFrom builds a schema over fields as given.
func NewSchemaFrom(fields []Field) Schema {
	return newSchema(fields)
}

func newSchema(fields []Field) Schema {
	s := Schema{Fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if _, dup := s.index[f.Name]; !dup {
			s.index[f.Name] = i
		}
	}
	return s
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.Fields) }

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	if s.index == nil {
		for i, f := range s.Fields {
			if f.Name == name {
				return i
			}
		}
		return -1
	}
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Value returns the named cell of row.
func (s Schema) Value(row Row, name string) (Value, bool) {
	i := s.Index(name)
	if i < 0 || i >= len(row.Cells) {
		return Value{}, false
	}
	return row.Cells[i], true
}

// Row is one protein or peptide record. Cells are indexed by the table schema.
type Row struct {
	Cells []Value
	Group int
}

// Table is an ordered collection of rows sharing one schema.
type Table struct {
	Schema Schema
	Rows   []Row
}

// NewTable returns an empty table with the given schema.
func NewTable(schema Schema) *Table {
	return &Table{Schema: schema}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]Value, bool) {
	i := t.Schema.Index(name)
	if i < 0 {
		return nil, false
	}
	col := make([]Value, len(t.Rows))
	for r, row := range t.Rows {
		col[r] = row.Cells[i]
	}
	return col, true
}

// Cell returns the named cell of row r.
func (t *Table) Cell(r int, name string) (Value, bool) {
	if r < 0 || r >= len(t.Rows) {
		return Value{}, false
	}
	return t.Schema.Value(t.Rows[r], name)
}

// Set replaces the named cell of row r. The value must be null or match the
// column kind.
func (t *Table) Set(r int, name string, v Value) error {
	i := t.Schema.Index(name)
	if i < 0 {
		return fmt.Errorf("dtaselect: unknown column %q", name)
	}
	if r < 0 || r >= len(t.Rows) {
		return fmt.Errorf("dtaselect: row %d out of range [0,%d)", r, len(t.Rows))
	}
	f := t.Schema.Fields[i]
	if v.Valid && v.Kind != f.Kind {
		return &CoercionError{Column: name, Row: r, Value: v.Format(), Kind: f.Kind}
	}
	v.Kind = f.Kind
	t.Rows[r].Cells[i] = v
	return nil
}

// Append adds a row after checking its width and cell kinds.
func (t *Table) Append(row Row) error {
	if len(row.Cells) != t.Schema.Len() {
		return fmt.Errorf("dtaselect: row has %d cells, schema has %d columns", len(row.Cells), t.Schema.Len())
	}
	if row.Group < 0 {
		return fmt.Errorf("dtaselect: negative protein group %d", row.Group)
	}
	for i, c := range row.Cells {
		f := t.Schema.Fields[i]
		if c.Valid && c.Kind != f.Kind {
			return &CoercionError{Column: f.Name, Row: len(t.Rows), Value: c.Format(), Kind: f.Kind}
		}
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Delete removes row r.
func (t *Table) Delete(r int) error {
	if r < 0 || r >= len(t.Rows) {
		return fmt.Errorf("dtaselect: row %d out of range [0,%d)", r, len(t.Rows))
	}
	t.Rows = append(t.Rows[:r:r], t.Rows[r+1:]...)
	return nil
}

// Filter returns a new table holding the rows keep accepts, in order.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{Schema: t.Schema}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, cloneRow(row))
		}
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	fields := make([]Field, len(t.Schema.Fields))
	copy(fields, t.Schema.Fields)
	out := &Table{Schema: newSchema(fields), Rows: make([]Row, len(t.Rows))}
	for i, row := range t.Rows {
		out.Rows[i] = cloneRow(row)
	}
	return out
}

// Equal reports whether both tables have the same schema and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.Schema.Fields) != len(o.Schema.Fields) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i, f := range t.Schema.Fields {
		if f != o.Schema.Fields[i] {
			return false
		}
	}
	for i, row := range t.Rows {
		other := o.Rows[i]
		if row.Group != other.Group || len(row.Cells) != len(other.Cells) {
			return false
		}
		for j, c := range row.Cells {
			if !c.Equal(other.Cells[j]) {
				return false
			}
		}
	}
	return true
}

// Groups returns the distinct protein groups in first-seen order.
func (t *Table) Groups() []int {
	seen := make(map[int]bool)
	var groups []int
	for _, row := range t.Rows {
		if !seen[row.Group] {
			seen[row.Group] = true
			groups = append(groups, row.Group)
		}
	}
	return groups
}

// Levels returns the sorted distinct non-null values of a column, formatted.
// It is meant for categorical columns such as the peptide FileName.
func (t *Table) Levels(name string) []string {
	col, ok := t.Column(name)
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var levels []string
	for _, v := range col {
		if !v.Valid {
			continue
		}
		s := v.Format()
		if !seen[s] {
			seen[s] = true
			levels = append(levels, s)
		}
	}
	sort.Strings(levels)
	return levels
}

func cloneRow(row Row) Row {
	cells := make([]Value, len(row.Cells))
	copy(cells, row.Cells)
	return Row{Cells: cells, Group: row.Group}
}
