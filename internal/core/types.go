package core

import (
	"fmt"
	"math"
	"time"

	"github.com/JonMunkholm/filterframes/internal/dtaselect"
)

// TableKind selects one of the two tables of a report.
type TableKind string

const (
	ProteinTable TableKind = "proteins"
	PeptideTable TableKind = "peptides"
)

// ParseTableKind accepts "proteins" or "peptides".
func ParseTableKind(s string) (TableKind, error) {
	switch TableKind(s) {
	case ProteinTable, PeptideTable:
		return TableKind(s), nil
	}
	return "", fmt.Errorf("unknown table: %q", s)
}

// ReportMeta describes a stored report.
type ReportMeta struct {
	ID        string            `json:"id"`
	FileName  string            `json:"fileName"`
	CreatedAt time.Time         `json:"createdAt"`
	Summary   dtaselect.Summary `json:"summary"`
}

// StoredReport is a parsed report together with its metadata.
type StoredReport struct {
	Meta   ReportMeta
	Report *dtaselect.Report
}

// Table returns the report table named by kind.
func (s *StoredReport) Table(kind TableKind) *dtaselect.Table {
	if kind == ProteinTable {
		return s.Report.Proteins
	}
	return s.Report.Peptides
}

// TableRow is one table row prepared for display.
type TableRow struct {
	Index int   `json:"index"`
	Group int   `json:"group"`
	Cells []any `json:"cells"`
}

// TablePage contains one page of a report table.
type TablePage struct {
	ReportID   string            `json:"reportId"`
	Table      TableKind         `json:"table"`
	Columns    []dtaselect.Field `json:"columns"`
	Rows       []TableRow        `json:"rows"`
	TotalRows  int               `json:"totalRows"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// IngestResult contains the outcome of a stored upload.
type IngestResult struct {
	Meta      ReportMeta    `json:"report"`
	BytesRead int64         `json:"bytesRead"`
	Duration  time.Duration `json:"duration"`
}

// RemoveResult reports how many rows an edit removed.
type RemoveResult struct {
	ReportID        string `json:"reportId"`
	ProteinsRemoved int    `json:"proteinsRemoved"`
	PeptidesRemoved int    `json:"peptidesRemoved"`
}

// displayValue is Value.Any with non-finite floats rendered as text, since
// JSON has no spelling for them.
func displayValue(v dtaselect.Value) any {
	if v.Valid && v.Kind == dtaselect.KindFloat && (math.IsNaN(v.Float) || math.IsInf(v.Float, 0)) {
		return v.Format()
	}
	return v.Any()
}

func tableRow(index int, row dtaselect.Row) TableRow {
	cells := make([]any, len(row.Cells))
	for i, c := range row.Cells {
		cells[i] = displayValue(c)
	}
	return TableRow{Index: index, Group: row.Group, Cells: cells}
}

// pageTable slices t into pages of pageSize rows. Out-of-range pages are
// clamped to the last page.
func pageTable(id string, kind TableKind, t *dtaselect.Table, page, pageSize int) *TablePage {
	total := t.Len()
	if pageSize <= 0 {
		pageSize = 1
	}
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	rows := make([]TableRow, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, tableRow(i, t.Rows[i]))
	}

	return &TablePage{
		ReportID:   id,
		Table:      kind,
		Columns:    t.Schema.Fields,
		Rows:       rows,
		TotalRows:  total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
