package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertReport = `-- name: InsertReport :exec
INSERT INTO reports (
    id, file_name, header_lines, trailer_lines, protein_schema, peptide_schema,
    protein_count, peptide_count, group_count, scan_files, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

type InsertReportParams struct {
	ID            pgtype.UUID
	FileName      string
	HeaderLines   []string
	TrailerLines  []string
	ProteinSchema []byte
	PeptideSchema []byte
	ProteinCount  int32
	PeptideCount  int32
	GroupCount    int32
	ScanFiles     []string
	CreatedAt     pgtype.Timestamptz
}

func (q *Queries) InsertReport(ctx context.Context, arg InsertReportParams) error {
	_, err := q.db.Exec(ctx, insertReport,
		arg.ID,
		arg.FileName,
		arg.HeaderLines,
		arg.TrailerLines,
		arg.ProteinSchema,
		arg.PeptideSchema,
		arg.ProteinCount,
		arg.PeptideCount,
		arg.GroupCount,
		arg.ScanFiles,
		arg.CreatedAt,
	)
	return err
}

const getReport = `-- name: GetReport :one
SELECT id, file_name, header_lines, trailer_lines, protein_schema, peptide_schema,
       protein_count, peptide_count, group_count, scan_files, created_at
FROM reports
WHERE id = $1
`

func (q *Queries) GetReport(ctx context.Context, id pgtype.UUID) (Report, error) {
	row := q.db.QueryRow(ctx, getReport, id)
	var i Report
	err := row.Scan(
		&i.ID,
		&i.FileName,
		&i.HeaderLines,
		&i.TrailerLines,
		&i.ProteinSchema,
		&i.PeptideSchema,
		&i.ProteinCount,
		&i.PeptideCount,
		&i.GroupCount,
		&i.ScanFiles,
		&i.CreatedAt,
	)
	return i, err
}

const listReports = `-- name: ListReports :many
SELECT id, file_name, cardinality(header_lines), cardinality(trailer_lines),
       protein_count, peptide_count, group_count, scan_files, created_at
FROM reports
ORDER BY created_at DESC, id
`

type ListReportsRow struct {
	ID           pgtype.UUID
	FileName     string
	HeaderCount  int32
	TrailerCount int32
	ProteinCount int32
	PeptideCount int32
	GroupCount   int32
	ScanFiles    []string
	CreatedAt    pgtype.Timestamptz
}

func (q *Queries) ListReports(ctx context.Context) ([]ListReportsRow, error) {
	rows, err := q.db.Query(ctx, listReports)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListReportsRow
	for rows.Next() {
		var i ListReportsRow
		if err := rows.Scan(
			&i.ID,
			&i.FileName,
			&i.HeaderCount,
			&i.TrailerCount,
			&i.ProteinCount,
			&i.PeptideCount,
			&i.GroupCount,
			&i.ScanFiles,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteReport = `-- name: DeleteReport :execrows
DELETE FROM reports WHERE id = $1
`

func (q *Queries) DeleteReport(ctx context.Context, id pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteReport, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getReportRows = `-- name: GetReportRows :many
SELECT report_id, kind, ordinal, protein_group, cells
FROM report_rows
WHERE report_id = $1
ORDER BY kind, ordinal
`

func (q *Queries) GetReportRows(ctx context.Context, reportID pgtype.UUID) ([]ReportRow, error) {
	rows, err := q.db.Query(ctx, getReportRows, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReportRow
	for rows.Next() {
		var i ReportRow
		if err := rows.Scan(
			&i.ReportID,
			&i.Kind,
			&i.Ordinal,
			&i.ProteinGroup,
			&i.Cells,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
