package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertAuditEntry = `-- name: InsertAuditEntry :exec
INSERT INTO report_audit (
    id, report_id, action, severity, file_name, ip_address, user_agent,
    detail, rows_affected, related_audit_id, snapshot, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

type InsertAuditEntryParams struct {
	ID             pgtype.UUID
	ReportID       pgtype.UUID
	Action         string
	Severity       string
	FileName       string
	IpAddress      pgtype.Text
	UserAgent      pgtype.Text
	Detail         pgtype.Text
	RowsAffected   int32
	RelatedAuditID pgtype.UUID
	Snapshot       pgtype.Text
	CreatedAt      pgtype.Timestamptz
}

func (q *Queries) InsertAuditEntry(ctx context.Context, arg InsertAuditEntryParams) error {
	_, err := q.db.Exec(ctx, insertAuditEntry,
		arg.ID,
		arg.ReportID,
		arg.Action,
		arg.Severity,
		arg.FileName,
		arg.IpAddress,
		arg.UserAgent,
		arg.Detail,
		arg.RowsAffected,
		arg.RelatedAuditID,
		arg.Snapshot,
		arg.CreatedAt,
	)
	return err
}

const getAuditEntry = `-- name: GetAuditEntry :one
SELECT id, report_id, action, severity, file_name, ip_address, user_agent,
       detail, rows_affected, related_audit_id, snapshot, created_at
FROM report_audit
WHERE id = $1
`

func (q *Queries) GetAuditEntry(ctx context.Context, id pgtype.UUID) (ReportAudit, error) {
	row := q.db.QueryRow(ctx, getAuditEntry, id)
	var i ReportAudit
	err := row.Scan(
		&i.ID,
		&i.ReportID,
		&i.Action,
		&i.Severity,
		&i.FileName,
		&i.IpAddress,
		&i.UserAgent,
		&i.Detail,
		&i.RowsAffected,
		&i.RelatedAuditID,
		&i.Snapshot,
		&i.CreatedAt,
	)
	return i, err
}

const listAuditEntries = `-- name: ListAuditEntries :many
SELECT id, report_id, action, severity, file_name, ip_address, user_agent,
       detail, rows_affected, related_audit_id,
       (snapshot IS NOT NULL AND snapshot <> '')::boolean AS restorable,
       created_at
FROM report_audit
WHERE report_id = $1
  AND ($2::text = '' OR action = $2::text)
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4
`

type ListAuditEntriesParams struct {
	ReportID pgtype.UUID
	Action   string
	Limit    int32
	Offset   int32
}

type ListAuditEntriesRow struct {
	ID             pgtype.UUID
	ReportID       pgtype.UUID
	Action         string
	Severity       string
	FileName       string
	IpAddress      pgtype.Text
	UserAgent      pgtype.Text
	Detail         pgtype.Text
	RowsAffected   int32
	RelatedAuditID pgtype.UUID
	Restorable     bool
	CreatedAt      pgtype.Timestamptz
}

func (q *Queries) ListAuditEntries(ctx context.Context, arg ListAuditEntriesParams) ([]ListAuditEntriesRow, error) {
	rows, err := q.db.Query(ctx, listAuditEntries,
		arg.ReportID,
		arg.Action,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListAuditEntriesRow
	for rows.Next() {
		var i ListAuditEntriesRow
		if err := rows.Scan(
			&i.ID,
			&i.ReportID,
			&i.Action,
			&i.Severity,
			&i.FileName,
			&i.IpAddress,
			&i.UserAgent,
			&i.Detail,
			&i.RowsAffected,
			&i.RelatedAuditID,
			&i.Restorable,
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

const countAuditEntries = `-- name: CountAuditEntries :one
SELECT count(*)
FROM report_audit
WHERE report_id = $1
  AND ($2::text = '' OR action = $2::text)
`

type CountAuditEntriesParams struct {
	ReportID pgtype.UUID
	Action   string
}

func (q *Queries) CountAuditEntries(ctx context.Context, arg CountAuditEntriesParams) (int64, error) {
	row := q.db.QueryRow(ctx, countAuditEntries, arg.ReportID, arg.Action)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteAuditBefore = `-- name: DeleteAuditBefore :execrows
DELETE FROM report_audit
WHERE created_at < $1
`

func (q *Queries) DeleteAuditBefore(ctx context.Context, createdAt pgtype.Timestamptz) (int64, error) {
	result, err := q.db.Exec(ctx, deleteAuditBefore, createdAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
