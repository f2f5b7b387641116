package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Report struct {
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

type ReportRow struct {
	ReportID     pgtype.UUID
	Kind         string
	Ordinal      int32
	ProteinGroup int32
	Cells        []byte
}

type ReportAudit struct {
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
