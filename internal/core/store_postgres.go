package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	db "github.com/JonMunkholm/filterframes/internal/database"
	"github.com/JonMunkholm/filterframes/internal/dtaselect"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	rowKindProtein = "protein"
	rowKindPeptide = "peptide"
)

// PgStore keeps reports in PostgreSQL. Report metadata lives in the reports
// table; every protein and peptide row is one report_rows row, bulk loaded
// with COPY in batches of batchSize.
type PgStore struct {
	pool      *pgxpool.Pool
	batchSize int
}

// NewPgStore creates the schema if needed and returns a store on pool.
func NewPgStore(ctx context.Context, pool *pgxpool.Pool, batchSize int) (*PgStore, error) {
	if err := db.Migrate(ctx, pool); err != nil {
		return nil, fmt.Errorf("migrate report schema: %w", err)
	}
	if batchSize <= 0 {
		batchSize = 5000
	}
	return &PgStore{pool: pool, batchSize: batchSize}, nil
}

func (p *PgStore) SaveReport(ctx context.Context, rep *StoredReport) error {
	id := ToPgUUID(rep.Meta.ID)
	if !id.Valid {
		return fmt.Errorf("invalid report id: %q", rep.Meta.ID)
	}
	params, err := reportParams(rep)
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q := db.New(p.pool).WithTx(tx)

	// Replacing a report drops its old rows through the cascade.
	if _, err := q.DeleteReport(ctx, id); err != nil {
		return fmt.Errorf("delete previous report: %w", err)
	}
	if err := q.InsertReport(ctx, params); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	if err := p.copyRows(ctx, q, id, rowKindProtein, rep.Report.Proteins); err != nil {
		return err
	}
	if err := p.copyRows(ctx, q, id, rowKindPeptide, rep.Report.Peptides); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}
	return nil
}

func (p *PgStore) copyRows(ctx context.Context, q *db.Queries, id pgtype.UUID, kind string, t *dtaselect.Table) error {
	batch := make([]db.ReportRow, 0, min(p.batchSize, t.Len()))
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := q.CopyReportRows(ctx, batch); err != nil {
			return fmt.Errorf("copy %s rows: %w", kind, err)
		}
		batch = batch[:0]
		return nil
	}

	for i, row := range t.Rows {
		cells, err := EncodeCells(row)
		if err != nil {
			return fmt.Errorf("encode %s row %d: %w", kind, i, err)
		}
		batch = append(batch, db.ReportRow{
			ReportID:     id,
			Kind:         kind,
			Ordinal:      int32(i),
			ProteinGroup: int32(row.Group),
			Cells:        cells,
		})
		if len(batch) == p.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func reportParams(rep *StoredReport) (db.InsertReportParams, error) {
	r := rep.Report
	protSchema, err := EncodeSchema(r.Proteins.Schema)
	if err != nil {
		return db.InsertReportParams{}, fmt.Errorf("encode protein schema: %w", err)
	}
	pepSchema, err := EncodeSchema(r.Peptides.Schema)
	if err != nil {
		return db.InsertReportParams{}, fmt.Errorf("encode peptide schema: %w", err)
	}
	sum := rep.Meta.Summary
	return db.InsertReportParams{
		ID:            ToPgUUID(rep.Meta.ID),
		FileName:      rep.Meta.FileName,
		HeaderLines:   nonNil(r.Header),
		TrailerLines:  nonNil(r.Trailer),
		ProteinSchema: protSchema,
		PeptideSchema: pepSchema,
		ProteinCount:  int32(sum.Proteins),
		PeptideCount:  int32(sum.Peptides),
		GroupCount:    int32(sum.Groups),
		ScanFiles:     nonNil(sum.ScanFiles),
		CreatedAt:     ToPgTimestamptz(rep.Meta.CreatedAt),
	}, nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (p *PgStore) LoadReport(ctx context.Context, id string) (*StoredReport, error) {
	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return nil, ErrReportNotFound
	}

	q := db.New(p.pool)
	rec, err := q.GetReport(ctx, pgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	protSchema, err := DecodeSchema(rec.ProteinSchema)
	if err != nil {
		return nil, err
	}
	pepSchema, err := DecodeSchema(rec.PeptideSchema)
	if err != nil {
		return nil, err
	}
	proteins := dtaselect.NewTable(protSchema)
	peptides := dtaselect.NewTable(pepSchema)

	rows, err := q.GetReportRows(ctx, pgID)
	if err != nil {
		return nil, fmt.Errorf("get report rows: %w", err)
	}
	for _, r := range rows {
		t := proteins
		if r.Kind == rowKindPeptide {
			t = peptides
		}
		cells, err := DecodeCells(t.Schema.Fields, r.Cells)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", r.Kind, r.Ordinal, err)
		}
		if err := t.Append(dtaselect.Row{Cells: cells, Group: int(r.ProteinGroup)}); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", r.Kind, r.Ordinal, err)
		}
	}

	return &StoredReport{
		Meta: ReportMeta{
			ID:        PgUUIDToString(rec.ID),
			FileName:  rec.FileName,
			CreatedAt: rec.CreatedAt.Time,
			Summary: dtaselect.Summary{
				HeaderLines:  len(rec.HeaderLines),
				TrailerLines: len(rec.TrailerLines),
				Proteins:     int(rec.ProteinCount),
				Peptides:     int(rec.PeptideCount),
				Groups:       int(rec.GroupCount),
				ScanFiles:    rec.ScanFiles,
			},
		},
		Report: &dtaselect.Report{
			Header:   rec.HeaderLines,
			Proteins: proteins,
			Peptides: peptides,
			Trailer:  rec.TrailerLines,
		},
	}, nil
}

func (p *PgStore) ListReports(ctx context.Context) ([]ReportMeta, error) {
	rows, err := db.New(p.pool).ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	metas := make([]ReportMeta, len(rows))
	for i, r := range rows {
		metas[i] = ReportMeta{
			ID:        PgUUIDToString(r.ID),
			FileName:  r.FileName,
			CreatedAt: r.CreatedAt.Time,
			Summary: dtaselect.Summary{
				HeaderLines:  int(r.HeaderCount),
				TrailerLines: int(r.TrailerCount),
				Proteins:     int(r.ProteinCount),
				Peptides:     int(r.PeptideCount),
				Groups:       int(r.GroupCount),
				ScanFiles:    r.ScanFiles,
			},
		}
	}
	return metas, nil
}

func (p *PgStore) DeleteReport(ctx context.Context, id string) error {
	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return ErrReportNotFound
	}
	n, err := db.New(p.pool).DeleteReport(ctx, pgID)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (p *PgStore) InsertAudit(ctx context.Context, e *AuditEntry) error {
	err := db.New(p.pool).InsertAuditEntry(ctx, db.InsertAuditEntryParams{
		ID:             ToPgUUID(e.ID),
		ReportID:       ToPgUUID(e.ReportID),
		Action:         string(e.Action),
		Severity:       string(e.Severity),
		FileName:       e.FileName,
		IpAddress:      ToPgText(e.IPAddress),
		UserAgent:      ToPgText(e.UserAgent),
		Detail:         ToPgText(e.Detail),
		RowsAffected:   int32(e.RowsAffected),
		RelatedAuditID: ToPgUUID(e.RelatedAuditID),
		// Not ToPgText: snapshots keep their surrounding whitespace.
		Snapshot:  pgtype.Text{String: e.Snapshot, Valid: e.Snapshot != ""},
		CreatedAt: ToPgTimestamptz(e.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

func (p *PgStore) GetAudit(ctx context.Context, id string) (*AuditEntry, error) {
	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return nil, ErrAuditNotFound
	}
	r, err := db.New(p.pool).GetAuditEntry(ctx, pgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAuditNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get history entry: %w", err)
	}
	return &AuditEntry{
		ID:             PgUUIDToString(r.ID),
		ReportID:       PgUUIDToString(r.ReportID),
		Action:         AuditAction(r.Action),
		Severity:       AuditSeverity(r.Severity),
		FileName:       r.FileName,
		IPAddress:      r.IpAddress.String,
		UserAgent:      r.UserAgent.String,
		Detail:         r.Detail.String,
		RowsAffected:   int(r.RowsAffected),
		RelatedAuditID: PgUUIDToString(r.RelatedAuditID),
		Restorable:     r.Snapshot.String != "",
		CreatedAt:      r.CreatedAt.Time,
		Snapshot:       r.Snapshot.String,
	}, nil
}

func (p *PgStore) ListAudit(ctx context.Context, filter AuditLogFilter) ([]AuditEntry, int, error) {
	reportID := ToPgUUID(filter.ReportID)
	q := db.New(p.pool)

	total, err := q.CountAuditEntries(ctx, db.CountAuditEntriesParams{
		ReportID: reportID,
		Action:   string(filter.Action),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}
	rows, err := q.ListAuditEntries(ctx, db.ListAuditEntriesParams{
		ReportID: reportID,
		Action:   string(filter.Action),
		Limit:    int32(filter.Limit),
		Offset:   int32(filter.Offset),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}

	entries := make([]AuditEntry, len(rows))
	for i, r := range rows {
		entries[i] = AuditEntry{
			ID:             PgUUIDToString(r.ID),
			ReportID:       PgUUIDToString(r.ReportID),
			Action:         AuditAction(r.Action),
			Severity:       AuditSeverity(r.Severity),
			FileName:       r.FileName,
			IPAddress:      r.IpAddress.String,
			UserAgent:      r.UserAgent.String,
			Detail:         r.Detail.String,
			RowsAffected:   int(r.RowsAffected),
			RelatedAuditID: PgUUIDToString(r.RelatedAuditID),
			Restorable:     r.Restorable,
			CreatedAt:      r.CreatedAt.Time,
		}
	}
	return entries, int(total), nil
}

func (p *PgStore) PruneAudit(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := db.New(p.pool).DeleteAuditBefore(ctx, ToPgTimestamptz(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return n, nil
}
