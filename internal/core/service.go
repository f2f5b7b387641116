package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/JonMunkholm/filterframes/internal/config"
	"github.com/JonMunkholm/filterframes/internal/dtaselect"
	"github.com/JonMunkholm/filterframes/internal/logging"
	"github.com/google/uuid"
)

// ErrEmptyFile is returned when an upload contains no bytes.
var ErrEmptyFile = errors.New("empty file")

// Service ingests filter reports, stores them, and serves and edits the
// stored tables.
type Service struct {
	store   ReportStore
	limiter *UploadLimiter

	maxFileSize   int64
	uploadTimeout time.Duration
	pageSize      int
	maxPageSize   int

	// editMu serializes load-modify-save edits so concurrent edits to one
	// report cannot lose each other's changes.
	editMu sync.Mutex

	now func() time.Time
}

// NewService creates a Service backed by store.
func NewService(store ReportStore, cfg *config.Config) *Service {
	return &Service{
		store:         store,
		limiter:       NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		maxFileSize:   cfg.Upload.MaxFileSize,
		uploadTimeout: cfg.Upload.Timeout,
		pageSize:      cfg.Report.PageSize,
		maxPageSize:   cfg.Report.MaxPageSize,
		now:           time.Now,
	}
}

// Ingest parses the report read from r and stores it under a new id.
func (s *Service) Ingest(ctx context.Context, fileName string, r io.Reader) (*IngestResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	start := s.now()
	id := uuid.New().String()
	name := filepath.Base(fileName)
	log := logging.WithFields(ctx, "report_id", id, "file", name).With(OriginFrom(ctx).logArgs()...)
	log.Info("ingest started")

	rep, read, err := s.parse(r)
	if err != nil {
		log.Warn("ingest rejected", "bytes", read, "error", err)
		return nil, err
	}

	stored := &StoredReport{
		Meta: ReportMeta{
			ID:        id,
			FileName:  name,
			CreatedAt: start.UTC(),
			Summary:   rep.Summarize(),
		},
		Report: rep,
	}
	if err := s.store.SaveReport(ctx, stored); err != nil {
		log.Error("saving report failed", "error", err)
		return nil, fmt.Errorf("save report: %w", err)
	}

	s.logAudit(ctx, AuditLogParams{
		Action:       ActionIngest,
		ReportID:     id,
		FileName:     name,
		Detail:       fmt.Sprintf("%d proteins, %d peptides", stored.Meta.Summary.Proteins, stored.Meta.Summary.Peptides),
		RowsAffected: stored.Meta.Summary.Proteins + stored.Meta.Summary.Peptides,
	})

	result := &IngestResult{
		Meta:      stored.Meta,
		BytesRead: read,
		Duration:  s.now().Sub(start),
	}
	log.Info("ingest completed",
		"proteins", stored.Meta.Summary.Proteins,
		"peptides", stored.Meta.Summary.Peptides,
		"groups", stored.Meta.Summary.Groups,
		"bytes", read,
		"duration", result.Duration)
	return result, nil
}

// Convert parses the report read from r and writes it back to w in
// normalized form without storing it.
func (s *Service) Convert(ctx context.Context, r io.Reader, w io.Writer) (dtaselect.Summary, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return dtaselect.Summary{}, err
	}
	defer s.limiter.Release()

	rep, _, err := s.parse(r)
	if err != nil {
		return dtaselect.Summary{}, err
	}
	if err := dtaselect.Write(w, rep); err != nil {
		return dtaselect.Summary{}, fmt.Errorf("write report: %w", err)
	}
	return rep.Summarize(), nil
}

// parse decodes and parses r, returning the raw byte count read.
func (s *Service) parse(r io.Reader) (*dtaselect.Report, int64, error) {
	sr := WrapForStreaming(r, s.maxFileSize)
	rep, err := dtaselect.ParseReader(sr)
	if sr.BytesRead() == 0 {
		return nil, 0, ErrEmptyFile
	}
	if err != nil {
		return nil, sr.BytesRead(), err
	}
	return rep, sr.BytesRead(), nil
}

// GetReport loads a stored report.
func (s *Service) GetReport(ctx context.Context, id string) (*StoredReport, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.store.LoadReport(ctx, id)
}

// ListReports returns every stored report, newest first.
func (s *Service) ListReports(ctx context.Context) ([]ReportMeta, error) {
	return s.store.ListReports(ctx)
}

// TablePage returns one page of a report table. A non-positive limit selects
// the default page size and larger limits are capped.
func (s *Service) TablePage(ctx context.Context, id, table string, page, limit int) (*TablePage, error) {
	kind, err := ParseTableKind(table)
	if err != nil {
		return nil, err
	}
	rep, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.pageSize
	}
	if s.maxPageSize > 0 && limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	return pageTable(id, kind, rep.Table(kind), page, limit), nil
}

// Export writes a stored report as filter text.
func (s *Service) Export(ctx context.Context, id string, w io.Writer) (*ReportMeta, error) {
	rep, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := dtaselect.Write(w, rep.Report); err != nil {
		return nil, fmt.Errorf("export report: %w", err)
	}
	return &rep.Meta, nil
}

// RemoveGroup deletes a protein group and its peptides from a stored report.
func (s *Service) RemoveGroup(ctx context.Context, id string, group int) (*RemoveResult, error) {
	result := &RemoveResult{ReportID: id}
	err := s.edit(ctx, id, ActionGroupRemove, func(rep *dtaselect.Report) (string, int, error) {
		proteins, peptides, err := rep.RemoveGroup(group)
		result.ProteinsRemoved, result.PeptidesRemoved = proteins, peptides
		detail := fmt.Sprintf("protein group %d: %d proteins, %d peptides", group, proteins, peptides)
		return detail, proteins + peptides, err
	})
	if err != nil {
		return nil, err
	}
	logging.WithFields(ctx, "report_id", id).Info("protein group removed",
		"group", group, "proteins", result.ProteinsRemoved, "peptides", result.PeptidesRemoved)
	return result, nil
}

// DeletePeptide deletes one peptide row, by table index, from a stored report.
func (s *Service) DeletePeptide(ctx context.Context, id string, row int) (*RemoveResult, error) {
	err := s.edit(ctx, id, ActionPeptideDelete, func(rep *dtaselect.Report) (string, int, error) {
		return fmt.Sprintf("peptide row %d", row), 1, rep.Peptides.Delete(row)
	})
	if err != nil {
		return nil, err
	}
	logging.WithFields(ctx, "report_id", id).Info("peptide removed", "row", row)
	return &RemoveResult{ReportID: id, PeptidesRemoved: 1}, nil
}

// edit loads a report, applies fn, checks the result still serializes, and
// saves it with a refreshed summary. The report text before the edit is kept
// in the history entry fn's detail describes.
func (s *Service) edit(ctx context.Context, id string, action AuditAction, fn func(*dtaselect.Report) (detail string, rows int, err error)) error {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	rep, err := s.GetReport(ctx, id)
	if err != nil {
		return err
	}
	snapshot, err := dtaselect.Serialize(rep.Report)
	if err != nil {
		return err
	}
	detail, rows, err := fn(rep.Report)
	if err != nil {
		return err
	}
	if err := dtaselect.Write(io.Discard, rep.Report); err != nil {
		return err
	}
	rep.Meta.Summary = rep.Report.Summarize()
	if err := s.store.SaveReport(ctx, rep); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	s.logAudit(ctx, AuditLogParams{
		Action:       action,
		ReportID:     id,
		FileName:     rep.Meta.FileName,
		Detail:       detail,
		RowsAffected: rows,
		Snapshot:     snapshot,
	})
	return nil
}

// DeleteReport removes a stored report. Its history is kept, so the report
// can be restored.
func (s *Service) DeleteReport(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.editMu.Lock()
	defer s.editMu.Unlock()

	rep, err := s.store.LoadReport(ctx, id)
	if err != nil {
		return err
	}
	snapshot, err := dtaselect.Serialize(rep.Report)
	if err != nil {
		return err
	}
	if err := s.store.DeleteReport(ctx, id); err != nil {
		return err
	}

	s.logAudit(ctx, AuditLogParams{
		Action:       ActionReportDelete,
		ReportID:     id,
		FileName:     rep.Meta.FileName,
		RowsAffected: rep.Meta.Summary.Proteins + rep.Meta.Summary.Peptides,
		Snapshot:     snapshot,
	})
	logging.WithFields(ctx, "report_id", id).Info("report deleted")
	return nil
}

// UploadLimiterStatus returns the ingest slot usage.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until in-flight ingests finish or ctx is done.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid report id %q", id)
	}
	return nil
}
