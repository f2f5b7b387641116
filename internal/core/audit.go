package core

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/filterframes/internal/logging"
	"github.com/google/uuid"
)

// ErrAuditNotFound is returned when a history entry does not exist for the
// requested report.
var ErrAuditNotFound = errors.New("history entry not found")

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionIngest        AuditAction = "ingest"
	ActionGroupRemove   AuditAction = "group_remove"
	ActionPeptideDelete AuditAction = "peptide_delete"
	ActionReportDelete  AuditAction = "report_delete"
	ActionReportRestore AuditAction = "report_restore"
)

// ParseAuditAction accepts any action name, or the empty string for none.
func ParseAuditAction(s string) (AuditAction, error) {
	switch a := AuditAction(s); a {
	case "", ActionIngest, ActionGroupRemove, ActionPeptideDelete, ActionReportDelete, ActionReportRestore:
		return a, nil
	}
	return "", errors.New("invalid parameter action: " + s)
}

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// AuditEntry is one change to a stored report.
type AuditEntry struct {
	ID             string        `json:"id"`
	ReportID       string        `json:"reportId"`
	Action         AuditAction   `json:"action"`
	Severity       AuditSeverity `json:"severity"`
	FileName       string        `json:"fileName"`
	IPAddress      string        `json:"ipAddress,omitempty"`
	UserAgent      string        `json:"userAgent,omitempty"`
	Detail         string        `json:"detail,omitempty"`
	RowsAffected   int           `json:"rowsAffected"`
	RelatedAuditID string        `json:"relatedAuditId,omitempty"`
	// Restorable is set when the entry carries a snapshot.
	Restorable bool      `json:"restorable"`
	CreatedAt  time.Time `json:"createdAt"`

	// Snapshot is the report text before the change. Listings leave it
	// empty; only single-entry loads fill it.
	Snapshot string `json:"-"`
}

// AuditLogParams contains parameters for creating an audit log entry.
type AuditLogParams struct {
	Action         AuditAction
	ReportID       string
	FileName       string
	Detail         string
	RowsAffected   int
	RelatedAuditID string
	Snapshot       string
}

// AuditLogFilter selects entries of one report.
type AuditLogFilter struct {
	ReportID string
	Action   AuditAction
	Limit    int
	Offset   int
}

// AuditLogResult is one page of a report's history.
type AuditLogResult struct {
	Entries []AuditEntry `json:"entries"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// AuditStore persists report history. Entries outlive the report they
// describe, so a deleted report can be restored.
type AuditStore interface {
	InsertAudit(ctx context.Context, entry *AuditEntry) error
	// GetAudit returns ErrAuditNotFound for unknown ids.
	GetAudit(ctx context.Context, id string) (*AuditEntry, error)
	// ListAudit returns a page of matching entries, newest first, and the
	// number of matching entries.
	ListAudit(ctx context.Context, filter AuditLogFilter) ([]AuditEntry, int, error)
	// PruneAudit deletes entries created before cutoff.
	PruneAudit(ctx context.Context, cutoff time.Time) (int64, error)
}

// DefaultHistoryLimit is the page size for history listings.
const DefaultHistoryLimit = 50

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionReportDelete, ActionReportRestore:
		return SeverityHigh
	case ActionIngest:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// logAudit records a history entry. Failures are logged, never returned, so a
// completed change is not reported as failed.
func (s *Service) logAudit(ctx context.Context, params AuditLogParams) *AuditEntry {
	origin := OriginFrom(ctx)
	entry := &AuditEntry{
		ID:             uuid.New().String(),
		ReportID:       params.ReportID,
		Action:         params.Action,
		Severity:       determineSeverity(params.Action),
		FileName:       params.FileName,
		IPAddress:      origin.IPAddress,
		UserAgent:      origin.UserAgent,
		Detail:         params.Detail,
		RowsAffected:   params.RowsAffected,
		RelatedAuditID: params.RelatedAuditID,
		Restorable:     params.Snapshot != "",
		CreatedAt:      s.now().UTC(),
		Snapshot:       params.Snapshot,
	}
	if err := s.store.InsertAudit(ctx, entry); err != nil {
		logging.WithFields(ctx, "report_id", params.ReportID).Warn("recording history failed",
			"action", params.Action, "error", err)
		return nil
	}
	return entry
}

// History returns a page of a report's change history, newest first. It also
// works for deleted reports.
func (s *Service) History(ctx context.Context, filter AuditLogFilter) (*AuditLogResult, error) {
	if err := validateID(filter.ReportID); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	if s.maxPageSize > 0 && filter.Limit > s.maxPageSize {
		filter.Limit = s.maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	entries, total, err := s.store.ListAudit(ctx, filter)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return &AuditLogResult{Entries: entries, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// historyBatchSize is the page size StreamHistory reads the store in.
const historyBatchSize = 500

// StreamHistory calls fn for every matching history entry, newest first,
// reading the store one batch at a time. Limit and Offset are ignored.
func (s *Service) StreamHistory(ctx context.Context, filter AuditLogFilter, fn func(AuditEntry) error) error {
	if err := validateID(filter.ReportID); err != nil {
		return err
	}
	filter.Limit = historyBatchSize
	for filter.Offset = 0; ; filter.Offset += historyBatchSize {
		entries, total, err := s.store.ListAudit(ctx, filter)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := fn(e); err != nil {
				return err
			}
		}
		if len(entries) == 0 || filter.Offset+len(entries) >= total {
			return nil
		}
	}
}
