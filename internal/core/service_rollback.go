package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/filterframes/internal/dtaselect"
	"github.com/JonMunkholm/filterframes/internal/logging"
)

// RestoreResult describes a report rolled back to an earlier state.
type RestoreResult struct {
	Meta         ReportMeta `json:"report"`
	RestoredFrom string     `json:"restoredFrom"`
	// AuditID is the history entry recording the restore itself.
	AuditID string `json:"auditId,omitempty"`
}

// Restore rolls a report back to the state it had before the change recorded
// by auditID. A deleted report is recreated under its old id. The restore is
// itself recorded, with the replaced state as its snapshot, so it can be
// undone the same way.
func (s *Service) Restore(ctx context.Context, reportID, auditID string) (*RestoreResult, error) {
	if err := validateID(reportID); err != nil {
		return nil, err
	}

	s.editMu.Lock()
	defer s.editMu.Unlock()

	entry, err := s.store.GetAudit(ctx, auditID)
	if err != nil {
		return nil, err
	}
	if entry.ReportID != reportID {
		return nil, ErrAuditNotFound
	}
	if entry.Snapshot == "" {
		return nil, fmt.Errorf("history entry %s (%s) has no snapshot to restore", auditID, entry.Action)
	}

	rep, err := dtaselect.ParseString(entry.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	var (
		meta  ReportMeta
		prior string
	)
	current, err := s.store.LoadReport(ctx, reportID)
	switch {
	case err == nil:
		meta = current.Meta
		if prior, err = dtaselect.Serialize(current.Report); err != nil {
			return nil, err
		}
	case errors.Is(err, ErrReportNotFound):
		meta = ReportMeta{ID: reportID, FileName: entry.FileName, CreatedAt: s.now().UTC()}
	default:
		return nil, err
	}
	meta.Summary = rep.Summarize()

	if err := s.store.SaveReport(ctx, &StoredReport{Meta: meta, Report: rep}); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	result := &RestoreResult{Meta: meta, RestoredFrom: auditID}
	if rec := s.logAudit(ctx, AuditLogParams{
		Action:         ActionReportRestore,
		ReportID:       reportID,
		FileName:       meta.FileName,
		Detail:         fmt.Sprintf("restored the state before %s", entry.Action),
		RowsAffected:   meta.Summary.Proteins + meta.Summary.Peptides,
		RelatedAuditID: auditID,
		Snapshot:       prior,
	}); rec != nil {
		result.AuditID = rec.ID
	}

	logging.WithFields(ctx, "report_id", reportID).Info("report restored",
		"audit_id", auditID, "action", entry.Action)
	return result, nil
}
