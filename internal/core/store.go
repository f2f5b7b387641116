package core

import (
	"context"
	"errors"
)

// ErrReportNotFound is returned when no stored report has the requested id.
var ErrReportNotFound = errors.New("report not found")

// ReportStore persists parsed reports. Implementations must be safe for
// concurrent use and must not share report values with their callers.
type ReportStore interface {
	// SaveReport inserts the report, or replaces every row of a stored
	// report with the same id.
	SaveReport(ctx context.Context, rep *StoredReport) error
	LoadReport(ctx context.Context, id string) (*StoredReport, error)
	// ListReports returns report metadata, newest first.
	ListReports(ctx context.Context) ([]ReportMeta, error)
	DeleteReport(ctx context.Context, id string) error

	AuditStore
}
