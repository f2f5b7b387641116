package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// iteratorForCopyReportRows implements pgx.CopyFromSource.
type iteratorForCopyReportRows struct {
	rows                 []ReportRow
	skippedFirstNextCall bool
}

func (r *iteratorForCopyReportRows) Next() bool {
	if len(r.rows) == 0 {
		return false
	}
	if !r.skippedFirstNextCall {
		r.skippedFirstNextCall = true
		return true
	}
	r.rows = r.rows[1:]
	return len(r.rows) > 0
}

func (r iteratorForCopyReportRows) Values() ([]interface{}, error) {
	return []interface{}{
		r.rows[0].ReportID,
		r.rows[0].Kind,
		r.rows[0].Ordinal,
		r.rows[0].ProteinGroup,
		r.rows[0].Cells,
	}, nil
}

func (r iteratorForCopyReportRows) Err() error {
	return nil
}

// CopyReportRows bulk loads rows with the COPY protocol.
func (q *Queries) CopyReportRows(ctx context.Context, arg []ReportRow) (int64, error) {
	return q.db.CopyFrom(ctx, pgx.Identifier{"report_rows"}, []string{"report_id", "kind", "ordinal", "protein_group", "cells"}, &iteratorForCopyReportRows{rows: arg})
}
