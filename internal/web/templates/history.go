package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/filterframes/internal/core"
	"github.com/a-h/templ"
)

// HistoryView is the change history page of a report. It also serves
// deleted reports, which can be brought back from here.
func HistoryView(reportID string, res *core.AuditLogResult) templ.Component {
	title := "History"
	if len(res.Entries) > 0 {
		title = res.Entries[0].FileName + " history"
	}
	return Page(title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return newHTMLWriter(ctx, w).
			raw(`<h1>`).text(title).raw(`</h1>`).
			raw(`<p><a href="`).url(templ.URL("/reports/"+reportID)).raw(`">Back to report</a> | `).
			raw(`<a href="`).url(templ.URL("/api/reports/"+reportID+"/history/export")).raw(`">Download CSV</a></p>`).
			raw(`<div id="restore-result"></div>`).
			component(HistoryList(reportID, res)).
			Err()
	}))
}

// HistoryList is the table of history entries, newest first.
func HistoryList(reportID string, res *core.AuditLogResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		if len(res.Entries) == 0 {
			return h.raw(`<section id="history"><p>No history recorded.</p></section>`).Err()
		}
		h.raw(`<section id="history"><table><thead><tr>`).
			raw(`<th>When</th><th>Action</th><th>Severity</th><th>Detail</th><th>Rows</th><th>From</th><th></th>`).
			raw(`</tr></thead><tbody>`)
		for _, e := range res.Entries {
			h.raw(`<tr class="severity-`).text(string(e.Severity)).raw(`">`).
				raw(`<td>`).text(e.CreatedAt.Format("2006-01-02 15:04:05")).raw(`</td>`).
				raw(`<td>`).text(string(e.Action)).raw(`</td><td>`).text(string(e.Severity)).raw(`</td>`).
				raw(`<td>`).text(e.Detail).raw(`</td><td>`).num(e.RowsAffected).raw(`</td>`).
				raw(`<td>`).text(originText(e)).raw(`</td><td>`)
			if e.Restorable {
				restore := fmt.Sprintf("/api/reports/%s/history/%s/restore", reportID, e.ID)
				h.raw(`<button hx-post="`).url(templ.URL(restore)).
					raw(`" hx-target="#restore-result" hx-confirm="Restore the report to its state before this change?">Restore</button>`)
			}
			h.raw(`</td></tr>`)
		}
		return h.raw(`</tbody></table><p class="muted">Showing `).num(len(res.Entries)).raw(` of `).num(res.Total).
			raw(` entries.</p></section>`).Err()
	})
}

// originText is the From column: the client address, or the user agent for
// changes that did not come over HTTP.
func originText(e core.AuditEntry) string {
	if e.IPAddress != "" {
		return e.IPAddress
	}
	return e.UserAgent
}

// RestoreResult is the fragment returned to a restore button.
func RestoreResult(res *core.RestoreResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return newHTMLWriter(ctx, w).
			raw(`<div class="alert alert-success">Restored <a href="`).url(templ.URL("/reports/"+res.Meta.ID)).raw(`">`).
			text(res.Meta.FileName).raw(`</a>: `).num(res.Meta.Summary.Proteins).raw(` proteins, `).
			num(res.Meta.Summary.Peptides).raw(` peptides.</div>`).
			Err()
	})
}
