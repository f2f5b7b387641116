package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/filterframes/internal/core"
	"github.com/JonMunkholm/filterframes/internal/dtaselect"
	"github.com/a-h/templ"
)

// Dashboard lists stored reports above the upload form.
func Dashboard(reports []core.ReportMeta, status core.UploadLimiterStatus) templ.Component {
	return Page("Reports", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return newHTMLWriter(ctx, w).
			raw(`<section><h1>Upload a filter report</h1>`).
			raw(`<form hx-post="/api/reports" hx-encoding="multipart/form-data" hx-target="#upload-result">`).
			raw(`<input type="file" name="file" accept=".txt" required> <button type="submit">Upload</button> `).
			raw(`<button type="button" hx-post="/api/preview" hx-encoding="multipart/form-data" hx-include="closest form" hx-target="#upload-result">Preview</button></form>`).
			raw(`<div id="upload-result"></div>`).
			raw(`<p class="muted">Ingest slots in use: `).num(status.Active).raw(` of `).num(status.MaxConcurrent).raw(`</p></section>`).
			component(ReportList(reports)).
			Err()
	}))
}

// ReportList is the table of stored reports.
func ReportList(reports []core.ReportMeta) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		if len(reports) == 0 {
			return h.raw(`<section id="reports"><p>No reports stored yet.</p></section>`).Err()
		}
		h.raw(`<section id="reports"><table><thead><tr>`).
			raw(`<th>File</th><th>Uploaded</th><th>Proteins</th><th>Peptides</th><th>Groups</th><th>Scan files</th>`).
			raw(`</tr></thead><tbody>`)
		for _, m := range reports {
			h.raw(`<tr><td><a href="`).url(templ.URL("/reports/"+m.ID)).raw(`">`).text(m.FileName).raw(`</a></td>`).
				raw(`<td>`).text(m.CreatedAt.Format("2006-01-02 15:04:05")).raw(`</td>`).
				raw(`<td>`).num(m.Summary.Proteins).raw(`</td><td>`).num(m.Summary.Peptides).raw(`</td>`).
				raw(`<td>`).num(m.Summary.Groups).raw(`</td><td>`).text(strings.Join(m.Summary.ScanFiles, ", ")).raw(`</td></tr>`)
		}
		return h.raw(`</tbody></table></section>`).Err()
	})
}

// ReportView shows a report summary and one page of a table.
func ReportView(meta core.ReportMeta, page *core.TablePage) templ.Component {
	return Page(meta.FileName, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		base := "/reports/" + meta.ID
		return newHTMLWriter(ctx, w).
			raw(`<h1>`).text(meta.FileName).raw(`</h1>`).
			raw(`<p>`).num(meta.Summary.Proteins).raw(` proteins in `).num(meta.Summary.Groups).
			raw(` groups, `).num(meta.Summary.Peptides).raw(` peptides. `).
			raw(`<a href="`).url(templ.URL("/api/reports/"+meta.ID+"/export")).raw(`">Download</a> | `).
			raw(`<a href="`).url(templ.URL(base+"/history")).raw(`">History</a></p>`).
			raw(`<nav><a href="`).url(templ.URL(base+"?table=proteins")).raw(`">Proteins</a> | `).
			raw(`<a href="`).url(templ.URL(base+"?table=peptides")).raw(`">Peptides</a></nav>`).
			component(TablePartial(page)).
			Err()
	}))
}

// TablePartial renders one page of a report table with pager links. It is
// the HTMX swap target when paging.
func TablePartial(page *core.TablePage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		h.raw(`<div id="table"><table><thead><tr><th>#</th><th>Group</th>`)
		for _, f := range page.Columns {
			h.raw(`<th title="`).text(f.Kind.String()).raw(`">`).text(f.Name).raw(`</th>`)
		}
		h.raw(`</tr></thead><tbody>`)
		for _, row := range page.Rows {
			h.raw(`<tr><td>`).num(row.Index).raw(`</td><td>`).num(row.Group).raw(`</td>`)
			for _, c := range row.Cells {
				h.raw(`<td>`).text(cellText(c)).raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
		pager(h, page)
		return h.raw(`</div>`).Err()
	})
}

func pager(h *htmlWriter, page *core.TablePage) {
	link := func(p int) templ.SafeURL {
		return templ.URL(fmt.Sprintf("/reports/%s?table=%s&page=%d&limit=%d", page.ReportID, page.Table, p, page.PageSize))
	}
	h.raw(`<nav class="pager">`)
	if page.Page > 1 {
		prev := link(page.Page - 1)
		h.raw(`<a hx-get="`).url(prev).raw(`" hx-target="#table" hx-swap="outerHTML" href="`).url(prev).raw(`">Previous</a> `)
	}
	h.raw(`Page `).num(page.Page).raw(` of `).num(page.TotalPages).raw(` (`).num(page.TotalRows).raw(` rows)`)
	if page.Page < page.TotalPages {
		next := link(page.Page + 1)
		h.raw(` <a hx-get="`).url(next).raw(`" hx-target="#table" hx-swap="outerHTML" href="`).url(next).raw(`">Next</a>`)
	}
	h.raw(`</nav>`)
}

// UploadResult is the fragment returned to the upload form.
func UploadResult(res *core.IngestResult) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return newHTMLWriter(ctx, w).
			raw(`<div class="alert alert-success">Stored <a href="`).url(templ.URL("/reports/"+res.Meta.ID)).raw(`">`).
			text(res.Meta.FileName).raw(`</a>: `).num(res.Meta.Summary.Proteins).raw(` proteins, `).
			num(res.Meta.Summary.Peptides).raw(` peptides.</div>`).
			Err()
	})
}

// PreviewResult is the fragment returned to the preview button.
func PreviewResult(name string, res *core.PreviewResponse) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		sum := res.Summary
		h := newHTMLWriter(ctx, w)
		h.raw(`<div class="alert alert-info"><strong>`).text(name).raw(`</strong>: `).
			num(sum.Proteins).raw(` proteins in `).num(sum.Groups).raw(` groups, `).num(sum.Peptides).raw(` peptides. `).
			raw(`Scan files: `).text(strings.Join(sum.ScanFiles, ", ")).raw(`.`).
			raw(`<p>Protein columns: `).text(columnList(res.ProteinColumns)).raw(`</p>`).
			raw(`<p>Peptide columns: `).text(columnList(res.PeptideColumns)).raw(`</p>`)
		if len(res.EmptyGroups) > 0 {
			h.raw(`<p>`).num(len(res.EmptyGroups)).raw(` protein groups have no peptides.</p>`)
		}
		if res.SharedCount > 0 {
			h.raw(`<p>`).num(res.SharedCount).raw(` spectra are shared between protein groups.</p>`)
		}
		return h.raw(`</div>`).Err()
	})
}

func columnList(fields []dtaselect.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name + " (" + f.Kind.String() + ")"
	}
	return strings.Join(names, ", ")
}

func cellText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(c, 10)
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64)
	case string:
		return c
	default:
		return fmt.Sprint(c)
	}
}
