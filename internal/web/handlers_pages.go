package web

import (
	"net/http"

	"github.com/JonMunkholm/filterframes/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// handleDashboard lists stored reports with the upload form. HTMX requests
// get only the report list, for refreshing after an upload.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	reports, err := s.service.ListReports(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if isHTMX(r) {
		templates.ReportList(reports).Render(r.Context(), w)
		return
	}
	templates.Dashboard(reports, s.service.UploadLimiterStatus()).Render(r.Context(), w)
}

// handleReportView shows one page of a report table, proteins by default.
func (s *Server) handleReportView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reportID")
	table := r.URL.Query().Get("table")
	if table == "" {
		table = "proteins"
	}

	rep, err := s.service.GetReport(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	page, err := s.service.TablePage(r.Context(), id, table,
		parseIntParam(r, "page", 1), parseIntParam(r, "limit", 0))
	if err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if isHTMX(r) {
		templates.TablePartial(page).Render(r.Context(), w)
		return
	}
	templates.ReportView(rep.Meta, page).Render(r.Context(), w)
}
