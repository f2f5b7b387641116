package web

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/filterframes/internal/core"
	"github.com/JonMunkholm/filterframes/internal/web/templates"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// historyFilter reads the action, page and limit query parameters.
func historyFilter(r *http.Request) (core.AuditLogFilter, error) {
	action, err := core.ParseAuditAction(r.URL.Query().Get("action"))
	if err != nil {
		return core.AuditLogFilter{}, err
	}
	limit := parseIntParam(r, "limit", core.DefaultHistoryLimit)
	page := max(parseIntParam(r, "page", 1), 1)
	return core.AuditLogFilter{
		ReportID: chi.URLParam(r, "reportID"),
		Action:   action,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}, nil
}

// handleHistory returns a page of a report's history as JSON, or the history
// table for HTMX requests.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := historyFilter(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.service.History(r.Context(), filter)
	if err != nil {
		fail(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.HistoryList(filter.ReportID, res).Render(r.Context(), w)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleHistoryPage renders the history page of a report.
func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	filter, err := historyFilter(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.service.History(r.Context(), filter)
	if err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if isHTMX(r) {
		templates.HistoryList(filter.ReportID, res).Render(r.Context(), w)
		return
	}
	templates.HistoryView(filter.ReportID, res).Render(r.Context(), w)
}

// handleHistoryExport streams a report's whole history as CSV.
func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	filter, err := historyFilter(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	csvWriter := csv.NewWriter(w)
	header := []string{
		"ID", "Timestamp", "Action", "Severity", "File",
		"IP Address", "User Agent", "Detail", "Rows Affected", "Related Entry", "Restorable",
	}

	// Response headers are set by the first row, so an invalid report id
	// still gets a proper error response.
	wroteHeader := false
	writeHeader := func() error {
		filename := fmt.Sprintf("history_%s_%s.csv", filter.ReportID, time.Now().Format("20060102_150405"))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		wroteHeader = true
		return csvWriter.Write(header)
	}
	const flushInterval = 1000
	rowCount := 0

	err = s.service.StreamHistory(r.Context(), filter, func(e core.AuditEntry) error {
		if !wroteHeader {
			if err := writeHeader(); err != nil {
				return err
			}
		}
		if err := csvWriter.Write([]string{
			e.ID,
			e.CreatedAt.Format(time.RFC3339),
			string(e.Action),
			string(e.Severity),
			e.FileName,
			e.IPAddress,
			e.UserAgent,
			e.Detail,
			strconv.Itoa(e.RowsAffected),
			e.RelatedAuditID,
			strconv.FormatBool(e.Restorable),
		}); err != nil {
			return err
		}

		rowCount++
		if rowCount%flushInterval == 0 {
			csvWriter.Flush()
			if err := csvWriter.Error(); err != nil {
				return err
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		return nil
	})
	if err != nil && !wroteHeader {
		fail(w, r, err)
		return
	}
	if !wroteHeader {
		writeHeader()
	}
	csvWriter.Flush()

	// Headers are already sent, so a late failure can only be logged.
	if err != nil && r.Context().Err() == nil {
		slog.Error("history export failed", "error", err,
			"request_id", middleware.GetReqID(r.Context()))
	}
}

// handleRestore rolls a report back to the state before a history entry.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	ctx := withRequestMetadata(r.Context(), r)
	res, err := s.service.Restore(ctx, chi.URLParam(r, "reportID"), chi.URLParam(r, "auditID"))
	if err != nil {
		fail(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.RestoreResult(res).Render(r.Context(), w)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
