package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/filterframes/internal/core"
	"github.com/JonMunkholm/filterframes/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is the allowance for form fields and part headers on top
// of the report size limit.
const multipartOverhead = 1 << 20

// handleIngest stores an uploaded report. The report is either the "file"
// part of a multipart form or, for other content types, the raw body with
// its name in the "name" query parameter.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	name, body, cleanup, err := s.reportBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	defer cleanup()

	res, err := s.service.Ingest(withRequestMetadata(r.Context(), r), name, body)
	if err != nil {
		fail(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("HX-Trigger", "report-stored")
		templates.UploadResult(res).Render(r.Context(), w)
		return
	}
	w.Header().Set("Location", "/api/reports/"+res.Meta.ID)
	writeJSON(w, r, http.StatusCreated, res)
}

// handleConvert parses a report and returns it normalized without storing it.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	name, body, cleanup, err := s.reportBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	defer cleanup()

	var out bytes.Buffer
	sum, err := s.service.Convert(r.Context(), body, &out)
	if err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("X-Report-Proteins", strconv.Itoa(sum.Proteins))
	w.Header().Set("X-Report-Peptides", strconv.Itoa(sum.Peptides))
	writeReport(w, name, out.Bytes())
}

// handlePreview analyzes an uploaded report without storing it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name, body, cleanup, err := s.reportBody(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	defer cleanup()

	res, err := s.service.Preview(r.Context(), body)
	if err != nil {
		fail(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.PreviewResult(filepath.Base(name), res).Render(r.Context(), w)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// reportBody returns the uploaded report stream. cleanup releases any
// temporary files of a multipart form.
func (s *Server) reportBody(w http.ResponseWriter, r *http.Request) (string, io.Reader, func(), error) {
	maxSize := s.cfg.Upload.MaxFileSize
	noop := func() {}

	mediaType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(mediaType, "multipart/form-data") {
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "DTASelect-filter.txt"
		}
		return name, r.Body, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return "", nil, noop, fmt.Errorf("read upload: %w", core.ErrFileTooLarge)
		}
		if errors.Is(err, multipart.ErrMessageTooLarge) {
			return "", nil, noop, fmt.Errorf("read upload: %w", core.ErrFileTooLarge)
		}
		return "", nil, noop, fmt.Errorf("read upload form: %w", errNoFile)
	}
	cleanup := func() { r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile("file")
	if err != nil {
		cleanup()
		return "", nil, noop, errNoFile
	}
	return header.Filename, file, func() {
		file.Close()
		cleanup()
	}, nil
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.service.ListReports(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, reports)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.service.GetReport(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"report":  rep.Meta,
		"header":  rep.Report.Header,
		"trailer": rep.Report.Trailer,
		"columns": map[string]any{
			string(core.ProteinTable): rep.Report.Proteins.Schema.Fields,
			string(core.PeptideTable): rep.Report.Peptides.Schema.Fields,
		},
	})
}

func (s *Server) handleTablePage(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.TablePage(r.Context(),
		chi.URLParam(r, "reportID"),
		chi.URLParam(r, "table"),
		parseIntParam(r, "page", 1),
		parseIntParam(r, "limit", 0),
	)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

// handleExport downloads a stored report as filter text. The report is
// rendered before anything is sent so errors still get a proper status.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var out bytes.Buffer
	meta, err := s.service.Export(r.Context(), chi.URLParam(r, "reportID"), &out)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeReport(w, meta.FileName, out.Bytes())
}

func (s *Server) handleRemoveGroup(w http.ResponseWriter, r *http.Request) {
	group, err := pathInt(r, "group")
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.service.RemoveGroup(withRequestMetadata(r.Context(), r), chi.URLParam(r, "reportID"), group)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleDeletePeptide(w http.ResponseWriter, r *http.Request) {
	row, err := pathInt(r, "row")
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.service.DeletePeptide(withRequestMetadata(r.Context(), r), chi.URLParam(r, "reportID"), row)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReport(withRequestMetadata(r.Context(), r), chi.URLParam(r, "reportID")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStatus reports ingest slot usage and the store in use.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	store := "memory"
	if s.cfg.Database.UsesDatabase() {
		store = "postgres"
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"uploads": s.service.UploadLimiterStatus(),
		"store":   store,
	})
}

func writeReport(w http.ResponseWriter, name string, body []byte) {
	name = strings.ReplaceAll(filepath.Base(name), `"`, "")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Write(body)
}

// parseIntParam parses a non-negative integer query parameter, falling back
// to defaultVal when it is missing or malformed.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

func pathInt(r *http.Request, name string) (int, error) {
	val := chi.URLParam(r, name)
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return 0, invalidParam(name, val)
	}
	return i, nil
}
