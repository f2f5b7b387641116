package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/filterframes/internal/config"
	"github.com/JonMunkholm/filterframes/internal/core"
)

const testReport = "DTASelect v2.1.13\n" +
	"Locus\tSequence Count\tDescriptive Name\n" +
	"Unique\tFileName\tXCorr\tSequence\n" +
	"P1\t2\tFirst protein\n" +
	"*\trun.10.10.2\t3.5\tK.AAA.R\n" +
	"\trun.11.11.3\t2.0\tK.BBB.R\n" +
	"P2\t1\tSecond <b>protein</b>\n" +
	"*\trun.12.12.2\t2.5\tK.CCC.R\n" +
	"\tProteins\tPeptide IDs\n" +
	"Unfiltered\t2\t3\n"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeout: 10 * time.Second},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
		},
		Rate:     config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{EnableCSP: true},
		Report:   config.ReportConfig{PageSize: 100, MaxPageSize: 1000},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv := NewServer(core.NewService(core.NewMemoryStore(), cfg), cfg)
	t.Cleanup(func() { srv.Shutdown(t.Context()) })
	return srv
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func multipartUpload(t *testing.T, name, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(body))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/reports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func ingest(t *testing.T, srv *Server) string {
	t.Helper()
	rec := do(t, srv, multipartUpload(t, "DTASelect-filter.txt", testReport))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res core.IngestResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	return res.Meta.ID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	return e
}

func TestIngestAndExport(t *testing.T) {
	srv := newTestServer(t, testConfig())
	id := ingest(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/reports/"+id+"/export", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if rec.Body.String() != testReport {
		t.Errorf("export body =\n%s\nwant\n%s", rec.Body.String(), testReport)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "DTASelect-filter.txt") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestIngestRawBody(t *testing.T) {
	srv := newTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/reports?name=run7.txt", strings.NewReader(testReport))
	req.Header.Set("Content-Type", "text/plain")
	rec := do(t, srv, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	var list []core.ReportMeta
	json.NewDecoder(rec.Body).Decode(&list)
	if len(list) != 1 || list[0].FileName != "run7.txt" || list[0].Summary.Peptides != 3 {
		t.Errorf("ListReports = %+v", list)
	}
}

func TestIngestErrors(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		status   int
		wantCode string
	}{
		{
			name:     "not a report",
			req:      func(t *testing.T) *http.Request { return multipartUpload(t, "x.txt", "just\ntext\n") },
			status:   http.StatusUnprocessableEntity,
			wantCode: "FMT001",
		},
		{
			name: "missing file part",
			req: func(t *testing.T) *http.Request {
				var buf bytes.Buffer
				mw := multipart.NewWriter(&buf)
				mw.WriteField("other", "value")
				mw.Close()
				req := httptest.NewRequest(http.MethodPost, "/api/reports", &buf)
				req.Header.Set("Content-Type", mw.FormDataContentType())
				return req
			},
			status:   http.StatusBadRequest,
			wantCode: "FILE004",
		},
		{
			name:     "empty upload",
			req:      func(t *testing.T) *http.Request { return multipartUpload(t, "x.txt", "") },
			status:   http.StatusBadRequest,
			wantCode: "FILE005",
		},
	}

	srv := newTestServer(t, testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.req(t))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if e := decodeError(t, rec); e.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", e.Code, tt.wantCode)
			}
		})
	}
}

func TestIngestTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 32
	srv := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/reports", strings.NewReader(testReport))
	rec := do(t, srv, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != "FILE001" {
		t.Errorf("code = %s, want FILE001", e.Code)
	}
}

func TestTablePage(t *testing.T) {
	srv := newTestServer(t, testConfig())
	id := ingest(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/reports/"+id+"/peptides?page=1&limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var page core.TablePage
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatal(err)
	}
	if page.TotalRows != 3 || page.TotalPages != 2 || len(page.Rows) != 2 {
		t.Errorf("page = %+v", page)
	}
	names := make([]string, len(page.Columns))
	for i, f := range page.Columns {
		names[i] = f.Name
	}
	if got := strings.Join(names, ","); got != "Unique,XCorr,Sequence,FileName,LowScan,HighScan,Charge" {
		t.Errorf("columns = %s", got)
	}

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/reports/"+id+"/genes", nil))
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "TBL002" {
		t.Errorf("unknown table: status %d", rec.Code)
	}
}

func TestEdits(t *testing.T) {
	srv := newTestServer(t, testConfig())
	id := ingest(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/reports/"+id+"/peptides/0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete peptide status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/reports/"+id+"/groups/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("remove group status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res core.RemoveResult
	json.NewDecoder(rec.Body).Decode(&res)
	if res.ProteinsRemoved != 1 || res.PeptidesRemoved != 1 {
		t.Errorf("RemoveResult = %+v", res)
	}

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/reports/"+id+"/export", nil))
	want := "DTASelect v2.1.13\n" +
		"Locus\tSequence Count\tDescriptive Name\n" +
		"Unique\tFileName\tXCorr\tSequence\n" +
		"P1\t2\tFirst protein\n" +
		"\trun.11.11.3\t2.0\tK.BBB.R\n" +
		"\tProteins\tPeptide IDs\n" +
		"Unfiltered\t2\t3\n"
	if rec.Body.String() != want {
		t.Errorf("export after edits =\n%s\nwant\n%s", rec.Body.String(), want)
	}

	tests := []struct {
		path     string
		status   int
		wantCode string
	}{
		{path: "/groups/7", status: http.StatusNotFound, wantCode: "RPT002"},
		{path: "/groups/x", status: http.StatusBadRequest, wantCode: "REQ001"},
		{path: "/peptides/9", status: http.StatusNotFound, wantCode: "RPT003"},
	}
	for _, tt := range tests {
		rec := do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/reports/"+id+tt.path, nil))
		if rec.Code != tt.status {
			t.Errorf("DELETE %s status = %d, want %d", tt.path, rec.Code, tt.status)
		}
		if e := decodeError(t, rec); e.Code != tt.wantCode {
			t.Errorf("DELETE %s code = %s, want %s", tt.path, e.Code, tt.wantCode)
		}
	}
}

func TestDeleteReport(t *testing.T) {
	srv := newTestServer(t, testConfig())
	id := ingest(t, srv)

	if rec := do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/reports/"+id, nil)); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/reports/"+id, nil))
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Code != "RPT001" {
		t.Errorf("get after delete: status %d", rec.Code)
	}
	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/reports/nope", nil))
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "RPT004" {
		t.Errorf("invalid id: status %d", rec.Code)
	}
}

func TestConvert(t *testing.T) {
	srv := newTestServer(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/convert?name=in.txt", strings.NewReader("\ufeff"+testReport+"\n"))
	rec := do(t, srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != testReport {
		t.Errorf("converted =\n%q", rec.Body.String())
	}
	if rec.Header().Get("X-Report-Peptides") != "3" {
		t.Errorf("X-Report-Peptides = %q", rec.Header().Get("X-Report-Peptides"))
	}
}

func TestPreview(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/preview?name=in.txt", strings.NewReader(testReport))
	rec := do(t, srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res core.PreviewResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Summary.Proteins != 2 || res.Summary.Peptides != 3 || len(res.PeptideSamples) != 3 {
		t.Errorf("preview = %+v", res)
	}
	if n := len(res.PeptideColumns); n != 7 || res.PeptideColumns[n-1].Name != "Charge" {
		t.Errorf("peptide columns = %+v", res.PeptideColumns)
	}

	hx := multipartUpload(t, "run7.txt", testReport)
	hx.URL.Path = "/api/preview"
	hx.Header.Set("HX-Request", "true")
	rec = do(t, srv, hx)
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "run7.txt") || !strings.Contains(body, "2 proteins in 2 groups") {
		t.Errorf("htmx preview = %d %s", rec.Code, body)
	}

	list, err := srv.service.ListReports(req.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("preview stored %d reports", len(list))
	}
}

func TestPages(t *testing.T) {
	srv := newTestServer(t, testConfig())
	id := ingest(t, srv)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/reports/"+id) {
		t.Errorf("dashboard status %d, missing report link", rec.Code)
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers missing")
	}

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/reports/"+id, nil))
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "<th title=\"string\">Locus</th>") {
		t.Errorf("report page status %d:\n%s", rec.Code, body)
	}
	if strings.Contains(body, "<b>protein</b>") || !strings.Contains(body, "&lt;b&gt;protein&lt;/b&gt;") {
		t.Error("cell text is not escaped")
	}

	req := httptest.NewRequest(http.MethodGet, "/reports/"+id+"?table=peptides", nil)
	req.Header.Set("HX-Request", "true")
	rec = do(t, srv, req)
	if strings.Contains(rec.Body.String(), "<html") || !strings.Contains(rec.Body.String(), "run") {
		t.Errorf("HTMX partial = %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/reports/"+id+"?table=genes", nil)
	req.Header.Set("HX-Request", "true")
	rec = do(t, srv, req)
	if !strings.Contains(rec.Body.String(), "TBL002") || rec.Header().Get("X-Error-Status") != "400" {
		t.Errorf("HTMX error partial = %s", rec.Body.String())
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	srv := newTestServer(t, cfg)

	if rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/reports", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("without key status = %d, want 401", rec.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("X-API-Key", "secret")
	if rec := do(t, srv, req); rec.Code != http.StatusOK {
		t.Errorf("with key status = %d, want 200", rec.Code)
	}
	if rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusOK {
		t.Errorf("pages should not need a key, status = %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 3, UploadLimit: 1}
	srv := newTestServer(t, cfg)

	for i := 0; i < 3; i++ {
		if rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/status", nil)); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusTooManyRequests || decodeError(t, rec).Code != "RATE001" {
		t.Errorf("fourth request status = %d, want 429", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t, testConfig())
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var got struct {
		Uploads core.UploadLimiterStatus `json:"uploads"`
		Store   string                   `json:"store"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Store != "memory" || got.Uploads.MaxConcurrent != 2 || got.Uploads.Available != 2 {
		t.Errorf("status = %+v", got)
	}
}
