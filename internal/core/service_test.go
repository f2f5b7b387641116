package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/filterframes/internal/config"
	"github.com/JonMunkholm/filterframes/internal/dtaselect"
)

const fixturePath = "../dtaselect/testdata/DTASelect-filter_V2_1_13.txt"

// twoGroupReport has protein P1 with two peptides and protein P2 with one.
const twoGroupReport = "DTASelect v2.1.13\n" +
	"Locus\tSequence Count\tDescriptive Name\n" +
	"Unique\tFileName\tXCorr\tSequence\n" +
	"P1\t2\tFirst protein\n" +
	"*\trun.10.10.2\t3.5\tK.AAA.R\n" +
	"\trun.11.11.3\t2.0\tK.BBB.R\n" +
	"P2\t1\tSecond protein\n" +
	"*\trun.12.12.2\t2.5\tK.CCC.R\n" +
	"\tProteins\tPeptide IDs\n" +
	"Unfiltered\t2\t3\n"

func testConfig() *config.Config {
	return &config.Config{
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
		},
		Report: config.ReportConfig{PageSize: 2, MaxPageSize: 3},
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryStore(), testConfig())
}

func mustIngest(t *testing.T, svc *Service, body string) *IngestResult {
	t.Helper()
	res, err := svc.Ingest(context.Background(), "/uploads/DTASelect-filter.txt", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	return res
}

func TestService_Ingest(t *testing.T) {
	svc := newTestService(t)
	res := mustIngest(t, svc, twoGroupReport)

	if res.Meta.FileName != "DTASelect-filter.txt" {
		t.Errorf("FileName = %q, directories should be stripped", res.Meta.FileName)
	}
	if res.BytesRead != int64(len(twoGroupReport)) {
		t.Errorf("BytesRead = %d, want %d", res.BytesRead, len(twoGroupReport))
	}
	sum := res.Meta.Summary
	if sum.Proteins != 2 || sum.Peptides != 3 || sum.Groups != 2 {
		t.Errorf("Summary = %+v", sum)
	}
	if len(sum.ScanFiles) != 1 || sum.ScanFiles[0] != "run" {
		t.Errorf("ScanFiles = %v, want [run]", sum.ScanFiles)
	}

	stored, err := svc.GetReport(context.Background(), res.Meta.ID)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if stored.Report.Peptides.Len() != 3 {
		t.Errorf("stored peptides = %d, want 3", stored.Report.Peptides.Len())
	}
	if svc.UploadLimiterStatus().Active != 0 {
		t.Error("ingest slot was not released")
	}
}

func TestService_IngestErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		maxSize  int64
		wantCode string
	}{
		{name: "empty upload", body: "", wantCode: "FILE005"},
		{name: "not a filter report", body: "hello\nworld\n", wantCode: "FMT001"},
		{name: "bad file name", body: strings.Replace(twoGroupReport, "run.11.11.3", "run.11", 1), wantCode: "FMT002"},
		{name: "too large", body: twoGroupReport, maxSize: 16, wantCode: "FILE001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.maxSize > 0 {
				cfg.Upload.MaxFileSize = tt.maxSize
			}
			svc := NewService(NewMemoryStore(), cfg)

			_, err := svc.Ingest(context.Background(), "r.txt", strings.NewReader(tt.body))
			if err == nil {
				t.Fatal("Ingest() expected error")
			}
			if got := MapError(err).Code; got != tt.wantCode {
				t.Errorf("MapError(%v).Code = %s, want %s", err, got, tt.wantCode)
			}

			list, _ := svc.ListReports(context.Background())
			if len(list) != 0 {
				t.Errorf("rejected upload was stored: %v", list)
			}
		})
	}
}

func TestService_IngestBOM(t *testing.T) {
	svc := newTestService(t)
	res := mustIngest(t, svc, "\ufeff"+twoGroupReport)

	var out bytes.Buffer
	if _, err := svc.Export(context.Background(), res.Meta.ID, &out); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if out.String() != twoGroupReport {
		t.Errorf("BOM leaked into the export:\n%q", out.String())
	}
}

func TestService_ExportFixture(t *testing.T) {
	data, err := os.ReadFile(fixturePath)
	if err != nil {
		t.Fatal(err)
	}
	svc := newTestService(t)
	res := mustIngest(t, svc, string(data))

	var out bytes.Buffer
	meta, err := svc.Export(context.Background(), res.Meta.ID, &out)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if meta.ID != res.Meta.ID {
		t.Errorf("Export() meta id = %s, want %s", meta.ID, res.Meta.ID)
	}
	if out.String() != string(data) {
		t.Error("exported report differs from the uploaded file")
	}
}

func TestService_Convert(t *testing.T) {
	svc := newTestService(t)
	var out bytes.Buffer
	sum, err := svc.Convert(context.Background(), strings.NewReader(twoGroupReport+"\n"), &out)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if out.String() != twoGroupReport {
		t.Errorf("Convert() output =\n%q\nwant\n%q", out.String(), twoGroupReport)
	}
	if sum.Proteins != 2 {
		t.Errorf("Summary.Proteins = %d, want 2", sum.Proteins)
	}
	if list, _ := svc.ListReports(context.Background()); len(list) != 0 {
		t.Error("Convert should not store the report")
	}
}

func TestService_TablePage(t *testing.T) {
	svc := newTestService(t)
	id := mustIngest(t, svc, twoGroupReport).Meta.ID
	ctx := context.Background()

	page, err := svc.TablePage(ctx, id, "peptides", 2, 0)
	if err != nil {
		t.Fatalf("TablePage() error = %v", err)
	}
	if page.PageSize != 2 || page.TotalPages != 2 || page.TotalRows != 3 {
		t.Errorf("page = %+v", page)
	}
	if len(page.Rows) != 1 || page.Rows[0].Index != 2 || page.Rows[0].Group != 1 {
		t.Errorf("second page rows = %+v", page.Rows)
	}

	page, err = svc.TablePage(ctx, id, "proteins", 1, 50)
	if err != nil {
		t.Fatalf("TablePage() error = %v", err)
	}
	if page.PageSize != 3 {
		t.Errorf("PageSize = %d, want the cap of 3", page.PageSize)
	}
	if page.Columns[0].Name != "Locus" {
		t.Errorf("first protein column = %q", page.Columns[0].Name)
	}

	if _, err := svc.TablePage(ctx, id, "genes", 1, 0); MapError(err).Code != "TBL002" {
		t.Errorf("unknown table error = %v", err)
	}
}

func TestService_RemoveGroup(t *testing.T) {
	svc := newTestService(t)
	id := mustIngest(t, svc, twoGroupReport).Meta.ID
	ctx := context.Background()

	res, err := svc.RemoveGroup(ctx, id, 0)
	if err != nil {
		t.Fatalf("RemoveGroup() error = %v", err)
	}
	if res.ProteinsRemoved != 1 || res.PeptidesRemoved != 2 {
		t.Errorf("RemoveGroup() = %+v", res)
	}

	stored, _ := svc.GetReport(ctx, id)
	if stored.Meta.Summary.Proteins != 1 || stored.Meta.Summary.Peptides != 1 {
		t.Errorf("summary not refreshed: %+v", stored.Meta.Summary)
	}

	var out bytes.Buffer
	if _, err := svc.Export(ctx, id, &out); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "P1\t") || !strings.Contains(out.String(), "P2\t") {
		t.Errorf("export after removal:\n%s", out.String())
	}

	if _, err := svc.RemoveGroup(ctx, id, 0); MapError(err).Code != "RPT002" {
		t.Errorf("second removal error = %v, want RPT002", err)
	}
}

func TestService_DeletePeptide(t *testing.T) {
	svc := newTestService(t)
	id := mustIngest(t, svc, twoGroupReport).Meta.ID
	ctx := context.Background()

	if _, err := svc.DeletePeptide(ctx, id, 1); err != nil {
		t.Fatalf("DeletePeptide() error = %v", err)
	}
	stored, _ := svc.GetReport(ctx, id)
	seqs, _ := stored.Report.Peptides.Column("Sequence")
	if len(seqs) != 2 || seqs[0].Str != "K.AAA.R" || seqs[1].Str != "K.CCC.R" {
		t.Errorf("remaining sequences = %v", seqs)
	}

	if _, err := svc.DeletePeptide(ctx, id, 10); MapError(err).Code != "RPT003" {
		t.Errorf("out of range error = %v, want RPT003", err)
	}
}

func TestService_DeleteReport(t *testing.T) {
	svc := newTestService(t)
	id := mustIngest(t, svc, twoGroupReport).Meta.ID
	ctx := context.Background()

	if err := svc.DeleteReport(ctx, id); err != nil {
		t.Fatalf("DeleteReport() error = %v", err)
	}
	if _, err := svc.GetReport(ctx, id); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("GetReport() after delete = %v, want ErrReportNotFound", err)
	}
	if err := svc.DeleteReport(ctx, id); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("second DeleteReport() = %v, want ErrReportNotFound", err)
	}
	if err := svc.DeleteReport(ctx, "not-a-uuid"); MapError(err).Code != "RPT004" {
		t.Errorf("invalid id error = %v, want RPT004", err)
	}
}

func TestService_ListReportsNewestFirst(t *testing.T) {
	svc := newTestService(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first := mustIngest(t, svc, twoGroupReport).Meta.ID
	second := mustIngest(t, svc, twoGroupReport).Meta.ID

	list, err := svc.ListReports(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second || list[1].ID != first {
		t.Errorf("ListReports() order = %v", list)
	}
}

func TestService_IngestMatchesLibrary(t *testing.T) {
	want, err := dtaselect.ParseFile(fixturePath)
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(fixturePath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	svc := newTestService(t)
	res, err := svc.Ingest(context.Background(), fixturePath, f)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	got, _ := svc.GetReport(context.Background(), res.Meta.ID)
	if !got.Report.Proteins.Equal(want.Proteins) || !got.Report.Peptides.Equal(want.Peptides) {
		t.Error("stored tables differ from a direct parse")
	}
}
