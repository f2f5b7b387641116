package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_IngestsNewReports(t *testing.T) {
	dir := t.TempDir()
	svc := newTestService(t)

	w := NewWatcher(svc, dir)
	w.settle = 50 * time.Millisecond
	done := make(chan string, 4)
	w.OnIngest = func(path string, res *IngestResult, err error) {
		if err != nil {
			done <- "error: " + err.Error()
			return
		}
		done <- filepath.Base(path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := w.Run(ctx); err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("skip me"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "run1.txt"), []byte(twoGroupReport), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-done:
		if got != "run1.txt" {
			t.Fatalf("OnIngest got %q, want run1.txt", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("report was not ingested")
	}

	list, _ := svc.ListReports(context.Background())
	if len(list) != 1 || list[0].FileName != "run1.txt" {
		t.Fatalf("ListReports() = %+v", list)
	}

	res, err := svc.History(context.Background(), AuditLogFilter{ReportID: list[0].ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Entries) != 1 || res.Entries[0].UserAgent != WatcherAgent || res.Entries[0].IPAddress != "" {
		t.Errorf("ingest entry = %+v, want it attributed to the watcher", res.Entries)
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := NewWatcher(newTestService(t), filepath.Join(t.TempDir(), "absent"))
	if err := w.Run(context.Background()); err == nil {
		t.Error("Run() should fail for a missing directory")
	}
}

func TestIsReportFile(t *testing.T) {
	tests := map[string]bool{
		"/in/DTASelect-filter.txt": true,
		"/in/RUN.TXT":              true,
		"/in/.partial.txt":         false,
		"/in/report.tsv":           false,
	}
	for path, want := range tests {
		if got := isReportFile(path); got != want {
			t.Errorf("isReportFile(%q) = %v, want %v", path, got, want)
		}
	}
}
