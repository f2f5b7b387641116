package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettleTime is how long a file must go without events before the
// watcher ingests it.
const DefaultSettleTime = 500 * time.Millisecond

// Watcher ingests report files dropped into a directory. A file is ingested
// once it has gone DefaultSettleTime without write events, so files that are
// still being copied are not parsed half-written.
type Watcher struct {
	svc    *Service
	dir    string
	settle time.Duration

	// OnIngest, when set, is called after every ingest attempt.
	OnIngest func(path string, res *IngestResult, err error)
}

// NewWatcher returns a watcher over dir. Only files with a .txt extension
// are ingested.
func NewWatcher(svc *Service, dir string) *Watcher {
	return &Watcher{svc: svc, dir: dir, settle: DefaultSettleTime}
}

// Run watches the directory until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch directory %q: %w", w.dir, err)
	}
	slog.Info("watching for reports", "dir", w.dir)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !isReportFile(event.Name) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[event.Name] = time.Now()
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(pending, event.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "dir", w.dir, "error", err)

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)
				w.ingest(ctx, path)
			}
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	res, err := w.ingestFile(ctx, path)
	if err != nil {
		slog.Error("watched report rejected", "path", path, "error", err, "code", MapError(err).Code)
	} else {
		slog.Info("watched report ingested", "path", path, "report_id", res.Meta.ID)
	}
	if w.OnIngest != nil {
		w.OnIngest(path, res, err)
	}
}

func (w *Watcher) ingestFile(ctx context.Context, path string) (*IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()
	return w.svc.Ingest(WithOrigin(ctx, Origin{UserAgent: WatcherAgent}), path, f)
}

func isReportFile(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), ".txt")
}
