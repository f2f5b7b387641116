package core

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps reports in process. It is used when no database is
// configured, and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*StoredReport
	audit   []AuditEntry
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*StoredReport)}
}

func (m *MemoryStore) SaveReport(ctx context.Context, rep *StoredReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[rep.Meta.ID] = &StoredReport{Meta: rep.Meta, Report: rep.Report.Clone()}
	return nil
}

func (m *MemoryStore) LoadReport(ctx context.Context, id string) (*StoredReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rep, ok := m.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return &StoredReport{Meta: rep.Meta, Report: rep.Report.Clone()}, nil
}

func (m *MemoryStore) ListReports(ctx context.Context) ([]ReportMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	metas := make([]ReportMeta, 0, len(m.reports))
	for _, rep := range m.reports {
		metas = append(metas, rep.Meta)
	}
	m.mu.RUnlock()

	sort.Slice(metas, func(i, j int) bool {
		if !metas[i].CreatedAt.Equal(metas[j].CreatedAt) {
			return metas[i].CreatedAt.After(metas[j].CreatedAt)
		}
		return metas[i].ID < metas[j].ID
	})
	return metas, nil
}

func (m *MemoryStore) DeleteReport(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return ErrReportNotFound
	}
	delete(m.reports, id)
	return nil
}

func (m *MemoryStore) InsertAudit(ctx context.Context, entry *AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, *entry)
	return nil
}

func (m *MemoryStore) GetAudit(ctx context.Context, id string) (*AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.audit {
		if m.audit[i].ID == id {
			entry := m.audit[i]
			return &entry, nil
		}
	}
	return nil, ErrAuditNotFound
}

func (m *MemoryStore) ListAudit(ctx context.Context, filter AuditLogFilter) ([]AuditEntry, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	m.mu.RLock()
	var matched []AuditEntry
	// Entries are appended in time order; walk backwards for newest first.
	for i := len(m.audit) - 1; i >= 0; i-- {
		e := m.audit[i]
		if e.ReportID != filter.ReportID || (filter.Action != "" && e.Action != filter.Action) {
			continue
		}
		e.Snapshot = ""
		matched = append(matched, e)
	}
	m.mu.RUnlock()

	total := len(matched)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func (m *MemoryStore) PruneAudit(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.audit[:0]
	for _, e := range m.audit {
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	n := int64(len(m.audit) - len(kept))
	clear(m.audit[len(kept):])
	m.audit = kept
	return n, nil
}
