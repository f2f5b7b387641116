package core

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/filterframes/internal/dtaselect"
)

// PreviewResponse is a read-only analysis of an upload. Nothing is stored.
type PreviewResponse struct {
	Summary        dtaselect.Summary `json:"summary"`
	ProteinColumns []dtaselect.Field `json:"proteinColumns"`
	PeptideColumns []dtaselect.Field `json:"peptideColumns"`
	ProteinSamples []TableRow        `json:"proteinSamples"`
	PeptideSamples []TableRow        `json:"peptideSamples"`
	// EmptyGroups lists protein groups without peptide rows.
	EmptyGroups []int `json:"emptyGroups"`
	// SharedSpectra lists spectra reported under more than one group.
	SharedSpectra    []SharedSpectrum `json:"sharedSpectra"`
	SharedCount      int              `json:"sharedCount"`
	BytesRead        int64            `json:"bytesRead"`
	ProcessingTimeMs int64            `json:"processingTimeMs"`
}

// SharedSpectrum is one spectrum matched by peptides of several groups.
type SharedSpectrum struct {
	FileName string `json:"fileName"`
	Groups   []int  `json:"groups"`
}

// Sample limits
const (
	maxRowSamples    = 10
	maxSharedSamples = 20
	maxEmptyGroups   = 50
)

// Preview parses the report read from r and describes what an ingest would
// store.
func (s *Service) Preview(ctx context.Context, r io.Reader) (*PreviewResponse, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	rep, read, err := s.parse(r)
	if err != nil {
		return nil, err
	}

	resp := &PreviewResponse{
		Summary:        rep.Summarize(),
		ProteinColumns: rep.Proteins.Schema.Fields,
		PeptideColumns: rep.Peptides.Schema.Fields,
		ProteinSamples: sampleRows(rep.Proteins),
		PeptideSamples: sampleRows(rep.Peptides),
		EmptyGroups:    emptyGroups(rep),
		BytesRead:      read,
	}
	resp.SharedSpectra, resp.SharedCount = sharedSpectra(rep.Peptides)
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}

func sampleRows(t *dtaselect.Table) []TableRow {
	n := min(t.Len(), maxRowSamples)
	rows := make([]TableRow, n)
	for i := range n {
		rows[i] = tableRow(i, t.Rows[i])
	}
	return rows
}

func emptyGroups(rep *dtaselect.Report) []int {
	withPeptides := make(map[int]bool)
	for _, row := range rep.Peptides.Rows {
		withPeptides[row.Group] = true
	}
	empty := []int{}
	for _, g := range rep.Proteins.Groups() {
		if !withPeptides[g] && len(empty) < maxEmptyGroups {
			empty = append(empty, g)
		}
	}
	return empty
}

// sharedSpectra finds spectra, keyed by their rejoined file name, whose
// peptide rows fall in more than one group. It returns up to
// maxSharedSamples of them, in first-seen order, and the total count.
func sharedSpectra(t *dtaselect.Table) ([]SharedSpectrum, int) {
	cols := make([]int, 0, 4)
	for _, name := range []string{dtaselect.ColFileName, dtaselect.ColLowScan, dtaselect.ColHighScan, dtaselect.ColCharge} {
		i := t.Schema.Index(name)
		if i < 0 {
			return []SharedSpectrum{}, 0
		}
		cols = append(cols, i)
	}

	groups := make(map[string]map[int]bool)
	var order []string
	parts := make([]string, len(cols))
	for _, row := range t.Rows {
		for j, c := range cols {
			parts[j] = row.Cells[c].Format()
		}
		key := strings.Join(parts, ".")
		set, ok := groups[key]
		if !ok {
			set = make(map[int]bool)
			groups[key] = set
			order = append(order, key)
		}
		set[row.Group] = true
	}

	shared := []SharedSpectrum{}
	count := 0
	for _, key := range order {
		set := groups[key]
		if len(set) < 2 {
			continue
		}
		count++
		if len(shared) == maxSharedSamples {
			continue
		}
		gs := make([]int, 0, len(set))
		for g := range set {
			gs = append(gs, g)
		}
		sort.Ints(gs)
		shared = append(shared, SharedSpectrum{FileName: key, Groups: gs})
	}
	return shared, count
}
