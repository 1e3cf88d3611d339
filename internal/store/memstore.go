package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"playtest/internal/report"
)

// MemStore keeps reports in memory. Used by tests and short-lived sessions.
type MemStore struct {
	mu      sync.Mutex
	reports map[string]*report.Report
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{reports: make(map[string]*report.Report)}
}

func (s *MemStore) SaveReport(r *report.Report) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("store: report missing ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = r
	return nil
}

func (s *MemStore) GetReport(id string) (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

func (s *MemStore) LatestReport() (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *report.Report
	for _, r := range s.reports {
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (s *MemStore) ListReports() ([]ReportMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ReportMeta
	for _, r := range s.reports {
		out = append(out, metaOf(r))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt > out[b].CreatedAt })
	return out, nil
}

func (s *MemStore) Close() error { return nil }

func metaOf(r *report.Report) ReportMeta {
	return ReportMeta{
		ID:           r.ID,
		TargetURL:    r.TargetURL,
		CreatedAt:    r.CreatedAt.UTC().Format(time.RFC3339),
		Planned:      r.Summary.Planned,
		Passed:       r.Summary.Passed,
		Failed:       r.Summary.Failed,
		Flaky:        r.Summary.Flaky,
		Inconclusive: r.Summary.Inconclusive,
	}
}
