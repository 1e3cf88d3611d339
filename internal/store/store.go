// Package store keeps the history of orchestration runs. The engine itself
// never touches persistence; callers hand finished reports to a Store.
package store

import (
	"errors"

	"playtest/internal/report"
)

// DefaultDBPath is the default relative path for the SQLite DB.
// Open() creates the parent dir (.playtest) if needed.
const DefaultDBPath = ".playtest/playtest.db"

// ErrNotFound is returned when no report matches the requested ID.
var ErrNotFound = errors.New("store: report not found")

// ReportMeta is the listing row for a stored report.
type ReportMeta struct {
	ID           string
	TargetURL    string
	CreatedAt    string // RFC 3339
	Planned      int
	Passed       int
	Failed       int
	Flaky        int
	Inconclusive int
}

// Store is the report-history facade. Implementations are SQLite for the
// CLI and in-memory for tests and the MCP server's default mode.
type Store interface {
	SaveReport(r *report.Report) error
	GetReport(id string) (*report.Report, error)
	LatestReport() (*report.Report, error)
	ListReports() ([]ReportMeta, error)
	Close() error
}
