package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"playtest/internal/report"
)

var schema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	target_url TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	planned INTEGER NOT NULL,
	passed INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	flaky INTEGER NOT NULL,
	inconclusive INTEGER NOT NULL,
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
`

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and ensures the schema exists.
// Creates the parent directory (e.g. .playtest) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SqlStore{db: db}, nil
}

func (s *SqlStore) SaveReport(r *report.Report) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("store: report missing ID")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO reports(id, target_url, created_at, planned, passed, failed, flaky, inconclusive, payload)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TargetURL, r.CreatedAt.UTC().Format(time.RFC3339),
		r.Summary.Planned, r.Summary.Passed, r.Summary.Failed,
		r.Summary.Flaky, r.Summary.Inconclusive, payload,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *SqlStore) GetReport(id string) (*report.Report, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM reports WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}
	return decodeReport(payload)
}

func (s *SqlStore) LatestReport() (*report.Report, error) {
	var payload []byte
	err := s.db.QueryRow(
		"SELECT payload FROM reports ORDER BY created_at DESC, id LIMIT 1",
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest report: %w", err)
	}
	return decodeReport(payload)
}

func (s *SqlStore) ListReports() ([]ReportMeta, error) {
	rows, err := s.db.Query(
		`SELECT id, target_url, created_at, planned, passed, failed, flaky, inconclusive
		 FROM reports ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []ReportMeta
	for rows.Next() {
		var m ReportMeta
		if err := rows.Scan(&m.ID, &m.TargetURL, &m.CreatedAt,
			&m.Planned, &m.Passed, &m.Failed, &m.Flaky, &m.Inconclusive); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SqlStore) Close() error { return s.db.Close() }

func decodeReport(payload []byte) (*report.Report, error) {
	var r report.Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("decode report payload: %w", err)
	}
	return &r, nil
}
