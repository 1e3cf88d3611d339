package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultReportsDir is where WriteJSON places reports when the caller does
// not choose a directory.
const DefaultReportsDir = "reports"

// WriteJSON serializes the report to <dir>/report-<timestamp>.json and
// returns the written path. The directory is created if needed.
func WriteJSON(r *Report, dir string) (string, error) {
	if dir == "" {
		dir = DefaultReportsDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	name := fmt.Sprintf("report-%s.json", r.CreatedAt.Format("20060102-150405"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// ReadJSON loads a report previously written by WriteJSON.
func ReadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}
