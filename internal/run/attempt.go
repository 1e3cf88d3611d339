// Package run drives a single candidate through one or more driver attempts,
// capturing evidence for each attempt regardless of outcome.
package run

import "time"

// Status is the lifecycle state of one attempt. Once a terminal status is
// recorded it never changes.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	StatusCrashed   Status = "crashed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusCrashed:
		return true
	}
	return false
}

// Conclusive reports whether the status carries a trustworthy signal about
// the application under test. Timeouts and crashes say nothing about the
// application, only about the observation.
func (s Status) Conclusive() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// NetworkEntry is one captured network exchange, in response order.
type NetworkEntry struct {
	URL      string `json:"url"`
	Status   int    `json:"status"`
	MimeType string `json:"mime_type,omitempty"`
}

// ArtifactBundle is the write-once evidence captured for one attempt.
type ArtifactBundle struct {
	Screenshots  []string       `json:"screenshots,omitempty"`   // file references
	DOMSnapshot  string         `json:"dom_snapshot,omitempty"`  // serialized DOM at capture time
	ConsoleLog   []string       `json:"console_log,omitempty"`   // ordered console lines
	NetworkTrace []NetworkEntry `json:"network_trace,omitempty"` // ordered network entries
}

// Attempt is one concrete execution of a candidate. Owned exclusively by the
// coordinator that created it.
type Attempt struct {
	CandidateID   string         `json:"candidate_id"`
	Number        int            `json:"number"` // 1-based, strictly sequential per candidate
	Status        Status         `json:"status"`
	Artifacts     ArtifactBundle `json:"artifacts"`
	StartedAt     time.Time      `json:"started_at"`
	EndedAt       time.Time      `json:"ended_at"`
	FailureReason string         `json:"failure_reason,omitempty"`
}

// Duration is the wall-clock span of the attempt.
func (a *Attempt) Duration() time.Duration {
	if a.EndedAt.IsZero() || a.StartedAt.IsZero() {
		return 0
	}
	return a.EndedAt.Sub(a.StartedAt)
}
