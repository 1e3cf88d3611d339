// Package report accumulates verdicts into the final run report.
package report

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"playtest/internal/plan"
	"playtest/internal/verdict"
)

var (
	// ErrOrphanVerdict is returned when a verdict's candidate is not in the plan.
	ErrOrphanVerdict = errors.New("report: verdict for candidate outside the plan")

	// ErrDuplicateVerdict is returned when a candidate already has a verdict.
	// Verdicts are append-only: once added, never replaced.
	ErrDuplicateVerdict = errors.New("report: duplicate verdict")

	// ErrIncomplete is returned by Finalize while planned candidates still
	// lack a verdict.
	ErrIncomplete = errors.New("report: verdicts missing for planned candidates")
)

// TriageNote summarizes one non-pass verdict for a human reader.
type TriageNote struct {
	CandidateID     string  `json:"candidate_id"`
	Kind            string  `json:"kind"`
	AttemptCount    int     `json:"attempt_count"`
	Reproducibility float64 `json:"reproducibility"`
	LastFailure     string  `json:"last_failure,omitempty"`
}

// Summary holds the aggregate counts the report leads with.
type Summary struct {
	Planned            int           `json:"planned"`
	Passed             int           `json:"passed"`
	Failed             int           `json:"failed"`
	Flaky              int           `json:"flaky"`
	Inconclusive       int           `json:"inconclusive"`
	PassRate           float64       `json:"pass_rate"` // passed / planned, in percent
	AvgAttemptDuration time.Duration `json:"avg_attempt_duration"`
}

// Report is the finalized output of one orchestration run.
type Report struct {
	ID          string                     `json:"id"`
	TargetURL   string                     `json:"target_url,omitempty"`
	Plan        *plan.ExecutionPlan        `json:"plan"`
	Verdicts    map[string]verdict.Verdict `json:"verdicts"` // keyed by candidate ID
	Summary     Summary                    `json:"summary"`
	TriageNotes []TriageNote               `json:"triage_notes"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// Assembler collects verdicts as they arrive, in any order, and produces the
// report once every planned candidate is accounted for.
type Assembler struct {
	mu        sync.Mutex
	plan      *plan.ExecutionPlan
	targetURL string
	verdicts  map[string]verdict.Verdict
}

// NewAssembler creates an assembler for the given plan.
func NewAssembler(ep *plan.ExecutionPlan, targetURL string) *Assembler {
	return &Assembler{
		plan:      ep,
		targetURL: targetURL,
		verdicts:  make(map[string]verdict.Verdict),
	}
}

// Add records one verdict. Rejects candidates outside the plan and repeat
// verdicts for the same candidate.
func (a *Assembler) Add(v verdict.Verdict) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.plan.Contains(v.CandidateID) {
		return fmt.Errorf("%w: %s", ErrOrphanVerdict, v.CandidateID)
	}
	if _, ok := a.verdicts[v.CandidateID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateVerdict, v.CandidateID)
	}
	a.verdicts[v.CandidateID] = v
	return nil
}

// Missing returns the planned candidate IDs that have no verdict yet, in
// plan order.
func (a *Assembler) Missing() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, c := range a.plan.Candidates {
		if _, ok := a.verdicts[c.ID]; !ok {
			out = append(out, c.ID)
		}
	}
	return out
}

// Finalize builds the immutable report. Every planned candidate must have a
// verdict; callers downgrade unfinished candidates to inconclusive first.
func (a *Assembler) Finalize() (*Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range a.plan.Candidates {
		if _, ok := a.verdicts[c.ID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrIncomplete, c.ID)
		}
	}

	r := &Report{
		ID:        uuid.NewString(),
		TargetURL: a.targetURL,
		Plan:      a.plan,
		Verdicts:  make(map[string]verdict.Verdict, len(a.verdicts)),
		CreatedAt: time.Now().UTC(),
	}
	for id, v := range a.verdicts {
		r.Verdicts[id] = v
	}

	var attemptCount int
	var attemptTotal time.Duration
	r.Summary.Planned = a.plan.Size()
	for _, v := range r.Verdicts {
		switch v.Kind {
		case verdict.Pass:
			r.Summary.Passed++
		case verdict.Fail:
			r.Summary.Failed++
		case verdict.Flaky:
			r.Summary.Flaky++
		case verdict.Inconclusive:
			r.Summary.Inconclusive++
		}
		for i := range v.Attempts {
			attemptCount++
			attemptTotal += v.Attempts[i].Duration()
		}
	}
	if r.Summary.Planned > 0 {
		r.Summary.PassRate = float64(r.Summary.Passed) / float64(r.Summary.Planned) * 100
	}
	if attemptCount > 0 {
		r.Summary.AvgAttemptDuration = attemptTotal / time.Duration(attemptCount)
	}

	// Triage notes in plan order, non-pass verdicts only.
	for _, c := range a.plan.Candidates {
		v := r.Verdicts[c.ID]
		if v.Kind == verdict.Pass {
			continue
		}
		r.TriageNotes = append(r.TriageNotes, TriageNote{
			CandidateID:     v.CandidateID,
			Kind:            string(v.Kind),
			AttemptCount:    len(v.Attempts),
			Reproducibility: v.Reproducibility,
			LastFailure:     v.LastFailureReason(),
		})
	}

	return r, nil
}
