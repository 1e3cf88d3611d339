// Package verdict turns a candidate's attempt history into a final judgement
// with a reproducibility ratio.
package verdict

import (
	"time"

	"playtest/internal/run"
)

// Kind is the final judgement for one candidate.
type Kind string

const (
	Pass Kind = "pass"
	Fail Kind = "fail"
	// Flaky means the attempts disagree: at least one success alongside at
	// least one failure, timeout, or crash.
	Flaky Kind = "flaky"
	// Inconclusive means no attempt produced a trustworthy signal: every
	// attempt timed out or crashed, or no attempt finished at all. A crash
	// is evidence of incomplete observation, not of incorrect behavior, so
	// it never downgrades to fail.
	Inconclusive Kind = "inconclusive"
)

// Verdict is the immutable outcome for one planned candidate.
type Verdict struct {
	CandidateID     string        `json:"candidate_id"`
	Kind            Kind          `json:"kind"`
	Attempts        []run.Attempt `json:"attempts"`
	Reproducibility float64       `json:"reproducibility"` // successes / total attempts
	FinalizedAt     time.Time     `json:"finalized_at"`
}

// LastFailureReason returns the failure reason of the most recent
// non-succeeded attempt, or "" when every attempt succeeded.
func (v *Verdict) LastFailureReason() string {
	for i := len(v.Attempts) - 1; i >= 0; i-- {
		if v.Attempts[i].Status != run.StatusSucceeded {
			return v.Attempts[i].FailureReason
		}
	}
	return ""
}

// Finalize computes the verdict for a candidate from its terminal attempts.
// Called exactly once per planned candidate; the result is never revised.
func Finalize(candidateID string, attempts []run.Attempt) Verdict {
	v := Verdict{
		CandidateID: candidateID,
		Attempts:    attempts,
		FinalizedAt: time.Now().UTC(),
	}

	var successes, failures int
	for _, a := range attempts {
		switch a.Status {
		case run.StatusSucceeded:
			successes++
		case run.StatusFailed:
			failures++
		}
	}

	total := len(attempts)
	if total > 0 {
		v.Reproducibility = float64(successes) / float64(total)
	}

	switch {
	case total == 0:
		// Orchestration gave up before any attempt reached a terminal
		// status. Nothing was observed.
		v.Kind = Inconclusive
	case successes == total:
		v.Kind = Pass
	case successes > 0:
		v.Kind = Flaky
	case failures > 0:
		// A recorded failure is conclusive evidence of a defect even when
		// other attempts crashed or timed out around it.
		v.Kind = Fail
	default:
		v.Kind = Inconclusive
	}
	return v
}
