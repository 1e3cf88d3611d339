package report

import (
	"strings"
	"testing"
	"time"

	"playtest/internal/run"
	"playtest/internal/verdict"
)

func buildReport(t *testing.T, verdicts ...verdict.Verdict) *Report {
	t.Helper()
	var ids []string
	for _, v := range verdicts {
		ids = append(ids, v.CandidateID)
	}
	a := NewAssembler(testPlan(ids...), "")
	for _, v := range verdicts {
		if err := a.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	r, err := a.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestAnalyze_DurationStats(t *testing.T) {
	now := time.Now()
	att := func(status run.Status, d time.Duration) run.Attempt {
		return run.Attempt{Status: status, StartedAt: now, EndedAt: now.Add(d)}
	}

	r := buildReport(t,
		verdict.Verdict{CandidateID: "tc-1", Kind: verdict.Pass,
			Attempts: []run.Attempt{att(run.StatusSucceeded, 2 * time.Second)}},
		verdict.Verdict{CandidateID: "tc-2", Kind: verdict.Flaky,
			Attempts: []run.Attempt{
				att(run.StatusFailed, 6*time.Second),
				att(run.StatusSucceeded, time.Second),
			}},
	)

	a := Analyze(r)
	if a.Durations.Min != time.Second {
		t.Errorf("min: %v", a.Durations.Min)
	}
	if a.Durations.Max != 6*time.Second {
		t.Errorf("max: %v", a.Durations.Max)
	}
	if a.Durations.Avg != 3*time.Second {
		t.Errorf("avg: %v", a.Durations.Avg)
	}
}

func TestAnalyze_ErrorBuckets(t *testing.T) {
	att := func(status run.Status, reason string) run.Attempt {
		now := time.Now()
		return run.Attempt{
			Status: status, FailureReason: reason,
			StartedAt: now, EndedAt: now.Add(time.Second),
		}
	}

	r := buildReport(t,
		verdict.Verdict{CandidateID: "tc-1", Kind: verdict.Inconclusive,
			Attempts: []run.Attempt{att(run.StatusTimedOut, "deadline exceeded")}},
		verdict.Verdict{CandidateID: "tc-2", Kind: verdict.Fail,
			Attempts: []run.Attempt{
				att(run.StatusCrashed, "net::ERR_CONNECTION_REFUSED"),
				att(run.StatusFailed, "network unreachable"),
			}},
		verdict.Verdict{CandidateID: "tc-3", Kind: verdict.Fail,
			Attempts: []run.Attempt{att(run.StatusFailed, "wrong sum accepted")}},
		verdict.Verdict{CandidateID: "tc-4", Kind: verdict.Pass,
			Attempts: []run.Attempt{att(run.StatusSucceeded, "")}},
	)

	a := Analyze(r)
	if a.Errors.Timeout != 1 || a.Errors.Network != 2 || a.Errors.Other != 1 {
		t.Errorf("buckets: %+v", a.Errors)
	}
	if a.Errors.Total != 4 {
		t.Errorf("total errors: %d", a.Errors.Total)
	}
}

func TestAnalyze_InsightsAndRecommendations(t *testing.T) {
	now := time.Now()
	att := func(status run.Status, reason string, d time.Duration) run.Attempt {
		return run.Attempt{
			Status: status, FailureReason: reason,
			StartedAt: now, EndedAt: now.Add(d),
		}
	}

	// Slow run with timeouts and a failure: every advisory path fires.
	r := buildReport(t,
		verdict.Verdict{CandidateID: "tc-1", Kind: verdict.Inconclusive,
			Attempts: []run.Attempt{att(run.StatusTimedOut, "deadline exceeded", 35*time.Second)}},
		verdict.Verdict{CandidateID: "tc-2", Kind: verdict.Fail,
			Attempts: []run.Attempt{att(run.StatusFailed, "network unreachable", 11*time.Second)}},
	)

	a := Analyze(r)
	wantInsights := []string{"running slowly", "very slow", "low pass rate"}
	for _, w := range wantInsights {
		if !containsSubstring(a.Insights, w) {
			t.Errorf("insights missing %q: %v", w, a.Insights)
		}
	}
	wantRecs := []string{"execution speed", "failing tests", "timeout values", "network"}
	for _, w := range wantRecs {
		if !containsSubstring(a.Recommendations, w) {
			t.Errorf("recommendations missing %q: %v", w, a.Recommendations)
		}
	}
}

func TestAnalyze_CleanRunStaysQuiet(t *testing.T) {
	now := time.Now()
	r := buildReport(t,
		verdict.Verdict{CandidateID: "tc-1", Kind: verdict.Pass,
			Attempts: []run.Attempt{{
				Status: run.StatusSucceeded, StartedAt: now, EndedAt: now.Add(time.Second),
			}}},
	)

	a := Analyze(r)
	if a.Errors.Total != 0 {
		t.Errorf("errors on a clean run: %+v", a.Errors)
	}
	if len(a.Recommendations) != 0 {
		t.Errorf("recommendations on a clean run: %v", a.Recommendations)
	}
	// 100% pass rate reads as a stability insight, nothing else.
	if len(a.Insights) != 1 || !strings.Contains(a.Insights[0], "high pass rate") {
		t.Errorf("insights: %v", a.Insights)
	}
}

func containsSubstring(ss []string, sub string) bool {
	for _, s := range ss {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
