package report

import (
	"fmt"
	"strings"
	"time"

	"playtest/internal/run"
	"playtest/internal/verdict"
)

// Thresholds for the duration insights.
const (
	slowAvgAttempt = 10 * time.Second
	slowMaxAttempt = 30 * time.Second
)

// DurationStats summarizes attempt wall-clock times across the run.
type DurationStats struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
	Avg time.Duration `json:"avg"`
}

// ErrorBuckets counts non-success attempts by failure class.
type ErrorBuckets struct {
	Timeout int `json:"timeout"`
	Network int `json:"network"`
	Other   int `json:"other"`
	Total   int `json:"total"`
}

// Analysis is the derived layer on top of a finished report: duration
// statistics, an error breakdown, and human-readable insights and
// recommendations.
type Analysis struct {
	Durations       DurationStats `json:"durations"`
	Errors          ErrorBuckets  `json:"errors"`
	Insights        []string      `json:"insights"`
	Recommendations []string      `json:"recommendations"`
}

// Analyze derives insights from a finalized report. The report itself is
// never modified; analysis is recomputable at any time from the stored data.
func Analyze(r *Report) *Analysis {
	a := &Analysis{}

	var count int
	var total time.Duration
	first := true
	for _, v := range r.Verdicts {
		for i := range v.Attempts {
			at := &v.Attempts[i]
			d := at.Duration()
			count++
			total += d
			if first || d < a.Durations.Min {
				a.Durations.Min = d
			}
			if d > a.Durations.Max {
				a.Durations.Max = d
			}
			first = false

			if at.Status == run.StatusSucceeded {
				continue
			}
			a.Errors.Total++
			reason := strings.ToLower(at.FailureReason)
			switch {
			case at.Status == run.StatusTimedOut || strings.Contains(reason, "timeout"):
				a.Errors.Timeout++
			case strings.Contains(reason, "network") || strings.Contains(reason, "connection") || strings.Contains(reason, "net::"):
				a.Errors.Network++
			default:
				a.Errors.Other++
			}
		}
	}
	if count > 0 {
		a.Durations.Avg = total / time.Duration(count)
	}

	if a.Durations.Avg > slowAvgAttempt {
		a.Insights = append(a.Insights, fmt.Sprintf("attempts are running slowly (%s average)", a.Durations.Avg.Round(time.Millisecond)))
	}
	if a.Durations.Max > slowMaxAttempt {
		a.Insights = append(a.Insights, fmt.Sprintf("some attempts are very slow (%s worst case)", a.Durations.Max.Round(time.Millisecond)))
	}
	if r.Summary.Planned > 0 {
		switch {
		case r.Summary.PassRate < 70:
			a.Insights = append(a.Insights, fmt.Sprintf("low pass rate (%.1f%%) — investigate failures", r.Summary.PassRate))
		case r.Summary.PassRate > 95:
			a.Insights = append(a.Insights, fmt.Sprintf("high pass rate (%.1f%%) — good stability", r.Summary.PassRate))
		}
	}
	if flaky := countKind(r, verdict.Flaky); flaky > 0 {
		a.Insights = append(a.Insights, fmt.Sprintf("%d flaky candidate(s) — results vary between attempts", flaky))
	}

	if a.Durations.Avg > slowAvgAttempt {
		a.Recommendations = append(a.Recommendations, "consider optimizing test execution speed")
	}
	if r.Summary.Planned > 0 && r.Summary.PassRate < 80 {
		a.Recommendations = append(a.Recommendations, "investigate failing tests to improve reliability")
	}
	if a.Errors.Timeout > 0 {
		a.Recommendations = append(a.Recommendations, "increase timeout values for slow operations")
	}
	if a.Errors.Network > 0 {
		a.Recommendations = append(a.Recommendations, "check target availability and network error handling")
	}

	return a
}

func countKind(r *Report, k verdict.Kind) int {
	n := 0
	for _, v := range r.Verdicts {
		if v.Kind == k {
			n++
		}
	}
	return n
}
