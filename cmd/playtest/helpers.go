package main

import (
	"fmt"
	"io"

	"playtest/internal/report"
)

// printSummary renders the report summary and triage notes for the terminal.
func printSummary(w io.Writer, rep *report.Report) {
	s := rep.Summary
	fmt.Fprintf(w, "Target:  %s\n", rep.TargetURL)
	fmt.Fprintf(w, "Planned: %d  pass=%d fail=%d flaky=%d inconclusive=%d (%.1f%% pass rate)\n",
		s.Planned, s.Passed, s.Failed, s.Flaky, s.Inconclusive, s.PassRate)
	if s.AvgAttemptDuration > 0 {
		fmt.Fprintf(w, "Avg attempt duration: %s\n", s.AvgAttemptDuration)
	}

	if len(rep.TriageNotes) > 0 {
		fmt.Fprintln(w, "\nTriage:")
		for _, n := range rep.TriageNotes {
			fmt.Fprintf(w, "  %-28s %-12s attempts=%d repro=%.2f", n.CandidateID, n.Kind, n.AttemptCount, n.Reproducibility)
			if n.LastFailure != "" {
				fmt.Fprintf(w, "  %s", n.LastFailure)
			}
			fmt.Fprintln(w)
		}
	}
}

// verdictLines renders per-candidate verdicts in rank order.
func verdictLines(w io.Writer, rep *report.Report) {
	if rep.Plan == nil {
		return
	}
	// Plan candidates are already in rank order.
	for _, c := range rep.Plan.Candidates {
		v, ok := rep.Verdicts[c.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  %-28s %-12s attempts=%d repro=%.2f\n", c.ID, v.Kind, len(v.Attempts), v.Reproducibility)
	}
}
