package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"playtest/internal/report"
	"playtest/internal/store"
)

var reportFlags struct {
	dbPath   string
	id       string
	verdicts bool
	analyze  bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List stored reports, or show one in detail",
	Long: `Without flags, lists all stored reports newest first. With --id (or
--id latest) prints the summary and triage notes of a single report.`,
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.dbPath, "db", store.DefaultDBPath, "Store DB path")
	f.StringVar(&reportFlags.id, "id", "", "Report ID to show ('latest' for the most recent)")
	f.BoolVar(&reportFlags.verdicts, "verdicts", false, "Include per-candidate verdicts")
	f.BoolVar(&reportFlags.analyze, "analyze", false, "Include duration stats, error breakdown and recommendations")
}

func runReport(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(reportFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	out := cmd.OutOrStdout()

	if reportFlags.id == "" {
		metas, err := st.ListReports()
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			fmt.Fprintln(out, "no stored reports")
			return nil
		}
		for _, m := range metas {
			fmt.Fprintf(out, "%s  %s  planned=%d pass=%d fail=%d flaky=%d inconclusive=%d\n",
				m.ID, m.CreatedAt,
				m.Planned, m.Passed, m.Failed, m.Flaky, m.Inconclusive)
		}
		return nil
	}

	rep, err := loadReport(st, reportFlags.id)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Report:  %s (%s)\n", rep.ID, rep.CreatedAt.Format("2006-01-02 15:04:05"))
	printSummary(out, rep)
	if reportFlags.verdicts {
		fmt.Fprintln(out, "\nVerdicts:")
		verdictLines(out, rep)
	}
	if reportFlags.analyze {
		printAnalysis(out, report.Analyze(rep))
	}
	return nil
}

func printAnalysis(out io.Writer, a *report.Analysis) {
	fmt.Fprintln(out, "\nAnalysis:")
	fmt.Fprintf(out, "  attempt duration  min=%s max=%s avg=%s\n",
		a.Durations.Min.Round(time.Millisecond),
		a.Durations.Max.Round(time.Millisecond),
		a.Durations.Avg.Round(time.Millisecond))
	fmt.Fprintf(out, "  errors            timeout=%d network=%d other=%d\n",
		a.Errors.Timeout, a.Errors.Network, a.Errors.Other)
	for _, s := range a.Insights {
		fmt.Fprintf(out, "  insight: %s\n", s)
	}
	for _, s := range a.Recommendations {
		fmt.Fprintf(out, "  recommend: %s\n", s)
	}
}

func loadReport(st store.Store, id string) (*report.Report, error) {
	if id == "latest" {
		return st.LatestReport()
	}
	return st.GetReport(id)
}
