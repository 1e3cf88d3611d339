package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"playtest/adapters/browser"
	"playtest/adapters/catalog"
	"playtest/adapters/replay"
	"playtest/internal/engine"
	"playtest/internal/logging"
	"playtest/internal/report"
	"playtest/internal/run"
	"playtest/internal/store"
)

var runFlags struct {
	suite          string
	driver         string
	target         string
	topK           int
	concurrency    int
	attempts       int
	stopEarly      int
	attemptTimeout time.Duration
	runTimeout     time.Duration
	reportsDir     string
	artifactsDir   string
	dbPath         string
	noSave         bool
	headful        bool
	logLevel       string
	logFormat      string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a suite against the target and write a report",
	Long: `Run selects the top-K candidates from a suite by score, executes them
concurrently with per-candidate retry budgets, and writes the assembled
report to the reports directory and the local store.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.suite, "suite", "sumlink", "Suite name (see 'playtest plan --list')")
	f.StringVar(&runFlags.driver, "driver", "browser", "Execution driver (browser, replay)")
	f.StringVar(&runFlags.target, "target", "", "Target URL override (default: suite's target)")
	f.IntVar(&runFlags.topK, "top-k", 10, "Number of candidates to select")
	f.IntVar(&runFlags.concurrency, "concurrency", 3, "Parallel execution slots")
	f.IntVar(&runFlags.attempts, "attempts", 3, "Attempt budget per candidate")
	f.IntVar(&runFlags.stopEarly, "stop-early", 1, "Consecutive successes that end a candidate early")
	f.DurationVar(&runFlags.attemptTimeout, "attempt-timeout", 30*time.Second, "Per-attempt timeout")
	f.DurationVar(&runFlags.runTimeout, "run-timeout", 10*time.Minute, "Whole-run timeout")
	f.StringVar(&runFlags.reportsDir, "reports-dir", report.DefaultReportsDir, "Directory for report JSON files")
	f.StringVar(&runFlags.artifactsDir, "artifacts-dir", "artifacts", "Directory for screenshots and DOM snapshots")
	f.StringVar(&runFlags.dbPath, "db", store.DefaultDBPath, "Store DB path")
	f.BoolVar(&runFlags.noSave, "no-save", false, "Skip persisting the report to the store")
	f.BoolVar(&runFlags.headful, "headful", false, "Run the browser with a visible window")
	f.StringVar(&runFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&runFlags.logFormat, "log-format", "text", "Log format (text, json)")
}

func runRun(cmd *cobra.Command, _ []string) error {
	logging.Init(logging.ParseLevel(runFlags.logLevel), runFlags.logFormat)

	suite, err := catalog.LoadSuite(runFlags.suite)
	if err != nil {
		return err
	}
	pool, err := suite.Pool()
	if err != nil {
		return err
	}

	target := suite.TargetURL
	if runFlags.target != "" {
		target = runFlags.target
	}

	var driver run.Driver
	switch runFlags.driver {
	case "browser":
		driver = browser.New(browser.Config{
			TargetURL:    target,
			ArtifactsDir: runFlags.artifactsDir,
			Headless:     !runFlags.headful,
			NoSandbox:    true,
		})
	case "replay":
		driver = replay.New()
	default:
		return fmt.Errorf("unknown driver: %s (available: browser, replay)", runFlags.driver)
	}

	cfg := engine.Config{
		TargetURL:               target,
		TopK:                    runFlags.topK,
		MaxConcurrency:          runFlags.concurrency,
		MaxAttempts:             runFlags.attempts,
		StopEarlyOnSuccessCount: runFlags.stopEarly,
		PerAttemptTimeout:       runFlags.attemptTimeout,
		OrchestrationTimeout:    runFlags.runTimeout,
	}

	orch := engine.New(driver, cfg)
	rep, err := orch.Run(cmd.Context(), pool)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	path, err := report.WriteJSON(rep, runFlags.reportsDir)
	if err != nil {
		return err
	}

	if !runFlags.noSave {
		st, err := store.Open(runFlags.dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		if err := st.SaveReport(rep); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	printSummary(out, rep)
	fmt.Fprintf(out, "\nReport: %s\n", path)

	if rep.Summary.Failed > 0 {
		return fmt.Errorf("%d of %d candidates failed", rep.Summary.Failed, rep.Summary.Planned)
	}
	return nil
}
