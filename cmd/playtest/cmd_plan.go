package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"playtest/adapters/catalog"
	"playtest/internal/plan"
)

var planFlags struct {
	suite string
	topK  int
	list  bool
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the ranked execution plan for a suite without running it",
	RunE:  runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planFlags.suite, "suite", "sumlink", "Suite name")
	f.IntVar(&planFlags.topK, "top-k", 10, "Number of candidates to select")
	f.BoolVar(&planFlags.list, "list", false, "List available suites and exit")
}

func runPlan(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if planFlags.list {
		for _, name := range catalog.ListSuites() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	suite, err := catalog.LoadSuite(planFlags.suite)
	if err != nil {
		return err
	}
	pool, err := suite.Pool()
	if err != nil {
		return err
	}

	execPlan, err := plan.Select(pool, planFlags.topK)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Suite:  %s (%d candidates, top %d selected)\n", suite.Name, pool.Len(), execPlan.Size())
	fmt.Fprintf(out, "Target: %s\n\n", suite.TargetURL)
	for _, c := range execPlan.Candidates {
		fmt.Fprintf(out, "  %2d. %-28s score=%.3f priority=%-7s %s\n", c.Rank, c.ID, c.Score, c.Priority, c.Name)
	}
	return nil
}
