// playtest drives automated end-to-end test runs against a live web game:
// plan shows the ranked candidate selection, run executes a suite in a real
// browser (or the replay driver), report inspects stored results, and serve
// exposes the whole flow as MCP tools over stdio.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "playtest",
	Short: "Automated end-to-end test orchestration for web games",
	Long: "Playtest selects the highest-value test candidates from a suite,\n" +
		"executes them concurrently against a live target with retries,\n" +
		"and assembles verdicts into a triage-ready report.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
