// Command order-report loads order CSVs into a store, derives the sales funnel
// and data-quality checks, and writes an Excel workbook.
//
//	order-report generate --email you@example.com   # synthetic data, then build
//	order-report build --days 90 --out excel/Report.xlsx
//
// Exit status: 0 when every check passed, 1 when the report found issues,
// 2 on any failure that prevented the report from being produced.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	exitPassed = 0
	exitIssues = 1
	exitFatal  = 2
)

// errIssuesFound marks a successful build whose checks found problems.
var errIssuesFound = errors.New("report has data-quality issues")

var rootCmd = &cobra.Command{
	Use:           "order-report",
	Short:         "Build the order funnel and data-quality report",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newBuildCmd(), newGenerateCmd())
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitPassed
	case errors.Is(err, errIssuesFound):
		return exitIssues
	default:
		return exitFatal
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errIssuesFound) {
		fmt.Fprintf(os.Stderr, "order-report: %v\n", err)
	}
	os.Exit(exitCode(err))
}
