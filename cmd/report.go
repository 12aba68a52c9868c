package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/initializ/pipeline-runner/pipeline"
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Show a run report written by pipeline --report",
	Long: "report prints the per-cell outcome of a saved pipeline run. It exits nonzero when the " +
		"recorded run failed, so CI jobs can gate on an earlier run.",
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	report, err := pipeline.ReadReport(args[0])
	if err != nil {
		return err
	}

	newReporter(cmd.OutOrStdout()).Report(report)
	if !report.Succeeded {
		return fmt.Errorf("recorded run of %s failed", report.Pipeline)
	}
	return nil
}
